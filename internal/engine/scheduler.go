package engine

import (
	"sync"
	"time"
)

// closeScheduler arms one wake-up per open auction at its end time. Firing
// goes through the engine's per-auction serialization domain, so the timer
// path and the bid path can never interleave. Re-scheduling replaces the
// pending timer.
type closeScheduler struct {
	clock Clock
	onDue func(auctionID string)

	mu     sync.Mutex
	timers map[string]chan struct{}
}

func newCloseScheduler(clock Clock, onDue func(auctionID string)) *closeScheduler {
	return &closeScheduler{
		clock:  clock,
		onDue:  onDue,
		timers: make(map[string]chan struct{}),
	}
}

// Schedule arms (or re-arms) the close timer for an auction.
func (s *closeScheduler) Schedule(auctionID string, at time.Time) {
	cancel := make(chan struct{})

	s.mu.Lock()
	if prev, ok := s.timers[auctionID]; ok {
		close(prev)
	}
	s.timers[auctionID] = cancel
	s.mu.Unlock()

	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	timer := s.clock.After(delay)
	go func() {
		select {
		case <-timer:
			s.mu.Lock()
			current := s.timers[auctionID] == cancel
			if current {
				delete(s.timers, auctionID)
			}
			s.mu.Unlock()
			// A replaced or canceled timer stays silent even if its deadline
			// raced the replacement.
			if current {
				s.onDue(auctionID)
			}
		case <-cancel:
		}
	}()
}

// Cancel drops the pending timer for an auction, if any.
func (s *closeScheduler) Cancel(auctionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[auctionID]; ok {
		close(prev)
		delete(s.timers, auctionID)
	}
}
