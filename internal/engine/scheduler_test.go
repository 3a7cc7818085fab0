package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestSchedulerFiresAtDeadline(t *testing.T) {
	clock := NewManualClock(testStart)
	var mu sync.Mutex
	var fired []string
	sched := newCloseScheduler(clock, func(id string) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, id)
	})

	sched.Schedule("a-1", testStart.Add(time.Minute))
	waitFor(t, func() bool { return clock.Waiters() == 1 })

	clock.Advance(59 * time.Second)
	mu.Lock()
	check.Equal(t, 0, len(fired))
	mu.Unlock()

	clock.Advance(time.Second)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	})
}

func TestSchedulerCancelAndReplace(t *testing.T) {
	clock := NewManualClock(testStart)
	var mu sync.Mutex
	var fired []string
	sched := newCloseScheduler(clock, func(id string) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, id)
	})

	sched.Schedule("a-1", testStart.Add(time.Minute))
	waitFor(t, func() bool { return clock.Waiters() == 1 })
	sched.Cancel("a-1")
	clock.Advance(2 * time.Minute)

	mu.Lock()
	check.Equal(t, 0, len(fired))
	mu.Unlock()

	// Re-scheduling replaces the pending timer; only the new deadline fires.
	sched.Schedule("a-2", testStart.Add(5*time.Minute))
	waitFor(t, func() bool { return clock.Waiters() >= 1 })
	sched.Schedule("a-2", testStart.Add(10*time.Minute))
	clock.Advance(4 * time.Minute) // t = 6m, first deadline passed but replaced

	mu.Lock()
	check.Equal(t, 0, len(fired))
	mu.Unlock()

	clock.Advance(4 * time.Minute)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1 && fired[0] == "a-2"
	})
}
