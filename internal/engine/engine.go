package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rsonetv/motoauto-bidding/internal/models"
	"github.com/rsonetv/motoauto-bidding/internal/notify"
	"github.com/rsonetv/motoauto-bidding/internal/repository"

	"github.com/google/uuid"
)

// Options tunes engine behavior.
type Options struct {
	// LockTimeout bounds the wait for an auction's serialization domain.
	LockTimeout time.Duration
	// SoftCloseWindow is the trailing window in which a bid triggers an
	// extension.
	SoftCloseWindow time.Duration
	// AllowSelfOutbid permits the current leader to re-bid below their own
	// standing ceiling.
	AllowSelfOutbid bool
}

const (
	defaultLockTimeout      = 3 * time.Second
	defaultSoftCloseWindow  = 5 * time.Minute
	defaultExtensionSeconds = 300
)

// Engine is the sole authority for accepting or rejecting bids. All state
// transitions of one auction run under that auction's serialization domain;
// bids on different auctions proceed in parallel. The in-memory projection
// is a cache over the ledger and is rebuilt by replay on first access.
type Engine struct {
	auctions repository.AuctionRepository
	bids     repository.BidRepository
	pub      notify.Publisher
	clock    Clock
	logger   *log.Logger
	opts     Options
	sched    *closeScheduler

	mu      sync.Mutex
	domains map[string]*domain
}

// proxyAuth is a bidder's active authorization: bid on their behalf up to
// maxAmount. Only the latest per (auction, bidder) is active.
type proxyAuth struct {
	maxAmount int64
	sequence  int64
}

// domain serializes all mutations of one auction. The buffered channel is
// the mutual-exclusion token; acquisition is bounded by LockTimeout.
type domain struct {
	sem     chan struct{}
	loaded  bool
	auction models.Auction
	nextSeq int64
	proxies map[string]proxyAuth
	lastAmt map[string]int64
}

// New creates an Engine. A nil publisher discards events and a nil clock
// falls back to the system clock.
func New(auctions repository.AuctionRepository, bids repository.BidRepository, pub notify.Publisher, clock Clock, logger *log.Logger, opts Options) *Engine {
	if pub == nil {
		pub = notify.Noop{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.SoftCloseWindow <= 0 {
		opts.SoftCloseWindow = defaultSoftCloseWindow
	}
	e := &Engine{
		auctions: auctions,
		bids:     bids,
		pub:      pub,
		clock:    clock,
		logger:   logger,
		opts:     opts,
		domains:  make(map[string]*domain),
	}
	e.sched = newCloseScheduler(clock, e.closeDue)
	return e
}

// CreateAuction registers a new auction from the listing system's parameters
// and schedules its close timer.
func (e *Engine) CreateAuction(ctx context.Context, req models.AuctionRequest) (*models.Auction, error) {
	if req.ListingID == "" || req.SellerID == "" {
		return nil, &Error{Code: CodeInvalidRequest, Message: "listingId and sellerId are required"}
	}
	if req.StartingPrice <= 0 {
		return nil, &Error{Code: CodeInvalidRequest, Message: "startingPrice must be positive"}
	}
	if req.MinIncrement < 0 || req.ReservePrice < 0 {
		return nil, &Error{Code: CodeInvalidRequest, Message: "minIncrement and reservePrice must not be negative"}
	}
	if req.EndsAt.IsZero() && req.DurationSeconds <= 0 {
		return nil, &Error{Code: CodeInvalidRequest, Message: "endsAt or durationSeconds is required"}
	}

	extensionSeconds := req.ExtensionSeconds
	if extensionSeconds <= 0 {
		extensionSeconds = defaultExtensionSeconds
	}
	maxExtensions := req.MaxExtensions
	if maxExtensions <= 0 {
		maxExtensions = models.DefaultMaxExtensions
	}

	now := e.clock.Now()
	endsAt := req.EndsAt
	if endsAt.IsZero() {
		endsAt = now.Add(time.Duration(req.DurationSeconds) * time.Second)
	}
	if !endsAt.After(now) {
		return nil, &Error{Code: CodeInvalidRequest, Message: "endsAt must be in the future"}
	}

	auction := &models.Auction{
		ID:               uuid.NewString(),
		ListingID:        req.ListingID,
		SellerID:         req.SellerID,
		StartingPrice:    req.StartingPrice,
		MinIncrement:     req.MinIncrement,
		ReservePrice:     req.ReservePrice,
		EndsAt:           endsAt,
		SoftCloseEnabled: req.SoftCloseEnabled,
		ExtensionSeconds: extensionSeconds,
		MaxExtensions:    maxExtensions,
		Status:           models.OpenAuction,
		CreatedAt:        now,
	}
	if err := e.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}
	e.sched.Schedule(auction.ID, auction.EndsAt)
	return auction, nil
}

// PlaceBid validates a bid against the auction's current state, resolves it
// against standing proxy authorizations, appends the resulting ledger
// entries transactionally with the projection update, applies the soft-close
// rule and publishes the outcome.
func (e *Engine) PlaceBid(ctx context.Context, auctionID string, req models.BidRequest) (*models.BidResult, error) {
	d := e.domainFor(auctionID)
	if err := e.acquire(ctx, d); err != nil {
		return nil, err
	}
	defer e.release(d)

	if err := e.load(ctx, d, auctionID); err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if err := e.ensureOpen(ctx, d, now); err != nil {
		return nil, err
	}
	return e.placeLocked(ctx, d, now, req)
}

// SetupAutoBid records a standing proxy authorization by placing its initial
// bid with the ceiling attached. The initial bid defaults to the minimum
// next amount.
func (e *Engine) SetupAutoBid(ctx context.Context, req models.AutoBidRequest) (*models.BidResult, error) {
	d := e.domainFor(req.AuctionID)
	if err := e.acquire(ctx, d); err != nil {
		return nil, err
	}
	defer e.release(d)

	if err := e.load(ctx, d, req.AuctionID); err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if err := e.ensureOpen(ctx, d, now); err != nil {
		return nil, err
	}

	if _, active := d.proxies[req.BidderID]; active {
		return nil, &Error{Code: CodeDuplicateAutoBid, Message: "an auto-bid is already active for this auction"}
	}
	initial := req.InitialBid
	if initial == 0 {
		initial = d.auction.MinimumNextBid()
	}
	return e.placeLocked(ctx, d, now, models.BidRequest{
		BidderID:       req.BidderID,
		Amount:         initial,
		MaxProxyAmount: req.MaxAmount,
	})
}

// RetractBid flags one ledger entry as retracted (administrative action) and
// recomputes the projection from the remaining entries. The entry itself is
// never deleted.
func (e *Engine) RetractBid(ctx context.Context, bidID string) (*models.BidResult, error) {
	bid, err := e.bids.GetBid(ctx, bidID)
	if err != nil {
		if err == repository.ErrNoRows {
			return nil, errNotFound("bid")
		}
		return nil, err
	}

	d := e.domainFor(bid.AuctionID)
	if err := e.acquire(ctx, d); err != nil {
		return nil, err
	}
	defer e.release(d)

	if err := e.load(ctx, d, bid.AuctionID); err != nil {
		return nil, err
	}

	// Re-read under the domain: a concurrent retraction may have flagged the
	// entry between the lookup and the lock.
	bid, err = e.bids.GetBid(ctx, bidID)
	if err != nil {
		if err == repository.ErrNoRows {
			return nil, errNotFound("bid")
		}
		return nil, err
	}
	if bid.Retracted {
		return nil, &Error{Code: CodeInvalidRequest, Message: "bid is already retracted"}
	}

	ledger, err := e.bids.ListActiveBids(ctx, bid.AuctionID)
	if err != nil {
		return nil, err
	}
	remaining := make([]models.Bid, 0, len(ledger))
	for _, entry := range ledger {
		if entry.ID != bidID {
			remaining = append(remaining, entry)
		}
	}

	st := replayLedger(remaining)
	updated := d.auction
	updated.CurrentBid = st.currentBid
	updated.CurrentWinnerID = st.winnerID
	updated.ReserveMet = reserveMet(&updated, st.winnerID, st.currentBid)

	if err := e.bids.SetRetracted(ctx, &updated, bidID); err != nil {
		return nil, err
	}

	d.auction = updated
	d.proxies = st.proxies
	d.lastAmt = st.lastAmt
	if st.nextSeq > d.nextSeq {
		d.nextSeq = st.nextSeq
	}

	e.pub.BidAccepted(models.BidAcceptedEvent{
		AuctionID:  updated.ID,
		CurrentBid: updated.CurrentBid,
		WinnerID:   updated.CurrentWinnerID,
		Timestamp:  e.clock.Now(),
	})
	return &models.BidResult{
		CurrentBid:      updated.CurrentBid,
		CurrentWinnerID: updated.CurrentWinnerID,
		EndsAt:          updated.EndsAt,
	}, nil
}

// GetState returns the auction's current projection. Observing a passed end
// time closes the auction first (lazy close), so readers never see an open
// auction past its end.
func (e *Engine) GetState(ctx context.Context, auctionID string) (*models.Auction, error) {
	d := e.domainFor(auctionID)
	if err := e.acquire(ctx, d); err != nil {
		return nil, err
	}
	defer e.release(d)

	if err := e.load(ctx, d, auctionID); err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if d.auction.Status == models.OpenAuction && !now.Before(d.auction.EndsAt) {
		if err := e.closeLocked(ctx, d); err != nil {
			return nil, err
		}
	}
	auction := d.auction
	return &auction, nil
}

// ListBids returns the ordered ledger for an auction.
func (e *Engine) ListBids(ctx context.Context, auctionID string, includeRetracted bool, limit, offset int) ([]models.Bid, error) {
	if _, err := e.auctions.GetAuction(ctx, auctionID); err != nil {
		if err == repository.ErrNoRows {
			return nil, errNotFound("auction")
		}
		return nil, err
	}
	return e.bids.ListBids(ctx, auctionID, includeRetracted, limit, offset)
}

// RestoreSchedules re-arms close timers for every open auction, firing
// immediately for those already past their end time. Called once at startup.
func (e *Engine) RestoreSchedules(ctx context.Context) error {
	auctions, err := e.auctions.ListOpenAuctions(ctx)
	if err != nil {
		return err
	}
	for _, auction := range auctions {
		e.sched.Schedule(auction.ID, auction.EndsAt)
	}
	return nil
}

// placeLocked is the validate-resolve-append-extend-publish critical
// section. The caller holds the domain and has verified the auction is open.
func (e *Engine) placeLocked(ctx context.Context, d *domain, now time.Time, req models.BidRequest) (*models.BidResult, error) {
	auction := &d.auction

	if req.BidderID == "" {
		return nil, &Error{Code: CodeInvalidRequest, Message: "bidderId is required"}
	}
	if req.BidderID == auction.SellerID {
		return nil, &Error{Code: CodeOwnAuction, Message: "cannot bid on your own auction"}
	}
	minNext := auction.MinimumNextBid()
	if req.Amount <= 0 || req.Amount < minNext {
		return nil, errBidTooLow(minNext)
	}
	if req.MaxProxyAmount != 0 && req.MaxProxyAmount < req.Amount {
		return nil, &Error{Code: CodeInvalidProxyCeiling, Message: "maximum proxy amount must not be below the bid amount"}
	}
	if !e.opts.AllowSelfOutbid && req.BidderID == auction.CurrentWinnerID {
		if auth, ok := d.proxies[req.BidderID]; ok && auth.maxAmount >= req.Amount &&
			(req.MaxProxyAmount == 0 || req.MaxProxyAmount <= auth.maxAmount) {
			return nil, &Error{Code: CodeSelfOutbid, Message: "you already hold the winning position up to this amount"}
		}
	}

	standing := make([]ProxyStanding, 0, len(d.proxies))
	for bidder, auth := range d.proxies {
		if bidder == req.BidderID {
			continue // superseded by the new bid
		}
		standing = append(standing, ProxyStanding{
			BidderID:   bidder,
			MaxAmount:  auth.maxAmount,
			LastAmount: d.lastAmt[bidder],
			Sequence:   auth.sequence,
		})
	}
	res := Resolve(
		Incoming{BidderID: req.BidderID, Amount: req.Amount, MaxProxyAmount: req.MaxProxyAmount},
		standing,
		auction.CurrentBid,
		auction.IncrementAt(auction.CurrentBid),
	)

	entries := make([]models.Bid, 0, len(res.Entries))
	seq := d.nextSeq
	for _, pe := range res.Entries {
		entries = append(entries, models.Bid{
			ID:             uuid.NewString(),
			AuctionID:      auction.ID,
			BidderID:       pe.BidderID,
			Amount:         pe.Amount,
			MaxProxyAmount: pe.MaxProxyAmount,
			IsAutoBid:      pe.IsAutoBid,
			Sequence:       seq,
			PlacedAt:       now,
		})
		seq++
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].BidderID == res.WinnerID && entries[i].Amount == res.CurrentBid {
			entries[i].IsWinning = true
			break
		}
	}

	updated := *auction
	updated.CurrentBid = res.CurrentBid
	updated.CurrentWinnerID = res.WinnerID
	updated.ReserveMet = reserveMet(&updated, res.WinnerID, res.CurrentBid)

	extended := false
	if updated.SoftCloseEnabled && updated.ExtensionCount < maxExtensions(&updated) &&
		updated.EndsAt.Sub(now) <= e.opts.SoftCloseWindow {
		updated.EndsAt = now.Add(time.Duration(updated.ExtensionSeconds) * time.Second)
		updated.ExtensionCount++
		extended = true
	}

	// Single transaction: ledger rows and projection commit together or not
	// at all. The cache is only touched after a successful commit.
	if err := e.bids.AppendAccepted(ctx, &updated, entries); err != nil {
		return nil, err
	}

	d.auction = updated
	d.nextSeq = seq
	for _, bid := range entries {
		if bid.Amount > d.lastAmt[bid.BidderID] {
			d.lastAmt[bid.BidderID] = bid.Amount
		}
		if !bid.IsAutoBid {
			if bid.MaxProxyAmount > 0 {
				d.proxies[bid.BidderID] = proxyAuth{maxAmount: bid.MaxProxyAmount, sequence: bid.Sequence}
			} else {
				delete(d.proxies, bid.BidderID)
			}
		}
	}

	e.pub.BidAccepted(models.BidAcceptedEvent{
		AuctionID:  auction.ID,
		CurrentBid: res.CurrentBid,
		WinnerID:   res.WinnerID,
		Timestamp:  now,
	})
	if extended {
		e.pub.AuctionExtended(models.AuctionExtendedEvent{
			AuctionID:      auction.ID,
			NewEndsAt:      updated.EndsAt,
			ExtensionCount: updated.ExtensionCount,
		})
		e.sched.Schedule(auction.ID, updated.EndsAt)
	}

	return &models.BidResult{
		CurrentBid:      res.CurrentBid,
		CurrentWinnerID: res.WinnerID,
		EndsAt:          updated.EndsAt,
		Extended:        extended,
		Entries:         entries,
	}, nil
}

// ensureOpen rejects requests against closed auctions. A passed end time
// closes the auction before the rejection, so the close always wins the race
// against a late bid.
func (e *Engine) ensureOpen(ctx context.Context, d *domain, now time.Time) error {
	if d.auction.Status == models.ClosedAuction {
		return errAuctionClosed()
	}
	if !now.Before(d.auction.EndsAt) {
		if err := e.closeLocked(ctx, d); err != nil {
			return err
		}
		return errAuctionClosed()
	}
	return nil
}

// closeLocked performs the open -> closed transition under the domain,
// persists it and publishes the closure exactly once.
func (e *Engine) closeLocked(ctx context.Context, d *domain) error {
	updated := d.auction
	updated.Status = models.ClosedAuction
	if err := e.auctions.UpdateAuctionState(ctx, &updated); err != nil {
		return err
	}
	d.auction = updated
	e.sched.Cancel(updated.ID)
	e.pub.AuctionClosed(models.AuctionClosedEvent{
		AuctionID:  updated.ID,
		WinnerID:   updated.CurrentWinnerID,
		FinalPrice: updated.CurrentBid,
	})
	return nil
}

// closeDue is the scheduler callback. The end time may have moved since the
// timer was armed, in which case the timer is re-armed instead.
func (e *Engine) closeDue(auctionID string) {
	ctx := context.Background()
	d := e.domainFor(auctionID)
	if err := e.acquire(ctx, d); err != nil {
		// Contended domain; whoever holds it will observe the passed end
		// time, but re-arm in case it was a slow reader.
		e.sched.Schedule(auctionID, e.clock.Now().Add(time.Second))
		return
	}
	defer e.release(d)

	if err := e.load(ctx, d, auctionID); err != nil {
		e.logger.Printf("close timer: load auction %s: %v", auctionID, err)
		return
	}
	if d.auction.Status != models.OpenAuction {
		return
	}
	now := e.clock.Now()
	if now.Before(d.auction.EndsAt) {
		e.sched.Schedule(auctionID, d.auction.EndsAt)
		return
	}
	if err := e.closeLocked(ctx, d); err != nil {
		e.logger.Printf("close timer: close auction %s: %v", auctionID, err)
	}
}

func (e *Engine) domainFor(auctionID string) *domain {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.domains[auctionID]
	if !ok {
		d = &domain{sem: make(chan struct{}, 1)}
		e.domains[auctionID] = d
	}
	return d
}

// acquire takes the auction's serialization domain, waiting at most
// LockTimeout.
func (e *Engine) acquire(ctx context.Context, d *domain) error {
	select {
	case d.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case d.sem <- struct{}{}:
		return nil
	case <-e.clock.After(e.opts.LockTimeout):
		return &Error{Code: CodeTimeout, Message: "auction is busy, try again"}
	case <-ctx.Done():
		return &Error{Code: CodeTimeout, Message: "request canceled while waiting for auction"}
	}
}

func (e *Engine) release(d *domain) {
	<-d.sem
}

// load populates the domain's projection by replaying the ledger. The
// replayed values override whatever the auction row carries; the ledger is
// the source of truth.
func (e *Engine) load(ctx context.Context, d *domain, auctionID string) error {
	if d.loaded {
		return nil
	}
	auction, err := e.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		if err == repository.ErrNoRows {
			return errNotFound("auction")
		}
		return err
	}
	ledger, err := e.bids.ListActiveBids(ctx, auctionID)
	if err != nil {
		return err
	}
	st := replayLedger(ledger)
	d.auction = *auction
	d.auction.CurrentBid = st.currentBid
	d.auction.CurrentWinnerID = st.winnerID
	d.auction.ReserveMet = reserveMet(&d.auction, st.winnerID, st.currentBid)
	d.nextSeq = st.nextSeq
	d.proxies = st.proxies
	d.lastAmt = st.lastAmt
	d.loaded = true
	return nil
}

// replayState is the projection derived from a ledger replay.
type replayState struct {
	currentBid int64
	winnerID   string
	nextSeq    int64
	proxies    map[string]proxyAuth
	lastAmt    map[string]int64
}

// replayLedger folds an ordered, non-retracted ledger into the projection.
// On equal amounts the entry recorded as winning takes the win, so a tie
// between equal ceilings replays to the same holder it resolved to when
// accepted. Retracted manual bids neither authorize nor supersede a proxy.
func replayLedger(ledger []models.Bid) replayState {
	st := replayState{
		proxies: make(map[string]proxyAuth),
		lastAmt: make(map[string]int64),
	}
	for _, bid := range ledger {
		if bid.Sequence >= st.nextSeq {
			st.nextSeq = bid.Sequence + 1
		}
		if bid.Amount > st.lastAmt[bid.BidderID] {
			st.lastAmt[bid.BidderID] = bid.Amount
		}
		if !bid.IsAutoBid {
			if bid.MaxProxyAmount > 0 {
				st.proxies[bid.BidderID] = proxyAuth{maxAmount: bid.MaxProxyAmount, sequence: bid.Sequence}
			} else {
				delete(st.proxies, bid.BidderID)
			}
		}
		if bid.Amount > st.currentBid || (bid.Amount == st.currentBid && bid.IsWinning) {
			st.currentBid = bid.Amount
			st.winnerID = bid.BidderID
		}
	}
	return st
}

func reserveMet(auction *models.Auction, winnerID string, currentBid int64) bool {
	if winnerID == "" {
		return false
	}
	return auction.ReservePrice == 0 || currentBid >= auction.ReservePrice
}

func maxExtensions(auction *models.Auction) int {
	if auction.MaxExtensions <= 0 {
		return models.DefaultMaxExtensions
	}
	return auction.MaxExtensions
}
