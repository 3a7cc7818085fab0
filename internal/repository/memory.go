package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/rsonetv/motoauto-bidding/internal/models"
)

// MemoryStore is an in-memory AuctionRepository and BidRepository, used by
// tests and as a standalone ledger when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	auctions map[string]models.Auction
	bids     map[string][]models.Bid // auction id -> ledger order
	byID     map[string]string       // bid id -> auction id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]models.Auction),
		bids:     make(map[string][]models.Bid),
		byID:     make(map[string]string),
	}
}

// CreateAuction inserts a new auction.
func (s *MemoryStore) CreateAuction(_ context.Context, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[auction.ID] = *auction
	return nil
}

// GetAuction returns one auction by id.
func (s *MemoryStore) GetAuction(_ context.Context, auctionID string) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, ErrNoRows
	}
	return &auction, nil
}

// ListOpenAuctions returns every open auction ordered by end time.
func (s *MemoryStore) ListOpenAuctions(_ context.Context) ([]models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var auctions []models.Auction
	for _, auction := range s.auctions {
		if auction.Status == models.OpenAuction {
			auctions = append(auctions, auction)
		}
	}
	sort.Slice(auctions, func(i, j int) bool { return auctions[i].EndsAt.Before(auctions[j].EndsAt) })
	return auctions, nil
}

// UpdateAuctionState persists the mutable projection fields.
func (s *MemoryStore) UpdateAuctionState(_ context.Context, auction *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[auction.ID]; !ok {
		return ErrNoRows
	}
	s.auctions[auction.ID] = *auction
	return nil
}

// AppendAccepted appends ledger entries and updates the projection atomically.
func (s *MemoryStore) AppendAccepted(_ context.Context, auction *models.Auction, entries []models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[auction.ID]; !ok {
		return ErrNoRows
	}
	for _, bid := range entries {
		s.bids[auction.ID] = append(s.bids[auction.ID], bid)
		s.byID[bid.ID] = auction.ID
	}
	s.auctions[auction.ID] = *auction
	return nil
}

// GetBid returns one ledger entry by id.
func (s *MemoryStore) GetBid(_ context.Context, bidID string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auctionID, ok := s.byID[bidID]
	if !ok {
		return nil, ErrNoRows
	}
	for _, bid := range s.bids[auctionID] {
		if bid.ID == bidID {
			return &bid, nil
		}
	}
	return nil, ErrNoRows
}

// ListBids returns the ordered ledger for an auction.
func (s *MemoryStore) ListBids(_ context.Context, auctionID string, includeRetracted bool, limit, offset int) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []models.Bid
	for _, bid := range s.bids[auctionID] {
		if bid.Retracted && !includeRetracted {
			continue
		}
		bids = append(bids, bid)
	}
	if offset >= len(bids) {
		return nil, nil
	}
	bids = bids[offset:]
	if limit < len(bids) {
		bids = bids[:limit]
	}
	return bids, nil
}

// ListActiveBids returns every non-retracted entry in ledger order.
func (s *MemoryStore) ListActiveBids(_ context.Context, auctionID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []models.Bid
	for _, bid := range s.bids[auctionID] {
		if !bid.Retracted {
			bids = append(bids, bid)
		}
	}
	return bids, nil
}

// SetRetracted flags one entry and updates the projection atomically.
func (s *MemoryStore) SetRetracted(_ context.Context, auction *models.Auction, bidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	auctionID, ok := s.byID[bidID]
	if !ok {
		return ErrNoRows
	}
	ledger := s.bids[auctionID]
	for i := range ledger {
		if ledger[i].ID == bidID {
			ledger[i].Retracted = true
			s.auctions[auction.ID] = *auction
			return nil
		}
	}
	return ErrNoRows
}
