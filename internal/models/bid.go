package models

import "time"

// Bid is one immutable ledger entry. Entries are appended by the engine only
// and never deleted; Retracted is the single mutable flag, set by an explicit
// administrative action.
type Bid struct {
	ID             string    `json:"id"`
	AuctionID      string    `json:"auctionId"`
	BidderID       string    `json:"bidderId"`
	Amount         int64     `json:"amount"`
	MaxProxyAmount int64     `json:"maxProxyAmount,omitempty"`
	IsAutoBid      bool      `json:"isAutoBid"`
	IsWinning      bool      `json:"isWinning"`
	Retracted      bool      `json:"retracted"`
	Sequence       int64     `json:"sequence"`
	PlacedAt       time.Time `json:"placedAt"`
}

// BidRequest is the tagged inbound variant for placing a bid: manual when
// MaxProxyAmount is absent, manual-with-proxy when present.
type BidRequest struct {
	BidderID       string `json:"bidderId"`
	Amount         int64  `json:"amount"`
	MaxProxyAmount int64  `json:"maxProxyAmount,omitempty"`
}

// AutoBidRequest sets up a standing proxy authorization. InitialBid defaults
// to the auction's minimum next bid when zero.
type AutoBidRequest struct {
	AuctionID  string `json:"auctionId"`
	BidderID   string `json:"bidderId"`
	MaxAmount  int64  `json:"maxAmount"`
	InitialBid int64  `json:"initialBid,omitempty"`
}

// BidResult is the outcome of a successful placement: the updated projection
// triple plus every ledger entry the call created.
type BidResult struct {
	CurrentBid      int64     `json:"currentBid"`
	CurrentWinnerID string    `json:"currentWinnerId"`
	EndsAt          time.Time `json:"endsAt"`
	Extended        bool      `json:"extended"`
	Entries         []Bid     `json:"entries"`
}
