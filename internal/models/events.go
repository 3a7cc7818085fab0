package models

import "time"

// Event types broadcast to observers. Delivery is best-effort and
// at-most-once; the ledger and projection stay authoritative, and a missed
// event is recoverable by polling current auction state.

// BidAcceptedEvent is published after every accepted bid.
type BidAcceptedEvent struct {
	AuctionID  string    `json:"auctionId"`
	CurrentBid int64     `json:"currentBid"`
	WinnerID   string    `json:"winnerId"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuctionExtendedEvent is published when a soft close pushes the end time.
type AuctionExtendedEvent struct {
	AuctionID      string    `json:"auctionId"`
	NewEndsAt      time.Time `json:"newEndsAt"`
	ExtensionCount int       `json:"extensionCount"`
}

// AuctionClosedEvent is published exactly once, on the open -> closed transition.
type AuctionClosedEvent struct {
	AuctionID  string `json:"auctionId"`
	WinnerID   string `json:"winnerId,omitempty"`
	FinalPrice int64  `json:"finalPrice"`
}
