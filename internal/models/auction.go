package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	OpenAuction   AuctionStatus = "open"   // The auction accepts bids
	ClosedAuction AuctionStatus = "closed" // Terminal, no transition out
)

// DefaultMaxExtensions bounds how often a soft close may push the end time.
const DefaultMaxExtensions = 10

// Auction is the mutable current-state projection of one auction.
// CurrentBid and CurrentWinnerID always mirror the most recent accepted,
// non-retracted ledger entry. Amounts are CHF minor units (rappen).
type Auction struct {
	ID               string        `json:"id"`
	ListingID        string        `json:"listingId"`
	SellerID         string        `json:"sellerId"`
	StartingPrice    int64         `json:"startingPrice"`
	MinIncrement     int64         `json:"minIncrement"`
	ReservePrice     int64         `json:"-"`
	CurrentBid       int64         `json:"currentBid"`
	CurrentWinnerID  string        `json:"currentWinnerId,omitempty"`
	ReserveMet       bool          `json:"reserveMet"`
	EndsAt           time.Time     `json:"endsAt"`
	SoftCloseEnabled bool          `json:"softCloseEnabled"`
	ExtensionSeconds int           `json:"extensionSeconds"`
	ExtensionCount   int           `json:"extensionCount"`
	MaxExtensions    int           `json:"maxExtensions"`
	Status           AuctionStatus `json:"status"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// AuctionRequest is the collaborator contract at auction-open time: the
// listing system supplies the pricing and closing parameters. The closing
// time comes as an explicit EndsAt or as a duration from now.
type AuctionRequest struct {
	ListingID        string    `json:"listingId"`
	SellerID         string    `json:"sellerId"`
	StartingPrice    int64     `json:"startingPrice"`
	MinIncrement     int64     `json:"minIncrement"`
	ReservePrice     int64     `json:"reservePrice"`
	DurationSeconds  int64     `json:"durationSeconds,omitempty"`
	EndsAt           time.Time `json:"endsAt,omitempty"`
	SoftCloseEnabled bool      `json:"softCloseEnabled"`
	ExtensionSeconds int       `json:"extensionSeconds"`
	MaxExtensions    int       `json:"maxExtensions"`
}

// IncrementAt returns the minimum increment required on top of the given
// price: the auction's own increment if set, otherwise the Swiss tiered
// fallback (50 CHF below 1'000, 100 below 5'000, 250 below 10'000, 500 above).
func (a *Auction) IncrementAt(price int64) int64 {
	if a.MinIncrement > 0 {
		return a.MinIncrement
	}
	switch {
	case price >= 1_000_000:
		return 50_000
	case price >= 500_000:
		return 25_000
	case price >= 100_000:
		return 10_000
	default:
		return 5_000
	}
}

// MinimumNextBid returns the lowest amount the next bid may carry.
func (a *Auction) MinimumNextBid() int64 {
	if a.CurrentWinnerID == "" {
		return a.StartingPrice
	}
	return a.CurrentBid + a.IncrementAt(a.CurrentBid)
}
