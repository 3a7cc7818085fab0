package models

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestIncrementAtTieredFallback(t *testing.T) {
	auction := Auction{}

	check.Equal(t, int64(5_000), auction.IncrementAt(0))
	check.Equal(t, int64(5_000), auction.IncrementAt(99_999))
	check.Equal(t, int64(10_000), auction.IncrementAt(100_000))
	check.Equal(t, int64(25_000), auction.IncrementAt(500_000))
	check.Equal(t, int64(50_000), auction.IncrementAt(1_000_000))
}

func TestIncrementAtExplicitOverridesTiers(t *testing.T) {
	auction := Auction{MinIncrement: 100}

	check.Equal(t, int64(100), auction.IncrementAt(0))
	check.Equal(t, int64(100), auction.IncrementAt(2_000_000))
}

func TestMinimumNextBid(t *testing.T) {
	auction := Auction{StartingPrice: 90_000}
	check.Equal(t, int64(90_000), auction.MinimumNextBid())

	auction.CurrentWinnerID = "alice"
	auction.CurrentBid = 90_000
	check.Equal(t, int64(95_000), auction.MinimumNextBid())

	auction.CurrentBid = 120_000
	check.Equal(t, int64(130_000), auction.MinimumNextBid())
}
