package engine

// The proxy bid resolver implements English-auction-with-proxy semantics:
// the winner pays one increment over the strongest competing ceiling, capped
// by their own ceiling. It is pure given its inputs.

// Incoming is a validated bid entering resolution. MaxProxyAmount of zero
// means a plain manual bid.
type Incoming struct {
	BidderID       string
	Amount         int64
	MaxProxyAmount int64
}

// ProxyStanding is a competing bidder's active auto-bid authorization.
type ProxyStanding struct {
	BidderID   string
	MaxAmount  int64
	LastAmount int64 // highest amount already on the ledger for this bidder
	Sequence   int64 // ledger sequence of the authorizing bid
}

// ProposedEntry is a ledger entry the resolver wants recorded. IsAutoBid
// marks entries synthesized on a bidder's behalf.
type ProposedEntry struct {
	BidderID       string
	Amount         int64
	MaxProxyAmount int64
	IsAutoBid      bool
}

// Resolution is the resolver output: the new public price and winner, plus
// every entry to append (the incoming bid first, counter-bids after).
type Resolution struct {
	CurrentBid int64
	WinnerID   string
	Entries    []ProposedEntry
}

// Resolve computes the auction's new public price and winner given a new bid
// and the standing proxy authorizations of other bidders. The incoming
// bidder's own prior authorization must not be passed in; it is superseded.
// Equal ceilings resolve in favor of the earlier-recorded authorization.
func Resolve(in Incoming, standing []ProxyStanding, currentBid, minIncrement int64) Resolution {
	entries := []ProposedEntry{{
		BidderID:       in.BidderID,
		Amount:         in.Amount,
		MaxProxyAmount: in.MaxProxyAmount,
	}}

	var top *ProxyStanding
	for i := range standing {
		p := &standing[i]
		if p.BidderID == in.BidderID || p.MaxAmount <= currentBid {
			continue
		}
		if top == nil || p.MaxAmount > top.MaxAmount ||
			(p.MaxAmount == top.MaxAmount && p.Sequence < top.Sequence) {
			top = p
		}
	}
	if top == nil {
		return Resolution{CurrentBid: in.Amount, WinnerID: in.BidderID, Entries: entries}
	}

	ceiling := in.MaxProxyAmount
	if ceiling == 0 {
		ceiling = in.Amount
	}

	if ceiling > top.MaxAmount {
		// Incoming bidder clears the strongest competitor. The competitor's
		// ceiling goes on the ledger unless it is already there or falls
		// below the incoming manual amount.
		if top.MaxAmount > top.LastAmount && top.MaxAmount > in.Amount {
			entries = append(entries, ProposedEntry{
				BidderID:       top.BidderID,
				Amount:         top.MaxAmount,
				MaxProxyAmount: top.MaxAmount,
				IsAutoBid:      true,
			})
		}
		price := min(ceiling, top.MaxAmount+minIncrement)
		if price < in.Amount {
			price = in.Amount
		}
		if price > in.Amount {
			entries = append(entries, ProposedEntry{
				BidderID:       in.BidderID,
				Amount:         price,
				MaxProxyAmount: in.MaxProxyAmount,
				IsAutoBid:      true,
			})
		}
		return Resolution{CurrentBid: price, WinnerID: in.BidderID, Entries: entries}
	}

	// The standing proxy holds the win; its price rises just enough to stay
	// ahead, capped by its own ceiling.
	price := min(top.MaxAmount, ceiling+minIncrement)
	if price > top.LastAmount {
		entries = append(entries, ProposedEntry{
			BidderID:       top.BidderID,
			Amount:         price,
			MaxProxyAmount: top.MaxAmount,
			IsAutoBid:      true,
		})
	}
	return Resolution{CurrentBid: price, WinnerID: top.BidderID, Entries: entries}
}
