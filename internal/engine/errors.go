package engine

import "fmt"

// Code classifies a rejected request.
type Code string

const (
	CodeAuctionClosed       Code = "AUCTION_CLOSED"
	CodeBidTooLow           Code = "BID_TOO_LOW"
	CodeInvalidProxyCeiling Code = "INVALID_PROXY_CEILING"
	CodeTimeout             Code = "TIMEOUT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeOwnAuction          Code = "OWN_AUCTION"
	CodeSelfOutbid          Code = "SELF_OUTBID"
	CodeDuplicateAutoBid    Code = "DUPLICATE_AUTO_BID"
	CodeInvalidRequest      Code = "INVALID_REQUEST"
)

// Error is a structured rejection surfaced synchronously to the caller.
// Rejections never change the auction's public state.
type Error struct {
	Code    Code
	Message string
	// MinimumNextBid is set for CodeBidTooLow so the caller can re-prompt.
	MinimumNextBid int64
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	return e.Message
}

func errAuctionClosed() *Error {
	return &Error{Code: CodeAuctionClosed, Message: "auction is not open"}
}

func errBidTooLow(minimumNextBid int64) *Error {
	return &Error{
		Code:           CodeBidTooLow,
		Message:        fmt.Sprintf("bid is below the minimum of %d", minimumNextBid),
		MinimumNextBid: minimumNextBid,
	}
}

func errNotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}
