package router

import (
	"net/http"

	"github.com/rsonetv/motoauto-bidding/internal/handlers"
	"github.com/rsonetv/motoauto-bidding/internal/realtime"
)

// InitRoutes wires the HTTP boundary.
func InitRoutes(auctionHandler *handlers.AuctionHandler, bidHandler *handlers.BidHandler, hub *realtime.Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)

	mux.HandleFunc("POST /api/auctions/new", auctionHandler.CreateAuction)
	mux.HandleFunc("GET /api/auctions/{auctionId}", auctionHandler.GetAuctionState)

	mux.HandleFunc("POST /api/auctions/{auctionId}/bids", bidHandler.PlaceBid)
	mux.HandleFunc("GET /api/auctions/{auctionId}/bids", bidHandler.GetAuctionBids)
	mux.HandleFunc("POST /api/bids/auto-bid", bidHandler.SetupAutoBid)
	mux.HandleFunc("PUT /api/bids/{bidId}/retract", bidHandler.RetractBid)

	mux.HandleFunc("GET /ws/auctions/{auctionId}", hub.ServeWS)

	return mux
}
