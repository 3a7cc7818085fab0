package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rsonetv/motoauto-bidding/internal/engine"
	"github.com/rsonetv/motoauto-bidding/internal/models"
	"github.com/rsonetv/motoauto-bidding/internal/utils"
)

// BidHandler serves bid placement, history and retraction requests.
type BidHandler struct {
	Engine  *engine.Engine
	Logger  *log.Logger
	Timeout time.Duration
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(eng *engine.Engine, logger *log.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Engine:  eng,
		Logger:  logger,
		Timeout: timeout,
	}
}

// PlaceBid handles bid placement against one auction.
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BidderID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "bidderId is required")
		return
	}
	if req.Amount <= 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	result, err := h.Engine.PlaceBid(ctx, r.PathValue("auctionId"), req)
	if err != nil {
		respondEngineError(w, h.Logger, err, "failed to place bid")
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, result)
}

// GetAuctionBids returns the ordered bid history for an auction.
func (h *BidHandler) GetAuctionBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	includeRetracted, err := utils.ParseBoolParam(r.URL.Query().Get("includeRetracted"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	bids, err := h.Engine.ListBids(ctx, r.PathValue("auctionId"), includeRetracted, limit, offset)
	if err != nil {
		respondEngineError(w, h.Logger, err, "failed to retrieve bids")
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	utils.SendJSONResponse(w, http.StatusOK, bids)
}

// SetupAutoBid handles standing auto-bid authorization requests.
func (h *BidHandler) SetupAutoBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.AutoBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AuctionID == "" || req.BidderID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "auctionId and bidderId are required")
		return
	}
	if req.MaxAmount <= 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "maxAmount must be positive")
		return
	}

	result, err := h.Engine.SetupAutoBid(ctx, req)
	if err != nil {
		respondEngineError(w, h.Logger, err, "failed to set up auto-bid")
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, result)
}

// RetractBid handles the administrative retraction of one ledger entry.
func (h *BidHandler) RetractBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	result, err := h.Engine.RetractBid(ctx, r.PathValue("bidId"))
	if err != nil {
		respondEngineError(w, h.Logger, err, "failed to retract bid")
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, result)
}
