package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/rsonetv/motoauto-bidding/internal/engine"
	"github.com/rsonetv/motoauto-bidding/internal/models"
	"github.com/rsonetv/motoauto-bidding/internal/utils"
)

// AuctionHandler serves auction lifecycle and state requests.
type AuctionHandler struct {
	Engine  *engine.Engine
	Logger  *log.Logger
	Timeout time.Duration
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(eng *engine.Engine, logger *log.Logger, timeout time.Duration) *AuctionHandler {
	return &AuctionHandler{
		Engine:  eng,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateAuction handles requests to open a new auction. The listing system
// supplies pricing and closing parameters.
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.AuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	auction, err := h.Engine.CreateAuction(ctx, req)
	if err != nil {
		h.respondError(w, err, "failed to create auction")
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, auction)
}

// GetAuctionState returns the auction's current projection. The reserve
// amount stays hidden; only whether it has been met is exposed.
func (h *AuctionHandler) GetAuctionState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	auction, err := h.Engine.GetState(ctx, r.PathValue("auctionId"))
	if err != nil {
		h.respondError(w, err, "failed to retrieve auction")
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, auction)
}

func (h *AuctionHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	respondEngineError(w, h.Logger, err, fallback)
}

// respondEngineError maps engine rejections to HTTP responses. BidTooLow
// carries the minimum acceptable amount so the caller can re-prompt.
func respondEngineError(w http.ResponseWriter, logger *log.Logger, err error, fallback string) {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		status := http.StatusBadRequest
		switch engErr.Code {
		case engine.CodeNotFound:
			status = http.StatusNotFound
		case engine.CodeOwnAuction, engine.CodeSelfOutbid:
			status = http.StatusForbidden
		case engine.CodeTimeout:
			status = http.StatusConflict
		}
		if engErr.Code == engine.CodeBidTooLow {
			utils.SendJSONResponse(w, status, map[string]interface{}{
				"reason":         engErr.Message,
				"code":           engErr.Code,
				"minimumNextBid": engErr.MinimumNextBid,
			})
			return
		}
		utils.SendJSONResponse(w, status, map[string]interface{}{
			"reason": engErr.Message,
			"code":   engErr.Code,
		})
		return
	}
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}
