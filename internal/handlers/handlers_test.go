package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rsonetv/motoauto-bidding/internal/engine"
	"github.com/rsonetv/motoauto-bidding/internal/handlers"
	"github.com/rsonetv/motoauto-bidding/internal/models"
	"github.com/rsonetv/motoauto-bidding/internal/realtime"
	"github.com/rsonetv/motoauto-bidding/internal/repository"
	"github.com/rsonetv/motoauto-bidding/internal/router"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	store := repository.NewMemoryStore()
	clock := engine.NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.New(store, store, nil, clock, logger, engine.Options{})

	auctionHandler := handlers.NewAuctionHandler(eng, logger, 5*time.Second)
	bidHandler := handlers.NewBidHandler(eng, logger, 5*time.Second)
	return router.InitRoutes(auctionHandler, bidHandler, realtime.NewHub(logger))
}

func doJSON(t *testing.T, h http.Handler, method, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		assert.Nil(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createAuction(t *testing.T, h http.Handler) models.Auction {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auctions/new", models.AuctionRequest{
		ListingID:       "listing-1",
		SellerID:        "seller-1",
		StartingPrice:   100,
		MinIncrement:    50,
		DurationSeconds: 3600,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var auction models.Auction
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&auction))
	return auction
}

func TestCreateAndFetchAuction(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/auctions/"+auction.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var fetched models.Auction
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&fetched))
	check.Equal(t, auction.ID, fetched.ID)
	check.Equal(t, models.OpenAuction, fetched.Status)
}

func TestGetUnknownAuctionReturns404(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/auctions/missing", nil)
	check.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceBidAndHistory(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/auctions/"+auction.ID+"/bids", models.BidRequest{
		BidderID: "alice",
		Amount:   100,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var result models.BidResult
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&result))
	check.Equal(t, int64(100), result.CurrentBid)
	check.Equal(t, "alice", result.CurrentWinnerID)

	rec = doJSON(t, h, http.MethodGet, "/api/auctions/"+auction.ID+"/bids", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var bids []models.Bid
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&bids))
	check.Equal(t, 1, len(bids))
}

func TestBidTooLowCarriesMinimum(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/auctions/"+auction.ID+"/bids", models.BidRequest{
		BidderID: "alice",
		Amount:   40,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code           string `json:"code"`
		MinimumNextBid int64  `json:"minimumNextBid"`
	}
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&body))
	check.Equal(t, string(engine.CodeBidTooLow), body.Code)
	check.Equal(t, int64(100), body.MinimumNextBid)
}

func TestSellerBidReturns403(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/auctions/"+auction.ID+"/bids", models.BidRequest{
		BidderID: "seller-1",
		Amount:   100,
	})
	check.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAutoBidEndpoint(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/bids/auto-bid", models.AutoBidRequest{
		AuctionID: auction.ID,
		BidderID:  "carol",
		MaxAmount: 800,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var result models.BidResult
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&result))
	check.Equal(t, int64(100), result.CurrentBid)
	check.Equal(t, "carol", result.CurrentWinnerID)
}

func TestRetractEndpoint(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/auctions/"+auction.ID+"/bids", models.BidRequest{
		BidderID: "alice",
		Amount:   100,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var result models.BidResult
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, len(result.Entries))

	rec = doJSON(t, h, http.MethodPut, "/api/bids/"+result.Entries[0].ID+"/retract", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var after models.BidResult
	assert.Nil(t, json.NewDecoder(rec.Body).Decode(&after))
	check.Equal(t, int64(0), after.CurrentBid)
	check.Equal(t, "", after.CurrentWinnerID)
}

func TestInvalidBidBodyReturns400(t *testing.T) {
	h := newTestServer(t)
	auction := createAuction(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/auctions/"+auction.ID+"/bids", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	check.Equal(t, http.StatusBadRequest, rec.Code)
}
