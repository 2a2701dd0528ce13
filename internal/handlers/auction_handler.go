package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dominionbank/backend/internal/services"
)

type AuctionHandler struct {
	engine    *services.AuctionEngine
	validator *services.ValidationHelper
}

func NewAuctionHandler(engine *services.AuctionEngine) *AuctionHandler {
	return &AuctionHandler{
		engine:    engine,
		validator: services.NewValidationHelper(),
	}
}

// CreateAuction opens a new auction
// @Summary Create Auction
// @Description Open an auction for the seller, debiting the flat listing fee
// @Tags Auctions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{seller_external_id=string,starting_price=int64,duration_hours=int,target_handle=string,description=string} true "Auction request"
// @Success 201 {object} models.Auction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Failure 409 {object} services.DomainErrorResponse
// @Failure 422 {object} services.DomainErrorResponse
// @Router /auctions [post]
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SellerExternalID string `json:"seller_external_id" validate:"required"`
		StartingPrice    int64  `json:"starting_price" validate:"required,gt=0"`
		DurationHours    int    `json:"duration_hours,omitempty" validate:"omitempty,gt=0"`
		TargetHandle     string `json:"target_handle,omitempty"`
		Description      string `json:"description,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	duration := time.Duration(req.DurationHours) * time.Hour
	auction, err := h.engine.Create(r.Context(), req.SellerExternalID, req.StartingPrice, duration, req.TargetHandle, req.Description)
	if err != nil {
		if ee := services.SendDomainError(w, err); ee == nil {
			log.Printf("[AUCTION] Create - Storage error: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(auction)
}

// ListAuctions lists active auctions, soonest-expiring first
// @Summary List Active Auctions
// @Description List all active auctions ordered by end time ascending
// @Tags Auctions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Auction
// @Failure 500 {object} services.ErrorResponse
// @Router /auctions [get]
func (h *AuctionHandler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.engine.ListActive(r.Context())
	if err != nil {
		log.Printf("[AUCTION] List - Service error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auctions)
}

// GetAuction returns one auction by id
// @Summary Get Auction
// @Description Get one auction by id, any status
// @Tags Auctions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Auction ID"
// @Success 200 {object} models.Auction
// @Failure 404 {object} services.DomainErrorResponse
// @Router /auctions/{id} [get]
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	auction, err := h.engine.Get(r.Context(), id)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auction)
}

// PlaceBid escrows a bid against an auction
// @Summary Place Bid
// @Description Escrow a bid, refunding the superseded bidder in the same transaction
// @Tags Auctions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Auction ID"
// @Param request body object{bidder_external_id=string,amount=int64} true "Bid request"
// @Success 201 {object} models.Bid
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Failure 409 {object} services.DomainErrorResponse
// @Failure 422 {object} services.DomainErrorResponse
// @Router /auctions/{id}/bids [post]
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	var req struct {
		BidderExternalID string `json:"bidder_external_id" validate:"required"`
		Amount           int64  `json:"amount" validate:"required,gt=0"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	bid, err := h.engine.PlaceBid(r.Context(), id, req.BidderExternalID, req.Amount)
	if err != nil {
		if ee := services.SendDomainError(w, err); ee == nil {
			log.Printf("[AUCTION] PlaceBid - Storage error: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bid)
}

// CancelAuction withdraws the requester's own active auction
// @Summary Cancel Auction
// @Description Cancel the requester's active auction, refunding the standing bid
// @Tags Auctions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Auction ID"
// @Param request body object{requester_external_id=string} true "Cancel request"
// @Success 200 {object} object{cancelled=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Failure 409 {object} services.DomainErrorResponse
// @Router /auctions/{id}/cancel [post]
func (h *AuctionHandler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := auctionID(w, r)
	if !ok {
		return
	}

	var req struct {
		RequesterExternalID string `json:"requester_external_id" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.engine.Cancel(r.Context(), id, req.RequesterExternalID); err != nil {
		if ee := services.SendDomainError(w, err); ee == nil {
			log.Printf("[AUCTION] Cancel - Storage error: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"cancelled": true})
}

// ListSellerAuctions lists an identity's auctions, newest first
// @Summary List Seller Auctions
// @Description List a seller's auctions across all statuses, newest first
// @Tags Auctions
// @Produce json
// @Security BearerAuth
// @Param identity path string true "Platform identity"
// @Param limit query int false "Page size"
// @Success 200 {array} models.Auction
// @Failure 404 {object} services.DomainErrorResponse
// @Router /accounts/{identity}/auctions [get]
func (h *AuctionHandler) ListSellerAuctions(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	auctions, err := h.engine.ListBySeller(r.Context(), identity, limit)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auctions)
}

func auctionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid auction id", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
