package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/services"
)

// OfferHandler exposes the pending-offer store to the chat-command layer.
// Offers are plumbing for two-party commands, so the handler stays thin:
// create, look up the newest pending one, consume.
type OfferHandler struct {
	offers    *services.PendingOfferStore
	ledger    *services.LedgerService
	cfg       *config.EconomyConfig
	validator *services.ValidationHelper
}

func NewOfferHandler(offers *services.PendingOfferStore, ledger *services.LedgerService, cfg *config.EconomyConfig) *OfferHandler {
	return &OfferHandler{
		offers:    offers,
		ledger:    ledger,
		cfg:       cfg,
		validator: services.NewValidationHelper(),
	}
}

// CreateOffer records a pending offer from one member to another
// @Summary Create Offer
// @Description Record a time-limited offer between two accounts
// @Tags Offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{from_external_id=string,to_handle=string,kind=string} true "Offer request"
// @Success 201 {object} models.PendingOffer
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Router /offers [post]
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromExternalID string `json:"from_external_id" validate:"required"`
		ToHandle       string `json:"to_handle" validate:"required,handle"`
		Kind           string `json:"kind" validate:"required,max=32"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	from, err := h.ledger.GetAccount(r.Context(), req.FromExternalID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}
	to, err := h.ledger.GetAccount(r.Context(), req.ToHandle)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	offer, err := h.offers.Create(r.Context(), from.ID, to.ID, req.Kind, h.cfg.OfferTTL)
	if err != nil {
		log.Printf("[OFFERS] Create - Storage error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(offer)
}

// GetPendingOffer returns the newest unexpired offer addressed to an identity
// @Summary Get Pending Offer
// @Description Look up the newest unexpired offer of a kind addressed to an account
// @Tags Offers
// @Produce json
// @Security BearerAuth
// @Param identity path string true "Platform identity or handle"
// @Param kind query string true "Offer kind"
// @Success 200 {object} models.PendingOffer
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{identity}/offers [get]
func (h *OfferHandler) GetPendingOffer(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		services.SendErrorResponse(w, "Missing kind parameter", http.StatusBadRequest, nil)
		return
	}

	account, err := h.ledger.GetAccount(r.Context(), identity)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	offer, err := h.offers.GetForAccount(r.Context(), account.ID, kind)
	if err != nil {
		log.Printf("[OFFERS] Lookup - Storage error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}
	if offer == nil {
		services.SendErrorResponse(w, "No pending offer", http.StatusNotFound, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offer)
}

// DeleteOffer consumes an offer once the chat layer accepts or declines it
// @Summary Delete Offer
// @Description Remove a pending offer after it has been accepted or declined
// @Tags Offers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offer ID"
// @Success 200 {object} object{deleted=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /offers/{id} [delete]
func (h *OfferHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid offer ID", http.StatusBadRequest, nil)
		return
	}

	if err := h.offers.Delete(r.Context(), id); err != nil {
		log.Printf("[OFFERS] Delete - Storage error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
