package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/services"
)

type EconomyHandler struct {
	ledger    *services.LedgerService
	cfg       *config.EconomyConfig
	validator *services.ValidationHelper
}

func NewEconomyHandler(ledger *services.LedgerService, cfg *config.EconomyConfig) *EconomyHandler {
	return &EconomyHandler{
		ledger:    ledger,
		cfg:       cfg,
		validator: services.NewValidationHelper(),
	}
}

// RegisterAccount creates or refreshes the account for a platform identity
// @Summary Register Account
// @Description Create the account for a platform identity, or refresh its handle and display name
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{external_id=string,handle=string,display_name=string} true "Account registration"
// @Success 200 {object} models.Account
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *EconomyHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExternalID  string `json:"external_id" validate:"required"`
		Handle      string `json:"handle,omitempty" validate:"omitempty,handle"`
		DisplayName string `json:"display_name,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, created, err := h.ledger.Register(r.Context(), req.ExternalID, req.Handle, req.DisplayName)
	if err != nil {
		log.Printf("[ACCOUNTS] Register - Service error: %v", err)
		services.SendDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(account)
}

// Transfer moves currency from one member to another
// @Summary Transfer Currency
// @Description Move currency between two accounts atomically
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{sender_external_id=string,recipient_handle=string,amount=int64} true "Transfer request"
// @Success 200 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Failure 409 {object} services.DomainErrorResponse
// @Failure 422 {object} services.DomainErrorResponse
// @Failure 429 {object} services.DomainErrorResponse
// @Router /transfers [post]
func (h *EconomyHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderExternalID string `json:"sender_external_id" validate:"required"`
		RecipientHandle  string `json:"recipient_handle" validate:"required,handle"`
		Amount           int64  `json:"amount" validate:"required,gt=0"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), req.SenderExternalID, req.RecipientHandle, req.Amount)
	if err != nil {
		if ee := services.SendDomainError(w, err); ee == nil {
			log.Printf("[TRANSFER] Storage error: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetBalance returns an identity's balance
// @Summary Get Balance
// @Description Get the current balance for a platform identity or @handle
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param identity path string true "Platform identity or handle"
// @Success 200 {object} object{identity=string,balance=int64}
// @Failure 404 {object} services.DomainErrorResponse
// @Router /accounts/{identity}/balance [get]
func (h *EconomyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	account, err := h.ledger.GetAccount(r.Context(), identity)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"identity": account.Display(),
		"balance":  account.Balance,
	})
}

// GetHistory returns an identity's journal entries, newest first
// @Summary Get Transaction History
// @Description List the journal entries touching an account
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param identity path string true "Platform identity or handle"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.JournalEntry
// @Failure 404 {object} services.DomainErrorResponse
// @Router /accounts/{identity}/history [get]
func (h *EconomyHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.ledger.GetHistory(r.Context(), identity, limit, offset)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// GetRanking lists accounts by balance, richest first
// @Summary Get Ranking
// @Description List accounts ordered by balance descending
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Account
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts/ranking [get]
func (h *EconomyHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	accounts, err := h.ledger.GetRanking(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[ACCOUNTS] Ranking - Service error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// GetConfig returns the economy parameters clients need to render amounts
// @Summary Get Economy Config
// @Description Expose the currency identity and the tunable economy limits
// @Tags Config
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{currency_name=string,currency_symbol=string,min_transfer=int64,max_transfer=int64,listing_fee=int64,min_bid=int64,default_balance=int64}
// @Router /config [get]
func (h *EconomyHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"currency_name":   h.cfg.CurrencyName,
		"currency_symbol": h.cfg.CurrencySymbol,
		"min_transfer":    h.cfg.MinTransfer,
		"max_transfer":    h.cfg.MaxTransfer,
		"listing_fee":     h.cfg.ListingFee,
		"min_bid":         h.cfg.MinBid,
		"default_balance": h.cfg.DefaultBalance,
	})
}

// AdminAdjust grants or removes currency outside the transfer rules
// @Summary Admin Adjustment
// @Description Credit or debit an account by a signed delta, with an audit reason
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{identity=string,delta=int64,reason=string} true "Adjustment request"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.DomainErrorResponse
// @Failure 409 {object} services.DomainErrorResponse
// @Failure 422 {object} services.DomainErrorResponse
// @Router /admin/adjustments [post]
func (h *EconomyHandler) AdminAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity" validate:"required"`
		Delta    int64  `json:"delta" validate:"required"`
		Reason   string `json:"reason" validate:"required,max=256"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.ledger.AdminAdjust(r.Context(), req.Identity, req.Delta, req.Reason)
	if err != nil {
		if ee := services.SendDomainError(w, err); ee == nil {
			log.Printf("[ADMIN] Adjust - Storage error: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// decodeJSON reads a single strict JSON object into dst. A false return means
// the error response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
