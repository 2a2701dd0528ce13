package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrKind tags an expected, recoverable business outcome. These are results
// the chat layer presents to members, never fatal conditions; storage
// failures travel as plain wrapped errors instead.
type ErrKind string

const (
	ErrAmountOutOfRange    ErrKind = "amount_out_of_range"
	ErrSenderUnknown       ErrKind = "sender_unknown"
	ErrRecipientUnknown    ErrKind = "recipient_unknown"
	ErrCooldownActive      ErrKind = "cooldown_active"
	ErrSelfTransfer        ErrKind = "self_transfer"
	ErrInsufficientBalance ErrKind = "insufficient_balance"
	ErrAuctionNotFound     ErrKind = "auction_not_found"
	ErrAuctionClosed       ErrKind = "auction_closed"
	ErrAuctionExpired      ErrKind = "auction_expired"
	ErrSelfBid             ErrKind = "self_bid"
	ErrBidTooLow           ErrKind = "bid_too_low"
	ErrOneActiveAuction    ErrKind = "one_active_auction_per_seller"
)

// EconError is a tagged business rejection. No operation applies any effect
// on a path that returns one.
type EconError struct {
	Kind   ErrKind
	Detail string

	// CooldownRemaining is set for ErrCooldownActive.
	CooldownRemaining time.Duration
	// MinRequired is set for ErrBidTooLow.
	MinRequired int64
}

func (e *EconError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func econErr(kind ErrKind, detail string) *EconError {
	return &EconError{Kind: kind, Detail: detail}
}

// AsEconError unwraps err into an *EconError, or returns nil if err is a
// storage failure.
func AsEconError(err error) *EconError {
	var ee *EconError
	if errors.As(err, &ee) {
		return ee
	}
	return nil
}

// HTTPStatus maps the rejection kind to the status code its JSON envelope is
// sent with.
func (e *EconError) HTTPStatus() int {
	switch e.Kind {
	case ErrSenderUnknown, ErrRecipientUnknown, ErrAuctionNotFound:
		return http.StatusNotFound
	case ErrCooldownActive:
		return http.StatusTooManyRequests
	case ErrAuctionClosed, ErrAuctionExpired, ErrOneActiveAuction, ErrSelfTransfer, ErrSelfBid, ErrInsufficientBalance:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// DomainErrorResponse is the JSON envelope for business rejections. Code is
// the stable machine-readable kind; the optional fields let the caller build
// a precise member-facing message.
type DomainErrorResponse struct {
	Error             string  `json:"error"`
	Code              string  `json:"code"`
	CooldownRemaining float64 `json:"cooldown_remaining_seconds,omitempty"`
	MinRequired       int64   `json:"min_required,omitempty"`
}

// SendDomainError writes err as a JSON rejection when it carries a business
// kind, or a generic 500 when it is a storage failure. Returns the EconError
// when one was found so callers can log around it.
func SendDomainError(w http.ResponseWriter, err error) *EconError {
	ee := AsEconError(err)
	if ee == nil {
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return nil
	}

	resp := DomainErrorResponse{
		Error: ee.Error(),
		Code:  string(ee.Kind),
	}
	if ee.Kind == ErrCooldownActive {
		resp.CooldownRemaining = ee.CooldownRemaining.Seconds()
	}
	if ee.Kind == ErrBidTooLow {
		resp.MinRequired = ee.MinRequired
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ee.HTTPStatus())
	json.NewEncoder(w).Encode(resp)
	return ee
}
