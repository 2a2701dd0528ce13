package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/models"
	"github.com/dominionbank/backend/internal/services"
)

func newTestAuctionHandler(t *testing.T) (*AuctionHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	cfg := &config.EconomyConfig{
		ListingFee:          50,
		MinBid:              10,
		DefaultAuctionHours: 24,
	}
	engine := services.NewAuctionEngine(db, cfg,
		services.NewAccountStore(db, cfg),
		services.NewJournal(db),
		services.NewEventPublisher(nil))

	return NewAuctionHandler(engine), mock, func() { db.Close() }
}

func withAuctionID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAuctionHandler_PlaceBid(t *testing.T) {
	t.Run("malformed id is a 400", func(t *testing.T) {
		handler, mock, closeDB := newTestAuctionHandler(t)
		defer closeDB()

		body := `{"bidder_external_id":"ext-2","amount":130}`
		req := withAuctionID(httptest.NewRequest(http.MethodPost, "/auctions/abc/bids", bytes.NewBufferString(body)), "abc")
		rec := httptest.NewRecorder()

		handler.PlaceBid(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bid below minimum carries min_required", func(t *testing.T) {
		handler, mock, closeDB := newTestAuctionHandler(t)
		defer closeDB()

		endsAt := time.Now().Add(time.Hour)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM auctions WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "seller_id", "target_id", "description", "starting_price",
				"current_bid", "current_bidder_id", "status", "ends_at", "created_at", "updated_at",
			}).AddRow(5, 1, nil, "", 100, 120, 3, models.AuctionStatusActive, endsAt, time.Now(), time.Now()))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs("ext-2").
			WillReturnRows(accountRow(2, "ext-2", "bidder", 500))
		mock.ExpectRollback()

		body := `{"bidder_external_id":"ext-2","amount":120}`
		req := withAuctionID(httptest.NewRequest(http.MethodPost, "/auctions/5/bids", bytes.NewBufferString(body)), "5")
		rec := httptest.NewRecorder()

		handler.PlaceBid(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp services.DomainErrorResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "bid_too_low", resp.Code)
		assert.Equal(t, int64(121), resp.MinRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuctionHandler_GetAuction(t *testing.T) {
	handler, mock, closeDB := newTestAuctionHandler(t)
	defer closeDB()

	mock.ExpectQuery("SELECT (.+) FROM auctions WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := withAuctionID(httptest.NewRequest(http.MethodGet, "/auctions/99", nil), "99")
	rec := httptest.NewRecorder()

	handler.GetAuction(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp services.DomainErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "auction_not_found", resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
