package services

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dominionbank/backend/internal/config"
)

func testConfig() *config.EconomyConfig {
	return &config.EconomyConfig{
		CurrencyName:        "coin",
		CurrencySymbol:      "C",
		MinTransfer:         1,
		MaxTransfer:         1_000_000,
		TransferCooldown:    5 * time.Second,
		ListingFee:          50,
		MinBid:              10,
		DefaultAuctionHours: 24,
		DefaultBalance:      0,
		SweepInterval:       time.Minute,
		HistoryPageLimit:    50,
		OfferTTL:            24 * time.Hour,
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func accountRow(id int64, externalID, handle string, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "external_id", "handle", "display_name", "balance", "status", "created_at", "updated_at"}).
		AddRow(id, externalID, handle, "", balance, "ACTIVE", time.Now(), time.Now())
}

func upsertAccountRow(id int64, externalID, handle string, balance int64, created bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "external_id", "handle", "display_name", "balance", "status", "created_at", "updated_at", "created"}).
		AddRow(id, externalID, handle, "", balance, "ACTIVE", time.Now(), time.Now(), created)
}

func auctionRow(id, sellerID int64, startingPrice int64, currentBid, currentBidderID *int64, status string, endsAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "seller_id", "target_id", "description", "starting_price",
		"current_bid", "current_bidder_id", "status", "ends_at", "created_at", "updated_at",
	}).AddRow(id, sellerID, nil, "", startingPrice, currentBid, currentBidderID, status, endsAt, time.Now(), time.Now())
}

func ptr(v int64) *int64 {
	return &v
}
