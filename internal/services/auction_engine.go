package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/dominionbank/backend/internal/audit"
	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/database"
	"github.com/dominionbank/backend/internal/models"
)

const auctionColumns = `id, seller_id, target_id, COALESCE(description, ''), starting_price, current_bid, current_bidder_id, status, ends_at, created_at, updated_at`

// AuctionEngine manages the auction lifecycle: create, bid, cancel, expire.
// Escrow accounting is built on the account store and journal; the refund of
// a superseded bidder, the debit of the new one and the auction row update
// commit as one serializable transaction, so the funds held always equal the
// current winning bid.
type AuctionEngine struct {
	db       *sql.DB
	cfg      *config.EconomyConfig
	accounts *AccountStore
	journal  *Journal
	events   *EventPublisher
	audit    *audit.Logger
	now      func() time.Time
}

func NewAuctionEngine(db *sql.DB, cfg *config.EconomyConfig, accounts *AccountStore, journal *Journal, events *EventPublisher) *AuctionEngine {
	return &AuctionEngine{
		db:       db,
		cfg:      cfg,
		accounts: accounts,
		journal:  journal,
		events:   events,
		audit:    audit.NewLogger(),
		now:      time.Now,
	}
}

// Create opens a new auction for the seller. The flat listing fee is debited
// up front and is never refunded, cancellation included.
func (e *AuctionEngine) Create(ctx context.Context, sellerExternalID string, startingPrice int64, duration time.Duration, targetHandle, description string) (*models.Auction, error) {
	if duration <= 0 {
		duration = time.Duration(e.cfg.DefaultAuctionHours) * time.Hour
	}
	if startingPrice < e.cfg.MinBid {
		return nil, &EconError{
			Kind:        ErrBidTooLow,
			Detail:      fmt.Sprintf("starting price must be at least %d", e.cfg.MinBid),
			MinRequired: e.cfg.MinBid,
		}
	}

	var auction *models.Auction
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		seller, err := e.accounts.ResolveExternal(ctx, tx, sellerExternalID)
		if err != nil {
			return err
		}
		if seller == nil {
			return econErr(ErrSenderUnknown, "seller is not registered")
		}

		var targetID *int64
		if targetHandle != "" {
			target, err := e.accounts.ResolveHandle(ctx, tx, targetHandle)
			if err != nil {
				return err
			}
			if target == nil {
				return econErr(ErrRecipientUnknown, fmt.Sprintf("no account with handle %s", targetHandle))
			}
			if target.ID == seller.ID {
				return econErr(ErrSelfBid, "cannot list yourself in your own auction")
			}
			targetID = &target.ID
		}

		var existingID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM auctions WHERE seller_id = $1 AND status = $2`,
			seller.ID, models.AuctionStatusActive).Scan(&existingID)
		if err == nil {
			return econErr(ErrOneActiveAuction, fmt.Sprintf("auction #%d is still active", existingID))
		}
		if err != sql.ErrNoRows {
			return err
		}

		ok, err := e.accounts.Mutate(ctx, tx, seller.ID, -e.cfg.ListingFee, e.cfg.AllowDebt)
		if err != nil {
			return err
		}
		if !ok {
			return econErr(ErrInsufficientBalance, fmt.Sprintf("listing fee is %d", e.cfg.ListingFee))
		}

		if _, err := e.journal.Append(ctx, tx, &seller.ID, nil, e.cfg.ListingFee, models.JournalKindAuctionFee, "auction listing fee"); err != nil {
			return err
		}

		endsAt := e.now().UTC().Add(duration)
		row := tx.QueryRowContext(ctx, `
			INSERT INTO auctions (seller_id, target_id, description, starting_price, status, ends_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
			RETURNING `+auctionColumns,
			seller.ID, targetID, description, startingPrice, models.AuctionStatusActive, endsAt)

		auction, err = scanAuction(row)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.audit.LogAuction("AUCTION_CREATE", auction.ID, auction.SellerID, e.cfg.ListingFee)
	e.events.PublishAuction(ctx, EventAuctionCreated, auction)
	log.Printf("[AUCTION] Created #%d by account %d, starting at %d", auction.ID, auction.SellerID, auction.StartingPrice)
	return auction, nil
}

// PlaceBid escrows amount against the auction for the bidder. A superseded
// bidder is refunded in the same transaction, so the escrowed funds always
// equal the current bid. Equal bids never tie: the minimum accepted is
// current_bid + 1.
func (e *AuctionEngine) PlaceBid(ctx context.Context, auctionID int64, bidderExternalID string, amount int64) (*models.Bid, error) {
	var (
		bid     *models.Bid
		expired bool
	)
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		auction, err := e.lockAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return econErr(ErrAuctionNotFound, fmt.Sprintf("auction #%d does not exist", auctionID))
		}
		if auction.Status != models.AuctionStatusActive {
			return econErr(ErrAuctionClosed, fmt.Sprintf("auction #%d is %s", auctionID, auction.Status))
		}

		// Past its end but not yet swept: complete it now and reject the
		// bid. Returning nil commits the lazy transition.
		if !e.now().UTC().Before(auction.EndsAt) {
			if err := e.markCompleted(ctx, tx, auction.ID); err != nil {
				return err
			}
			expired = true
			return nil
		}

		bidder, err := e.accounts.ResolveExternal(ctx, tx, bidderExternalID)
		if err != nil {
			return err
		}
		if bidder == nil {
			return econErr(ErrSenderUnknown, "bidder is not registered")
		}

		if bidder.ID == auction.SellerID {
			return econErr(ErrSelfBid, "cannot bid on your own auction")
		}

		minRequired := auction.MinimumNextBid()
		if amount < minRequired {
			return &EconError{
				Kind:        ErrBidTooLow,
				Detail:      fmt.Sprintf("bid must be at least %d", minRequired),
				MinRequired: minRequired,
			}
		}

		// Release the outgoing bidder's escrow before taking the new one.
		// Both sides roll back together if the debit below fails.
		if auction.CurrentBidderID != nil && auction.CurrentBid != nil {
			ok, err := e.accounts.Mutate(ctx, tx, *auction.CurrentBidderID, *auction.CurrentBid, false)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("refund previous bidder %d failed", *auction.CurrentBidderID)
			}
			if _, err := e.journal.Append(ctx, tx, nil, auction.CurrentBidderID, *auction.CurrentBid, models.JournalKindAuctionRefund, fmt.Sprintf("auction #%d bid refund", auction.ID)); err != nil {
				return err
			}
		}

		ok, err := e.accounts.Mutate(ctx, tx, bidder.ID, -amount, e.cfg.AllowDebt)
		if err != nil {
			return err
		}
		if !ok {
			return econErr(ErrInsufficientBalance, "balance too low for this bid")
		}

		if _, err := e.journal.Append(ctx, tx, &bidder.ID, nil, amount, models.JournalKindAuctionBid, fmt.Sprintf("auction #%d bid escrow", auction.ID)); err != nil {
			return err
		}

		bid = &models.Bid{AuctionID: auction.ID, BidderID: bidder.ID, Amount: amount}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO bids (auction_id, bidder_id, amount)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			bid.AuctionID, bid.BidderID, bid.Amount).Scan(&bid.ID, &bid.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE auctions
			SET current_bid = $1, current_bidder_id = $2, updated_at = NOW()
			WHERE id = $3`,
			amount, bidder.ID, auction.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, econErr(ErrAuctionExpired, fmt.Sprintf("auction #%d has ended", auctionID))
	}

	e.audit.LogAuction("AUCTION_BID", bid.AuctionID, bid.BidderID, bid.Amount)
	e.events.PublishAuction(ctx, EventBidPlaced, bid)
	log.Printf("[AUCTION] Bid %d on #%d by account %d", bid.Amount, bid.AuctionID, bid.BidderID)
	return bid, nil
}

// Cancel withdraws the requester's own active auction. The standing escrow,
// if any, is refunded; the listing fee stays forfeited.
func (e *AuctionEngine) Cancel(ctx context.Context, auctionID int64, requesterExternalID string) error {
	var sellerID int64
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		requester, err := e.accounts.ResolveExternal(ctx, tx, requesterExternalID)
		if err != nil {
			return err
		}
		if requester == nil {
			return econErr(ErrSenderUnknown, "requester is not registered")
		}

		auction, err := e.lockAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil || auction.SellerID != requester.ID {
			return econErr(ErrAuctionNotFound, "no such auction owned by requester")
		}
		if auction.Status != models.AuctionStatusActive {
			return econErr(ErrAuctionClosed, fmt.Sprintf("auction #%d is %s", auctionID, auction.Status))
		}

		if auction.CurrentBidderID != nil && auction.CurrentBid != nil {
			ok, err := e.accounts.Mutate(ctx, tx, *auction.CurrentBidderID, *auction.CurrentBid, false)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("refund bidder %d failed", *auction.CurrentBidderID)
			}
			if _, err := e.journal.Append(ctx, tx, nil, auction.CurrentBidderID, *auction.CurrentBid, models.JournalKindAuctionRefund, fmt.Sprintf("auction #%d cancelled", auction.ID)); err != nil {
				return err
			}
		}

		sellerID = auction.SellerID
		_, err = tx.ExecContext(ctx, `
			UPDATE auctions SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.AuctionStatusCancelled, auction.ID)
		return err
	})
	if err != nil {
		return err
	}

	e.audit.LogAuction("AUCTION_CANCEL", auctionID, sellerID, 0)
	e.events.PublishAuction(ctx, EventAuctionCancelled, map[string]int64{"auction_id": auctionID})
	log.Printf("[AUCTION] Cancelled #%d", auctionID)
	return nil
}

// CloseExpired completes every active auction past its end time. The winning
// escrow is retained, not refunded; auctions with no bids complete with no
// fund movement. Each auction is its own transaction, and re-running is a
// no-op for anything already completed.
func (e *AuctionEngine) CloseExpired(ctx context.Context) (int, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id FROM auctions WHERE status = $1 AND ends_at <= $2`,
		models.AuctionStatusActive, e.now().UTC())
	if err != nil {
		return 0, err
	}
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		didClose := false
		err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
			auction, err := e.lockAuction(ctx, tx, id)
			if err != nil {
				return err
			}
			// Another task may have completed or cancelled it since the
			// candidate scan; skip silently.
			if auction == nil || auction.Status != models.AuctionStatusActive || e.now().UTC().Before(auction.EndsAt) {
				return nil
			}
			if err := e.markCompleted(ctx, tx, auction.ID); err != nil {
				return err
			}
			didClose = true
			return nil
		})
		if err != nil {
			return closed, err
		}
		if didClose {
			closed++
			e.events.PublishAuction(ctx, EventAuctionCompleted, map[string]int64{"auction_id": id})
		}
	}
	return closed, nil
}

// ListActive returns the active auctions, soonest-expiring first.
func (e *AuctionEngine) ListActive(ctx context.Context) ([]models.Auction, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status = $1 AND ends_at > $2
		ORDER BY ends_at ASC`,
		models.AuctionStatusActive, e.now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuctions(rows)
}

// Get returns one auction by id, any status.
func (e *AuctionEngine) Get(ctx context.Context, auctionID int64) (*models.Auction, error) {
	row := e.db.QueryRowContext(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, auctionID)
	auction, err := scanAuction(row)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, econErr(ErrAuctionNotFound, fmt.Sprintf("auction #%d does not exist", auctionID))
	}
	return auction, nil
}

// ListBySeller returns an identity's auctions, newest first, all statuses.
func (e *AuctionEngine) ListBySeller(ctx context.Context, sellerExternalID string, limit int) ([]models.Auction, error) {
	if limit <= 0 {
		limit = 10
	}
	seller, err := e.accounts.ResolveExternal(ctx, e.db, sellerExternalID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, econErr(ErrSenderUnknown, "seller is not registered")
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		seller.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuctions(rows)
}

// lockAuction reads an auction row under FOR UPDATE so concurrent bids,
// cancels and sweeps on the same auction serialize. Returns nil when the
// auction does not exist.
func (e *AuctionEngine) lockAuction(ctx context.Context, tx *sql.Tx, auctionID int64) (*models.Auction, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
		FOR UPDATE`, auctionID)
	return scanAuction(row)
}

func (e *AuctionEngine) markCompleted(ctx context.Context, tx *sql.Tx, auctionID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE auctions SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.AuctionStatusCompleted, auctionID)
	return err
}

func scanAuction(row *sql.Row) (*models.Auction, error) {
	var a models.Auction
	err := row.Scan(&a.ID, &a.SellerID, &a.TargetID, &a.Description, &a.StartingPrice,
		&a.CurrentBid, &a.CurrentBidderID, &a.Status, &a.EndsAt, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAuctions(rows *sql.Rows) ([]models.Auction, error) {
	auctions := []models.Auction{}
	for rows.Next() {
		var a models.Auction
		err := rows.Scan(&a.ID, &a.SellerID, &a.TargetID, &a.Description, &a.StartingPrice,
			&a.CurrentBid, &a.CurrentBidderID, &a.Status, &a.EndsAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}
