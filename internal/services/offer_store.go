package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dominionbank/backend/internal/models"
)

// PendingOfferStore holds short-lived offers between two accounts, created
// and consumed by the chat-command layer. An offer is single-use: accepting
// or declining deletes it, and the sweeper purges whatever expires first.
type PendingOfferStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPendingOfferStore(db *sql.DB) *PendingOfferStore {
	return &PendingOfferStore{db: db, now: time.Now}
}

func (s *PendingOfferStore) Create(ctx context.Context, fromID, toID int64, kind string, ttl time.Duration) (*models.PendingOffer, error) {
	offer := &models.PendingOffer{
		FromID:    fromID,
		ToID:      toID,
		Kind:      kind,
		ExpiresAt: s.now().UTC().Add(ttl),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pending_offers (from_id, to_id, kind, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		offer.FromID, offer.ToID, offer.Kind, offer.ExpiresAt).Scan(&offer.ID, &offer.CreatedAt)
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// GetForAccount returns the newest unexpired offer addressed to the account,
// or nil when none is pending.
func (s *PendingOfferStore) GetForAccount(ctx context.Context, toID int64, kind string) (*models.PendingOffer, error) {
	var offer models.PendingOffer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, from_id, to_id, kind, expires_at, created_at
		FROM pending_offers
		WHERE to_id = $1 AND kind = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`,
		toID, kind, s.now().UTC()).Scan(
		&offer.ID, &offer.FromID, &offer.ToID, &offer.Kind, &offer.ExpiresAt, &offer.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *PendingOfferStore) Delete(ctx context.Context, offerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_offers WHERE id = $1`, offerID)
	return err
}

func (s *PendingOfferStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_offers WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
