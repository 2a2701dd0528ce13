package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dominionbank/backend/internal/database"
)

// CooldownGate tracks timed per-account, per-action restrictions. Expired
// rows are treated as inactive immediately; physical deletion is left to the
// sweeper.
type CooldownGate struct {
	db  *sql.DB
	now func() time.Time
}

func NewCooldownGate(db *sql.DB) *CooldownGate {
	return &CooldownGate{db: db, now: time.Now}
}

// IsActive returns the expiry time when the account is on cooldown for the
// action, or nil when it is free to act.
func (g *CooldownGate) IsActive(ctx context.Context, q database.Queryer, accountID int64, action string) (*time.Time, error) {
	var expiresAt time.Time
	err := q.QueryRowContext(ctx, `
		SELECT expires_at FROM cooldowns
		WHERE account_id = $1 AND action = $2 AND expires_at > $3`,
		accountID, action, g.now().UTC()).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expiresAt, nil
}

// Set starts (or restarts) a cooldown. An existing row for the pair is
// overwritten; durations never stack.
func (g *CooldownGate) Set(ctx context.Context, q database.Queryer, accountID int64, action string, duration time.Duration) (time.Time, error) {
	expiresAt := g.now().UTC().Add(duration)
	_, err := q.ExecContext(ctx, `
		INSERT INTO cooldowns (account_id, action, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, action) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		accountID, action, expiresAt)
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// PurgeExpired deletes cooldown rows past their expiry. Returns the number
// of rows removed.
func (g *CooldownGate) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := g.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE expires_at <= $1`, g.now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
