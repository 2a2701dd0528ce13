package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/dominionbank/backend/internal/config"
	"github.com/dominionbank/backend/internal/database"
	"github.com/dominionbank/backend/internal/models"
)

const accountColumns = `id, external_id, COALESCE(handle, ''), COALESCE(display_name, ''), balance, status, created_at, updated_at`

// AccountStore owns per-account balances. Mutate is the only write path to
// the balance column; every other component goes through it.
type AccountStore struct {
	db  *sql.DB
	cfg *config.EconomyConfig
}

func NewAccountStore(db *sql.DB, cfg *config.EconomyConfig) *AccountStore {
	return &AccountStore{
		db:  db,
		cfg: cfg,
	}
}

// Mutate applies delta to the account's balance as one atomic floor-checked
// update. It reports false with no side effect when the result would cross
// the floor (zero, or the configured debt limit when allowNegative is set)
// or when the account does not exist.
func (s *AccountStore) Mutate(ctx context.Context, q database.Queryer, accountID, delta int64, allowNegative bool) (bool, error) {
	floor := int64(0)
	if allowNegative {
		floor = s.cfg.MinBalance()
	}

	result, err := q.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= $3`,
		delta, accountID, floor)
	if err != nil {
		return false, fmt.Errorf("mutate account %d: %w", accountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetByID returns the account, or nil when it does not exist.
func (s *AccountStore) GetByID(ctx context.Context, q database.Queryer, id int64) (*models.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// ResolveExternal looks up an account by the chat platform identity it was
// registered under.
func (s *AccountStore) ResolveExternal(ctx context.Context, q database.Queryer, externalID string) (*models.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id = $1`, externalID)
	return scanAccount(row)
}

// ResolveHandle looks up an account by handle, case-insensitively. A leading
// @ is accepted and stripped.
func (s *AccountStore) ResolveHandle(ctx context.Context, q database.Queryer, handle string) (*models.Account, error) {
	handle = strings.ToLower(strings.TrimPrefix(handle, "@"))
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(handle) = $1`, handle)
	return scanAccount(row)
}

// GetOrCreate registers an account on first interaction, or refreshes the
// stored handle and display name when they changed on the platform side.
// One upsert statement, so two concurrent first contacts cannot race.
// Returns the account and whether it was created; `xmax = 0` distinguishes
// a fresh insert from a conflicting update.
func (s *AccountStore) GetOrCreate(ctx context.Context, externalID, handle, displayName string, defaultBalance int64) (*models.Account, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (external_id, handle, display_name, balance, status)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
		ON CONFLICT (external_id) DO UPDATE
		SET handle = COALESCE(NULLIF($2, ''), accounts.handle),
		    display_name = COALESCE(NULLIF($3, ''), accounts.display_name),
		    updated_at = NOW()
		RETURNING `+accountColumns+`, (xmax = 0)`,
		externalID, handle, displayName, defaultBalance, models.AccountStatusActive)

	var a models.Account
	var created bool
	err := row.Scan(&a.ID, &a.ExternalID, &a.Handle, &a.DisplayName, &a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt, &created)
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[ACCOUNT] Registered new account %d for external id %s", a.ID, externalID)
	}
	return &a, created, nil
}

// Balance returns the current balance for an account id.
func (s *AccountStore) Balance(ctx context.Context, q database.Queryer, id int64) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Ranking lists active accounts by balance, richest first.
func (s *AccountStore) Ranking(ctx context.Context, limit, offset int) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE status = $1
		ORDER BY balance DESC
		LIMIT $2 OFFSET $3`,
		models.AccountStatusActive, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccountRows(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.ExternalID, &a.Handle, &a.DisplayName, &a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAccountRows(rows *sql.Rows) (*models.Account, error) {
	var a models.Account
	err := rows.Scan(&a.ID, &a.ExternalID, &a.Handle, &a.DisplayName, &a.Balance, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
