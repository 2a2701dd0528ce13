package services

import (
	"context"
	"database/sql"

	"github.com/dominionbank/backend/internal/database"
	"github.com/dominionbank/backend/internal/models"
	"github.com/google/uuid"
)

// Journal is the append-only record of balance-affecting events. Entries are
// written in the same transaction as the balance change they describe and
// are never updated or deleted.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Append writes one journal entry and returns it.
func (j *Journal) Append(ctx context.Context, q database.Queryer, senderID, recipientID *int64, amount int64, kind, description string) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{
		EntryID:     uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO journal_entries (entry_id, sender_id, recipient_id, amount, kind, description)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at`,
		entry.EntryID, entry.SenderID, entry.RecipientID, entry.Amount, entry.Kind, entry.Description).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the entries touching one account, newest first.
func (j *Journal) History(ctx context.Context, accountID int64, limit, offset int) ([]models.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, entry_id, sender_id, recipient_id, amount, kind, COALESCE(description, ''), created_at
		FROM journal_entries
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.SenderID, &e.RecipientID, &e.Amount, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
