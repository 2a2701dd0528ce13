package models

import (
	"time"
)

// PendingOffer is a time-limited proposal from one member to another,
// created and consumed by the chat-command layer. Expired rows are purged by
// the sweeper.
type PendingOffer struct {
	ID        int64     `json:"id" db:"id"`
	FromID    int64     `json:"from_id" db:"from_id"`
	ToID      int64     `json:"to_id" db:"to_id"`
	Kind      string    `json:"kind" db:"kind"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
