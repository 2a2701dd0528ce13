package models

import (
	"time"
)

// Named actions gated by cooldowns.
const (
	ActionTransfer = "transfer"
)

// Cooldown is a timed restriction on one (account, action) pair. At most one
// row exists per pair; setting a cooldown overwrites the previous expiry.
type Cooldown struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Action    string    `json:"action" db:"action"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
