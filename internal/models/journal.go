package models

import (
	"time"
)

// Journal entry kinds.
const (
	JournalKindTransfer      = "transfer"
	JournalKindAuctionFee    = "auction_fee"
	JournalKindAuctionBid    = "auction_bid"
	JournalKindAuctionRefund = "auction_refund"
	JournalKindAdminGrant    = "admin_grant"
	JournalKindAdminRemove   = "admin_remove"
)

// JournalEntry is an immutable record of one balance-affecting event. A row
// is appended whenever a balance changes; rows are never updated or deleted.
type JournalEntry struct {
	ID          int64     `json:"id" db:"id"`
	EntryID     string    `json:"entry_id" db:"entry_id"`
	SenderID    *int64    `json:"sender_id,omitempty" db:"sender_id"`
	RecipientID *int64    `json:"recipient_id,omitempty" db:"recipient_id"`
	Amount      int64     `json:"amount" db:"amount"`
	Kind        string    `json:"kind" db:"kind"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
