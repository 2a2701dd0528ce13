package models

import (
	"fmt"
	"time"
)

// AccountStatusActive is the only status this service assigns; moderation
// states belong to the chat layer.
const AccountStatusActive = "ACTIVE"

// Account represents a member of the community economy. Accounts are created
// on first interaction and never deleted; balance is mutated only through the
// account store.
type Account struct {
	ID          int64     `json:"id" db:"id"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	Handle      string    `json:"handle,omitempty" db:"handle"`
	DisplayName string    `json:"display_name,omitempty" db:"display_name"`
	Balance     int64     `json:"balance" db:"balance"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Display returns the name shown in chat replies.
func (a *Account) Display() string {
	if a.Handle != "" {
		return "@" + a.Handle
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return fmt.Sprintf("Member#%s", a.ExternalID)
}
