package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	EntryID   string    `json:"entry_id,omitempty"`
	AccountID int64     `json:"account_id,omitempty"`
	AuctionID int64     `json:"auction_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

// Logger writes one structured line per balance-affecting event. It is a
// human-readable companion to the journal table, not a substitute for it.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) LogTransfer(entryID string, senderID, recipientID, amount int64) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: "TRANSFER",
		EntryID:   entryID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]int64{
			"sender_id":    senderID,
			"recipient_id": recipientID,
		},
	})
}

func (l *Logger) LogAdjustment(entryID string, accountID, delta int64) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: "ADMIN_ADJUST",
		EntryID:   entryID,
		AccountID: accountID,
		Amount:    delta,
		Status:    "SUCCESS",
	})
}

func (l *Logger) LogAuction(eventType string, auctionID, accountID, amount int64) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: eventType,
		AuctionID: auctionID,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
	})
}

func (l *Logger) LogError(eventType string, accountID int64, err error) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: eventType,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (l *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
