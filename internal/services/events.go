package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Event channel the broadcast layer subscribes to.
const EventChannel = "economy_events"

// Event types published for downstream consumers.
const (
	EventTransferCompleted = "transfer_completed"
	EventAuctionCreated    = "auction_created"
	EventBidPlaced         = "bid_placed"
	EventAuctionCancelled  = "auction_cancelled"
	EventAuctionCompleted  = "auction_completed"
)

// EconomyEvent is the wire shape published to Redis after a mutation
// commits.
type EconomyEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EventPublisher pushes committed economy events to Redis Pub/Sub,
// best-effort. The write path never depends on it: a nil client or a publish
// failure only logs.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{redis: client}
}

func (p *EventPublisher) PublishTransfer(ctx context.Context, result *TransferResult) {
	p.publish(ctx, EventTransferCompleted, result)
}

func (p *EventPublisher) PublishAuction(ctx context.Context, eventType string, payload any) {
	p.publish(ctx, eventType, payload)
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, payload any) {
	if p.redis == nil {
		return
	}

	event := EconomyEvent{
		EventID:   uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] Failed to marshal %s event: %v", eventType, err)
		return
	}

	if err := p.redis.Publish(ctx, EventChannel, string(data)).Err(); err != nil {
		log.Printf("[EVENTS] Failed to publish %s event: %v", eventType, err)
	}
}
