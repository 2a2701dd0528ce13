package models

import (
	"time"
)

// Auction statuses. Completed and cancelled are terminal.
const (
	AuctionStatusActive    = "active"
	AuctionStatusCompleted = "completed"
	AuctionStatusCancelled = "cancelled"
)

// Auction is a listing members bid on by escrowing currency. While the
// auction is active, the funds held from CurrentBidderID always equal
// CurrentBid; both are nil until the first bid lands.
type Auction struct {
	ID              int64     `json:"id" db:"id"`
	SellerID        int64     `json:"seller_id" db:"seller_id"`
	TargetID        *int64    `json:"target_id,omitempty" db:"target_id"`
	Description     string    `json:"description,omitempty" db:"description"`
	StartingPrice   int64     `json:"starting_price" db:"starting_price"`
	CurrentBid      *int64    `json:"current_bid,omitempty" db:"current_bid"`
	CurrentBidderID *int64    `json:"current_bidder_id,omitempty" db:"current_bidder_id"`
	Status          string    `json:"status" db:"status"`
	EndsAt          time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// MinimumNextBid returns the smallest amount the next bid must carry. Equal
// bids never tie; a standing bid must be beaten by at least one coin.
func (a *Auction) MinimumNextBid() int64 {
	if a.CurrentBid == nil {
		return a.StartingPrice
	}
	min := *a.CurrentBid + 1
	if a.StartingPrice > min {
		min = a.StartingPrice
	}
	return min
}

// Bid is one entry in an auction's append-only bid history, superseded bids
// included.
type Bid struct {
	ID        int64     `json:"id" db:"id"`
	AuctionID int64     `json:"auction_id" db:"auction_id"`
	BidderID  int64     `json:"bidder_id" db:"bidder_id"`
	Amount    int64     `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
