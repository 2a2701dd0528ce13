package services

import (
	"context"
	"log"
	"time"
)

// ExpirySweeper periodically completes overdue auctions and clears expired
// cooldown and offer rows. Expiry is already enforced lazily on the read and
// bid paths, so a missed sweep delays housekeeping but never correctness.
type ExpirySweeper struct {
	auctions  *AuctionEngine
	cooldowns *CooldownGate
	offers    *PendingOfferStore
	interval  time.Duration
}

func NewExpirySweeper(auctions *AuctionEngine, cooldowns *CooldownGate, offers *PendingOfferStore, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		auctions:  auctions,
		cooldowns: cooldowns,
		offers:    offers,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. Intended to
// be launched as a goroutine at startup.
func (s *ExpirySweeper) Run(ctx context.Context) {
	log.Printf("[SWEEPER] Running every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SWEEPER] Stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. Failures are logged and the remaining stages still
// run; the next tick retries whatever was missed.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	closed, err := s.auctions.CloseExpired(ctx)
	if err != nil {
		log.Printf("[SWEEPER] Closing expired auctions: %v", err)
	}
	if closed > 0 {
		log.Printf("[SWEEPER] Completed %d expired auction(s)", closed)
	}

	purged, err := s.cooldowns.PurgeExpired(ctx)
	if err != nil {
		log.Printf("[SWEEPER] Purging cooldowns: %v", err)
	} else if purged > 0 {
		log.Printf("[SWEEPER] Purged %d expired cooldown(s)", purged)
	}

	offers, err := s.offers.PurgeExpired(ctx)
	if err != nil {
		log.Printf("[SWEEPER] Purging offers: %v", err)
	} else if offers > 0 {
		log.Printf("[SWEEPER] Purged %d expired offer(s)", offers)
	}
}
