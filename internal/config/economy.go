package config

import (
	"os"
	"strconv"
	"time"
)

type EconomyConfig struct {
	CurrencyName        string
	CurrencySymbol      string
	MinTransfer         int64
	MaxTransfer         int64
	TransferCooldown    time.Duration
	ListingFee          int64
	MinBid              int64
	DefaultAuctionHours int
	AllowDebt           bool
	MaxDebt             int64
	DefaultBalance      int64
	SweepInterval       time.Duration
	HistoryPageLimit    int
	OfferTTL            time.Duration
}

func LoadEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		CurrencyName:        getEnv("CURRENCY_NAME", "DominionCoins"),
		CurrencySymbol:      getEnv("CURRENCY_SYMBOL", "DC"),
		MinTransfer:         getEnvAsInt64("MIN_TRANSFER_AMOUNT", 1),
		MaxTransfer:         getEnvAsInt64("MAX_TRANSFER_AMOUNT", 1000000),
		TransferCooldown:    getEnvAsDuration("TRANSFER_COOLDOWN", 5*time.Second),
		ListingFee:          getEnvAsInt64("AUCTION_LISTING_FEE", 50),
		MinBid:              getEnvAsInt64("AUCTION_MIN_BID", 10),
		DefaultAuctionHours: getEnvAsInt("AUCTION_DEFAULT_HOURS", 24),
		AllowDebt:           getEnvAsBool("ALLOW_DEBT", false),
		MaxDebt:             getEnvAsInt64("MAX_DEBT_AMOUNT", 0),
		DefaultBalance:      getEnvAsInt64("DEFAULT_BALANCE", 0),
		SweepInterval:       getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
		HistoryPageLimit:    getEnvAsInt("HISTORY_PAGE_LIMIT", 50),
		OfferTTL:            getEnvAsDuration("OFFER_TTL", 24*time.Hour),
	}
}

// MinBalance returns the floor a balance may never cross: zero, or the
// configured debt limit when debt mode is on.
func (c *EconomyConfig) MinBalance() int64 {
	if c.AllowDebt {
		return -c.MaxDebt
	}
	return 0
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
