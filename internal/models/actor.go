package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actor is a registered participant. The id is assigned externally
// (Telegram user id) and actors are never deleted — blocking flips
// IsActive to false.
type Actor struct {
	ID             int64           `json:"id"`
	Username       *string         `json:"username,omitempty"`
	FirstName      *string         `json:"first_name,omitempty"`
	IsActive       bool            `json:"is_active"`
	CompletedDeals int             `json:"completed_deals"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActiveAt   time.Time       `json:"last_active_at"`
}

// ActorStats is the read-only projection returned to the profile view.
type ActorStats struct {
	CompletedDeals int             `json:"completed_deals"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	JoinedAt       time.Time       `json:"joined_at"`
}
