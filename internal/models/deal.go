package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deal statuses
const (
	DealStatusOpen      = "open"
	DealStatusJoined    = "joined"
	DealStatusPaid      = "paid"
	DealStatusCompleted = "completed"
	DealStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to.
// Completion is reachable from every non-terminal status because the
// parties (or an admin) may settle before or after payment selection.
var ValidDealTransitions = map[string][]string{
	DealStatusOpen:      {DealStatusJoined, DealStatusCompleted, DealStatusCancelled},
	DealStatusJoined:    {DealStatusPaid, DealStatusCompleted, DealStatusCancelled},
	DealStatusPaid:      {DealStatusCompleted, DealStatusCancelled},
	DealStatusCompleted: {},
	DealStatusCancelled: {},
}

// NonTerminalStatuses in the order a deal normally passes through them.
var NonTerminalStatuses = []string{DealStatusOpen, DealStatusJoined, DealStatusPaid}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidDealTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition is allowed.
func IsTerminalStatus(status string) bool {
	return status == DealStatusCompleted || status == DealStatusCancelled
}

type Deal struct {
	ID             uuid.UUID       `json:"id"`
	CreatorID      int64           `json:"creator_id"`
	CounterpartyID *int64          `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Condition      string          `json:"condition"`
	SecretHash     string          `json:"-"`
	Status         string          `json:"status"`
	PaymentMethod  *string         `json:"payment_method,omitempty"`
	PaymentAddress *string         `json:"payment_address,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsParticipant reports whether the actor is the creator or the joined
// counterparty of the deal.
func (d *Deal) IsParticipant(actorID int64) bool {
	if d.CreatorID == actorID {
		return true
	}
	return d.CounterpartyID != nil && *d.CounterpartyID == actorID
}

// DealWithNames embeds Deal and adds participant display names to avoid
// N+1 queries in list views.
type DealWithNames struct {
	Deal
	CreatorUsername      *string `json:"creator_username,omitempty"`
	CounterpartyUsername *string `json:"counterparty_username,omitempty"`
}
