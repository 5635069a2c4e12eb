package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction kinds
const (
	TxKindPayment = "payment"
	TxKindRefund  = "refund"
	TxKindRelease = "release"
)

// Transaction statuses
const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// Transaction is an append-only sub-ledger row recording a payment,
// refund or release event on a deal. Rows are never mutated after insert.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	DealID    uuid.UUID       `json:"deal_id"`
	ActorID   int64           `json:"actor_id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Network   string          `json:"network"`
	TxHash    *string         `json:"tx_hash,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
