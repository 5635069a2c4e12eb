package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actor types
const (
	AuditActorUser   = "user"
	AuditActorAdmin  = "admin"
	AuditActorSystem = "system"
)

// Audit actions
const (
	ActionActorRegistered  = "actor_registered"
	ActionActorBlocked     = "actor_blocked"
	ActionActorUnblocked   = "actor_unblocked"
	ActionDealCreated      = "deal_created"
	ActionDealJoined       = "deal_joined"
	ActionPaymentSelected  = "payment_selected"
	ActionDealCompleted    = "deal_completed"
	ActionDealCancelled    = "deal_cancelled"
	ActionBroadcastStarted = "broadcast_started"
)

// AuditEntry is an append-only record of a state-changing action.
type AuditEntry struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   *int64     `json:"actor_id,omitempty"`
	DealID    *uuid.UUID `json:"deal_id,omitempty"`
	ActorType string     `json:"actor_type"`
	Action    string     `json:"action"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
