package rbac

import "github.com/escrowdesk/backend/internal/models"

// Role constants
const (
	RoleCreator      = "creator"
	RoleCounterparty = "counterparty"
	RoleAdmin        = "admin"
	RoleNone         = "none"
)

// Permission constants
const (
	PermCancelDeal    = "cancel_deal"
	PermCompleteDeal  = "complete_deal"
	PermSelectPayment = "select_payment"
	PermForceComplete = "force_complete"
	PermForceCancel   = "force_cancel"
	PermBlockActor    = "block_actor"
	PermBroadcast     = "broadcast"
)

// RolePermissions defines what each role can do on a deal.
var RolePermissions = map[string][]string{
	RoleCreator: {
		PermCancelDeal, PermCompleteDeal, PermSelectPayment,
	},
	RoleCounterparty: {
		PermCompleteDeal, PermSelectPayment,
		// Counterparty CANNOT: PermCancelDeal — only the creator backs out
	},
	RoleAdmin: {
		PermCancelDeal, PermCompleteDeal, PermSelectPayment,
		PermForceComplete, PermForceCancel, PermBlockActor, PermBroadcast,
	},
}

// RoleOnDeal resolves the actor's role relative to a deal.
func RoleOnDeal(d *models.Deal, actorID int64, isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	if d.CreatorID == actorID {
		return RoleCreator
	}
	if d.CounterpartyID != nil && *d.CounterpartyID == actorID {
		return RoleCounterparty
	}
	return RoleNone
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
