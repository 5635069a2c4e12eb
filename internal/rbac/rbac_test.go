package rbac

import (
	"testing"

	"github.com/escrowdesk/backend/internal/models"
)

func TestRoleOnDeal(t *testing.T) {
	counterparty := int64(200)
	deal := &models.Deal{CreatorID: 100, CounterpartyID: &counterparty}

	tests := []struct {
		name    string
		actorID int64
		isAdmin bool
		want    string
	}{
		{"creator", 100, false, RoleCreator},
		{"counterparty", 200, false, RoleCounterparty},
		{"stranger", 300, false, RoleNone},
		{"admin overrides participant role", 100, true, RoleAdmin},
		{"admin stranger", 999, true, RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleOnDeal(deal, tt.actorID, tt.isAdmin); got != tt.want {
				t.Errorf("RoleOnDeal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{RoleCreator, PermCancelDeal, true},
		{RoleCreator, PermCompleteDeal, true},
		{RoleCreator, PermForceComplete, false},
		{RoleCounterparty, PermCompleteDeal, true},
		{RoleCounterparty, PermCancelDeal, false},
		{RoleCounterparty, PermSelectPayment, true},
		{RoleAdmin, PermForceCancel, true},
		{RoleAdmin, PermBroadcast, true},
		{RoleNone, PermCompleteDeal, false},
		{"unknown", PermCancelDeal, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}
