package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{DealStatusOpen, DealStatusJoined, true},
		{DealStatusJoined, DealStatusPaid, true},
		{DealStatusPaid, DealStatusCompleted, true},

		// Completion from any non-terminal status
		{DealStatusOpen, DealStatusCompleted, true},
		{DealStatusJoined, DealStatusCompleted, true},

		// Cancellation paths
		{DealStatusOpen, DealStatusCancelled, true},
		{DealStatusJoined, DealStatusCancelled, true},
		{DealStatusPaid, DealStatusCancelled, true},

		// Invalid transitions
		{DealStatusOpen, DealStatusPaid, false},
		{DealStatusJoined, DealStatusJoined, false},
		{DealStatusPaid, DealStatusJoined, false},
		{DealStatusCompleted, DealStatusCancelled, false},
		{DealStatusCompleted, DealStatusOpen, false},
		{DealStatusCancelled, DealStatusCompleted, false},
		{DealStatusCancelled, DealStatusJoined, false},
		{"nonexistent", DealStatusJoined, false},
		{DealStatusOpen, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		DealStatusOpen, DealStatusJoined, DealStatusPaid,
		DealStatusCompleted, DealStatusCancelled,
	}

	for _, status := range allStatuses {
		if _, ok := ValidDealTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidDealTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, status := range []string{DealStatusCompleted, DealStatusCancelled} {
		if !IsTerminalStatus(status) {
			t.Errorf("IsTerminalStatus(%q) = false, want true", status)
		}
		if transitions := ValidDealTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}

	for _, status := range NonTerminalStatuses {
		if IsTerminalStatus(status) {
			t.Errorf("IsTerminalStatus(%q) = true, want false", status)
		}
	}
}

func TestDealIsParticipant(t *testing.T) {
	counterparty := int64(200)
	open := Deal{CreatorID: 100, Status: DealStatusOpen}
	joined := Deal{CreatorID: 100, CounterpartyID: &counterparty, Status: DealStatusJoined}

	if !open.IsParticipant(100) {
		t.Error("creator must be a participant")
	}
	if open.IsParticipant(200) {
		t.Error("actor is not a participant before joining")
	}
	if !joined.IsParticipant(200) {
		t.Error("joined counterparty must be a participant")
	}
	if joined.IsParticipant(300) {
		t.Error("third party must not be a participant")
	}
}
