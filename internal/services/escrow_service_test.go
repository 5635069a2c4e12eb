package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
)

func TestCreateDealValidation(t *testing.T) {
	svc := &EscrowService{
		cfg: &config.Config{MinConditionLen: 10, MinSecretLen: 4},
		log: zap.NewNop(),
	}

	tests := []struct {
		name string
		in   CreateDealInput
	}{
		{"empty amount", CreateDealInput{Amount: "", Condition: "deliver the artwork", Secret: "hunter2"}},
		{"negative amount", CreateDealInput{Amount: "-5", Condition: "deliver the artwork", Secret: "hunter2"}},
		{"zero amount", CreateDealInput{Amount: "0", Condition: "deliver the artwork", Secret: "hunter2"}},
		{"too many decimals", CreateDealInput{Amount: "10.123", Condition: "deliver the artwork", Secret: "hunter2"}},
		{"amount not a number", CreateDealInput{Amount: "ten", Condition: "deliver the artwork", Secret: "hunter2"}},
		{"condition too short", CreateDealInput{Amount: "100", Condition: "short", Secret: "hunter2"}},
		{"condition only whitespace", CreateDealInput{Amount: "100", Condition: "             ", Secret: "hunter2"}},
		// 7 characters but 14 bytes; the minimum counts characters.
		{"condition short in runes", CreateDealInput{Amount: "100", Condition: "условие", Secret: "hunter2"}},
		{"secret too short", CreateDealInput{Amount: "100", Condition: "deliver the artwork", Secret: "abc"}},
		{"secret short in runes", CreateDealInput{Amount: "100", Condition: "deliver the artwork", Secret: "код"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDeal(context.Background(), 1, tt.in)
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

// stubPublisher records every published event.
type stubPublisher struct {
	mu      sync.Mutex
	streams []string
	events  []events.Event
}

func (p *stubPublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streams = append(p.streams, stream)
	p.events = append(p.events, event)
	return nil
}

func TestNotifyParticipantsPublishesAddressedEvents(t *testing.T) {
	pub := &stubPublisher{}
	svc := &EscrowService{publisher: pub, log: zap.NewNop()}

	counterparty := int64(7)
	deal := &models.Deal{
		ID:             uuid.New(),
		CreatorID:      3,
		CounterpartyID: &counterparty,
		Amount:         decimal.RequireFromString("50"),
		Condition:      "ship the item",
		Status:         models.DealStatusCompleted,
	}

	svc.notifyParticipants(context.Background(), deal, "completed")

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2 (one per participant)", len(pub.events))
	}

	recipients := map[int64]bool{}
	for i, e := range pub.events {
		if pub.streams[i] != events.StreamBroadcast {
			t.Errorf("event %d published to %q, want %q", i, pub.streams[i], events.StreamBroadcast)
		}
		if e.Type != events.EventBotNotification {
			t.Errorf("event %d type = %q, want %q", i, e.Type, events.EventBotNotification)
		}
		// The bridge only forwards events that carry a recipient.
		id, ok := e.Payload["telegram_user_id"].(int64)
		if !ok {
			t.Fatalf("event %d payload has no telegram_user_id: %v", i, e.Payload)
		}
		recipients[id] = true
		if text, _ := e.Payload["text"].(string); text == "" {
			t.Errorf("event %d has empty text", i)
		}
		if e.Payload["amount"] != "50.00" {
			t.Errorf("event %d amount = %v, want 50.00", i, e.Payload["amount"])
		}
		if e.Payload["condition"] != "ship the item" {
			t.Errorf("event %d condition = %v", i, e.Payload["condition"])
		}
	}
	if !recipients[3] || !recipients[7] {
		t.Errorf("recipients = %v, want both 3 and 7", recipients)
	}
}

func TestIgnoreLostPaidRace(t *testing.T) {
	if err := ignoreLostPaidRace(nil); err != nil {
		t.Errorf("nil must pass through, got %v", err)
	}
	if err := ignoreLostPaidRace(fmt.Errorf("transition: %w", models.ErrConflict)); err != nil {
		t.Errorf("a lost race must be benign, got %v", err)
	}
	if err := ignoreLostPaidRace(fmt.Errorf("transition: %w", models.ErrInvalidState)); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("non-conflict errors must pass through, got %v", err)
	}
}
