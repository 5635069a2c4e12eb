package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/repositories"
)

// AdminService is the override surface. It reuses the escrow engine's
// transitions so forced settlements obey the same state machine and write
// the same audit trail, just tagged with the admin actor type.
type AdminService struct {
	escrow    *EscrowService
	actorRepo *repositories.ActorRepo
	dealRepo  *repositories.DealRepo
	auditRepo *repositories.AuditRepo
	notifier  Notifier
	publisher events.Publisher
	log       *zap.Logger
}

func NewAdminService(
	escrow *EscrowService,
	actorRepo *repositories.ActorRepo,
	dealRepo *repositories.DealRepo,
	auditRepo *repositories.AuditRepo,
	notifier Notifier,
	publisher events.Publisher,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		escrow:    escrow,
		actorRepo: actorRepo,
		dealRepo:  dealRepo,
		auditRepo: auditRepo,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
	}
}

// ForceComplete settles a dispute in the counterparty's favor. Stats credit
// and terminality semantics are identical to a participant completion.
func (s *AdminService) ForceComplete(ctx context.Context, adminID int64, dealID uuid.UUID) (*models.Deal, error) {
	return s.escrow.complete(ctx, dealID, adminID, models.AuditActorAdmin)
}

// ForceCancel aborts a deal regardless of who is involved.
func (s *AdminService) ForceCancel(ctx context.Context, adminID int64, dealID uuid.UUID) (*models.Deal, error) {
	return s.escrow.cancel(ctx, dealID, adminID, models.AuditActorAdmin)
}

// BlockActor deactivates an actor and cancels every non-terminal deal they
// participate in. Deals that reach a terminal state concurrently are
// skipped, not errors; the returned slice holds the ids actually cancelled.
func (s *AdminService) BlockActor(ctx context.Context, adminID, actorID int64) ([]uuid.UUID, error) {
	if adminID == actorID {
		return nil, fmt.Errorf("%w: cannot block yourself", models.ErrPolicy)
	}
	if err := s.actorRepo.SetActive(ctx, actorID, false); err != nil {
		return nil, err
	}

	ids, err := s.dealRepo.NonTerminalIDsForActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var cancelled []uuid.UUID
	for _, id := range ids {
		if _, err := s.escrow.cancel(ctx, id, adminID, models.AuditActorAdmin); err != nil {
			// A racing settlement got there first. Anything else is logged
			// and the cascade keeps going.
			if errors.Is(err, models.ErrInvalidState) || errors.Is(err, models.ErrConflict) {
				continue
			}
			s.log.Error("block cascade: cancel failed",
				zap.String("deal_id", id.String()), zap.Error(err))
			continue
		}
		cancelled = append(cancelled, id)
	}

	s.escrow.audit(ctx, models.AuditEntry{
		ActorID:   &adminID,
		ActorType: models.AuditActorAdmin,
		Action:    models.ActionActorBlocked,
		Detail:    fmt.Sprintf("target=%d cancelled_deals=%d", actorID, len(cancelled)),
	})
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.StreamDeal, events.Event{
			Type: events.EventActorBlocked,
			Payload: map[string]any{
				"actor_id": actorID,
			},
		})
	}

	return cancelled, nil
}

// UnblockActor restores a blocked actor. Cancelled deals stay cancelled.
func (s *AdminService) UnblockActor(ctx context.Context, adminID, actorID int64) error {
	if err := s.actorRepo.SetActive(ctx, actorID, true); err != nil {
		return err
	}
	s.escrow.audit(ctx, models.AuditEntry{
		ActorID:   &adminID,
		ActorType: models.AuditActorAdmin,
		Action:    models.ActionActorUnblocked,
		Detail:    fmt.Sprintf("target=%d", actorID),
	})
	return nil
}

// BroadcastResult is always returned, even when the context is cancelled
// mid-flight; callers see how far the fan-out got.
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcast fans a message out to every active actor. Concurrency is capped
// at the notifier's declared capacity so a broadcast cannot saturate the
// delivery transport.
func (s *AdminService) Broadcast(ctx context.Context, adminID int64, text string) (BroadcastResult, error) {
	if text == "" {
		return BroadcastResult{}, fmt.Errorf("%w: broadcast text must not be empty", models.ErrValidation)
	}

	ids, err := s.actorRepo.ActiveIDs(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}

	s.escrow.audit(ctx, models.AuditEntry{
		ActorID:   &adminID,
		ActorType: models.AuditActorAdmin,
		Action:    models.ActionBroadcastStarted,
		Detail:    fmt.Sprintf("recipients=%d", len(ids)),
	})

	result := s.fanOut(ctx, ids, text)
	s.log.Info("broadcast finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("recipients", len(ids)))

	if s.publisher != nil {
		// Summary only; per-recipient delivery already went through the
		// notifier. Publish on a fresh context so a cancelled broadcast
		// still reports its partial counts.
		_ = s.publisher.Publish(context.Background(), events.StreamBroadcast, events.Event{
			Type: events.EventBroadcastFinished,
			Payload: map[string]any{
				"sent":       result.Sent,
				"failed":     result.Failed,
				"recipients": len(ids),
			},
		})
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("broadcast interrupted: %w", err)
	}
	return result, nil
}

// fanOut delivers to each recipient with at most Capacity() sends in
// flight. Cancellation stops admitting new sends; in-flight ones finish
// and are counted, so the result reflects exactly what happened.
func (s *AdminService) fanOut(ctx context.Context, ids []int64, text string) BroadcastResult {
	capacity := s.notifier.Capacity()
	if capacity <= 0 {
		capacity = 1
	}

	var (
		sent   atomic.Int64
		failed atomic.Int64
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, capacity)

loop:
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(actorID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.notifier.SendMessage(ctx, actorID, text); err != nil {
				failed.Add(1)
				s.log.Warn("broadcast delivery failed",
					zap.Int64("actor_id", actorID), zap.Error(err))
				return
			}
			sent.Add(1)
		}(id)
	}
	wg.Wait()

	return BroadcastResult{
		Sent:   int(sent.Load()),
		Failed: int(failed.Load()),
	}
}

// PlatformStats is the global projection shown on the admin dashboard.
type PlatformStats struct {
	TotalActors     int             `json:"total_actors"`
	DealsByStatus   map[string]int  `json:"deals_by_status"`
	CompletedVolume decimal.Decimal `json:"completed_volume"`
}

func (s *AdminService) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	actors, err := s.actorRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.dealRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	volume, err := s.dealRepo.CompletedVolume(ctx)
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		TotalActors:     actors,
		DealsByStatus:   byStatus,
		CompletedVolume: volume,
	}, nil
}

// DailyStats covers the trailing 24 hours.
type DailyStats struct {
	NewActors       int             `json:"new_actors"`
	NewDeals        int             `json:"new_deals"`
	JoinedDeals     int             `json:"joined_deals"`
	CompletedDeals  int             `json:"completed_deals"`
	CompletedVolume decimal.Decimal `json:"completed_volume"`
}

func (s *AdminService) DailyStats(ctx context.Context) (*DailyStats, error) {
	since := time.Now().Add(-24 * time.Hour)

	newActors, err := s.actorRepo.CountRegisteredSince(ctx, since)
	if err != nil {
		return nil, err
	}
	newDeals, err := s.dealRepo.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	joined, err := s.auditRepo.CountActionSince(ctx, models.ActionDealJoined, since)
	if err != nil {
		return nil, err
	}
	completed, volume, err := s.dealRepo.CompletedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &DailyStats{
		NewActors:       newActors,
		NewDeals:        newDeals,
		JoinedDeals:     joined,
		CompletedDeals:  completed,
		CompletedVolume: volume,
	}, nil
}

// ActorAudit returns an actor's trail for admin investigation, newest first.
func (s *AdminService) ActorAudit(ctx context.Context, actorID int64, limit int) ([]models.AuditEntry, error) {
	return s.auditRepo.ListForActor(ctx, actorID, limit)
}

// ListDealsByStatus backs the admin deal browser.
func (s *AdminService) ListDealsByStatus(ctx context.Context, statuses []string, limit int) ([]models.DealWithNames, error) {
	if len(statuses) == 0 {
		statuses = append([]string{}, models.NonTerminalStatuses...)
	}
	for _, st := range statuses {
		if _, ok := models.ValidDealTransitions[st]; !ok {
			return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, st)
		}
	}
	return s.dealRepo.ListByStatus(ctx, statuses, limit)
}
