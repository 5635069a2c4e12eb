package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/payments"
	"github.com/escrowdesk/backend/internal/rbac"
	"github.com/escrowdesk/backend/internal/repositories"
)

// EscrowService owns the deal lifecycle: registration, creation, join,
// payment selection, completion and cancellation. Every mutation goes
// through the persisted state machine; concurrent writers lose with
// ErrConflict or ErrPolicy, never with silent double application.
type EscrowService struct {
	actorRepo *repositories.ActorRepo
	dealRepo  *repositories.DealRepo
	auditRepo *repositories.AuditRepo
	txRepo    *repositories.TransactionRepo
	methods   *payments.Registry
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewEscrowService(
	actorRepo *repositories.ActorRepo,
	dealRepo *repositories.DealRepo,
	auditRepo *repositories.AuditRepo,
	txRepo *repositories.TransactionRepo,
	methods *payments.Registry,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		actorRepo: actorRepo,
		dealRepo:  dealRepo,
		auditRepo: auditRepo,
		txRepo:    txRepo,
		methods:   methods,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Register upserts an actor on first (or repeated) contact. Repeated calls
// refresh profile fields and last_active_at; only the first contact emits
// an audit record.
func (s *EscrowService) Register(ctx context.Context, id int64, username, firstName *string) (*models.Actor, error) {
	actor, inserted, err := s.actorRepo.Upsert(ctx, id, username, firstName)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.audit(ctx, models.AuditEntry{
			ActorID:   &id,
			ActorType: models.AuditActorUser,
			Action:    models.ActionActorRegistered,
		})
	}
	return actor, nil
}

func (s *EscrowService) IsRegistered(ctx context.Context, id int64) (bool, error) {
	return s.actorRepo.Exists(ctx, id)
}

type CreateDealInput struct {
	Amount    string `json:"amount"`
	Condition string `json:"condition"`
	Secret    string `json:"secret"`
}

// CreateDeal validates the input, enforces the per-creator active deal cap
// and persists a new open deal. The cap check and the insert share one
// transaction guarded by an advisory lock on the creator id, so two
// concurrent creations by the same actor cannot both slip under the cap.
func (s *EscrowService) CreateDeal(ctx context.Context, creatorID int64, in CreateDealInput) (*models.Deal, error) {
	amount, err := models.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	// Minimums are in characters, not bytes; non-ASCII input must not
	// slip under them.
	condition := strings.TrimSpace(in.Condition)
	if utf8.RuneCountInString(condition) < s.cfg.MinConditionLen {
		return nil, fmt.Errorf("%w: condition must be at least %d characters", models.ErrValidation, s.cfg.MinConditionLen)
	}
	if utf8.RuneCountInString(in.Secret) < s.cfg.MinSecretLen {
		return nil, fmt.Errorf("%w: secret must be at least %d characters", models.ErrValidation, s.cfg.MinSecretLen)
	}

	if err := s.requireActiveActor(ctx, creatorID); err != nil {
		return nil, err
	}

	deal := &models.Deal{
		ID:         uuid.New(),
		CreatorID:  creatorID,
		Amount:     amount,
		Condition:  condition,
		SecretHash: HashSecret(in.Secret),
		Status:     models.DealStatusOpen,
	}
	if err := s.dealRepo.Create(ctx, deal, s.cfg.ActiveDealCap); err != nil {
		return nil, err
	}

	s.audit(ctx, models.AuditEntry{
		ActorID:   &creatorID,
		DealID:    &deal.ID,
		ActorType: models.AuditActorUser,
		Action:    models.ActionDealCreated,
		Detail:    fmt.Sprintf("amount=%s", amount.StringFixed(2)),
	})
	s.publishDealEvent(ctx, deal, "created")

	return deal, nil
}

// JoinDeal attaches the caller as counterparty. The secret is verified
// before any write; the attach itself is a single compare-and-set, so when
// two actors race on the same deal exactly one wins and the loser gets
// ErrPolicy without having mutated anything.
func (s *EscrowService) JoinDeal(ctx context.Context, dealID uuid.UUID, actorID int64, secret string) (*models.Deal, error) {
	if err := s.requireActiveActor(ctx, actorID); err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.CreatorID == actorID {
		return nil, fmt.Errorf("%w: cannot join your own deal", models.ErrPolicy)
	}
	if !VerifySecret(deal.SecretHash, secret) {
		return nil, fmt.Errorf("%w: secret mismatch", models.ErrPolicy)
	}

	if err := s.dealRepo.Join(ctx, dealID, actorID); err != nil {
		return nil, err
	}
	deal.CounterpartyID = &actorID
	deal.Status = models.DealStatusJoined

	s.audit(ctx, models.AuditEntry{
		ActorID:   &actorID,
		DealID:    &deal.ID,
		ActorType: models.AuditActorUser,
		Action:    models.ActionDealJoined,
	})
	s.publishDealEvent(ctx, deal, "joined")
	s.notify(ctx, deal.CreatorID, deal, "joined")

	return deal, nil
}

// PaymentInfo is what the caller needs to actually pay: the deposit
// address for the chosen network and a wallet deep link.
type PaymentInfo struct {
	Deal        *models.Deal `json:"deal"`
	Method      string       `json:"method"`
	Address     string       `json:"address"`
	TransferURI string       `json:"transfer_uri"`
}

// SelectPaymentChannel records the payment network a participant picked and
// opens a pending payment row in the sub-ledger. On a joined deal this also
// advances the status to paid; the paid status is informational and never a
// prerequisite for completion.
func (s *EscrowService) SelectPaymentChannel(ctx context.Context, dealID uuid.UUID, actorID int64, methodName string) (*PaymentInfo, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	role := rbac.RoleOnDeal(deal, actorID, false)
	if !rbac.HasPermission(role, rbac.PermSelectPayment) {
		return nil, fmt.Errorf("%w: only deal participants may select a payment method", models.ErrNotAuthorized)
	}
	if models.IsTerminalStatus(deal.Status) {
		return nil, fmt.Errorf("%w: deal is %s", models.ErrInvalidState, deal.Status)
	}

	method, err := s.methods.Get(methodName)
	if err != nil {
		return nil, err
	}

	if err := s.dealRepo.SetPaymentChannel(ctx, dealID, method.Name, method.Address); err != nil {
		return nil, err
	}
	deal.PaymentMethod = &method.Name
	deal.PaymentAddress = &method.Address

	if err := s.txRepo.Insert(ctx, &models.Transaction{
		DealID:  deal.ID,
		ActorID: actorID,
		Kind:    models.TxKindPayment,
		Amount:  deal.Amount,
		Network: method.Name,
		Status:  models.TxStatusPending,
	}); err != nil {
		return nil, err
	}

	// The paid status is informational. Losing this race to a concurrent
	// writer must not fail the call: the channel and the pending
	// transaction are already persisted.
	if deal.Status == models.DealStatusJoined {
		if err := ignoreLostPaidRace(s.transition(ctx, deal, models.DealStatusPaid)); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, models.AuditEntry{
		ActorID:   &actorID,
		DealID:    &deal.ID,
		ActorType: models.AuditActorUser,
		Action:    models.ActionPaymentSelected,
		Detail:    method.Name,
	})
	s.publishDealEvent(ctx, deal, "payment_selected")

	return &PaymentInfo{
		Deal:        deal,
		Method:      method.Name,
		Address:     method.Address,
		TransferURI: payments.TransferURI(method, deal.Amount),
	}, nil
}

// CompleteDeal settles the deal: one conditional update flips the status to
// completed and credits both participants' stats in the same transaction.
// Losers of a completion race observe ErrInvalidState, not a double credit.
func (s *EscrowService) CompleteDeal(ctx context.Context, dealID uuid.UUID, actorID int64) (*models.Deal, error) {
	return s.complete(ctx, dealID, actorID, models.AuditActorUser)
}

func (s *EscrowService) complete(ctx context.Context, dealID uuid.UUID, actorID int64, actorType string) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	isAdmin := actorType == models.AuditActorAdmin
	role := rbac.RoleOnDeal(deal, actorID, isAdmin)
	if !rbac.HasPermission(role, rbac.PermCompleteDeal) {
		return nil, fmt.Errorf("%w: only deal participants may complete a deal", models.ErrNotAuthorized)
	}

	deal, err = s.dealRepo.Complete(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if deal.PaymentMethod != nil {
		if err := s.txRepo.Insert(ctx, &models.Transaction{
			DealID:  deal.ID,
			ActorID: actorID,
			Kind:    models.TxKindRelease,
			Amount:  deal.Amount,
			Network: *deal.PaymentMethod,
			Status:  models.TxStatusConfirmed,
		}); err != nil {
			s.log.Error("release transaction insert failed",
				zap.String("deal_id", deal.ID.String()), zap.Error(err))
		}
	}

	s.audit(ctx, models.AuditEntry{
		ActorID:   &actorID,
		DealID:    &deal.ID,
		ActorType: actorType,
		Action:    models.ActionDealCompleted,
	})
	s.publishDealEvent(ctx, deal, "completed")
	s.notifyParticipants(ctx, deal, "completed")

	return deal, nil
}

// CancelDeal aborts a non-terminal deal. Only the creator (or an admin via
// the override path) may cancel; the counterparty backs out by simply not
// paying.
func (s *EscrowService) CancelDeal(ctx context.Context, dealID uuid.UUID, actorID int64) (*models.Deal, error) {
	return s.cancel(ctx, dealID, actorID, models.AuditActorUser)
}

func (s *EscrowService) cancel(ctx context.Context, dealID uuid.UUID, actorID int64, actorType string) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	isAdmin := actorType == models.AuditActorAdmin
	role := rbac.RoleOnDeal(deal, actorID, isAdmin)
	if !rbac.HasPermission(role, rbac.PermCancelDeal) {
		return nil, fmt.Errorf("%w: only the deal creator may cancel", models.ErrNotAuthorized)
	}
	if models.IsTerminalStatus(deal.Status) {
		return nil, fmt.Errorf("%w: deal is already %s", models.ErrInvalidState, deal.Status)
	}

	if err := s.transition(ctx, deal, models.DealStatusCancelled); err != nil {
		return nil, err
	}

	if deal.PaymentMethod != nil {
		if err := s.txRepo.Insert(ctx, &models.Transaction{
			DealID:  deal.ID,
			ActorID: actorID,
			Kind:    models.TxKindRefund,
			Amount:  deal.Amount,
			Network: *deal.PaymentMethod,
			Status:  models.TxStatusPending,
		}); err != nil {
			s.log.Error("refund transaction insert failed",
				zap.String("deal_id", deal.ID.String()), zap.Error(err))
		}
	}

	s.audit(ctx, models.AuditEntry{
		ActorID:   &actorID,
		DealID:    &deal.ID,
		ActorType: actorType,
		Action:    models.ActionDealCancelled,
	})
	s.publishDealEvent(ctx, deal, "cancelled")
	s.notifyParticipants(ctx, deal, "cancelled")

	return deal, nil
}

func (s *EscrowService) GetDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	return s.dealRepo.GetByID(ctx, dealID)
}

func (s *EscrowService) ListDealsForActor(ctx context.Context, actorID int64, limit int) ([]models.DealWithNames, error) {
	return s.dealRepo.ListForActor(ctx, actorID, limit)
}

// GetDealEvents returns the audit trail of one deal, oldest first.
func (s *EscrowService) GetDealEvents(ctx context.Context, dealID uuid.UUID, actorID int64, isAdmin bool) ([]models.AuditEntry, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !deal.IsParticipant(actorID) {
		return nil, fmt.Errorf("%w: not a participant of this deal", models.ErrNotAuthorized)
	}
	return s.auditRepo.ListForDeal(ctx, dealID, 100)
}

func (s *EscrowService) GetTransactions(ctx context.Context, dealID uuid.UUID, actorID int64, isAdmin bool) ([]models.Transaction, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !deal.IsParticipant(actorID) {
		return nil, fmt.Errorf("%w: not a participant of this deal", models.ErrNotAuthorized)
	}
	return s.txRepo.ListForDeal(ctx, dealID)
}

// GetStats returns the actor's settlement counters. Counters only move
// inside the completion transaction, so they cannot drift from the ledger.
func (s *EscrowService) GetStats(ctx context.Context, actorID int64) (*models.ActorStats, error) {
	actor, err := s.actorRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &models.ActorStats{
		CompletedDeals: actor.CompletedDeals,
		TotalVolume:    actor.TotalVolume,
		JoinedAt:       actor.CreatedAt,
	}, nil
}

func (s *EscrowService) PaymentMethods() []string {
	return s.methods.Names()
}

// ignoreLostPaidRace filters the error of the informational paid
// transition: a conflict means another writer moved the deal first, which
// never blocks returning payment info.
func ignoreLostPaidRace(err error) error {
	if errors.Is(err, models.ErrConflict) {
		return nil
	}
	return err
}

// transition applies one state-machine step with a conditional update. A
// concurrent writer that moved the deal first surfaces as ErrConflict.
func (s *EscrowService) transition(ctx context.Context, deal *models.Deal, to string) error {
	if !models.IsValidTransition(deal.Status, to) {
		return fmt.Errorf("%w: cannot move deal from %s to %s", models.ErrInvalidState, deal.Status, to)
	}
	if err := s.dealRepo.TransitionStatus(ctx, deal.ID, deal.Status, to); err != nil {
		return err
	}
	deal.Status = to
	return nil
}

func (s *EscrowService) requireActiveActor(ctx context.Context, actorID int64) error {
	actor, err := s.actorRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsActive {
		return fmt.Errorf("%w: actor is blocked", models.ErrNotAuthorized)
	}
	if err := s.actorRepo.Touch(ctx, actorID); err != nil {
		s.log.Warn("touch failed", zap.Int64("actor_id", actorID), zap.Error(err))
	}
	return nil
}

// audit writes the append-only trail. Audit failures are loud in the logs
// but never fail the operation that triggered them.
func (s *EscrowService) audit(ctx context.Context, e models.AuditEntry) {
	if err := s.auditRepo.Log(ctx, e); err != nil {
		s.log.Error("audit write failed",
			zap.String("action", e.Action), zap.Error(err))
	}
}

func (s *EscrowService) publishDealEvent(ctx context.Context, deal *models.Deal, event string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.StreamDeal, events.Event{
		Type: events.EventDealStatusChanged,
		Payload: map[string]any{
			"deal_id": deal.ID.String(),
			"status":  deal.Status,
			"event":   event,
		},
	})
	if err != nil {
		s.log.Warn("event publish failed",
			zap.String("deal_id", deal.ID.String()), zap.Error(err))
	}
}

// notify publishes an addressed notification for the bridge to forward to
// the chat transport. Fire and forget: a publish failure is logged and
// dropped, the state change already committed.
func (s *EscrowService) notify(ctx context.Context, actorID int64, deal *models.Deal, event string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.StreamBroadcast, events.Event{
		Type: events.EventBotNotification,
		Payload: map[string]any{
			"telegram_user_id": actorID,
			"deal_id":          deal.ID.String(),
			"event":            event,
			"status":           deal.Status,
			"amount":           deal.Amount.StringFixed(2),
			"condition":        deal.Condition,
			"text": fmt.Sprintf("Deal %s is now %s (amount %s)",
				deal.ID, deal.Status, deal.Amount.StringFixed(2)),
		},
	})
	if err != nil {
		s.log.Warn("notification publish failed",
			zap.Int64("actor_id", actorID),
			zap.String("deal_id", deal.ID.String()),
			zap.Error(err))
	}
}

func (s *EscrowService) notifyParticipants(ctx context.Context, deal *models.Deal, event string) {
	s.notify(ctx, deal.CreatorID, deal, event)
	if deal.CounterpartyID != nil {
		s.notify(ctx, *deal.CounterpartyID, deal, event)
	}
}
