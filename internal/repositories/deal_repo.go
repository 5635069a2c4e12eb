package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/escrowdesk/backend/internal/models"
)

type DealRepo struct {
	pool *pgxpool.Pool
}

func NewDealRepo(pool *pgxpool.Pool) *DealRepo {
	return &DealRepo{pool: pool}
}

const dealColumns = `
	id, creator_id, counterparty_id, amount::text, condition, secret_hash,
	status, payment_method, payment_address, created_at, updated_at`

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	var amount string
	err := row.Scan(&d.ID, &d.CreatorID, &d.CounterpartyID, &amount, &d.Condition,
		&d.SecretHash, &d.Status, &d.PaymentMethod, &d.PaymentAddress,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new open deal while holding an advisory lock on the
// creator id, so the active-deal cap check and the insert are atomic with
// respect to a concurrent create by the same actor.
func (r *DealRepo) Create(ctx context.Context, d *models.Deal, cap int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr(err, "create deal")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, d.CreatorID); err != nil {
		return mapErr(err, "create deal")
	}

	var active int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM deals
		WHERE creator_id = $1 AND status IN ('open', 'joined', 'paid')
	`, d.CreatorID).Scan(&active)
	if err != nil {
		return mapErr(err, "create deal")
	}
	if active >= cap {
		return fmt.Errorf("%w: active deal cap reached (%d)", models.ErrPolicy, cap)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO deals (id, creator_id, amount, condition, secret_hash, status)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING created_at, updated_at
	`, d.ID, d.CreatorID, d.Amount.String(), d.Condition, d.SecretHash, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapErr(err, "create deal")
	}

	return mapErr(tx.Commit(ctx), "create deal")
}

func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	d, err := scanDeal(r.pool.QueryRow(ctx, `SELECT`+dealColumns+` FROM deals WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get deal")
	}
	return d, nil
}

// Join attaches the counterparty with a single conditional update. Under
// concurrent joins exactly one caller sees a row updated; the rest get
// ErrPolicy because the guard (status = open, no counterparty) no longer
// holds.
func (r *DealRepo) Join(ctx context.Context, id uuid.UUID, counterpartyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET counterparty_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND counterparty_id IS NULL
	`, id, counterpartyID, models.DealStatusJoined, models.DealStatusOpen)
	if err != nil {
		return mapErr(err, "join deal")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: deal unavailable", models.ErrPolicy)
	}
	return nil
}

// TransitionStatus performs an optimistic conditional update keyed on the
// status the caller read. Zero rows affected means another writer got
// there first; the caller should re-read and retry.
func (r *DealRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return mapErr(err, "transition deal")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: deal %s is no longer %s", models.ErrConflict, id, from)
	}
	return nil
}

// SetPaymentChannel records the chosen method and deposit address. Only
// legal while the deal is non-terminal.
func (r *DealRepo) SetPaymentChannel(ctx context.Context, id uuid.UUID, method, address string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET payment_method = $2, payment_address = $3, updated_at = now()
		WHERE id = $1 AND status IN ('open', 'joined', 'paid')
	`, id, method, address)
	if err != nil {
		return mapErr(err, "set payment channel")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment channel can only change on an active deal", models.ErrInvalidState)
	}
	return nil
}

// Complete settles the deal and credits both participants' aggregate stats
// in one transaction. The status update is conditional on the deal still
// being non-terminal, so a concurrent complete/cancel loses cleanly.
func (r *DealRepo) Complete(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, mapErr(err, "complete deal")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d, err := scanDeal(tx.QueryRow(ctx, `
		UPDATE deals SET status = $2, updated_at = now()
		WHERE id = $1 AND status IN ('open', 'joined', 'paid')
		RETURNING`+dealColumns, id, models.DealStatusCompleted))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, mapErr(err, "complete deal")
		}
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: deal %s is already settled", models.ErrInvalidState, id)
	}

	participants := []int64{d.CreatorID}
	if d.CounterpartyID != nil {
		participants = append(participants, *d.CounterpartyID)
	}
	for _, actorID := range participants {
		_, err := tx.Exec(ctx, `
			UPDATE actors
			SET completed_deals = completed_deals + 1,
			    total_volume = total_volume + $1::numeric
			WHERE actor_id = $2
		`, d.Amount.String(), actorID)
		if err != nil {
			return nil, mapErr(err, "complete deal")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr(err, "complete deal")
	}
	return d, nil
}

// ListForActor returns the actor's deals (both sides), newest first.
func (r *DealRepo) ListForActor(ctx context.Context, actorID int64, limit int) ([]models.DealWithNames, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.creator_id, d.counterparty_id, d.amount::text, d.condition,
		       d.secret_hash, d.status, d.payment_method, d.payment_address,
		       d.created_at, d.updated_at, c.username, b.username
		FROM deals d
		JOIN actors c ON c.actor_id = d.creator_id
		LEFT JOIN actors b ON b.actor_id = d.counterparty_id
		WHERE d.creator_id = $1 OR d.counterparty_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2
	`, actorID, limit)
	if err != nil {
		return nil, mapErr(err, "list deals")
	}
	defer rows.Close()
	return collectDealsWithNames(rows)
}

// ListByStatus is the admin view over deals in the given statuses.
func (r *DealRepo) ListByStatus(ctx context.Context, statuses []string, limit int) ([]models.DealWithNames, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.creator_id, d.counterparty_id, d.amount::text, d.condition,
		       d.secret_hash, d.status, d.payment_method, d.payment_address,
		       d.created_at, d.updated_at, c.username, b.username
		FROM deals d
		JOIN actors c ON c.actor_id = d.creator_id
		LEFT JOIN actors b ON b.actor_id = d.counterparty_id
		WHERE d.status = ANY($1)
		ORDER BY d.created_at DESC
		LIMIT $2
	`, statuses, limit)
	if err != nil {
		return nil, mapErr(err, "list deals by status")
	}
	defer rows.Close()
	return collectDealsWithNames(rows)
}

func collectDealsWithNames(rows pgx.Rows) ([]models.DealWithNames, error) {
	var deals []models.DealWithNames
	for rows.Next() {
		var d models.DealWithNames
		var amount string
		if err := rows.Scan(&d.ID, &d.CreatorID, &d.CounterpartyID, &amount, &d.Condition,
			&d.SecretHash, &d.Status, &d.PaymentMethod, &d.PaymentAddress,
			&d.CreatedAt, &d.UpdatedAt, &d.CreatorUsername, &d.CounterpartyUsername); err != nil {
			return nil, mapErr(err, "scan deal")
		}
		var err error
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, mapErr(err, "scan deal")
		}
		deals = append(deals, d)
	}
	return deals, mapErr(rows.Err(), "list deals")
}

// NonTerminalIDsForActor returns ids of every live deal where the actor is
// a participant on either side, for the block cascade.
func (r *DealRepo) NonTerminalIDsForActor(ctx context.Context, actorID int64) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM deals
		WHERE (creator_id = $1 OR counterparty_id = $1)
		  AND status IN ('open', 'joined', 'paid')
	`, actorID)
	if err != nil {
		return nil, mapErr(err, "non-terminal deals")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err, "non-terminal deals")
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err(), "non-terminal deals")
}

func (r *DealRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM deals GROUP BY status`)
	if err != nil {
		return nil, mapErr(err, "count deals by status")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapErr(err, "count deals by status")
		}
		counts[status] = n
	}
	return counts, mapErr(rows.Err(), "count deals by status")
}

func (r *DealRepo) CompletedVolume(ctx context.Context) (decimal.Decimal, error) {
	var volume string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM deals WHERE status = 'completed'
	`).Scan(&volume)
	if err != nil {
		return decimal.Zero, mapErr(err, "completed volume")
	}
	v, err := decimal.NewFromString(volume)
	if err != nil {
		return decimal.Zero, mapErr(err, "completed volume")
	}
	return v, nil
}

func (r *DealRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM deals WHERE created_at >= $1`, since).Scan(&n)
	return n, mapErr(err, "count created since")
}

// CompletedSince returns the count and volume of deals settled in the window.
func (r *DealRepo) CompletedSince(ctx context.Context, since time.Time) (int, decimal.Decimal, error) {
	var n int
	var volume string
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)::text
		FROM deals WHERE status = 'completed' AND updated_at >= $1
	`, since).Scan(&n, &volume)
	if err != nil {
		return 0, decimal.Zero, mapErr(err, "completed since")
	}
	v, err := decimal.NewFromString(volume)
	if err != nil {
		return 0, decimal.Zero, mapErr(err, "completed since")
	}
	return n, v, nil
}
