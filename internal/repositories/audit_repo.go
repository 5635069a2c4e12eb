package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escrowdesk/backend/internal/models"
)

// AuditRepo is append-only: entries are inserted and read, never updated.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Log(ctx context.Context, e models.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ActorType == "" {
		e.ActorType = models.AuditActorUser
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, deal_id, actor_type, action, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.ActorID, e.DealID, e.ActorType, e.Action, e.Detail)
	return mapErr(err, "audit log")
}

func (r *AuditRepo) ListForDeal(ctx context.Context, dealID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, deal_id, actor_type, action, detail, created_at
		FROM audit_log WHERE deal_id = $1
		ORDER BY created_at LIMIT $2
	`, dealID, limit)
	if err != nil {
		return nil, mapErr(err, "audit for deal")
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func (r *AuditRepo) ListForActor(ctx context.Context, actorID int64, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, deal_id, actor_type, action, detail, created_at
		FROM audit_log WHERE actor_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, actorID, limit)
	if err != nil {
		return nil, mapErr(err, "audit for actor")
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func (r *AuditRepo) CountActionSince(ctx context.Context, action string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_log WHERE action = $1 AND created_at >= $2
	`, action, since).Scan(&n)
	return n, mapErr(err, "count audit actions")
}

func collectAuditEntries(rows pgx.Rows) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.DealID, &e.ActorType, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, mapErr(err, "scan audit entry")
		}
		entries = append(entries, e)
	}
	return entries, mapErr(rows.Err(), "audit entries")
}
