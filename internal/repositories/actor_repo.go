package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/escrowdesk/backend/internal/models"
)

type ActorRepo struct {
	pool *pgxpool.Pool
}

func NewActorRepo(pool *pgxpool.Pool) *ActorRepo {
	return &ActorRepo{pool: pool}
}

// Upsert registers an actor or refreshes the display fields of an existing
// one. Stats and is_active are never touched on conflict. The returned bool
// is true when the row was freshly inserted.
func (r *ActorRepo) Upsert(ctx context.Context, id int64, username, firstName *string) (*models.Actor, bool, error) {
	var a models.Actor
	var volume string
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO actors (actor_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (actor_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, actors.username),
			first_name = COALESCE(EXCLUDED.first_name, actors.first_name),
			last_active_at = now()
		RETURNING actor_id, username, first_name, is_active, completed_deals,
		          total_volume::text, created_at, last_active_at, (xmax = 0)
	`, id, username, firstName).Scan(
		&a.ID, &a.Username, &a.FirstName, &a.IsActive, &a.CompletedDeals,
		&volume, &a.CreatedAt, &a.LastActiveAt, &inserted,
	)
	if err != nil {
		return nil, false, mapErr(err, "upsert actor")
	}
	if a.TotalVolume, err = decimal.NewFromString(volume); err != nil {
		return nil, false, mapErr(err, "upsert actor")
	}
	return &a, inserted, nil
}

func (r *ActorRepo) GetByID(ctx context.Context, id int64) (*models.Actor, error) {
	var a models.Actor
	var volume string
	err := r.pool.QueryRow(ctx, `
		SELECT actor_id, username, first_name, is_active, completed_deals,
		       total_volume::text, created_at, last_active_at
		FROM actors WHERE actor_id = $1
	`, id).Scan(&a.ID, &a.Username, &a.FirstName, &a.IsActive, &a.CompletedDeals,
		&volume, &a.CreatedAt, &a.LastActiveAt)
	if err != nil {
		return nil, mapErr(err, "get actor")
	}
	if a.TotalVolume, err = decimal.NewFromString(volume); err != nil {
		return nil, mapErr(err, "get actor")
	}
	return &a, nil
}

func (r *ActorRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM actors WHERE actor_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, mapErr(err, "actor exists")
	}
	return exists, nil
}

func (r *ActorRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE actors SET is_active = $1 WHERE actor_id = $2`, active, id)
	if err != nil {
		return mapErr(err, "set actor active")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ActorRepo) Touch(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE actors SET last_active_at = now() WHERE actor_id = $1`, id)
	return mapErr(err, "touch actor")
}

// ActiveIDs returns the ids of all non-blocked actors, used by broadcast.
func (r *ActorRepo) ActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT actor_id FROM actors WHERE is_active = TRUE ORDER BY actor_id`)
	if err != nil {
		return nil, mapErr(err, "active actor ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err, "active actor ids")
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err(), "active actor ids")
}

func (r *ActorRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM actors`).Scan(&n)
	return n, mapErr(err, "count actors")
}

func (r *ActorRepo) CountRegisteredSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM actors WHERE created_at >= $1`, since).Scan(&n)
	return n, mapErr(err, "count registered since")
}
