package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/escrowdesk/backend/internal/models"
)

// TransactionRepo is the append-only payment sub-ledger.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Insert(ctx context.Context, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.TxStatusPending
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, deal_id, actor_id, kind, amount, network, tx_hash, status)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		RETURNING created_at
	`, t.ID, t.DealID, t.ActorID, t.Kind, t.Amount.String(), t.Network, t.TxHash, t.Status,
	).Scan(&t.CreatedAt)
	return mapErr(err, "insert transaction")
}

func (r *TransactionRepo) ListForDeal(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, deal_id, actor_id, kind, amount::text, network, tx_hash, status, created_at
		FROM transactions WHERE deal_id = $1
		ORDER BY created_at
	`, dealID)
	if err != nil {
		return nil, mapErr(err, "transactions for deal")
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.DealID, &t.ActorID, &t.Kind, &amount,
			&t.Network, &t.TxHash, &t.Status, &t.CreatedAt); err != nil {
			return nil, mapErr(err, "scan transaction")
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, mapErr(err, "scan transaction")
		}
		txs = append(txs, t)
	}
	return txs, mapErr(rows.Err(), "transactions for deal")
}
