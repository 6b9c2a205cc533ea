package postgres

import (
	"context"
	"errors"
	"fmt"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository backed by
// PostgreSQL.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, payment_intent_id, merchant_id, amount, status, payer, memo,
	metadata, tx_hash, created_at`

// Create inserts a settled transaction inside the completion
// transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, payment_intent_id, merchant_id, amount, status, payer,
			memo, metadata, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.PaymentIntentID, t.MerchantID, t.Amount, t.Status, t.Payer,
		t.Memo, t.Metadata, t.TxHash, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByPaymentIntentID fetches the transaction settled for an intent.
// Returns nil when not found.
func (r *TransactionRepo) GetByPaymentIntentID(ctx context.Context, intentID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE payment_intent_id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, intentID).Scan(
		&t.ID, &t.PaymentIntentID, &t.MerchantID, &t.Amount, &t.Status, &t.Payer,
		&t.Memo, &t.Metadata, &t.TxHash, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

// ListByMerchant returns the merchant's settled transactions, newest
// first.
func (r *TransactionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.PaymentIntentID, &t.MerchantID, &t.Amount, &t.Status,
			&t.Payer, &t.Memo, &t.Metadata, &t.TxHash, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

var _ ports.TransactionRepository = (*TransactionRepo)(nil)
