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

// WithdrawalRepo implements ports.WithdrawalRepository backed by
// PostgreSQL.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, merchant_id, amount, status, destination, external_tx_ref,
	COALESCE(note, ''), requested_at, processed_at`

// Create inserts a new pending withdrawal.
func (r *WithdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, merchant_id, amount, status, destination, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.MerchantID, w.Amount, w.Status, w.Destination, w.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal by id. Returns nil when not found.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w := &domain.Withdrawal{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.MerchantID, &w.Amount, &w.Status, &w.Destination,
		&w.ExternalTxRef, &w.Note, &w.RequestedAt, &w.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	return w, nil
}

// ListPending returns pending withdrawals for the admin queue, oldest
// first.
func (r *WithdrawalRepo) ListPending(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain.WithdrawalStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var out []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.MerchantID, &w.Amount, &w.Status, &w.Destination,
			&w.ExternalTxRef, &w.Note, &w.RequestedAt, &w.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawals: %w", err)
	}
	return out, nil
}

// MarkCompleted moves PENDING -> COMPLETED inside the approval
// transaction. The status guard collapses concurrent approvals.
func (r *WithdrawalRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxRef, note string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $1, external_tx_ref = $2, note = $3, processed_at = NOW()
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query,
		domain.WithdrawalStatusCompleted, externalTxRef, note, id, domain.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkRejected moves PENDING -> REJECTED.
func (r *WithdrawalRepo) MarkRejected(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $1, note = $2, processed_at = NOW()
		WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query,
		domain.WithdrawalStatusRejected, note, id, domain.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal rejected: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ ports.WithdrawalRepository = (*WithdrawalRepo)(nil)
