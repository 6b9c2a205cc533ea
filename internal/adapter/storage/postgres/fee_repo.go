package postgres

import (
	"context"
	"fmt"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FeeRepo implements ports.FeeRepository backed by PostgreSQL.
type FeeRepo struct {
	pool Pool
}

// NewFeeRepo creates a new FeeRepo.
func NewFeeRepo(pool Pool) *FeeRepo {
	return &FeeRepo{pool: pool}
}

// Create inserts a platform fee record inside the caller's transaction.
func (r *FeeRepo) Create(ctx context.Context, tx pgx.Tx, fee *domain.PlatformFee) error {
	query := `
		INSERT INTO platform_fees (id, merchant_id, amount, fee_type, related_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		fee.ID, fee.MerchantID, fee.Amount, fee.FeeType, fee.RelatedID, fee.Status, fee.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert platform fee: %w", err)
	}
	return nil
}

// ListByMerchant returns the merchant's fee records, newest first.
func (r *FeeRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.PlatformFee, error) {
	query := `
		SELECT id, merchant_id, amount, fee_type, related_id, status, created_at
		FROM platform_fees
		WHERE merchant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list platform fees: %w", err)
	}
	defer rows.Close()

	var out []domain.PlatformFee
	for rows.Next() {
		var f domain.PlatformFee
		if err := rows.Scan(&f.ID, &f.MerchantID, &f.Amount, &f.FeeType, &f.RelatedID,
			&f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan platform fee row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform fees: %w", err)
	}
	return out, nil
}

var _ ports.FeeRepository = (*FeeRepo)(nil)
