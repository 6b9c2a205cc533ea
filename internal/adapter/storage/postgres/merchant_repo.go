package postgres

import (
	"context"
	"errors"
	"fmt"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepo implements ports.MerchantRepository backed by PostgreSQL.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

const merchantColumns = `id, username, password_hash, merchant_name, role, tier, status,
	available_balance, total_withdrawn, created_at, updated_at`

// Create inserts a new merchant.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `
		INSERT INTO merchants (id, username, password_hash, merchant_name, role, tier, status,
			available_balance, total_withdrawn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Username, m.PasswordHash, m.MerchantName, m.Role, m.Tier, m.Status,
		m.AvailableBalance, m.TotalWithdrawn, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by id. Returns nil when not found.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return r.scanMerchant(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a merchant by username. Returns nil when not found.
func (r *MerchantRepo) GetByUsername(ctx context.Context, username string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE username = $1`
	return r.scanMerchant(r.pool.QueryRow(ctx, query, username))
}

// CreditBalance adds amount to the merchant's available balance inside
// the caller's transaction.
func (r *MerchantRepo) CreditBalance(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE merchants
		SET available_balance = available_balance + $1, updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, merchantID)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credit balance: merchant %s not found", merchantID)
	}
	return nil
}

// DebitBalanceForWithdrawal atomically debits the gross amount and
// accumulates the net payout. The balance guard lives in the WHERE
// clause: a false return means the merchant no longer holds the gross
// amount and no row changed.
func (r *MerchantRepo) DebitBalanceForWithdrawal(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, gross, net decimal.Decimal) (bool, error) {
	query := `
		UPDATE merchants
		SET available_balance = available_balance - $1,
			total_withdrawn = total_withdrawn + $2,
			updated_at = NOW()
		WHERE id = $3 AND available_balance >= $1`

	tag, err := tx.Exec(ctx, query, gross, net, merchantID)
	if err != nil {
		return false, fmt.Errorf("debit balance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MerchantRepo) scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(&m.ID, &m.Username, &m.PasswordHash, &m.MerchantName, &m.Role, &m.Tier, &m.Status,
		&m.AvailableBalance, &m.TotalWithdrawn, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan merchant: %w", err)
	}
	return m, nil
}

var _ ports.MerchantRepository = (*MerchantRepo)(nil)
