package postgres

import (
	"context"
	"errors"
	"fmt"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PaymentIntentRepo implements ports.PaymentIntentRepository backed by
// PostgreSQL. Every Mark* method is a single status-guarded UPDATE;
// the guard in the WHERE clause is what makes concurrent SDK retries
// safe without row locks.
type PaymentIntentRepo struct {
	pool Pool
}

// NewPaymentIntentRepo creates a new PaymentIntentRepo.
func NewPaymentIntentRepo(pool Pool) *PaymentIntentRepo {
	return &PaymentIntentRepo{pool: pool}
}

const intentColumns = `id, merchant_id, gross_amount, base_amount, fee_amount, currency, memo,
	metadata, payer, status, external_payment_id, external_tx_hash, failure_reason,
	created_at, approved_at, completed_at, cancelled_at, failed_at`

// Create inserts a new payment intent.
func (r *PaymentIntentRepo) Create(ctx context.Context, p *domain.PaymentIntent) error {
	query := `
		INSERT INTO payment_intents (id, merchant_id, gross_amount, base_amount, fee_amount,
			currency, memo, metadata, payer, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MerchantID, p.GrossAmount, p.BaseAmount, p.FeeAmount,
		p.Currency, p.Memo, p.Metadata, p.Payer, p.Status, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// GetByID fetches an intent by id. Returns nil when not found.
func (r *PaymentIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1`
	return r.scanIntent(r.pool.QueryRow(ctx, query, id))
}

// GetByExternalID fetches an intent by the wallet-SDK payment id.
// Returns nil when not found.
func (r *PaymentIntentRepo) GetByExternalID(ctx context.Context, externalPaymentID string) (*domain.PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE external_payment_id = $1`
	return r.scanIntent(r.pool.QueryRow(ctx, query, externalPaymentID))
}

// BindExternalID attaches the external payment id and moves the intent
// CREATED -> PENDING_APPROVAL. external_payment_id carries a unique
// index; a conflict means the id already belongs to another intent and
// comes back as false, not as an error.
func (r *PaymentIntentRepo) BindExternalID(ctx context.Context, id uuid.UUID, externalPaymentID string, payer *string) (bool, error) {
	query := `
		UPDATE payment_intents
		SET external_payment_id = $1,
			payer = COALESCE($2, payer),
			status = $3
		WHERE id = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query,
		externalPaymentID, payer,
		domain.PaymentStatusPendingApproval, id, domain.PaymentStatusCreated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("bind external id: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkApproved moves PENDING_APPROVAL -> APPROVED.
func (r *PaymentIntentRepo) MarkApproved(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = $1, approved_at = NOW()
		WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query,
		domain.PaymentStatusApproved, id, domain.PaymentStatusPendingApproval)
	if err != nil {
		return false, fmt.Errorf("mark approved: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkPendingCompletion moves APPROVED -> PENDING_COMPLETION.
func (r *PaymentIntentRepo) MarkPendingCompletion(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = $1
		WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query,
		domain.PaymentStatusPendingCompletion, id, domain.PaymentStatusApproved)
	if err != nil {
		return false, fmt.Errorf("mark pending completion: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted moves PENDING_COMPLETION -> COMPLETED and records the
// blockchain transaction hash. Runs inside the completion transaction.
func (r *PaymentIntentRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = $1, external_tx_hash = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query,
		domain.PaymentStatusCompleted, txHash, id, domain.PaymentStatusPendingCompletion)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCancelled aborts an intent from any pre-completion state.
func (r *PaymentIntentRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = $1, cancelled_at = NOW()
		WHERE id = $2 AND status = ANY($3)`

	tag, err := r.pool.Exec(ctx, query,
		domain.PaymentStatusCancelled, id,
		[]domain.PaymentStatus{
			domain.PaymentStatusCreated,
			domain.PaymentStatusPendingApproval,
			domain.PaymentStatusApproved,
		})
	if err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed records an error against a non-terminal intent.
func (r *PaymentIntentRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE payment_intents
		SET status = $1, failure_reason = $2, failed_at = NOW()
		WHERE id = $3 AND status = ANY($4)`

	tag, err := r.pool.Exec(ctx, query,
		domain.PaymentStatusFailed, reason, id,
		[]domain.PaymentStatus{
			domain.PaymentStatusPendingApproval,
			domain.PaymentStatusApproved,
			domain.PaymentStatusPendingCompletion,
		})
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentIntentRepo) scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	p := &domain.PaymentIntent{}
	err := row.Scan(&p.ID, &p.MerchantID, &p.GrossAmount, &p.BaseAmount, &p.FeeAmount,
		&p.Currency, &p.Memo, &p.Metadata, &p.Payer, &p.Status,
		&p.ExternalPaymentID, &p.ExternalTxHash, &p.FailureReason,
		&p.CreatedAt, &p.ApprovedAt, &p.CompletedAt, &p.CancelledAt, &p.FailedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment intent: %w", err)
	}
	return p, nil
}

var _ ports.PaymentIntentRepository = (*PaymentIntentRepo)(nil)
