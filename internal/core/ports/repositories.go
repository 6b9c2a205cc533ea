package ports

import (
	"context"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepository defines persistence operations for merchants.
// Balance mutations are guarded UPDATEs executed inside transaction
// blocks; a false return means the precondition did not hold and
// nothing changed.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByUsername(ctx context.Context, username string) (*domain.Merchant, error)
	// CreditBalance adds amount to available_balance.
	CreditBalance(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, amount decimal.Decimal) error
	// DebitBalanceForWithdrawal subtracts gross from available_balance
	// and adds net to total_withdrawn, guarded by
	// available_balance >= gross. Returns false when the guard fails.
	DebitBalanceForWithdrawal(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, gross, net decimal.Decimal) (bool, error)
}

// PaymentIntentRepository defines persistence for payment intents.
// All Mark* methods are status-guarded single-statement transitions:
// they return false (and mutate nothing) when the intent was not in
// the expected source state, which is how concurrent SDK retries are
// collapsed into no-ops.
type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)
	GetByExternalID(ctx context.Context, externalPaymentID string) (*domain.PaymentIntent, error)
	// BindExternalID attaches the wallet-SDK payment id and moves
	// CREATED -> PENDING_APPROVAL. The external id carries a unique
	// index; binding an id already attached to another intent returns
	// false rather than an error.
	BindExternalID(ctx context.Context, id uuid.UUID, externalPaymentID string, payer *string) (bool, error)
	MarkApproved(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPendingCompletion(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkCompleted runs inside the completion transaction so the
	// status flip, transaction record and balance credit commit as one.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// TransactionRepository defines persistence for settled transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByPaymentIntentID(ctx context.Context, intentID uuid.UUID) (*domain.Transaction, error)
	// ListByMerchant feeds the reconciliation view with the locally
	// recorded side to cross-check against ledger operations.
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
}

// WithdrawalRepository defines persistence for payout requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]domain.Withdrawal, error)
	// MarkCompleted is guarded on PENDING and runs inside the approval
	// transaction alongside the balance debit and fee record.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxRef, note string) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID, note string) (bool, error)
}

// FeeRepository defines persistence for platform fee records.
type FeeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, fee *domain.PlatformFee) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.PlatformFee, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
