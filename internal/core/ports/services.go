package ports

import (
	"context"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(merchantID uuid.UUID, role domain.MerchantRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MerchantID uuid.UUID
	Role       domain.MerchantRole
}

// IdempotencyCache is the Redis-layer fast path for approval/completion
// retries: it stores the serialized intent keyed by external payment id
// so SDK retries short-circuit before touching the database.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LedgerPage is one page of operations returned by the ledger read API.
type LedgerPage struct {
	Operations []domain.LedgerOperation
	NextCursor string // empty = no further page
}

// LedgerClient reads the remote, authoritative blockchain ledger.
// Implementations perform no writes.
type LedgerClient interface {
	// Operations fetches one page for the account, ascending by ledger
	// sequence, starting after cursor (empty = from the beginning).
	Operations(ctx context.Context, account, cursor string, limit int) (*LedgerPage, error)
	// TransactionTime resolves the creation time of the transaction
	// owning an operation, for operations lacking an inline timestamp.
	TransactionTime(ctx context.Context, hash string) (time.Time, error)
}

// TimestampCache is an optional shared cache of transaction-hash ->
// creation-time lookups. Transaction times are immutable, so entries
// never need invalidation beyond TTL expiry.
type TimestampCache interface {
	Get(ctx context.Context, hash string) (time.Time, bool, error)
	Set(ctx context.Context, hash string, t time.Time, ttl time.Duration) error
}

// Notification is one merchant-facing message.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"kind"` // e.g. "withdrawal", "payment"
}

// Notifier publishes merchant notifications (fire-and-forget; the
// consuming UI is out of scope).
type Notifier interface {
	Notify(ctx context.Context, merchantID uuid.UUID, n Notification) error
}

// WithdrawalEmail is the payload handed to the external email dispatcher.
type WithdrawalEmail struct {
	MerchantID  uuid.UUID       `json:"merchant_id"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Destination string          `json:"destination"`
	Rejected    bool            `json:"rejected"`
	Reason      string          `json:"reason,omitempty"`
}

// MailSender dispatches withdrawal emails. Best-effort: failures are
// logged by callers and never roll back the parent operation.
type MailSender interface {
	SendWithdrawalEmail(ctx context.Context, email WithdrawalEmail) error
}

// --- Service Ports (Business Logic) ---

// CreateIntentRequest holds validated input for intent creation.
type CreateIntentRequest struct {
	MerchantID uuid.UUID
	BaseAmount decimal.Decimal
	Currency   string
	Memo       string
	Metadata   map[string]string
	Payer      *string
}

// ApprovePaymentRequest is the server-approval RPC input, built from
// the wallet SDK's onReadyForServerApproval callback.
type ApprovePaymentRequest struct {
	ExternalPaymentID string
	IntentID          uuid.UUID
	// ReportedAmount is the gross amount the wallet SDK reports for the
	// external payment; it must match the stored intent exactly.
	ReportedAmount decimal.Decimal
	MerchantID     uuid.UUID
	Payer          *string
}

// CompletePaymentRequest is the server-completion RPC input, built from
// the wallet SDK's onReadyForServerCompletion callback.
type CompletePaymentRequest struct {
	ExternalPaymentID string
	TxHash            string
}

// HandshakeService coordinates the three-phase payment protocol.
type HandshakeService interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntent, error)
	ApprovePayment(ctx context.Context, req ApprovePaymentRequest) (*domain.PaymentIntent, error)
	CompletePayment(ctx context.Context, req CompletePaymentRequest) (*domain.PaymentIntent, error)
	CancelPayment(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error)
	FailPayment(ctx context.Context, externalPaymentID, reason string) error
}

// WithdrawalRequestInput holds validated input for a payout request.
type WithdrawalRequestInput struct {
	MerchantID  uuid.UUID
	Amount      decimal.Decimal
	Destination string
}

// ApprovalResult summarises an approved withdrawal.
type ApprovalResult struct {
	Withdrawal *domain.Withdrawal
	FeeAmount  decimal.Decimal
	NetAmount  decimal.Decimal
}

// WithdrawalService orchestrates the manual payout approval workflow.
type WithdrawalService interface {
	Request(ctx context.Context, req WithdrawalRequestInput) (*domain.Withdrawal, error)
	Approve(ctx context.Context, withdrawalID uuid.UUID, externalTxRef *string) (*ApprovalResult, error)
	Reject(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.Withdrawal, error)
}

// SyncResult is the outcome of one ledger sync run. When Partial is
// true the error alongside it describes why pagination stopped early;
// Operations still holds everything collected so far.
type SyncResult struct {
	Operations []domain.LedgerOperation
	LastCursor string
	Pages      int
	Partial    bool
}

// ReconciliationService pulls ledger operations for audit/display.
type ReconciliationService interface {
	SyncOperations(ctx context.Context, account, startCursor string) (*SyncResult, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

// HealthChecker verifies connectivity of one infrastructure dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
