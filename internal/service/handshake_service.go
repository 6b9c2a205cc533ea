package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const handshakeIdempotencyTTL = 24 * time.Hour

func approveCacheKey(externalPaymentID string) string  { return "approve:" + externalPaymentID }
func completeCacheKey(externalPaymentID string) string { return "complete:" + externalPaymentID }

// HandshakeServiceImpl implements ports.HandshakeService: the
// three-phase protocol between client wallet, this backend and the
// blockchain ledger. Approval and completion are re-entrant because the
// wallet SDK retries its server callbacks on network failures; every
// transition is a status-guarded statement and retries collapse into
// success-no-ops.
type HandshakeServiceImpl struct {
	intentRepo   ports.PaymentIntentRepository
	txRepo       ports.TransactionRepository
	feeRepo      ports.FeeRepository
	merchantRepo ports.MerchantRepository
	idempCache   ports.IdempotencyCache
	ledger       ports.LedgerClient
	transactor   ports.DBTransactor
	feeCalc      FeeCalculator
	paymentRate  decimal.Decimal
	// verifyOnComplete enables the synchronous ledger lookup before
	// completion. Off by default: a supplied tx hash is accepted
	// provisionally and reconciled later.
	verifyOnComplete bool
	log              zerolog.Logger
}

// NewHandshakeService creates a new HandshakeServiceImpl.
func NewHandshakeService(
	intentRepo ports.PaymentIntentRepository,
	txRepo ports.TransactionRepository,
	feeRepo ports.FeeRepository,
	merchantRepo ports.MerchantRepository,
	idempCache ports.IdempotencyCache,
	ledger ports.LedgerClient,
	transactor ports.DBTransactor,
	feeCalc FeeCalculator,
	paymentRate decimal.Decimal,
	verifyOnComplete bool,
	log zerolog.Logger,
) *HandshakeServiceImpl {
	return &HandshakeServiceImpl{
		intentRepo:       intentRepo,
		txRepo:           txRepo,
		feeRepo:          feeRepo,
		merchantRepo:     merchantRepo,
		idempCache:       idempCache,
		ledger:           ledger,
		transactor:       transactor,
		feeCalc:          feeCalc,
		paymentRate:      paymentRate,
		verifyOnComplete: verifyOnComplete,
		log:              log,
	}
}

// CreateIntent records a payment intent locally before any blockchain
// interaction. The gross charge and fee are derived from the merchant's
// tier at creation time and frozen on the intent.
func (s *HandshakeServiceImpl) CreateIntent(ctx context.Context, req ports.CreateIntentRequest) (*domain.PaymentIntent, error) {
	if req.BaseAmount.IsNegative() || req.BaseAmount.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}

	merchant, err := s.merchantRepo.GetByID(ctx, req.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if !merchant.IsActive() {
		return nil, apperror.ErrMerchantSuspended()
	}

	policy := domain.FeePolicyFor(merchant.Tier, s.paymentRate)
	charge, err := s.feeCalc.ComputeCharge(req.BaseAmount, policy)
	if err != nil {
		return nil, err
	}

	intent := &domain.PaymentIntent{
		ID:          uuid.New(),
		MerchantID:  req.MerchantID,
		GrossAmount: charge.CustomerCharge,
		BaseAmount:  charge.MerchantNet,
		FeeAmount:   charge.FeeAmount,
		Currency:    req.Currency,
		Memo:        req.Memo,
		Metadata:    req.Metadata,
		Payer:       req.Payer,
		Status:      domain.PaymentStatusCreated,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.intentRepo.Create(ctx, intent); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create intent: %w", err))
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("merchant_id", req.MerchantID.String()).
		Str("gross", charge.CustomerCharge.String()).
		Str("fee", charge.FeeAmount.String()).
		Msg("payment intent created")

	return intent, nil
}

// ApprovePayment validates the intent against the wallet-SDK-reported
// payment and moves it created -> pending_approval -> approved.
// Idempotency key: the external payment identifier. A retry after a
// successful approval returns the stored intent unchanged.
func (s *HandshakeServiceImpl) ApprovePayment(ctx context.Context, req ports.ApprovePaymentRequest) (*domain.PaymentIntent, error) {
	if req.ExternalPaymentID == "" {
		return nil, apperror.Validation("external payment id is required")
	}

	if cached := s.cachedIntent(ctx, approveCacheKey(req.ExternalPaymentID)); cached != nil {
		return cached, nil
	}

	// The external id may already be bound: SDK retry or a replay
	// against a different intent.
	existing, err := s.intentRepo.GetByExternalID(ctx, req.ExternalPaymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup by external id: %w", err))
	}
	if existing != nil && existing.ID != req.IntentID {
		return nil, apperror.ErrDuplicateApproval()
	}

	intent, err := s.intentRepo.GetByID(ctx, req.IntentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment intent")
	}

	// Integrity checks before any transition.
	if intent.MerchantID != req.MerchantID {
		return nil, apperror.ErrInvalidState("intent belongs to a different merchant")
	}
	if !req.ReportedAmount.Equal(intent.GrossAmount) {
		s.log.Error().
			Str("intent_id", intent.ID.String()).
			Str("reported", req.ReportedAmount.String()).
			Str("recorded", intent.GrossAmount.String()).
			Msg("approval amount mismatch")
		return nil, apperror.ErrAmountMismatch()
	}

	// Already past approval with the same external id: success-no-op.
	if intent.ExternalPaymentID != nil && *intent.ExternalPaymentID == req.ExternalPaymentID &&
		intent.Status != domain.PaymentStatusCreated && intent.Status != domain.PaymentStatusPendingApproval {
		if intent.Status == domain.PaymentStatusCancelled || intent.Status == domain.PaymentStatusFailed {
			return nil, apperror.ErrInvalidState(fmt.Sprintf("intent is %s", intent.Status))
		}
		s.log.Debug().Str("intent_id", intent.ID.String()).Msg("duplicate approval, returning stored intent")
		return intent, nil
	}

	if intent.Status == domain.PaymentStatusCreated {
		bound, err := s.intentRepo.BindExternalID(ctx, intent.ID, req.ExternalPaymentID, req.Payer)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("bind external id: %w", err))
		}
		if !bound {
			// Lost a race; fall through and let the re-read decide.
			s.log.Debug().Str("intent_id", intent.ID.String()).Msg("external id bind raced")
		}
	}

	approved, err := s.intentRepo.MarkApproved(ctx, intent.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark approved: %w", err))
	}

	current, err := s.intentRepo.GetByID(ctx, intent.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reload intent: %w", err))
	}
	if !approved {
		switch current.Status {
		case domain.PaymentStatusApproved, domain.PaymentStatusPendingCompletion, domain.PaymentStatusCompleted:
			// A concurrent retry won; same terminal outcome.
		default:
			return nil, apperror.ErrInvalidState(fmt.Sprintf("cannot approve intent in state %s", current.Status))
		}
	}

	s.cacheIntent(ctx, approveCacheKey(req.ExternalPaymentID), current)

	s.log.Info().
		Str("intent_id", current.ID.String()).
		Str("external_payment_id", req.ExternalPaymentID).
		Msg("payment approved")

	return current, nil
}

// CompletePayment accepts the broadcast transaction hash reported by
// the wallet SDK and moves the intent approved -> pending_completion ->
// completed. On the first completion the Transaction record, the
// merchant balance credit and the payment fee commit atomically.
func (s *HandshakeServiceImpl) CompletePayment(ctx context.Context, req ports.CompletePaymentRequest) (*domain.PaymentIntent, error) {
	if req.ExternalPaymentID == "" || req.TxHash == "" {
		return nil, apperror.Validation("external payment id and tx hash are required")
	}

	if cached := s.cachedIntent(ctx, completeCacheKey(req.ExternalPaymentID)); cached != nil {
		return cached, nil
	}

	intent, err := s.intentRepo.GetByExternalID(ctx, req.ExternalPaymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup by external id: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment intent")
	}

	// Duplicate completion with the same hash: success-no-op.
	if intent.Status == domain.PaymentStatusCompleted {
		if intent.ExternalTxHash != nil && *intent.ExternalTxHash == req.TxHash {
			s.log.Debug().Str("intent_id", intent.ID.String()).Msg("duplicate completion, returning stored intent")
			return intent, nil
		}
		return nil, apperror.ErrDuplicateCompletion()
	}

	switch intent.Status {
	case domain.PaymentStatusCreated, domain.PaymentStatusPendingApproval:
		return nil, apperror.ErrInvalidState("completion before approval")
	case domain.PaymentStatusCancelled, domain.PaymentStatusFailed:
		return nil, apperror.ErrInvalidState(fmt.Sprintf("intent is %s", intent.Status))
	}

	if intent.Status == domain.PaymentStatusApproved {
		if _, err := s.intentRepo.MarkPendingCompletion(ctx, intent.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("mark pending completion: %w", err))
		}
	}

	// The handshake never depends on ledger reachability: verification
	// failures other than a definitive "no such transaction" degrade to
	// provisional acceptance, reconciled later by the sync engine.
	if s.verifyOnComplete && s.ledger != nil {
		if err := s.verifyHash(ctx, intent, req.TxHash); err != nil {
			return nil, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	completed, err := s.intentRepo.MarkCompleted(ctx, dbTx, intent.ID, req.TxHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark completed: %w", err))
	}
	if !completed {
		// A concurrent retry already completed it; surface its result.
		current, err := s.intentRepo.GetByID(ctx, intent.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("reload intent: %w", err))
		}
		if current != nil && current.Status == domain.PaymentStatusCompleted {
			return current, nil
		}
		return nil, apperror.ErrInvalidState(fmt.Sprintf("cannot complete intent in state %s", intent.Status))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:              uuid.New(),
		PaymentIntentID: intent.ID,
		MerchantID:      intent.MerchantID,
		Amount:          intent.BaseAmount,
		Status:          domain.TransactionStatusCompleted,
		Payer:           intent.Payer,
		Memo:            intent.Memo,
		Metadata:        intent.Metadata,
		TxHash:          req.TxHash,
		CreatedAt:       now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.merchantRepo.CreditBalance(ctx, dbTx, intent.MerchantID, intent.BaseAmount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit balance: %w", err))
	}

	if intent.FeeAmount.IsPositive() {
		fee := &domain.PlatformFee{
			ID:         uuid.New(),
			MerchantID: intent.MerchantID,
			Amount:     intent.FeeAmount,
			FeeType:    domain.FeeTypePayment,
			RelatedID:  txn.ID,
			Status:     domain.FeeStatusCompleted,
			CreatedAt:  now,
		}
		if err := s.feeRepo.Create(ctx, dbTx, fee); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("record payment fee: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	intent.Status = domain.PaymentStatusCompleted
	intent.ExternalTxHash = &req.TxHash
	intent.CompletedAt = &now

	s.cacheIntent(ctx, completeCacheKey(req.ExternalPaymentID), intent)

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("tx_hash", req.TxHash).
		Str("credited", intent.BaseAmount.String()).
		Msg("payment completed")

	return intent, nil
}

// CancelPayment aborts a payment on behalf of the user/client. Allowed
// from created, pending_approval and approved; repeated cancellation is
// a no-op.
func (s *HandshakeServiceImpl) CancelPayment(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByID(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment intent")
	}
	if intent.Status == domain.PaymentStatusCancelled {
		return intent, nil
	}
	if !intent.IsCancellable() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("cannot cancel intent in state %s", intent.Status))
	}

	cancelled, err := s.intentRepo.MarkCancelled(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark cancelled: %w", err))
	}

	current, err := s.intentRepo.GetByID(ctx, intentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reload intent: %w", err))
	}
	if !cancelled && current.Status != domain.PaymentStatusCancelled {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("cannot cancel intent in state %s", current.Status))
	}

	s.log.Info().Str("intent_id", intentID.String()).Msg("payment cancelled")
	return current, nil
}

// FailPayment records an SDK-reported error against the intent. Unknown
// external ids and already-terminal intents are ignored: the SDK fires
// onError for conditions this backend may never have seen.
func (s *HandshakeServiceImpl) FailPayment(ctx context.Context, externalPaymentID, reason string) error {
	intent, err := s.intentRepo.GetByExternalID(ctx, externalPaymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lookup by external id: %w", err))
	}
	if intent == nil || intent.IsTerminal() {
		return nil
	}

	if _, err := s.intentRepo.MarkFailed(ctx, intent.ID, reason); err != nil {
		return apperror.InternalError(fmt.Errorf("mark failed: %w", err))
	}

	s.log.Warn().
		Str("intent_id", intent.ID.String()).
		Str("reason", reason).
		Msg("payment failed")
	return nil
}

// verifyHash checks the broadcast hash against the ledger. Only a
// definitive miss fails the payment; upstream trouble is logged and
// accepted provisionally.
func (s *HandshakeServiceImpl) verifyHash(ctx context.Context, intent *domain.PaymentIntent, txHash string) error {
	_, err := s.ledger.TransactionTime(ctx, txHash)
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && (appErr.Code == "LEDGER_001" || appErr.Code == "LEDGER_002") {
		s.log.Warn().Err(err).
			Str("intent_id", intent.ID.String()).
			Msg("ledger unreachable during completion, accepting hash provisionally")
		return nil
	}

	if _, markErr := s.intentRepo.MarkFailed(ctx, intent.ID, "tx hash not found on ledger"); markErr != nil {
		s.log.Error().Err(markErr).Str("intent_id", intent.ID.String()).Msg("failed to mark intent failed")
	}
	return apperror.ErrInvalidState("transaction hash not found on ledger")
}

func (s *HandshakeServiceImpl) cachedIntent(ctx context.Context, key string) *domain.PaymentIntent {
	data, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache check failed, falling through to DB")
		return nil
	}
	if data == nil {
		return nil
	}
	intent := &domain.PaymentIntent{}
	if err := json.Unmarshal(data, intent); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt idempotency cache entry, ignoring")
		return nil
	}
	return intent
}

func (s *HandshakeServiceImpl) cacheIntent(ctx context.Context, key string, intent *domain.PaymentIntent) {
	data, err := json.Marshal(intent)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, handshakeIdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency entry")
	}
}
