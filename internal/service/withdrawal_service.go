package service

import (
	"context"
	"fmt"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WithdrawalServiceImpl implements ports.WithdrawalService: the manual
// payout workflow. Merchants request, a platform admin approves or
// rejects. Approval debits the merchant balance, records the platform
// fee and flips the withdrawal status in a single transaction; the
// Kafka notification and the email go out only after commit and never
// undo it.
type WithdrawalServiceImpl struct {
	withdrawalRepo ports.WithdrawalRepository
	merchantRepo   ports.MerchantRepository
	feeRepo        ports.FeeRepository
	transactor     ports.DBTransactor
	feeCalc        FeeCalculator
	withdrawalRate decimal.Decimal
	notifier       ports.Notifier
	mailer         ports.MailSender
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	withdrawalRepo ports.WithdrawalRepository,
	merchantRepo ports.MerchantRepository,
	feeRepo ports.FeeRepository,
	transactor ports.DBTransactor,
	feeCalc FeeCalculator,
	withdrawalRate decimal.Decimal,
	notifier ports.Notifier,
	mailer ports.MailSender,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		withdrawalRepo: withdrawalRepo,
		merchantRepo:   merchantRepo,
		feeRepo:        feeRepo,
		transactor:     transactor,
		feeCalc:        feeCalc,
		withdrawalRate: withdrawalRate,
		notifier:       notifier,
		mailer:         mailer,
		log:            log,
	}
}

// Request records a payout request in PENDING. The balance is not
// reserved here: the sufficiency check happens at approval time, as a
// guard on the debit itself.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, req ports.WithdrawalRequestInput) (*domain.Withdrawal, error) {
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Destination == "" {
		return nil, apperror.Validation("destination address is required")
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

	// Early reject for amounts obviously above the balance; the
	// authoritative check is still the guarded debit at approval.
	if req.Amount.GreaterThan(merchant.AvailableBalance) {
		return nil, apperror.ErrInsufficientBalance()
	}

	w := &domain.Withdrawal{
		ID:          uuid.New(),
		MerchantID:  req.MerchantID,
		Amount:      req.Amount,
		Status:      domain.WithdrawalStatusPending,
		Destination: req.Destination,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("merchant_id", req.MerchantID.String()).
		Str("amount", req.Amount.String()).
		Msg("withdrawal requested")

	return w, nil
}

// Approve executes an admin-approved payout. The balance debit is a
// guarded update: the merchant must still hold the gross amount at this
// moment, regardless of what the balance was when the request was
// filed. Concurrent approvals of the same withdrawal are collapsed by
// the status guard on MarkCompleted, so the balance is debited at most
// once.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, withdrawalID uuid.UUID, externalTxRef *string) (*ports.ApprovalResult, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if w.Status != domain.WithdrawalStatusPending {
		return nil, apperror.ErrWithdrawalNotPending()
	}

	split, err := s.feeCalc.ComputeWithdrawal(w.Amount, s.withdrawalRate)
	if err != nil {
		return nil, err
	}

	ref := ""
	if externalTxRef != nil {
		ref = *externalTxRef
	}
	if ref == "" {
		// Placeholder reference until the payout rail reports a real
		// transaction id.
		ref = fmt.Sprintf("WD-%s-%d", withdrawalID.String()[:8], time.Now().UnixMilli())
	}

	note := fmt.Sprintf("paid net %s to %s", split.NetAmount.String(), w.Destination)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	completed, err := s.withdrawalRepo.MarkCompleted(ctx, dbTx, withdrawalID, ref, note)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark withdrawal completed: %w", err))
	}
	if !completed {
		return nil, apperror.ErrWithdrawalNotPending()
	}

	debited, err := s.merchantRepo.DebitBalanceForWithdrawal(ctx, dbTx, w.MerchantID, w.Amount, split.NetAmount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}
	if !debited {
		// Balance moved since the request was filed; the rollback also
		// undoes the status flip.
		return nil, apperror.ErrInsufficientBalance()
	}

	if split.FeeAmount.IsPositive() {
		fee := &domain.PlatformFee{
			ID:         uuid.New(),
			MerchantID: w.MerchantID,
			Amount:     split.FeeAmount,
			FeeType:    domain.FeeTypeWithdrawal,
			RelatedID:  withdrawalID,
			Status:     domain.FeeStatusCompleted,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.feeRepo.Create(ctx, dbTx, fee); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("record withdrawal fee: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	w.Status = domain.WithdrawalStatusCompleted
	w.ExternalTxRef = &ref
	w.Note = note
	w.ProcessedAt = &now

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Str("merchant_id", w.MerchantID.String()).
		Str("gross", w.Amount.String()).
		Str("fee", split.FeeAmount.String()).
		Str("net", split.NetAmount.String()).
		Msg("withdrawal approved")

	s.afterDecision(ctx, w, split.FeeAmount, split.NetAmount, "")

	return &ports.ApprovalResult{
		Withdrawal: w,
		FeeAmount:  split.FeeAmount,
		NetAmount:  split.NetAmount,
	}, nil
}

// Reject declines a pending payout. No balance movement; the note is
// stored for the merchant to read.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, withdrawalID uuid.UUID, reason string) (*domain.Withdrawal, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load withdrawal: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if w.Status != domain.WithdrawalStatusPending {
		return nil, apperror.ErrWithdrawalNotPending()
	}

	rejected, err := s.withdrawalRepo.MarkRejected(ctx, withdrawalID, reason)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark withdrawal rejected: %w", err))
	}
	if !rejected {
		return nil, apperror.ErrWithdrawalNotPending()
	}

	now := time.Now().UTC()
	w.Status = domain.WithdrawalStatusRejected
	w.Note = reason
	w.ProcessedAt = &now

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Str("reason", reason).
		Msg("withdrawal rejected")

	s.afterDecision(ctx, w, decimal.Zero, decimal.Zero, reason)

	return w, nil
}

// afterDecision runs the post-commit side effects. Both are best
// effort: a dead broker or mail bridge is logged and swallowed because
// the ledger state is already final.
func (s *WithdrawalServiceImpl) afterDecision(ctx context.Context, w *domain.Withdrawal, fee, net decimal.Decimal, reason string) {
	rejected := w.Status == domain.WithdrawalStatusRejected

	if s.notifier != nil {
		n := ports.Notification{Kind: "withdrawal"}
		if rejected {
			n.Title = "Withdrawal rejected"
			n.Message = fmt.Sprintf("Your withdrawal of %s was rejected: %s", w.Amount.String(), reason)
		} else {
			n.Title = "Withdrawal completed"
			n.Message = fmt.Sprintf("Your withdrawal of %s was paid out to %s (fee %s, net %s)",
				w.Amount.String(), w.Destination, fee.String(), net.String())
		}
		if err := s.notifier.Notify(ctx, w.MerchantID, n); err != nil {
			s.log.Warn().Err(apperror.ErrSideEffectFailure("withdrawal notification", err)).
				Str("withdrawal_id", w.ID.String()).
				Msg("withdrawal notification failed")
		}
	}

	if s.mailer != nil {
		email := ports.WithdrawalEmail{
			MerchantID:  w.MerchantID,
			GrossAmount: w.Amount,
			FeeAmount:   fee,
			NetAmount:   net,
			Destination: w.Destination,
			Rejected:    rejected,
			Reason:      reason,
		}
		if err := s.mailer.SendWithdrawalEmail(ctx, email); err != nil {
			s.log.Warn().Err(apperror.ErrSideEffectFailure("withdrawal email", err)).
				Str("withdrawal_id", w.ID.String()).
				Msg("withdrawal email failed")
		}
	}
}
