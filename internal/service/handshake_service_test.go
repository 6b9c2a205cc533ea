package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/core/ports/mocks"
	"chainpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type handshakeFixture struct {
	intentRepo   *mocks.MockPaymentIntentRepository
	txRepo       *mocks.MockTransactionRepository
	feeRepo      *mocks.MockFeeRepository
	merchantRepo *mocks.MockMerchantRepository
	idempCache   *mocks.MockIdempotencyCache
	ledger       *mocks.MockLedgerClient
	transactor   *mocks.MockDBTransactor
	svc          *HandshakeServiceImpl
}

func newHandshakeFixture(t *testing.T, verifyOnComplete bool) *handshakeFixture {
	ctrl := gomock.NewController(t)
	f := &handshakeFixture{
		intentRepo:   mocks.NewMockPaymentIntentRepository(ctrl),
		txRepo:       mocks.NewMockTransactionRepository(ctrl),
		feeRepo:      mocks.NewMockFeeRepository(ctrl),
		merchantRepo: mocks.NewMockMerchantRepository(ctrl),
		idempCache:   mocks.NewMockIdempotencyCache(ctrl),
		ledger:       mocks.NewMockLedgerClient(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
	}
	f.svc = NewHandshakeService(
		f.intentRepo, f.txRepo, f.feeRepo, f.merchantRepo,
		f.idempCache, f.ledger, f.transactor,
		NewFeeCalculator(dec("0.0000001")),
		dec("0.02"),
		verifyOnComplete,
		zerolog.Nop(),
	)
	return f
}

func activeMerchant(id uuid.UUID, tier domain.MerchantTier) *domain.Merchant {
	return &domain.Merchant{
		ID:     id,
		Role:   domain.MerchantRoleMerchant,
		Tier:   tier,
		Status: domain.MerchantStatusActive,
	}
}

func TestCreateIntent_Success(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()

	f.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).
		Return(activeMerchant(merchantID, domain.MerchantTierStandard), nil)
	f.intentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	intent, err := f.svc.CreateIntent(context.Background(), ports.CreateIntentRequest{
		MerchantID: merchantID,
		BaseAmount: dec("10.0000000"),
		Currency:   "PI",
		Memo:       "order #42",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCreated, intent.Status)
	assert.True(t, dec("10.2").Equal(intent.GrossAmount), "gross %s", intent.GrossAmount)
	assert.True(t, dec("10").Equal(intent.BaseAmount))
	assert.True(t, dec("0.2").Equal(intent.FeeAmount))
}

func TestCreateIntent_FreeTierStillChargesSomething(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()

	f.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).
		Return(activeMerchant(merchantID, domain.MerchantTierFree), nil)
	f.intentRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	// A base below the minimum unit clamps the charge up to it; the
	// merchant still nets the base and no fee is recorded.
	intent, err := f.svc.CreateIntent(context.Background(), ports.CreateIntentRequest{
		MerchantID: merchantID,
		BaseAmount: dec("0.00000001"),
	})
	require.NoError(t, err)
	assert.True(t, dec("0.0000001").Equal(intent.GrossAmount), "gross %s", intent.GrossAmount)
	assert.True(t, dec("0.00000001").Equal(intent.BaseAmount))
	assert.True(t, intent.FeeAmount.IsZero())
}

func TestCreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	f := newHandshakeFixture(t, false)

	_, err := f.svc.CreateIntent(context.Background(), ports.CreateIntentRequest{
		MerchantID: uuid.New(),
		BaseAmount: decimal.Zero,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
}

func TestCreateIntent_SuspendedMerchant(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()
	suspended := activeMerchant(merchantID, domain.MerchantTierStandard)
	suspended.Status = domain.MerchantStatusSuspended

	f.merchantRepo.EXPECT().GetByID(gomock.Any(), merchantID).Return(suspended, nil)

	_, err := f.svc.CreateIntent(context.Background(), ports.CreateIntentRequest{
		MerchantID: merchantID,
		BaseAmount: dec("1"),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_004", appErr.Code)
}

func TestApprovePayment_Success(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()
	intentID := uuid.New()
	extID := "pi_ext_1"

	created := &domain.PaymentIntent{
		ID:          intentID,
		MerchantID:  merchantID,
		GrossAmount: dec("10.2"),
		Status:      domain.PaymentStatusCreated,
	}
	approved := *created
	approved.Status = domain.PaymentStatusApproved
	approved.ExternalPaymentID = &extID

	f.idempCache.EXPECT().Get(gomock.Any(), "approve:"+extID).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(nil, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(created, nil)
	f.intentRepo.EXPECT().BindExternalID(gomock.Any(), intentID, extID, gomock.Nil()).Return(true, nil)
	f.intentRepo.EXPECT().MarkApproved(gomock.Any(), intentID).Return(true, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(&approved, nil)
	f.idempCache.EXPECT().Set(gomock.Any(), "approve:"+extID, gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.svc.ApprovePayment(context.Background(), ports.ApprovePaymentRequest{
		ExternalPaymentID: extID,
		IntentID:          intentID,
		ReportedAmount:    dec("10.2"),
		MerchantID:        merchantID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, got.Status)
}

func TestApprovePayment_AmountMismatch(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()
	intentID := uuid.New()
	extID := "pi_ext_2"

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(nil, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(&domain.PaymentIntent{
		ID:          intentID,
		MerchantID:  merchantID,
		GrossAmount: dec("10.2"),
		Status:      domain.PaymentStatusCreated,
	}, nil)

	_, err := f.svc.ApprovePayment(context.Background(), ports.ApprovePaymentRequest{
		ExternalPaymentID: extID,
		IntentID:          intentID,
		ReportedAmount:    dec("10.1999999"),
		MerchantID:        merchantID,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STATE_004", appErr.Code)
}

func TestApprovePayment_ExternalIDBoundToOtherIntent(t *testing.T) {
	f := newHandshakeFixture(t, false)
	extID := "pi_ext_3"

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).
		Return(&domain.PaymentIntent{ID: uuid.New()}, nil)

	_, err := f.svc.ApprovePayment(context.Background(), ports.ApprovePaymentRequest{
		ExternalPaymentID: extID,
		IntentID:          uuid.New(),
		ReportedAmount:    dec("1"),
		MerchantID:        uuid.New(),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STATE_002", appErr.Code)
}

func TestApprovePayment_RetryAfterApprovalIsNoOp(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()
	intentID := uuid.New()
	extID := "pi_ext_4"

	approved := &domain.PaymentIntent{
		ID:                intentID,
		MerchantID:        merchantID,
		GrossAmount:       dec("10.2"),
		Status:            domain.PaymentStatusApproved,
		ExternalPaymentID: &extID,
	}

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(approved, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(approved, nil)

	got, err := f.svc.ApprovePayment(context.Background(), ports.ApprovePaymentRequest{
		ExternalPaymentID: extID,
		IntentID:          intentID,
		ReportedAmount:    dec("10.2"),
		MerchantID:        merchantID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusApproved, got.Status)
}

func TestApprovePayment_CacheFastPath(t *testing.T) {
	f := newHandshakeFixture(t, false)
	extID := "pi_ext_5"
	cached := &domain.PaymentIntent{ID: uuid.New(), Status: domain.PaymentStatusApproved}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	f.idempCache.EXPECT().Get(gomock.Any(), "approve:"+extID).Return(data, nil)

	got, err := f.svc.ApprovePayment(context.Background(), ports.ApprovePaymentRequest{
		ExternalPaymentID: extID,
		IntentID:          cached.ID,
		ReportedAmount:    dec("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, cached.ID, got.ID)
}

func TestCompletePayment_Success(t *testing.T) {
	f := newHandshakeFixture(t, false)
	merchantID := uuid.New()
	intentID := uuid.New()
	extID := "pi_ext_6"
	txHash := "abc123"

	approved := &domain.PaymentIntent{
		ID:                intentID,
		MerchantID:        merchantID,
		GrossAmount:       dec("10.2"),
		BaseAmount:        dec("10"),
		FeeAmount:         dec("0.2"),
		Status:            domain.PaymentStatusApproved,
		ExternalPaymentID: &extID,
	}

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()
	dbTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	f.idempCache.EXPECT().Get(gomock.Any(), "complete:"+extID).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(approved, nil)
	f.intentRepo.EXPECT().MarkPendingCompletion(gomock.Any(), intentID).Return(true, nil)
	f.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	f.intentRepo.EXPECT().MarkCompleted(gomock.Any(), dbTx, intentID, txHash).Return(true, nil)
	f.txRepo.EXPECT().Create(gomock.Any(), dbTx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, txn *domain.Transaction) error {
			assert.True(t, dec("10").Equal(txn.Amount))
			assert.Equal(t, txHash, txn.TxHash)
			return nil
		})
	f.merchantRepo.EXPECT().CreditBalance(gomock.Any(), dbTx, merchantID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, _ uuid.UUID, amount decimal.Decimal) error {
			assert.True(t, dec("10").Equal(amount), "credit must be the net amount, got %s", amount)
			return nil
		})
	f.feeRepo.EXPECT().Create(gomock.Any(), dbTx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, fee *domain.PlatformFee) error {
			assert.Equal(t, domain.FeeTypePayment, fee.FeeType)
			assert.True(t, dec("0.2").Equal(fee.Amount))
			return nil
		})
	f.idempCache.EXPECT().Set(gomock.Any(), "complete:"+extID, gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            txHash,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
	require.NotNil(t, got.ExternalTxHash)
	assert.Equal(t, txHash, *got.ExternalTxHash)
}

func TestCompletePayment_BeforeApprovalRejected(t *testing.T) {
	f := newHandshakeFixture(t, false)
	extID := "pi_ext_7"

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(&domain.PaymentIntent{
		ID:     uuid.New(),
		Status: domain.PaymentStatusPendingApproval,
	}, nil)

	_, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            "h",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STATE_001", appErr.Code)
}

func TestCompletePayment_DuplicateSameHashIsNoOp(t *testing.T) {
	f := newHandshakeFixture(t, false)
	extID := "pi_ext_8"
	txHash := "duphash"

	completed := &domain.PaymentIntent{
		ID:             uuid.New(),
		Status:         domain.PaymentStatusCompleted,
		ExternalTxHash: &txHash,
	}

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(completed, nil)

	got, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            txHash,
	})
	require.NoError(t, err)
	assert.Equal(t, completed.ID, got.ID)
}

func TestCompletePayment_DifferentHashIsDuplicateCompletion(t *testing.T) {
	f := newHandshakeFixture(t, false)
	extID := "pi_ext_8b"
	stored := "firsthash"

	completed := &domain.PaymentIntent{
		ID:             uuid.New(),
		Status:         domain.PaymentStatusCompleted,
		ExternalTxHash: &stored,
	}

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(completed, nil)

	_, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            "otherhash",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STATE_003", appErr.Code)
}

func TestCompletePayment_RaceLoserReturnsWinnerResult(t *testing.T) {
	f := newHandshakeFixture(t, false)
	intentID := uuid.New()
	extID := "pi_ext_9"

	pending := &domain.PaymentIntent{
		ID:     intentID,
		Status: domain.PaymentStatusPendingCompletion,
	}
	winnerHash := "winner"
	won := &domain.PaymentIntent{
		ID:             intentID,
		Status:         domain.PaymentStatusCompleted,
		ExternalTxHash: &winnerHash,
	}

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	mockPool.ExpectBegin()
	mockPool.ExpectRollback()
	dbTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(pending, nil)
	f.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	f.intentRepo.EXPECT().MarkCompleted(gomock.Any(), dbTx, intentID, "winner").Return(false, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(won, nil)

	got, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            "winner",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
}

func TestCompletePayment_VerifyFallsBackWhenLedgerUnreachable(t *testing.T) {
	f := newHandshakeFixture(t, true)
	merchantID := uuid.New()
	intentID := uuid.New()
	extID := "pi_ext_10"
	txHash := "provisional"

	pending := &domain.PaymentIntent{
		ID:                intentID,
		MerchantID:        merchantID,
		BaseAmount:        dec("3"),
		FeeAmount:         decimal.Zero,
		Status:            domain.PaymentStatusPendingCompletion,
		ExternalPaymentID: &extID,
	}

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	mockPool.ExpectBegin()
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()
	dbTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	f.idempCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), extID).Return(pending, nil)
	f.ledger.EXPECT().TransactionTime(gomock.Any(), txHash).
		Return(time.Time{}, apperror.ErrUpstreamTimeout(errors.New("deadline exceeded")))
	f.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	f.intentRepo.EXPECT().MarkCompleted(gomock.Any(), dbTx, intentID, txHash).Return(true, nil)
	f.txRepo.EXPECT().Create(gomock.Any(), dbTx, gomock.Any()).Return(nil)
	f.merchantRepo.EXPECT().CreditBalance(gomock.Any(), dbTx, merchantID, gomock.Any()).Return(nil)
	f.idempCache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	got, err := f.svc.CompletePayment(context.Background(), ports.CompletePaymentRequest{
		ExternalPaymentID: extID,
		TxHash:            txHash,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
}

func TestCancelPayment_Success(t *testing.T) {
	f := newHandshakeFixture(t, false)
	intentID := uuid.New()

	created := &domain.PaymentIntent{ID: intentID, Status: domain.PaymentStatusCreated}
	cancelled := &domain.PaymentIntent{ID: intentID, Status: domain.PaymentStatusCancelled}

	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(created, nil)
	f.intentRepo.EXPECT().MarkCancelled(gomock.Any(), intentID).Return(true, nil)
	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).Return(cancelled, nil)

	got, err := f.svc.CancelPayment(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, got.Status)
}

func TestCancelPayment_CompletedIntentRejected(t *testing.T) {
	f := newHandshakeFixture(t, false)
	intentID := uuid.New()

	f.intentRepo.EXPECT().GetByID(gomock.Any(), intentID).
		Return(&domain.PaymentIntent{ID: intentID, Status: domain.PaymentStatusCompleted}, nil)

	_, err := f.svc.CancelPayment(context.Background(), intentID)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "STATE_001", appErr.Code)
}

func TestFailPayment_UnknownExternalIDIgnored(t *testing.T) {
	f := newHandshakeFixture(t, false)

	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), "nope").Return(nil, nil)

	err := f.svc.FailPayment(context.Background(), "nope", "user backed out")
	assert.NoError(t, err)
}

func TestFailPayment_MarksActiveIntent(t *testing.T) {
	f := newHandshakeFixture(t, false)
	intentID := uuid.New()

	f.intentRepo.EXPECT().GetByExternalID(gomock.Any(), "ext").
		Return(&domain.PaymentIntent{ID: intentID, Status: domain.PaymentStatusPendingApproval}, nil)
	f.intentRepo.EXPECT().MarkFailed(gomock.Any(), intentID, "network error").Return(true, nil)

	err := f.svc.FailPayment(context.Background(), "ext", "network error")
	assert.NoError(t, err)
}
