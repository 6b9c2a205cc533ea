package postgres

import (
	"context"
	"testing"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentIntentRepo_GetByExternalID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	mock.ExpectQuery("SELECT (.+) FROM payment_intents WHERE external_payment_id").
		WithArgs("pi_unknown").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByExternalID(context.Background(), "pi_unknown")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	merchantID := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM payment_intents WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "merchant_id", "gross_amount", "base_amount", "fee_amount", "currency", "memo",
			"metadata", "payer", "status", "external_payment_id", "external_tx_hash",
			"failure_reason", "created_at", "approved_at", "completed_at", "cancelled_at", "failed_at",
		}).AddRow(
			id, merchantID, dec("10.2"), dec("10"), dec("0.2"), "PI", "order #42",
			map[string]string{"order": "42"}, nil, domain.PaymentStatusCreated, nil, nil,
			nil, now, nil, nil, nil, nil,
		))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.PaymentStatusCreated, p.Status)
	assert.True(t, dec("10.2").Equal(p.GrossAmount))
	assert.Nil(t, p.ExternalTxHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_BindExternalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	payer := "pioneer_7"
	mock.ExpectExec("UPDATE payment_intents").
		WithArgs("pi_ext", &payer, domain.PaymentStatusPendingApproval, id, domain.PaymentStatusCreated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.BindExternalID(context.Background(), id, "pi_ext", &payer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_BindExternalID_UniqueConflictIsFalse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	mock.ExpectExec("UPDATE payment_intents").
		WithArgs("pi_taken", (*string)(nil), domain.PaymentStatusPendingApproval, id, domain.PaymentStatusCreated).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	ok, err := repo.BindExternalID(context.Background(), id, "pi_taken", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_MarkApproved_GuardFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	mock.ExpectExec("UPDATE payment_intents").
		WithArgs(domain.PaymentStatusApproved, id, domain.PaymentStatusPendingApproval).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.MarkApproved(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_MarkCompleted_InTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_intents").
		WithArgs(domain.PaymentStatusCompleted, "txhash123", id, domain.PaymentStatusPendingCompletion).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkCompleted(context.Background(), tx, id, "txhash123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentIntentRepo_MarkCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPaymentIntentRepo(mock)

	id := uuid.New()
	mock.ExpectExec("UPDATE payment_intents").
		WithArgs(domain.PaymentStatusCancelled, id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.MarkCancelled(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
