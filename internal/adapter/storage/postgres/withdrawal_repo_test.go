package postgres

import (
	"context"
	"testing"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalRepo_ListPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewWithdrawalRepo(mock)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM withdrawals").
		WithArgs(domain.WithdrawalStatusPending, 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "merchant_id", "amount", "status", "destination",
			"external_tx_ref", "note", "requested_at", "processed_at",
		}).AddRow(
			uuid.New(), uuid.New(), dec("25"), domain.WithdrawalStatusPending, "GDEST",
			nil, "", now, nil,
		).AddRow(
			uuid.New(), uuid.New(), dec("7.5"), domain.WithdrawalStatusPending, "GDEST2",
			nil, "", now.Add(time.Minute), nil,
		))

	ws, err := repo.ListPending(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.True(t, dec("25").Equal(ws[0].Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkCompleted_GuardHolds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewWithdrawalRepo(mock)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals").
		WithArgs(domain.WithdrawalStatusCompleted, "WD-ref", "", id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkCompleted(context.Background(), tx, id, "WD-ref", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkCompleted_AlreadyProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewWithdrawalRepo(mock)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals").
		WithArgs(domain.WithdrawalStatusCompleted, "WD-ref", "", id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkCompleted(context.Background(), tx, id, "WD-ref", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewWithdrawalRepo(mock)

	id := uuid.New()
	mock.ExpectExec("UPDATE withdrawals").
		WithArgs(domain.WithdrawalStatusRejected, "bad destination", id, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.MarkRejected(context.Background(), id, "bad destination")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
