package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("STATE_001", "Invalid state transition: test", http.StatusConflict)
	assert.Equal(t, "[STATE_001] Invalid state transition: test", e.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	e := Wrap("LEDGER_002", "Ledger API unavailable", http.StatusBadGateway, inner)
	assert.Contains(t, e.Error(), "LEDGER_002")
	assert.Contains(t, e.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("deadline exceeded")
	e := ErrUpstreamTimeout(fmt.Errorf("fetch page: %w", inner))
	assert.True(t, errors.Is(e, inner))
}

func TestAppError_ErrorsAs(t *testing.T) {
	var appErr *AppError
	err := fmt.Errorf("handler: %w", ErrDuplicateApproval())
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "STATE_002", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestErrorConstructors_CodesAndStatuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrInvalidState("completion before approval"), "STATE_001", http.StatusConflict},
		{ErrDuplicateApproval(), "STATE_002", http.StatusConflict},
		{ErrDuplicateCompletion(), "STATE_003", http.StatusConflict},
		{ErrAmountMismatch(), "STATE_004", http.StatusUnprocessableEntity},
		{ErrInvalidAmount(), "PAY_001", http.StatusBadRequest},
		{ErrNotFound("payment intent"), "PAY_002", http.StatusNotFound},
		{ErrInsufficientBalance(), "WD_001", http.StatusPaymentRequired},
		{ErrWithdrawalNotPending(), "WD_002", http.StatusConflict},
		{ErrUpstreamTimeout(nil), "LEDGER_001", http.StatusGatewayTimeout},
		{ErrUpstreamUnavailable(nil), "LEDGER_002", http.StatusBadGateway},
		{ErrInvalidCredentials(), "AUTH_001", http.StatusUnauthorized},
		{ErrInvalidToken(), "AUTH_002", http.StatusUnauthorized},
		{ErrAdminRequired(), "AUTH_003", http.StatusForbidden},
		{ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
		{InternalError(errors.New("boom")), "SYS_001", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}
