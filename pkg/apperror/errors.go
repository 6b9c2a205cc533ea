package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Handshake State Machine (STATE) ----

func ErrInvalidState(detail string) *AppError {
	return New("STATE_001", fmt.Sprintf("Invalid state transition: %s", detail), http.StatusConflict)
}

func ErrDuplicateApproval() *AppError {
	return New("STATE_002", "Payment already approved", http.StatusConflict)
}

func ErrDuplicateCompletion() *AppError {
	return New("STATE_003", "Payment already completed", http.StatusConflict)
}

func ErrAmountMismatch() *AppError {
	return New("STATE_004", "Reported amount does not match recorded intent", http.StatusUnprocessableEntity)
}

// ---- Payments (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Withdrawals (WD) ----

func ErrInsufficientBalance() *AppError {
	return New("WD_001", "Withdrawal amount exceeds available balance", http.StatusPaymentRequired)
}

func ErrWithdrawalNotPending() *AppError {
	return New("WD_002", "Withdrawal is not in a pending state", http.StatusConflict)
}

// ---- Ledger Reconciliation (LEDGER) ----

func ErrUpstreamTimeout(err error) *AppError {
	return Wrap("LEDGER_001", "Ledger API request timed out", http.StatusGatewayTimeout, err)
}

func ErrUpstreamUnavailable(err error) *AppError {
	return Wrap("LEDGER_002", "Ledger API unavailable", http.StatusBadGateway, err)
}

// ---- Best-Effort Side Effects (SIDE) ----

// ErrSideEffectFailure is logged by callers, never surfaced to clients.
func ErrSideEffectFailure(effect string, err error) *AppError {
	return Wrap("SIDE_001", fmt.Sprintf("Side effect failed: %s", effect), http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_003", "Administrator privileges required", http.StatusForbidden)
}

func ErrMerchantSuspended() *AppError {
	return New("AUTH_004", "Merchant account is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("PAY_001", message, http.StatusBadRequest)
}
