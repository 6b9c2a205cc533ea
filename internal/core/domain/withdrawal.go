package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the lifecycle state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalStatusRejected  WithdrawalStatus = "REJECTED"
)

// Withdrawal is a merchant payout request. Created by the merchant,
// mutated only by the approval workflow, terminal once completed or
// rejected.
type Withdrawal struct {
	ID         uuid.UUID        `json:"id"`
	MerchantID uuid.UUID        `json:"merchant_id"`
	// Amount is the gross amount the merchant asked for; the platform
	// fee is deducted from it on approval.
	Amount        decimal.Decimal  `json:"amount"`
	Status        WithdrawalStatus `json:"status"`
	Destination   string           `json:"destination"` // wallet address or platform identity
	ExternalTxRef *string          `json:"external_tx_ref,omitempty"`
	Note          string           `json:"note,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the withdrawal can no longer change state.
func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalStatusCompleted || w.Status == WithdrawalStatusRejected
}
