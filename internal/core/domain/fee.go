package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeePolicyType selects how the customer-facing charge is derived.
type FeePolicyType string

const (
	// FeePolicyFree charges no fee; the charge is clamped up to the
	// platform minimum unit so zero-amount payments cannot be created.
	FeePolicyFree FeePolicyType = "FREE"
	// FeePolicyFlatPercent adds the fee on top of the base amount; the
	// payer covers it and the merchant's recorded base is unchanged.
	FeePolicyFlatPercent FeePolicyType = "FLAT_PERCENT"
	// FeePolicyZero is the Enterprise-tier override: no fee, no clamp.
	FeePolicyZero FeePolicyType = "ZERO"
)

// FeePolicy describes the fee arrangement applied to incoming payments.
type FeePolicy struct {
	Type FeePolicyType   `json:"type"`
	Rate decimal.Decimal `json:"rate"` // used by FLAT_PERCENT only
}

// Charge is the result of applying a fee policy to a base amount.
type Charge struct {
	CustomerCharge decimal.Decimal `json:"customer_charge"` // gross, fee-inclusive
	MerchantNet    decimal.Decimal `json:"merchant_net"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
}

// WithdrawalSplit is the fee/net breakdown of an outgoing payout.
// Withdrawals deduct the fee from the requested amount, the opposite
// direction of incoming payments.
type WithdrawalSplit struct {
	FeeAmount decimal.Decimal `json:"fee_amount"`
	NetAmount decimal.Decimal `json:"net_amount"`
}

// FeeType distinguishes what a platform fee was charged for.
type FeeType string

const (
	FeeTypePayment    FeeType = "PAYMENT"
	FeeTypeWithdrawal FeeType = "WITHDRAWAL"
)

// FeeStatus is the settlement state of a platform fee record.
type FeeStatus string

const (
	FeeStatusCompleted FeeStatus = "COMPLETED"
)

// PlatformFee records one fee taken by the platform. Created exactly
// once per approved withdrawal or completed paid-type payment;
// immutable after creation.
type PlatformFee struct {
	ID         uuid.UUID       `json:"id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Amount     decimal.Decimal `json:"amount"`
	FeeType    FeeType         `json:"fee_type"`
	RelatedID  uuid.UUID       `json:"related_id"` // transaction or withdrawal id
	Status     FeeStatus       `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}
