package service

import (
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/pkg/apperror"

	"github.com/shopspring/decimal"
)

// amountScale is the number of fractional digits of the chain's
// minimum currency unit.
const amountScale = 7

// FeeCalculator computes customer-facing charges and merchant payouts.
// Pure and deterministic; all arithmetic is decimal so amounts used in
// balance updates carry no binary floating-point drift.
//
// The two directions are deliberately asymmetric: incoming payments add
// the fee on top of the base amount (the payer covers it), withdrawals
// deduct the fee from the requested amount.
type FeeCalculator struct {
	minimumUnit decimal.Decimal
}

// NewFeeCalculator creates a FeeCalculator. minimumUnit is the smallest
// chargeable amount (one minimum unit of the underlying currency).
func NewFeeCalculator(minimumUnit decimal.Decimal) FeeCalculator {
	return FeeCalculator{minimumUnit: minimumUnit}
}

// ComputeCharge derives the gross charge, merchant net and fee for an
// incoming payment of baseAmount under the given policy.
func (f FeeCalculator) ComputeCharge(baseAmount decimal.Decimal, policy domain.FeePolicy) (domain.Charge, error) {
	if baseAmount.IsNegative() {
		return domain.Charge{}, apperror.ErrInvalidAmount()
	}

	switch policy.Type {
	case domain.FeePolicyFree:
		charge := baseAmount
		if charge.LessThan(f.minimumUnit) {
			charge = f.minimumUnit
		}
		return domain.Charge{
			CustomerCharge: charge,
			MerchantNet:    baseAmount,
			FeeAmount:      decimal.Zero,
		}, nil

	case domain.FeePolicyZero:
		return domain.Charge{
			CustomerCharge: baseAmount,
			MerchantNet:    baseAmount,
			FeeAmount:      decimal.Zero,
		}, nil

	case domain.FeePolicyFlatPercent:
		if policy.Rate.IsNegative() {
			return domain.Charge{}, apperror.Validation("fee rate must not be negative")
		}
		fee := baseAmount.Mul(policy.Rate).Round(amountScale)
		return domain.Charge{
			CustomerCharge: baseAmount.Add(fee),
			MerchantNet:    baseAmount,
			FeeAmount:      fee,
		}, nil

	default:
		return domain.Charge{}, apperror.Validation("unknown fee policy")
	}
}

// ComputeWithdrawal splits a gross withdrawal amount into fee and net
// payout: feeAmount = amount x rate, netAmount = amount - feeAmount.
func (f FeeCalculator) ComputeWithdrawal(amount, rate decimal.Decimal) (domain.WithdrawalSplit, error) {
	if amount.IsNegative() || rate.IsNegative() {
		return domain.WithdrawalSplit{}, apperror.ErrInvalidAmount()
	}

	fee := amount.Mul(rate).Round(amountScale)
	return domain.WithdrawalSplit{
		FeeAmount: fee,
		NetAmount: amount.Sub(fee),
	}, nil
}
