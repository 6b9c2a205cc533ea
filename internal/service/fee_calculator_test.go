package service

import (
	"testing"

	"chainpay-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCalculator() FeeCalculator {
	return NewFeeCalculator(dec("0.0000001"))
}

func TestComputeCharge_FlatPercent(t *testing.T) {
	calc := newCalculator()
	policy := domain.FeePolicy{Type: domain.FeePolicyFlatPercent, Rate: dec("0.02")}

	charge, err := calc.ComputeCharge(dec("10.0000000"), policy)
	require.NoError(t, err)

	assert.True(t, charge.CustomerCharge.Equal(dec("10.2000000")), "got %s", charge.CustomerCharge)
	assert.True(t, charge.MerchantNet.Equal(dec("10.0000000")), "got %s", charge.MerchantNet)
	assert.True(t, charge.FeeAmount.Equal(dec("0.2000000")), "got %s", charge.FeeAmount)
}

func TestComputeCharge_FlatPercent_DonorPaysFee(t *testing.T) {
	calc := newCalculator()
	policy := domain.FeePolicy{Type: domain.FeePolicyFlatPercent, Rate: dec("0.05")}

	charge, err := calc.ComputeCharge(dec("3.5"), policy)
	require.NoError(t, err)

	// Merchant's recorded base is unchanged; the payer covers the fee.
	assert.True(t, charge.MerchantNet.Equal(dec("3.5")))
	assert.True(t, charge.CustomerCharge.Equal(dec("3.675")))
	assert.True(t, charge.CustomerCharge.Sub(charge.FeeAmount).Equal(charge.MerchantNet))
}

func TestComputeCharge_Free_ClampsToMinimumUnit(t *testing.T) {
	calc := newCalculator()
	policy := domain.FeePolicy{Type: domain.FeePolicyFree}

	charge, err := calc.ComputeCharge(decimal.Zero, policy)
	require.NoError(t, err)
	assert.True(t, charge.CustomerCharge.Equal(dec("0.0000001")))
	assert.True(t, charge.FeeAmount.IsZero())

	charge, err = calc.ComputeCharge(dec("2"), policy)
	require.NoError(t, err)
	assert.True(t, charge.CustomerCharge.Equal(dec("2")))
}

func TestComputeCharge_ZeroPolicy(t *testing.T) {
	calc := newCalculator()

	charge, err := calc.ComputeCharge(dec("100"), domain.FeePolicy{Type: domain.FeePolicyZero})
	require.NoError(t, err)
	assert.True(t, charge.CustomerCharge.Equal(dec("100")))
	assert.True(t, charge.MerchantNet.Equal(dec("100")))
	assert.True(t, charge.FeeAmount.IsZero())
}

func TestComputeCharge_NegativeBase(t *testing.T) {
	calc := newCalculator()
	_, err := calc.ComputeCharge(dec("-1"), domain.FeePolicy{Type: domain.FeePolicyZero})
	assert.Error(t, err)
}

func TestComputeWithdrawal(t *testing.T) {
	calc := newCalculator()

	split, err := calc.ComputeWithdrawal(dec("10.0000000"), dec("0.02"))
	require.NoError(t, err)

	assert.True(t, split.FeeAmount.Equal(dec("0.2000000")), "got %s", split.FeeAmount)
	assert.True(t, split.NetAmount.Equal(dec("9.8000000")), "got %s", split.NetAmount)
}

func TestComputeWithdrawal_NegativeInputs(t *testing.T) {
	calc := newCalculator()

	_, err := calc.ComputeWithdrawal(dec("-5"), dec("0.02"))
	assert.Error(t, err)

	_, err = calc.ComputeWithdrawal(dec("5"), dec("-0.02"))
	assert.Error(t, err)
}

// The asymmetry between the two directions is load-bearing: payments
// add the fee on top, withdrawals subtract it from the requested gross.
func TestFeeDirectionAsymmetry(t *testing.T) {
	calc := newCalculator()
	rate := dec("0.02")
	amount := dec("10.0000000")

	charge, err := calc.ComputeCharge(amount, domain.FeePolicy{Type: domain.FeePolicyFlatPercent, Rate: rate})
	require.NoError(t, err)
	split, err := calc.ComputeWithdrawal(amount, rate)
	require.NoError(t, err)

	assert.True(t, charge.CustomerCharge.GreaterThan(amount))
	assert.True(t, split.NetAmount.LessThan(amount))
	assert.True(t, charge.FeeAmount.Equal(split.FeeAmount))
}

func TestComputeCharge_MonotonicInBase(t *testing.T) {
	calc := newCalculator()
	policy := domain.FeePolicy{Type: domain.FeePolicyFlatPercent, Rate: dec("0.02")}

	prev := decimal.Zero
	for _, s := range []string{"0.0000001", "0.5", "1", "10", "999.1234567"} {
		charge, err := calc.ComputeCharge(dec(s), policy)
		require.NoError(t, err)
		assert.True(t, charge.CustomerCharge.GreaterThanOrEqual(prev))
		prev = charge.CustomerCharge
	}
}

func TestComputeWithdrawal_MonotonicInAmount(t *testing.T) {
	calc := newCalculator()

	prev := decimal.Zero
	for _, s := range []string{"0.0000001", "1", "2.5", "100"} {
		split, err := calc.ComputeWithdrawal(dec(s), dec("0.02"))
		require.NoError(t, err)
		assert.True(t, split.NetAmount.GreaterThanOrEqual(prev))
		prev = split.NetAmount
	}
}

func TestComputeCharge_NoFloatDrift(t *testing.T) {
	calc := newCalculator()
	policy := domain.FeePolicy{Type: domain.FeePolicyFlatPercent, Rate: dec("0.1")}

	// 0.1 x 0.3 is not representable in binary floats; decimal math
	// must give the exact product.
	charge, err := calc.ComputeCharge(dec("0.3"), policy)
	require.NoError(t, err)
	assert.True(t, charge.FeeAmount.Equal(dec("0.03")), "got %s", charge.FeeAmount)
	assert.True(t, charge.CustomerCharge.Equal(dec("0.33")), "got %s", charge.CustomerCharge)
}
