package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus_HappyPath(t *testing.T) {
	s := PaymentStatusCreated

	s, err := NextStatus(s, EventSubmitted{ExternalPaymentID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPendingApproval, s)

	s, err = NextStatus(s, EventApproved{})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusApproved, s)

	s, err = NextStatus(s, EventBroadcast{TxHash: "deadbeef"})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPendingCompletion, s)

	s, err = NextStatus(s, EventVerified{})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, s)
}

func TestNextStatus_CompletionBeforeApproval(t *testing.T) {
	_, err := NextStatus(PaymentStatusCreated, EventVerified{})
	assert.Error(t, err)

	_, err = NextStatus(PaymentStatusPendingApproval, EventBroadcast{TxHash: "x"})
	assert.Error(t, err)
}

func TestNextStatus_CancelWindow(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentStatusCreated, PaymentStatusPendingApproval, PaymentStatusApproved} {
		next, err := NextStatus(s, EventCancelled{})
		require.NoError(t, err, "cancel from %s", s)
		assert.Equal(t, PaymentStatusCancelled, next)
	}

	for _, s := range []PaymentStatus{PaymentStatusPendingCompletion, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled} {
		_, err := NextStatus(s, EventCancelled{})
		assert.Error(t, err, "cancel from %s must be rejected", s)
	}
}

func TestNextStatus_TerminalStatesAreSinks(t *testing.T) {
	events := []HandshakeEvent{
		EventSubmitted{ExternalPaymentID: "p"},
		EventApproved{},
		EventBroadcast{TxHash: "h"},
		EventVerified{},
		EventCancelled{},
		EventFailed{Reason: "r"},
	}
	for _, terminal := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled} {
		for _, ev := range events {
			_, err := NextStatus(terminal, ev)
			assert.Error(t, err, "state %s event %T", terminal, ev)
		}
	}
}

func TestPaymentIntent_Predicates(t *testing.T) {
	p := &PaymentIntent{Status: PaymentStatusApproved}
	assert.False(t, p.IsTerminal())
	assert.True(t, p.IsCancellable())

	p.Status = PaymentStatusCompleted
	assert.True(t, p.IsTerminal())
	assert.False(t, p.IsCancellable())
}

func TestWithdrawal_IsTerminal(t *testing.T) {
	w := &Withdrawal{Status: WithdrawalStatusPending}
	assert.False(t, w.IsTerminal())
	w.Status = WithdrawalStatusCompleted
	assert.True(t, w.IsTerminal())
	w.Status = WithdrawalStatusRejected
	assert.True(t, w.IsTerminal())
}

func TestFeePolicyFor(t *testing.T) {
	rate := decimal.RequireFromString("0.02")

	p := FeePolicyFor(MerchantTierFree, rate)
	assert.Equal(t, FeePolicyFree, p.Type)

	p = FeePolicyFor(MerchantTierStandard, rate)
	assert.Equal(t, FeePolicyFlatPercent, p.Type)
	assert.True(t, p.Rate.Equal(rate))

	p = FeePolicyFor(MerchantTierEnterprise, rate)
	assert.Equal(t, FeePolicyZero, p.Type)
}
