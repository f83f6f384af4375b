package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTargetMapping(t *testing.T) {
	cases := []struct {
		outcome PaymentOutcome
		target  OrderStatus
	}{
		{PaymentOutcomePaid, OrderStatusCompleted},
		{PaymentOutcomeFailed, OrderStatusFailed},
		{PaymentOutcomeReady, OrderStatusProcessing},
		{PaymentOutcomeVirtualAccountIssued, OrderStatusProcessing},
		{PaymentOutcomeCancelled, OrderStatusCancelled},
	}
	for _, tc := range cases {
		target, ok := tc.outcome.OrderTarget()
		require.True(t, ok, "outcome %s should map", tc.outcome)
		assert.Equal(t, tc.target, target)
	}
}

func TestOrderTargetUnmappedOutcomes(t *testing.T) {
	// A partial cancellation is not a full cancel; it drives no order state.
	_, ok := PaymentOutcomePartialCancelled.OrderTarget()
	assert.False(t, ok)

	_, ok = PaymentOutcome("chargeback").OrderTarget()
	assert.False(t, ok)
}

func TestParsePaymentOutcome(t *testing.T) {
	outcome, err := ParsePaymentOutcome("virtual_account_issued")
	require.NoError(t, err)
	assert.Equal(t, PaymentOutcomeVirtualAccountIssued, outcome)

	_, err = ParsePaymentOutcome("PAID")
	assert.Error(t, err)
}
