package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionToFollowsChain(t *testing.T) {
	steps := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{StatusPendingPayment, StatusOrderPlaced},
		{StatusOrderPlaced, StatusPreparing},
		{StatusPreparing, StatusInTransit},
		{StatusInTransit, StatusOutForDelivery},
		{StatusOutForDelivery, StatusDelivered},
	}
	for _, step := range steps {
		assert.True(t, step.from.CanTransitionTo(step.to), "%s -> %s", step.from, step.to)
	}
}

func TestCanTransitionToRejectsSkips(t *testing.T) {
	assert.False(t, StatusPendingPayment.CanTransitionTo(StatusPreparing))
	assert.False(t, StatusOrderPlaced.CanTransitionTo(StatusDelivered))
	assert.False(t, StatusPreparing.CanTransitionTo(StatusOrderPlaced))
	assert.False(t, StatusInTransit.CanTransitionTo(StatusInTransit))
}

func TestCancelledReachableFromAnyNonTerminal(t *testing.T) {
	for _, status := range []OrderStatus{
		StatusPendingPayment, StatusOrderPlaced, StatusPreparing,
		StatusInTransit, StatusOutForDelivery,
	} {
		assert.True(t, status.CanTransitionTo(StatusCancelled), "%s", status)
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	for _, terminal := range []OrderStatus{StatusDelivered, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, target := range []OrderStatus{
			StatusPendingPayment, StatusOrderPlaced, StatusPreparing,
			StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled,
		} {
			assert.False(t, terminal.CanTransitionTo(target), "%s -> %s", terminal, target)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	parsed, ok := ParseOrderStatus("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, parsed)

	_, ok = ParseOrderStatus("shipped")
	assert.False(t, ok)

	_, ok = ParseOrderStatus("")
	assert.False(t, ok)
}

func TestPaymentMethodRequiresConfirmation(t *testing.T) {
	for _, method := range []string{"qrph", "gcash", "maya", "qr"} {
		assert.True(t, PaymentMethodRequiresConfirmation(method), method)
	}
	for _, method := range []string{"cod", "cash", "bank_transfer", ""} {
		assert.False(t, PaymentMethodRequiresConfirmation(method), method)
	}
}

func TestStockLabel(t *testing.T) {
	assert.Equal(t, StockLabelOut, StockLabel(0))
	assert.Equal(t, StockLabelOut, StockLabel(-3))
	assert.Equal(t, StockLabelLow, StockLabel(1))
	assert.Equal(t, StockLabelLow, StockLabel(10))
	assert.Equal(t, StockLabelIn, StockLabel(11))
}
