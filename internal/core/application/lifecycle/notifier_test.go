package lifecycle_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/application/strategies/strategytest"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidOrderEvents(t *testing.T) []order.Event {
	t.Helper()
	now := time.Now()

	o, err := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
	require.NoError(t, err)
	item, err := order.NewItem(kernel.NewUUID(), "margherita", 2, 9.00, "")
	require.NoError(t, err)
	require.NoError(t, o.AddItem(item, now))
	require.NoError(t, o.Confirm(now))
	require.NoError(t, o.ConfirmPayment(now))

	return o.PopEvents()
}

func TestNotifier_DispatchTriggersCollaborators(t *testing.T) {
	ctx := t.Context()
	bus := &strategytest.Bus{}
	finance := &strategytest.Finance{}
	kitchen := &strategytest.Kitchen{}

	notifier, err := lifecycle.NewNotifier(bus, finance, kitchen,
		services.NewChargeCalculator(0.10, 0), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, notifier.Dispatch(ctx, paidOrderEvents(t)))

	assert.Equal(t, []string{
		order.EventOrderCreated,
		order.EventOrderUpdated,
		order.EventOrderConfirmed,
		order.EventOrderPaid,
	}, bus.EventNames())

	require.Len(t, finance.PaidCalls(), 1)
	assert.InDelta(t, 18.0, finance.Charges()[0].Subtotal, 0.001)
	assert.InDelta(t, 1.80, finance.Charges()[0].ServiceFee, 0.001)
	require.Len(t, kitchen.Registered(), 1)
	assert.Empty(t, finance.ClosedCalls())
}

func TestNotifier_PublishFailureDoesNotSuppressCollaborators(t *testing.T) {
	ctx := t.Context()
	bus := &strategytest.Bus{Err: errors.New("broker unreachable")}
	finance := &strategytest.Finance{}
	kitchen := &strategytest.Kitchen{}

	notifier, err := lifecycle.NewNotifier(bus, finance, kitchen,
		services.NewChargeCalculator(0, 0), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	err = notifier.Dispatch(ctx, paidOrderEvents(t))
	require.ErrorIs(t, err, errs.ErrPublishFailure)

	// Finance and the kitchen were still notified about the payment.
	assert.Len(t, finance.PaidCalls(), 1)
	assert.Len(t, kitchen.Registered(), 1)
}

func TestNotifier_DownstreamFailureIsWrapped(t *testing.T) {
	ctx := t.Context()
	cause := errors.New("finance 503")
	finance := &strategytest.Finance{Err: cause}

	notifier, err := lifecycle.NewNotifier(&strategytest.Bus{}, finance, &strategytest.Kitchen{},
		services.NewChargeCalculator(0, 0), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	err = notifier.Dispatch(ctx, paidOrderEvents(t))
	require.ErrorIs(t, err, errs.ErrDownstreamCallFailure)
	assert.Contains(t, err.Error(), cause.Error())
}
