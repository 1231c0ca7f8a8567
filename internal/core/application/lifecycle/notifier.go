package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// Notifier fans a batch of drained domain events out to the event bus and to
// the downstream collaborators. Dispatch runs after the state change has been
// committed, so failures here never roll the order back: they are recorded as
// publish or downstream-call failures and the commit stands.
type Notifier struct {
	publisher  ports.EventPublisher
	finance    ports.FinanceGateway
	kitchen    ports.KitchenService
	calculator services.ChargeCalculator
	logger     *slog.Logger
}

func NewNotifier(
	publisher ports.EventPublisher,
	finance ports.FinanceGateway,
	kitchen ports.KitchenService,
	calculator services.ChargeCalculator,
	logger *slog.Logger,
) (*Notifier, error) {
	if publisher == nil {
		return nil, errs.NewValueIsRequiredError("publisher")
	}
	if finance == nil {
		return nil, errs.NewValueIsRequiredError("finance")
	}
	if kitchen == nil {
		return nil, errs.NewValueIsRequiredError("kitchen")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		publisher:  publisher,
		finance:    finance,
		kitchen:    kitchen,
		calculator: calculator,
		logger:     logger,
	}, nil
}

// Dispatch publishes every event and triggers the collaborator calls bound to
// payment and closing. Each effect is attempted independently: one failure
// does not suppress the rest. The joined error reports everything that failed.
func (n *Notifier) Dispatch(ctx context.Context, events []order.Event) error {
	var failures []error

	for _, event := range events {
		if err := n.PublishEvent(ctx, event); err != nil {
			failures = append(failures, err)
		}

		switch event.Name() {
		case order.EventOrderPaid:
			if err := n.NotifyPaid(ctx, event.Snapshot()); err != nil {
				failures = append(failures, err)
			}
			if err := n.RegisterKitchen(ctx, event.Snapshot()); err != nil {
				failures = append(failures, err)
			}
		case order.EventOrderClosed:
			if err := n.NotifyClosed(ctx, event.Snapshot()); err != nil {
				failures = append(failures, err)
			}
		}
	}

	return errors.Join(failures...)
}

// PublishEvent pushes a single event to the bus, wrapping transport failures.
func (n *Notifier) PublishEvent(ctx context.Context, event order.Event) error {
	if err := n.publisher.Publish(ctx, event); err != nil {
		wrapped := errs.NewPublishFailureError(event.Name(), event.OrderID().String(), err)
		n.logger.Error("event publish failed",
			slog.String("event", event.Name()),
			slog.String("order_id", event.OrderID().String()),
			slog.Any("error", err))
		return wrapped
	}
	return nil
}

// NotifyPaid tells finance a new paid order exists, with its charges.
func (n *Notifier) NotifyPaid(ctx context.Context, snapshot order.Snapshot) error {
	charges := n.calculator.Calculate(snapshot)
	if err := n.finance.NotifyOrderPaid(ctx, snapshot, charges); err != nil {
		wrapped := errs.NewDownstreamCallFailureError("finance.order_paid", snapshot.ID, err)
		n.logger.Error("finance call failed",
			slog.String("endpoint", "finance.order_paid"),
			slog.String("order_id", snapshot.ID),
			slog.Any("error", err))
		return wrapped
	}
	return nil
}

// NotifyClosed tells finance the order reached its terminal state.
func (n *Notifier) NotifyClosed(ctx context.Context, snapshot order.Snapshot) error {
	if err := n.finance.NotifyOrderClosed(ctx, snapshot.ID); err != nil {
		wrapped := errs.NewDownstreamCallFailureError("finance.order_closed", snapshot.ID, err)
		n.logger.Error("finance call failed",
			slog.String("endpoint", "finance.order_closed"),
			slog.String("order_id", snapshot.ID),
			slog.Any("error", err))
		return wrapped
	}
	return nil
}

// RegisterKitchen hands the paid order to the kitchen coordinator so item
// preparation can start.
func (n *Notifier) RegisterKitchen(ctx context.Context, snapshot order.Snapshot) error {
	if err := n.kitchen.RegisterOrder(ctx, snapshot); err != nil {
		wrapped := errs.NewDownstreamCallFailureError("kitchen.register_order", snapshot.ID, err)
		n.logger.Error("kitchen call failed",
			slog.String("endpoint", "kitchen.register_order"),
			slog.String("order_id", snapshot.ID),
			slog.Any("error", err))
		return wrapped
	}
	return nil
}
