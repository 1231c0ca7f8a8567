// Package keyedstore implements the direct keyed-store execution strategy:
// every command is an independent read-modify-write against the order store
// inside its own transaction. The strategy holds no in-memory state between
// commands; concurrency control comes entirely from the store, so two
// commands racing on the same order serialize on the row, not in the process.
package keyedstore

import (
	"context"
	"log/slog"
	"time"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// Strategy executes order commands as load → mutate → store transactions.
// Events are published after the transaction commits; a crash between commit
// and publish loses the events of that one command, which this strategy
// accepts in exchange for not holding any state across commands.
type Strategy struct {
	uowFactory ports.UnitOfWorkFactory
	orders     ports.OrderRepository
	notifier   *lifecycle.Notifier
	clock      func() time.Time
	logger     *slog.Logger
}

func NewStrategy(
	uowFactory ports.UnitOfWorkFactory,
	orders ports.OrderRepository,
	notifier *lifecycle.Notifier,
	logger *slog.Logger,
) (*Strategy, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if orders == nil {
		return nil, errs.NewValueIsRequiredError("orders")
	}
	if notifier == nil {
		return nil, errs.NewValueIsRequiredError("notifier")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Strategy{
		uowFactory: uowFactory,
		orders:     orders,
		notifier:   notifier,
		clock:      time.Now,
		logger:     logger,
	}, nil
}

// WithClock replaces the wall clock. Tests use it to make timestamps
// deterministic.
func (s *Strategy) WithClock(clock func() time.Time) *Strategy {
	s.clock = clock
	return s
}

func (s *Strategy) CreateOrder(ctx context.Context, orderID kernel.UUID, fulfillment order.Fulfillment) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}

	aggregate, err := order.NewOrder(orderID, fulfillment, s.clock())
	if err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	if err := uow.OrderRepository().Add(ctx, aggregate); err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("add order", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}

	s.deliver(ctx, aggregate)
	return nil
}

func (s *Strategy) AssignCustomer(ctx context.Context, orderID kernel.UUID, customer order.Customer) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignCustomer(customer, now)
	})
}

func (s *Strategy) AssignInvoiceAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignInvoiceAddress(address, now)
	})
}

func (s *Strategy) AssignDeliveryAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignDeliveryAddress(address, now)
	})
}

func (s *Strategy) AddItem(ctx context.Context, orderID kernel.UUID, input lifecycle.ItemInput) error {
	item, err := input.Item()
	if err != nil {
		return err
	}
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AddItem(item, now)
	})
}

func (s *Strategy) RemoveItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.RemoveItem(itemID, now)
	})
}

func (s *Strategy) ConfirmOrder(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Confirm(now)
	})
}

func (s *Strategy) ConfirmPayment(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.ConfirmPayment(now)
	})
}

func (s *Strategy) StartProcessing(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.StartProcessing(now)
	})
}

func (s *Strategy) FinishItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.FinishItem(itemID, now)
	})
}

func (s *Strategy) Serve(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Serve(now)
	})
}

func (s *Strategy) StartDelivery(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.StartDelivery(now)
	})
}

func (s *Strategy) Delivered(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Delivered(now)
	})
}

func (s *Strategy) MarkAbandoned(ctx context.Context, orderID kernel.UUID) error {
	return s.execute(ctx, orderID, func(o *order.Order, now time.Time) error {
		o.MarkAbandoned(now)
		return nil
	})
}

func (s *Strategy) GetOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// execute runs one command as a full read-modify-write transaction. When the
// command moves the order into a terminal state the routing assignment is
// removed in the same transaction, so the removal and the final state change
// are atomic.
func (s *Strategy) execute(ctx context.Context, orderID kernel.UUID, command func(*order.Order, time.Time) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}

	aggregate, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	if err := command(aggregate, s.clock()); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	if err := uow.OrderRepository().Update(ctx, aggregate); err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("update order", err)
	}

	if aggregate.Status().IsTerminal() {
		if err := uow.RoutingRepository().Remove(ctx, orderID); err != nil {
			_ = uow.Rollback(ctx)
			return errs.NewPersistenceFailureError("remove routing", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}

	s.deliver(ctx, aggregate)
	return nil
}

// deliver drains the recorded events and dispatches them. The commit already
// happened, so failures are logged and absorbed: retrying the command would
// fail on the state guard, not redo the effects.
func (s *Strategy) deliver(ctx context.Context, aggregate *order.Order) {
	if err := s.notifier.Dispatch(ctx, aggregate.PopEvents()); err != nil {
		s.logger.Warn("post-commit effects incomplete",
			slog.String("order_id", aggregate.ID().String()),
			slog.Any("error", err))
	}
}
