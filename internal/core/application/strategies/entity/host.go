// Package entity implements the stateful-entity execution strategy: each
// in-flight order is hosted by a dedicated in-memory actor whose mailbox
// serializes commands into turns. The aggregate lives in memory between
// commands and is persisted after every turn, so a restarted process
// re-activates entities from the store with no state loss.
package entity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

const mailboxCapacity = 64

// DefaultRecoveryWindow is how long an order may sit in Creating before the
// entity flags it abandoned.
const DefaultRecoveryWindow = 30 * time.Minute

// Host manages the entity actors: it activates one per order on demand,
// routes commands to mailboxes, and passivates entities when their order
// closes. It implements the full lifecycle capability surface.
type Host struct {
	uowFactory     ports.UnitOfWorkFactory
	orders         ports.OrderRepository
	notifier       *lifecycle.Notifier
	clock          func() time.Time
	recoveryWindow time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	entities map[kernel.UUID]*entity
	shutdown chan struct{}
	stopped  bool
}

func NewHost(
	uowFactory ports.UnitOfWorkFactory,
	orders ports.OrderRepository,
	notifier *lifecycle.Notifier,
	recoveryWindow time.Duration,
	logger *slog.Logger,
) (*Host, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if orders == nil {
		return nil, errs.NewValueIsRequiredError("orders")
	}
	if notifier == nil {
		return nil, errs.NewValueIsRequiredError("notifier")
	}
	if recoveryWindow <= 0 {
		recoveryWindow = DefaultRecoveryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Host{
		uowFactory:     uowFactory,
		orders:         orders,
		notifier:       notifier,
		clock:          time.Now,
		recoveryWindow: recoveryWindow,
		logger:         logger,
		entities:       make(map[kernel.UUID]*entity),
		shutdown:       make(chan struct{}),
	}, nil
}

// WithClock replaces the wall clock. Tests use it to make timestamps
// deterministic.
func (h *Host) WithClock(clock func() time.Time) *Host {
	h.clock = clock
	return h
}

// Stop shuts the host down: entities finish their current turn and exit.
// Pending mailbox envelopes are dropped; their orders re-activate from the
// last persisted state on the next command.
func (h *Host) Stop() {
	h.mu.Lock()
	if !h.stopped {
		h.stopped = true
		close(h.shutdown)
	}
	entities := make([]*entity, 0, len(h.entities))
	for _, e := range h.entities {
		entities = append(entities, e)
	}
	h.mu.Unlock()

	for _, e := range entities {
		<-e.done
	}
}

// CreateOrder persists the new order first and then activates its entity,
// so a crash mid-creation leaves a store row the recovery sweep can find.
func (h *Host) CreateOrder(ctx context.Context, orderID kernel.UUID, fulfillment order.Fulfillment) error {
	aggregate, err := order.NewOrder(orderID, fulfillment, h.clock())
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}
	if err := uow.OrderRepository().Add(ctx, aggregate); err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("add order", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}

	h.deliver(aggregate)

	_, err = h.activate(ctx, orderID)
	return err
}

func (h *Host) AssignCustomer(ctx context.Context, orderID kernel.UUID, customer order.Customer) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignCustomer(customer, now)
	})
}

func (h *Host) AssignInvoiceAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignInvoiceAddress(address, now)
	})
}

func (h *Host) AssignDeliveryAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignDeliveryAddress(address, now)
	})
}

func (h *Host) AddItem(ctx context.Context, orderID kernel.UUID, input lifecycle.ItemInput) error {
	return h.tell(ctx, orderID, itemInputFactory(input))
}

func (h *Host) RemoveItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.RemoveItem(itemID, now)
	})
}

func (h *Host) ConfirmOrder(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Confirm(now)
	})
}

func (h *Host) ConfirmPayment(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.ConfirmPayment(now)
	})
}

func (h *Host) StartProcessing(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.StartProcessing(now)
	})
}

func (h *Host) FinishItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.FinishItem(itemID, now)
	})
}

func (h *Host) Serve(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Serve(now)
	})
}

func (h *Host) StartDelivery(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.StartDelivery(now)
	})
}

func (h *Host) Delivered(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Delivered(now)
	})
}

// MarkAbandoned exists for interface parity; the entity's own recovery
// timer normally flags its orders before anything external does.
func (h *Host) MarkAbandoned(ctx context.Context, orderID kernel.UUID) error {
	return h.tell(ctx, orderID, func(o *order.Order, now time.Time) error {
		o.MarkAbandoned(now)
		return nil
	})
}

// GetOrder reads the last committed state from the store. Entities persist
// after every turn, so the store never lags behind a completed command.
func (h *Host) GetOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	return h.orders.Get(ctx, orderID)
}

// tell queues a command on the order's mailbox and waits for the turn result.
func (h *Host) tell(ctx context.Context, orderID kernel.UUID, command func(*order.Order, time.Time) error) error {
	e, err := h.activate(ctx, orderID)
	if err != nil {
		return err
	}

	env := envelope{command: command, reply: make(chan error, 1)}

	select {
	case e.mailbox <- env:
	case <-e.done:
		// Entity passivated between lookup and enqueue. Retry once against a
		// fresh activation; a terminal order fails the state guard inside it.
		return h.tell(ctx, orderID, command)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.reply:
		return err
	case <-e.done:
		// The entity exited. The reply is buffered, so if the turn ran its
		// result is already there; otherwise the envelope was dropped and the
		// command retries against a fresh activation.
		select {
		case err := <-env.reply:
			return err
		default:
			return h.tell(ctx, orderID, command)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activate returns the running entity for the order, loading the aggregate
// from the store on first contact.
func (h *Host) activate(ctx context.Context, orderID kernel.UUID) (*entity, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, errs.NewValueIsInvalidError("host is stopped")
	}
	if e, ok := h.entities[orderID]; ok {
		h.mu.Unlock()
		return e, nil
	}
	h.mu.Unlock()

	aggregate, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, errs.NewValueIsInvalidError("host is stopped")
	}
	if e, ok := h.entities[orderID]; ok {
		// Lost the activation race; the winner's aggregate is authoritative.
		return e, nil
	}

	e := newEntity(h, aggregate)
	h.entities[orderID] = e
	go e.run()

	h.logger.Debug("entity activated",
		slog.String("order_id", orderID.String()),
		slog.String("status", aggregate.Status().String()))

	return e, nil
}

func (h *Host) passivate(orderID kernel.UUID) {
	h.mu.Lock()
	delete(h.entities, orderID)
	h.mu.Unlock()

	h.logger.Debug("entity passivated", slog.String("order_id", orderID.String()))
}

func (h *Host) deliver(aggregate *order.Order) {
	if err := h.notifier.Dispatch(context.Background(), aggregate.PopEvents()); err != nil {
		h.logger.Warn("post-commit effects incomplete",
			slog.String("order_id", aggregate.ID().String()),
			slog.Any("error", err))
	}
}
