// Package durable implements the durable-workflow execution strategy: each
// order is a workflow instance whose history — received signals and completed
// activity results — is the source of truth. Commands arrive as signals; the
// deterministic orchestration is re-executed over the history on every turn,
// so a crashed process resumes any order by replay with nothing lost.
package durable

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

// Strategy adapts the lifecycle command surface to workflow signals. Turns
// for the same order are serialized with a per-order lock, keeping the
// history sequence gapless under concurrent commands; different orders run
// fully in parallel.
type Strategy struct {
	engine *Engine
	orders ports.OrderRepository
	clock  func() time.Time

	mu    sync.Mutex
	locks map[kernel.UUID]*orderLock
}

type orderLock struct {
	sync.Mutex
	refs int
}

func NewStrategy(
	uowFactory ports.UnitOfWorkFactory,
	orders ports.OrderRepository,
	history ports.HistoryRepository,
	notifier *lifecycle.Notifier,
	logger *slog.Logger,
) (*Strategy, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if orders == nil {
		return nil, errs.NewValueIsRequiredError("orders")
	}
	if history == nil {
		return nil, errs.NewValueIsRequiredError("history")
	}
	if notifier == nil {
		return nil, errs.NewValueIsRequiredError("notifier")
	}
	if logger == nil {
		logger = slog.Default()
	}

	executor := &activities{uowFactory: uowFactory, notifier: notifier}
	clock := time.Now

	s := &Strategy{
		orders: orders,
		clock:  clock,
		locks:  make(map[kernel.UUID]*orderLock),
	}
	s.engine = newEngine(history, executor.Execute, func() time.Time { return s.clock() }, logger)

	return s, nil
}

// WithClock replaces the wall clock. Tests use it to make signal receipt
// times deterministic.
func (s *Strategy) WithClock(clock func() time.Time) *Strategy {
	s.clock = clock
	return s
}

func (s *Strategy) CreateOrder(ctx context.Context, orderID kernel.UUID, fulfillment order.Fulfillment) error {
	return s.signal(ctx, orderID, signalCreateOrder, signalPayload{Fulfillment: fulfillment.String()})
}

func (s *Strategy) AssignCustomer(ctx context.Context, orderID kernel.UUID, customer order.Customer) error {
	snapshot := order.CustomerSnapshot{
		FirstName:  customer.FirstName(),
		LastName:   customer.LastName(),
		LoyaltyRef: customer.LoyaltyRef(),
	}
	if a := customer.InvoiceAddress(); a != nil {
		snapshot.InvoiceAddress = &order.AddressSnapshot{Street: a.Street(), City: a.City(), Zip: a.Zip()}
	}
	if a := customer.DeliveryAddress(); a != nil {
		snapshot.DeliveryAddress = &order.AddressSnapshot{Street: a.Street(), City: a.City(), Zip: a.Zip()}
	}
	return s.signal(ctx, orderID, signalAssignCustomer, signalPayload{Customer: &snapshot})
}

func (s *Strategy) AssignInvoiceAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.signal(ctx, orderID, signalAssignInvoiceAddress, signalPayload{
		Address: &order.AddressSnapshot{Street: address.Street(), City: address.City(), Zip: address.Zip()},
	})
}

func (s *Strategy) AssignDeliveryAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error {
	return s.signal(ctx, orderID, signalAssignDeliveryAddress, signalPayload{
		Address: &order.AddressSnapshot{Street: address.Street(), City: address.City(), Zip: address.Zip()},
	})
}

func (s *Strategy) AddItem(ctx context.Context, orderID kernel.UUID, input lifecycle.ItemInput) error {
	if _, err := input.Item(); err != nil {
		return err
	}
	return s.signal(ctx, orderID, signalAddItem, signalPayload{Item: &itemPayload{
		ID:         input.ID.String(),
		ProductRef: input.ProductRef,
		Quantity:   input.Quantity,
		UnitPrice:  input.UnitPrice,
		Comment:    input.Comment,
	}})
}

func (s *Strategy) RemoveItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.signal(ctx, orderID, signalRemoveItem, signalPayload{ItemID: itemID.String()})
}

func (s *Strategy) ConfirmOrder(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalConfirmOrder, signalPayload{})
}

func (s *Strategy) ConfirmPayment(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalConfirmPayment, signalPayload{})
}

func (s *Strategy) StartProcessing(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalStartProcessing, signalPayload{})
}

func (s *Strategy) FinishItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error {
	return s.signal(ctx, orderID, signalFinishItem, signalPayload{ItemID: itemID.String()})
}

func (s *Strategy) Serve(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalServe, signalPayload{})
}

func (s *Strategy) StartDelivery(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalStartDelivery, signalPayload{})
}

func (s *Strategy) Delivered(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalDelivered, signalPayload{})
}

func (s *Strategy) MarkAbandoned(ctx context.Context, orderID kernel.UUID) error {
	return s.signal(ctx, orderID, signalMarkAbandoned, signalPayload{})
}

// GetOrder reads the last committed snapshot. The persist_snapshot activity
// runs in every turn, so the store tracks the workflow turn by turn.
func (s *Strategy) GetOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *Strategy) signal(ctx context.Context, orderID kernel.UUID, name string, payload signalPayload) error {
	lock := s.acquire(orderID)
	defer s.release(orderID, lock)

	return s.engine.Signal(ctx, orderID, signal{
		Name:    name,
		At:      s.clock().UTC(),
		Payload: payload,
	})
}

func (s *Strategy) acquire(orderID kernel.UUID) *orderLock {
	s.mu.Lock()
	lock, ok := s.locks[orderID]
	if !ok {
		lock = &orderLock{}
		s.locks[orderID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.Lock()
	return lock
}

func (s *Strategy) release(orderID kernel.UUID, lock *orderLock) {
	lock.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, orderID)
	}
	s.mu.Unlock()
}
