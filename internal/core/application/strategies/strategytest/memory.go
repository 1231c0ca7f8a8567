// Package strategytest provides in-memory implementations of the outbound
// ports. The strategy and lifecycle tests run full order flows against them
// without a database or a broker.
package strategytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// Store is an in-memory stand-in for the persistence adapters: it implements
// the order, routing and history repositories plus the unit-of-work factory.
// Aggregates are stored as snapshots, so callers never share mutable state
// with the store.
type Store struct {
	mu             sync.Mutex
	orders         map[kernel.UUID]order.Snapshot
	routing        map[kernel.UUID]services.StrategyID
	history        map[kernel.UUID][]ports.HistoryRecord
	updateFailures int
}

func NewStore() *Store {
	return &Store{
		orders:  make(map[kernel.UUID]order.Snapshot),
		routing: make(map[kernel.UUID]services.StrategyID),
		history: make(map[kernel.UUID][]ports.HistoryRecord),
	}
}

// --- ports.OrderRepository ---

func (s *Store) Add(_ context.Context, aggregate *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[aggregate.ID()]; ok {
		return errs.NewValueIsInvalidError("order already exists")
	}
	s.orders[aggregate.ID()] = aggregate.Snapshot()
	return nil
}

func (s *Store) Update(_ context.Context, aggregate *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateFailures > 0 {
		s.updateFailures--
		return errs.NewPersistenceFailureError("update order", errors.New("store unavailable"))
	}
	if _, ok := s.orders[aggregate.ID()]; !ok {
		return errs.NewObjectNotFoundError("order", aggregate.ID().String())
	}
	s.orders[aggregate.ID()] = aggregate.Snapshot()
	return nil
}

// FailNextUpdates makes the next n Update calls fail with a persistence
// error, simulating a store that is temporarily unavailable.
func (s *Store) FailNextUpdates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateFailures = n
}

func (s *Store) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	s.mu.Lock()
	snapshot, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return order.FromSnapshot(snapshot)
}

func (s *Store) GetAllCreatingBefore(_ context.Context, cutoff time.Time) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*order.Order
	for _, snapshot := range s.orders {
		if snapshot.Status != order.Creating.String() || snapshot.Abandoned || !snapshot.CreatedAt.Before(cutoff) {
			continue
		}
		aggregate, err := order.FromSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		result = append(result, aggregate)
	}
	return result, nil
}

// --- ports.RoutingRepository ---

func (s *Store) AddRouting(_ context.Context, orderID kernel.UUID, strategy services.StrategyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.routing[orderID]; ok {
		if existing == strategy {
			return nil
		}
		return errs.NewValueIsInvalidError("order is already routed to " + string(existing))
	}
	s.routing[orderID] = strategy
	return nil
}

func (s *Store) GetRouting(_ context.Context, orderID kernel.UUID) (services.StrategyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	strategy, ok := s.routing[orderID]
	if !ok {
		return "", errs.NewRoutingNotFoundError(orderID.String())
	}
	return strategy, nil
}

func (s *Store) RemoveRouting(_ context.Context, orderID kernel.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.routing, orderID)
	return nil
}

// RoutingCount returns the number of live assignments.
func (s *Store) RoutingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.routing)
}

// Routing exposes the store as a ports.RoutingRepository.
func (s *Store) Routing() ports.RoutingRepository {
	return routingView{s}
}

type routingView struct{ store *Store }

func (v routingView) Add(ctx context.Context, orderID kernel.UUID, strategy services.StrategyID) error {
	return v.store.AddRouting(ctx, orderID, strategy)
}

func (v routingView) Get(ctx context.Context, orderID kernel.UUID) (services.StrategyID, error) {
	return v.store.GetRouting(ctx, orderID)
}

func (v routingView) Remove(ctx context.Context, orderID kernel.UUID) error {
	return v.store.RemoveRouting(ctx, orderID)
}

// --- ports.HistoryRepository ---

func (s *Store) Append(_ context.Context, orderID kernel.UUID, records []ports.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.history[orderID]
	next := len(existing) + 1
	for i, record := range records {
		if record.Seq != next+i {
			return fmt.Errorf("history gap: expected seq %d, got %d", next+i, record.Seq)
		}
	}
	s.history[orderID] = append(existing, records...)
	return nil
}

func (s *Store) Load(_ context.Context, orderID kernel.UUID) ([]ports.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.history[orderID]
	out := make([]ports.HistoryRecord, len(records))
	copy(out, records)
	return out, nil
}

// HistoryLen returns the number of history records for the order.
func (s *Store) HistoryLen(orderID kernel.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[orderID])
}

// --- ports.UnitOfWork / UnitOfWorkFactory ---

// Create returns a unit of work backed directly by the store. The in-memory
// store has no transactions; Begin, Commit and Rollback only track pairing.
func (s *Store) Create() ports.UnitOfWork {
	return &memoryUoW{store: s}
}

type memoryUoW struct {
	store *Store
	begun bool
}

func (u *memoryUoW) Begin(context.Context) error {
	if u.begun {
		return errs.NewValueIsInvalidError("transaction already started")
	}
	u.begun = true
	return nil
}

func (u *memoryUoW) Commit(context.Context) error {
	if !u.begun {
		return errs.NewValueIsInvalidError("no active transaction")
	}
	u.begun = false
	return nil
}

func (u *memoryUoW) Rollback(context.Context) error {
	u.begun = false
	return nil
}

func (u *memoryUoW) OrderRepository() ports.OrderRepository { return u.store }

func (u *memoryUoW) RoutingRepository() ports.RoutingRepository { return u.store.Routing() }

// Bus records published events and can be told to fail.
type Bus struct {
	mu     sync.Mutex
	events []order.Event
	Err    error
}

func (b *Bus) Publish(_ context.Context, event order.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.events = append(b.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (b *Bus) Events() []order.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]order.Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventNames returns the names of everything published so far, in order.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.events))
	for i, e := range b.events {
		names[i] = e.Name()
	}
	return names
}

var _ ports.FinanceGateway = (*Finance)(nil)

// Finance records the collaborator calls and can be told to fail.
type Finance struct {
	mu          sync.Mutex
	paidCalls   []order.Snapshot
	charges     []services.Charges
	closedCalls []string
	Err         error
}

func (f *Finance) NotifyOrderPaid(_ context.Context, snapshot order.Snapshot, charges services.Charges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.paidCalls = append(f.paidCalls, snapshot)
	f.charges = append(f.charges, charges)
	return nil
}

func (f *Finance) NotifyOrderClosed(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.closedCalls = append(f.closedCalls, orderID)
	return nil
}

// PaidCalls returns the snapshots of the new-order notifications received.
func (f *Finance) PaidCalls() []order.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]order.Snapshot, len(f.paidCalls))
	copy(out, f.paidCalls)
	return out
}

// Charges returns the charge breakdowns received with the paid notifications.
func (f *Finance) Charges() []services.Charges {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]services.Charges, len(f.charges))
	copy(out, f.charges)
	return out
}

// ClosedCalls returns the order ids of the closed notifications received.
func (f *Finance) ClosedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.closedCalls))
	copy(out, f.closedCalls)
	return out
}

// Kitchen records the orders registered for preparation.
type Kitchen struct {
	mu         sync.Mutex
	registered []order.Snapshot
	Err        error
}

func (k *Kitchen) RegisterOrder(_ context.Context, snapshot order.Snapshot) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return k.Err
	}
	k.registered = append(k.registered, snapshot)
	return nil
}

// Registered returns the snapshots handed to the kitchen.
func (k *Kitchen) Registered() []order.Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]order.Snapshot, len(k.registered))
	copy(out, k.registered)
	return out
}
