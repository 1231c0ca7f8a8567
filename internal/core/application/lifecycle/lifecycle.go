// Package lifecycle defines the capability interface every execution
// strategy implements, the dispatching service that routes commands to the
// strategy owning an order, and the shared side-effect notifier used by all
// strategies after a committed state change.
package lifecycle

import (
	"context"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
)

// ItemInput carries the attributes of a line item being added to an order.
// The item id is supplied by the caller and acts as the idempotency key for
// redelivered AddItem commands.
type ItemInput struct {
	ID         kernel.UUID
	ProductRef string
	Quantity   int
	UnitPrice  float64
	Comment    string
}

// Item builds the domain entity from the input.
func (in ItemInput) Item() (*order.Item, error) {
	return order.NewItem(in.ID, in.ProductRef, in.Quantity, in.UnitPrice, in.Comment)
}

// OrderLifecycle is the capability interface of an execution strategy: the
// full command surface of the order state machine plus the read of the last
// committed aggregate. All three strategies expose identical behavior —
// same states, same events, same idempotency guarantees — and differ only in
// durability and concurrency model. Commands issued from the wrong state
// fail with errs.InvalidStateTransitionError and must not be retried;
// persistence failures may be retried with the same idempotent command.
type OrderLifecycle interface {
	// CreateOrder starts the lifecycle of a new order. The id is generated
	// upstream so that routing can be assigned before the strategy is invoked.
	CreateOrder(ctx context.Context, orderID kernel.UUID, fulfillment order.Fulfillment) error

	AssignCustomer(ctx context.Context, orderID kernel.UUID, customer order.Customer) error
	AssignInvoiceAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error
	AssignDeliveryAddress(ctx context.Context, orderID kernel.UUID, address order.Address) error
	AddItem(ctx context.Context, orderID kernel.UUID, item ItemInput) error
	RemoveItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error
	ConfirmOrder(ctx context.Context, orderID kernel.UUID) error
	ConfirmPayment(ctx context.Context, orderID kernel.UUID) error
	StartProcessing(ctx context.Context, orderID kernel.UUID) error
	FinishItem(ctx context.Context, orderID kernel.UUID, itemID kernel.UUID) error
	Serve(ctx context.Context, orderID kernel.UUID) error
	StartDelivery(ctx context.Context, orderID kernel.UUID) error
	Delivered(ctx context.Context, orderID kernel.UUID) error

	// MarkAbandoned flags an order whose creation stalled past the recovery
	// window. Detection only: the order stays in Creating and remains fully
	// commandable. Idempotent, and a no-op once the order left Creating.
	MarkAbandoned(ctx context.Context, orderID kernel.UUID) error

	// GetOrder returns the last fully committed aggregate; partial state is
	// never exposed.
	GetOrder(ctx context.Context, orderID kernel.UUID) (*order.Order, error)
}
