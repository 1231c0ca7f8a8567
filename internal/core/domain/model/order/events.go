package order

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
)

// Domain event names. They double as the routing key on the event bus,
// published under the "orders." subject prefix.
const (
	EventOrderCreated           = "order.created"
	EventOrderUpdated           = "order.updated"
	EventOrderConfirmed         = "order.confirmed"
	EventOrderPaid              = "order.paid"
	EventOrderProcessingUpdated = "order.processing_updated"
	EventOrderPrepared          = "order.prepared"
	EventOrderClosed            = "order.closed"
)

// Event is a domain event recorded by the Order aggregate. Events are
// collected while a command executes and drained by the owning execution
// strategy, which publishes them after the state change is committed.
// Delivery to consumers is at-least-once.
type Event struct {
	name       string
	orderID    kernel.UUID
	itemID     *kernel.UUID
	occurredAt time.Time
	snapshot   Snapshot
}

// RestoreEvent rebuilds an event from recorded attributes. Used when events
// are replayed from a persisted workflow history rather than drained live
// from the aggregate.
func RestoreEvent(name string, orderID kernel.UUID, itemID *kernel.UUID, occurredAt time.Time, snapshot Snapshot) Event {
	return Event{
		name:       name,
		orderID:    orderID,
		itemID:     itemID,
		occurredAt: occurredAt,
		snapshot:   snapshot,
	}
}

// Name returns the event name, e.g. "order.paid".
func (e Event) Name() string { return e.name }

// OrderID returns the identifier of the order the event belongs to.
func (e Event) OrderID() kernel.UUID { return e.orderID }

// ItemID returns the item the event refers to, nil for order-level events.
func (e Event) ItemID() *kernel.UUID { return e.itemID }

// OccurredAt returns the time the command that produced the event executed.
func (e Event) OccurredAt() time.Time { return e.occurredAt }

// Snapshot returns the order state captured when the event was recorded.
func (e Event) Snapshot() Snapshot { return e.snapshot }

// ItemSnapshot is the serializable representation of an order item.
type ItemSnapshot struct {
	ID         string  `json:"id"`
	ProductRef string  `json:"product_ref"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Comment    string  `json:"comment,omitempty"`
	Status     string  `json:"status"`
}

// AddressSnapshot is the serializable representation of an address.
type AddressSnapshot struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip,omitempty"`
}

// CustomerSnapshot is the serializable representation of an order's customer.
type CustomerSnapshot struct {
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	LoyaltyRef      string           `json:"loyalty_ref,omitempty"`
	InvoiceAddress  *AddressSnapshot `json:"invoice_address,omitempty"`
	DeliveryAddress *AddressSnapshot `json:"delivery_address,omitempty"`
}

// FromSnapshot rebuilds the aggregate from its serialized form. It is the
// inverse of Order.Snapshot and records no events.
func FromSnapshot(s Snapshot) (*Order, error) {
	id, err := kernel.UUIDFromString(s.ID)
	if err != nil {
		return nil, err
	}
	fulfillment, err := FulfillmentFromString(s.Fulfillment)
	if err != nil {
		return nil, err
	}
	status, err := StatusFromString(s.Status)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(s.Items))
	for _, is := range s.Items {
		itemID, err := kernel.UUIDFromString(is.ID)
		if err != nil {
			return nil, err
		}
		itemStatus, err := ItemStatusFromString(is.Status)
		if err != nil {
			return nil, err
		}
		item, err := RestoreItem(itemID, is.ProductRef, is.Quantity, is.UnitPrice, is.Comment, itemStatus)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var customer *Customer
	if s.Customer != nil {
		toAddress := func(a *AddressSnapshot) (*Address, error) {
			if a == nil {
				return nil, nil
			}
			address, err := NewAddress(a.Street, a.City, a.Zip)
			if err != nil {
				return nil, err
			}
			return &address, nil
		}
		invoice, err := toAddress(s.Customer.InvoiceAddress)
		if err != nil {
			return nil, err
		}
		delivery, err := toAddress(s.Customer.DeliveryAddress)
		if err != nil {
			return nil, err
		}
		restored, err := RestoreCustomer(s.Customer.FirstName, s.Customer.LastName, s.Customer.LoyaltyRef, invoice, delivery)
		if err != nil {
			return nil, err
		}
		customer = &restored
	}

	return RestoreOrder(RestoreOrderParams{
		ID:                id,
		Reference:         s.Reference,
		Fulfillment:       fulfillment,
		Status:            status,
		Items:             items,
		Customer:          customer,
		Abandoned:         s.Abandoned,
		CreatedAt:         s.CreatedAt,
		PaidAt:            s.PaidAt,
		StartProcessingAt: s.StartProcessingAt,
		PreparedAt:        s.PreparedAt,
		DeliveredAt:       s.DeliveredAt,
		ClosedAt:          s.ClosedAt,
	})
}

// Snapshot is the serializable representation of the full order aggregate.
// It is the payload of every domain event and the unit persisted by the
// execution strategies.
type Snapshot struct {
	ID                string            `json:"id"`
	Reference         string            `json:"reference"`
	Fulfillment       string            `json:"fulfillment"`
	Status            string            `json:"status"`
	Items             []ItemSnapshot    `json:"items"`
	Customer          *CustomerSnapshot `json:"customer,omitempty"`
	Total             float64           `json:"total"`
	Abandoned         bool              `json:"abandoned,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	StartProcessingAt *time.Time        `json:"start_processing_at,omitempty"`
	PreparedAt        *time.Time        `json:"prepared_at,omitempty"`
	DeliveredAt       *time.Time        `json:"delivered_at,omitempty"`
	ClosedAt          *time.Time        `json:"closed_at,omitempty"`
}
