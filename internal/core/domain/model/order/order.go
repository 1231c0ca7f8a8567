package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
)

// ErrOrderIsNotConstructed is returned when an Order instance was not created
// through the NewOrder or RestoreOrder factory methods. This ensures all
// orders are properly validated.
var ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

// ErrOrderHasNoItems is returned when an order without items is confirmed.
var ErrOrderHasNoItems = errors.New("order cannot be confirmed without items")

// Command names, used in InvalidStateTransition errors and logs.
const (
	CommandCreateOrder           = "CreateOrder"
	CommandAssignCustomer        = "AssignCustomer"
	CommandAssignInvoiceAddress  = "AssignInvoiceAddress"
	CommandAssignDeliveryAddress = "AssignDeliveryAddress"
	CommandAddItem               = "AddItem"
	CommandRemoveItem            = "RemoveItem"
	CommandConfirmOrder          = "ConfirmOrder"
	CommandConfirmPayment        = "ConfirmPayment"
	CommandStartProcessing       = "StartProcessing"
	CommandFinishItem            = "FinishItem"
	CommandServe                 = "Serve"
	CommandStartDelivery         = "StartDelivery"
	CommandDelivered             = "Delivered"
)

// Order represents a food order in the system. It is the aggregate root that
// manages the order lifecycle from creation through payment and preparation
// to close.
//
// Order follows these invariants:
//   - Must have a valid unique identifier and fulfillment type
//   - Status transitions only move forward through the state graph
//   - Each lifecycle timestamp is set exactly once and never decreases
//   - The order becomes Prepared if and only if every item is finished
//   - Can only be created through NewOrder or RestoreOrder
//
// The aggregate is pure: commands never touch a clock, a store or a bus.
// The current time is passed in by the caller, and side effects happen in
// the execution strategy that hosts the aggregate. Every successful command
// records the domain events of the lifecycle table; strategies drain them
// with PopEvents after persisting the new state.
type Order struct {
	id          kernel.UUID
	reference   string
	fulfillment Fulfillment
	status      Status
	items       []*Item
	customer    *Customer
	abandoned   bool

	createdAt         time.Time
	paidAt            time.Time
	startProcessingAt time.Time
	preparedAt        time.Time
	deliveredAt       time.Time
	closedAt          time.Time

	events []Event

	isConstructed bool
}

// NewOrder creates a new Order in Creating status. The human-readable
// reference code is derived from the identifier so that retried creation
// calls produce the same code. Records an OrderCreated event.
func NewOrder(id kernel.UUID, fulfillment Fulfillment, now time.Time) (*Order, error) {
	if err := errors.Join(id.Validate(), fulfillment.Validate()); err != nil {
		return nil, err
	}

	o := &Order{
		id:            id,
		reference:     ReferenceFromID(id),
		fulfillment:   fulfillment,
		status:        Creating,
		createdAt:     now.UTC(),
		isConstructed: true,
	}
	o.recordEvent(EventOrderCreated, o.createdAt, nil)
	return o, nil
}

// ReferenceFromID derives the human-readable reference code from an order id.
// The code is stable for a given id across retries.
func ReferenceFromID(id kernel.UUID) string {
	raw := strings.ReplaceAll(id.String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

// RestoreOrderParams carries the persisted state needed to rebuild an order.
type RestoreOrderParams struct {
	ID          kernel.UUID
	Reference   string
	Fulfillment Fulfillment
	Status      Status
	Items       []*Item
	Customer    *Customer
	Abandoned   bool

	CreatedAt         time.Time
	PaidAt            *time.Time
	StartProcessingAt *time.Time
	PreparedAt        *time.Time
	DeliveredAt       *time.Time
	ClosedAt          *time.Time
}

// RestoreOrder reconstructs an order from persistence without replaying its
// history and without recording events.
func RestoreOrder(p RestoreOrderParams) (*Order, error) {
	if err := errors.Join(p.ID.Validate(), p.Fulfillment.Validate(), p.Status.Validate()); err != nil {
		return nil, err
	}
	for _, item := range p.Items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	o := &Order{
		id:            p.ID,
		reference:     p.Reference,
		fulfillment:   p.Fulfillment,
		status:        p.Status,
		items:         p.Items,
		customer:      p.Customer,
		abandoned:     p.Abandoned,
		createdAt:     p.CreatedAt,
		isConstructed: true,
	}
	if o.reference == "" {
		o.reference = ReferenceFromID(p.ID)
	}
	setIfPresent := func(dst *time.Time, src *time.Time) {
		if src != nil {
			*dst = *src
		}
	}
	setIfPresent(&o.paidAt, p.PaidAt)
	setIfPresent(&o.startProcessingAt, p.StartProcessingAt)
	setIfPresent(&o.preparedAt, p.PreparedAt)
	setIfPresent(&o.deliveredAt, p.DeliveredAt)
	setIfPresent(&o.closedAt, p.ClosedAt)

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// AssignCustomer attaches a customer to the order. Allowed only while Creating.
func (o *Order) AssignCustomer(customer Customer, now time.Time) error {
	if err := o.ensureStatus(CommandAssignCustomer, Creating); err != nil {
		return err
	}

	if o.customer != nil {
		customer.invoiceAddress = o.customer.invoiceAddress
		customer.deliveryAddress = o.customer.deliveryAddress
	}
	o.customer = &customer
	o.recordEvent(EventOrderUpdated, now, nil)
	return nil
}

// AssignInvoiceAddress sets the invoice address. Allowed only while Creating.
// When no customer has been assigned yet, the address is attached to an empty
// customer record; the creation phase imposes no command order beyond the
// state machine.
func (o *Order) AssignInvoiceAddress(address Address, now time.Time) error {
	if err := o.ensureStatus(CommandAssignInvoiceAddress, Creating); err != nil {
		return err
	}
	if err := address.Validate(); err != nil {
		return err
	}

	o.ensureCustomer()
	o.customer.invoiceAddress = &address
	o.recordEvent(EventOrderUpdated, now, nil)
	return nil
}

// AssignDeliveryAddress sets the delivery address. Allowed only while Creating.
func (o *Order) AssignDeliveryAddress(address Address, now time.Time) error {
	if err := o.ensureStatus(CommandAssignDeliveryAddress, Creating); err != nil {
		return err
	}
	if err := address.Validate(); err != nil {
		return err
	}

	o.ensureCustomer()
	o.customer.deliveryAddress = &address
	o.recordEvent(EventOrderUpdated, now, nil)
	return nil
}

// AddItem appends an item to the order. Allowed only while Creating.
//
// The command is idempotent two ways: an item with the same id is already
// present means the command was redelivered and is a no-op, while an item
// with the same product reference absorbs the new quantity instead of
// producing a duplicate line.
func (o *Order) AddItem(item *Item, now time.Time) error {
	if err := o.ensureStatus(CommandAddItem, Creating); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	for _, existing := range o.items {
		if existing.ID().IsEqual(item.ID()) {
			return nil
		}
	}
	for _, existing := range o.items {
		if existing.ProductRef() == item.ProductRef() {
			existing.merge(item.Quantity())
			o.recordEvent(EventOrderUpdated, now, nil)
			return nil
		}
	}

	o.items = append(o.items, item)
	o.recordEvent(EventOrderUpdated, now, nil)
	return nil
}

// RemoveItem removes an item by id. Allowed only while Creating.
// Removing an absent item is a no-op so redelivered commands do not fail.
func (o *Order) RemoveItem(itemID kernel.UUID, now time.Time) error {
	if err := o.ensureStatus(CommandRemoveItem, Creating); err != nil {
		return err
	}

	for i, item := range o.items {
		if item.ID().IsEqual(itemID) {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.recordEvent(EventOrderUpdated, now, nil)
			return nil
		}
	}
	return nil
}

// Confirm moves the order from Creating to Confirmed. The order must contain
// at least one item. Records an OrderConfirmed event.
func (o *Order) Confirm(now time.Time) error {
	if err := o.ensureStatus(CommandConfirmOrder, Creating); err != nil {
		return err
	}
	if len(o.items) == 0 {
		return ErrOrderHasNoItems
	}

	o.status = Confirmed
	o.recordEvent(EventOrderConfirmed, now, nil)
	return nil
}

// ConfirmPayment moves the order from Confirmed to Paid and stamps paidAt.
// Records an OrderPaid event; the owning strategy additionally notifies the
// finance collaborator.
func (o *Order) ConfirmPayment(now time.Time) error {
	if err := o.ensureStatus(CommandConfirmPayment, Confirmed); err != nil {
		return err
	}

	o.status = Paid
	o.paidAt = o.stamp(now)
	o.recordEvent(EventOrderPaid, o.paidAt, nil)
	return nil
}

// StartProcessing moves the order from Paid to Processing and stamps
// startProcessingAt. Records an OrderProcessingUpdated event.
func (o *Order) StartProcessing(now time.Time) error {
	if err := o.ensureStatus(CommandStartProcessing, Paid); err != nil {
		return err
	}

	o.status = Processing
	o.startProcessingAt = o.stamp(now)
	o.recordEvent(EventOrderProcessingUpdated, o.startProcessingAt, nil)
	return nil
}

// FinishItem marks one item as finished by the kitchen. Allowed only while
// Processing; an unknown item id fails with ItemNotFound. When the last item
// finishes, the order becomes Prepared exactly once and an OrderPrepared
// event is recorded in addition to OrderProcessingUpdated.
func (o *Order) FinishItem(itemID kernel.UUID, now time.Time) error {
	if err := o.ensureStatus(CommandFinishItem, Processing); err != nil {
		return err
	}

	var found *Item
	for _, item := range o.items {
		if item.ID().IsEqual(itemID) {
			found = item
			break
		}
	}
	if found == nil {
		return errs.NewItemNotFoundError(o.id.String(), itemID.String())
	}

	found.finish()
	at := o.stamp(now)
	o.recordEvent(EventOrderProcessingUpdated, at, &itemID)

	if o.allItemsFinished() {
		o.status = Prepared
		o.preparedAt = at
		o.recordEvent(EventOrderPrepared, at, nil)
	}
	return nil
}

// Serve closes a dine-in or take-away order that has been prepared.
// Records an OrderClosed event; the owning strategy additionally closes the
// order with the finance collaborator.
func (o *Order) Serve(now time.Time) error {
	if err := o.ensureStatus(CommandServe, Prepared); err != nil {
		return err
	}
	if o.fulfillment == Delivery {
		return errs.NewInvalidStateTransitionError(o.id.String(), CommandServe,
			fmt.Sprintf("%s/%s", o.status, o.fulfillment))
	}

	o.status = Closed
	o.closedAt = o.stamp(now)
	o.recordEvent(EventOrderClosed, o.closedAt, nil)
	return nil
}

// StartDelivery moves a prepared delivery order to Delivering.
func (o *Order) StartDelivery(now time.Time) error {
	if err := o.ensureStatus(CommandStartDelivery, Prepared); err != nil {
		return err
	}
	if o.fulfillment != Delivery {
		return errs.NewInvalidStateTransitionError(o.id.String(), CommandStartDelivery,
			fmt.Sprintf("%s/%s", o.status, o.fulfillment))
	}

	o.status = Delivering
	o.recordEvent(EventOrderProcessingUpdated, o.stamp(now), nil)
	return nil
}

// Delivered closes a delivery order, stamping deliveredAt and closedAt with
// the same instant. Records an OrderClosed event.
func (o *Order) Delivered(now time.Time) error {
	if err := o.ensureStatus(CommandDelivered, Delivering); err != nil {
		return err
	}

	at := o.stamp(now)
	o.status = Closed
	o.deliveredAt = at
	o.closedAt = at
	o.recordEvent(EventOrderClosed, at, nil)
	return nil
}

// MarkAbandoned flags an order whose creation stalled. The recovery timer
// only detects; it never cancels, so the status is left untouched.
func (o *Order) MarkAbandoned(now time.Time) {
	if o.abandoned || o.status != Creating {
		return
	}
	o.abandoned = true
	o.recordEvent(EventOrderUpdated, o.stamp(now), nil)
}

// PopEvents drains and returns the events recorded since the last drain.
func (o *Order) PopEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID { return o.id }

// Reference returns the human-readable reference code.
func (o *Order) Reference() string { return o.reference }

// FulfillmentType returns how the order reaches the customer.
func (o *Order) FulfillmentType() Fulfillment { return o.fulfillment }

// Status returns the current lifecycle status.
func (o *Order) Status() Status { return o.status }

// Items returns the ordered line items. The slice is a copy; the items are shared.
func (o *Order) Items() []*Item {
	items := make([]*Item, len(o.items))
	copy(items, o.items)
	return items
}

// Customer returns the attached customer, nil when none was assigned.
func (o *Order) Customer() *Customer { return o.customer }

// Abandoned reports whether the recovery timer flagged the order.
func (o *Order) Abandoned() bool { return o.abandoned }

// Total returns the sum of all item totals.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.items {
		total += item.Total()
	}
	return total
}

// CreatedAt returns the creation timestamp.
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// PaidAt returns the payment timestamp, zero when not paid.
func (o *Order) PaidAt() time.Time { return o.paidAt }

// StartProcessingAt returns the processing-start timestamp, zero when not started.
func (o *Order) StartProcessingAt() time.Time { return o.startProcessingAt }

// PreparedAt returns the prepared timestamp, zero when not prepared.
func (o *Order) PreparedAt() time.Time { return o.preparedAt }

// DeliveredAt returns the delivered timestamp, zero when not delivered.
func (o *Order) DeliveredAt() time.Time { return o.deliveredAt }

// ClosedAt returns the close timestamp, zero while the order is open.
func (o *Order) ClosedAt() time.Time { return o.closedAt }

// Snapshot captures the current aggregate state in its serializable form.
func (o *Order) Snapshot() Snapshot {
	items := make([]ItemSnapshot, len(o.items))
	for i, item := range o.items {
		items[i] = ItemSnapshot{
			ID:         item.ID().String(),
			ProductRef: item.ProductRef(),
			Quantity:   item.Quantity(),
			UnitPrice:  item.UnitPrice(),
			Comment:    item.Comment(),
			Status:     item.Status().String(),
		}
	}

	snap := Snapshot{
		ID:          o.id.String(),
		Reference:   o.reference,
		Fulfillment: o.fulfillment.String(),
		Status:      o.status.String(),
		Items:       items,
		Total:       o.Total(),
		Abandoned:   o.abandoned,
		CreatedAt:   o.createdAt,
	}
	if o.customer != nil {
		snap.Customer = customerSnapshot(o.customer)
	}
	setIfSet := func(dst **time.Time, src time.Time) {
		if !src.IsZero() {
			t := src
			*dst = &t
		}
	}
	setIfSet(&snap.PaidAt, o.paidAt)
	setIfSet(&snap.StartProcessingAt, o.startProcessingAt)
	setIfSet(&snap.PreparedAt, o.preparedAt)
	setIfSet(&snap.DeliveredAt, o.deliveredAt)
	setIfSet(&snap.ClosedAt, o.closedAt)
	return snap
}

func customerSnapshot(c *Customer) *CustomerSnapshot {
	snap := &CustomerSnapshot{
		FirstName:  c.firstName,
		LastName:   c.lastName,
		LoyaltyRef: c.loyaltyRef,
	}
	if c.invoiceAddress != nil {
		snap.InvoiceAddress = &AddressSnapshot{
			Street: c.invoiceAddress.street, City: c.invoiceAddress.city, Zip: c.invoiceAddress.zip,
		}
	}
	if c.deliveryAddress != nil {
		snap.DeliveryAddress = &AddressSnapshot{
			Street: c.deliveryAddress.street, City: c.deliveryAddress.city, Zip: c.deliveryAddress.zip,
		}
	}
	return snap
}

// ensureStatus gates a command on its allowed source states.
func (o *Order) ensureStatus(command string, allowed ...Status) error {
	if err := o.Validate(); err != nil {
		return err
	}
	for _, s := range allowed {
		if o.status == s {
			return nil
		}
	}
	return errs.NewInvalidStateTransitionError(o.id.String(), command, o.status.String())
}

// stamp keeps lifecycle timestamps monotonically non-decreasing even when the
// caller's clock skews behind an earlier command.
func (o *Order) stamp(now time.Time) time.Time {
	at := now.UTC()
	for _, prev := range []time.Time{o.createdAt, o.paidAt, o.startProcessingAt, o.preparedAt, o.deliveredAt, o.closedAt} {
		if at.Before(prev) {
			at = prev
		}
	}
	return at
}

func (o *Order) allItemsFinished() bool {
	for _, item := range o.items {
		if !item.IsFinished() {
			return false
		}
	}
	return len(o.items) > 0
}

func (o *Order) ensureCustomer() {
	if o.customer == nil {
		o.customer = &Customer{}
	}
}

func (o *Order) recordEvent(name string, at time.Time, itemID *kernel.UUID) {
	o.events = append(o.events, Event{
		name:       name,
		orderID:    o.id,
		itemID:     itemID,
		occurredAt: at.UTC(),
		snapshot:   o.Snapshot(),
	})
}
