package order

import (
	"errors"
	"fmt"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"
)

// ErrItemIsNotConstructed is returned when an Item instance was not created
// through the NewItem factory method.
var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem constructor")

// ItemStatus represents the preparation state of a single order item.
type ItemStatus int

const (
	// ItemStatusUnknown represents an invalid or undefined item status.
	ItemStatusUnknown ItemStatus = iota

	// AwaitingPreparation is the initial item status.
	AwaitingPreparation

	// ItemFinished indicates the kitchen has finished preparing the item.
	ItemFinished
)

// String returns the human-readable name of the item status.
func (s ItemStatus) String() string {
	switch s {
	case AwaitingPreparation:
		return "AwaitingPreparation"
	case ItemFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// ItemStatusFromString parses an item status from its string form.
func ItemStatusFromString(s string) (ItemStatus, error) {
	switch s {
	case "AwaitingPreparation":
		return AwaitingPreparation, nil
	case "Finished":
		return ItemFinished, nil
	default:
		return ItemStatusUnknown, errs.NewValueIsInvalidErrorWithCause(
			"item status is invalid",
			fmt.Errorf("%q is not a valid item status", s),
		)
	}
}

// Item is a child entity of the Order aggregate. It represents one ordered
// line: a product reference with quantity, unit price and an optional free-text
// comment, plus its preparation state.
//
// Item follows these invariants:
//   - Must have a valid unique identifier
//   - Must reference a product
//   - Quantity must be positive
//   - Unit price must not be negative
//   - Can only be created through NewItem
type Item struct {
	id         kernel.UUID
	productRef string
	quantity   int
	unitPrice  float64
	comment    string
	status     ItemStatus

	isConstructed bool
}

// NewItem creates a new order item in AwaitingPreparation status.
// Returns a validation error if any parameter is invalid.
func NewItem(id kernel.UUID, productRef string, quantity int, unitPrice float64, comment string) (*Item, error) {
	item := &Item{
		status:        AwaitingPreparation,
		comment:       comment,
		isConstructed: true,
	}

	if err := errors.Join(
		item.setID(id),
		item.setProductRef(productRef),
		item.setQuantity(quantity),
		item.setUnitPrice(unitPrice),
	); err != nil {
		return nil, err
	}

	return item, nil
}

// RestoreItem reconstructs an item from persistence without replaying its history.
func RestoreItem(
	id kernel.UUID, productRef string, quantity int, unitPrice float64, comment string, status ItemStatus,
) (*Item, error) {
	item, err := NewItem(id, productRef, quantity, unitPrice, comment)
	if err != nil {
		return nil, err
	}
	if status != AwaitingPreparation && status != ItemFinished {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"item status is invalid",
			fmt.Errorf("%d is not a valid item status", status),
		)
	}

	item.status = status
	return item, nil
}

// Validate ensures the Item instance was properly constructed through NewItem.
func (i *Item) Validate() error {
	if i == nil || !i.isConstructed {
		return ErrItemIsNotConstructed
	}
	return nil
}

// ID returns the item's unique identifier.
func (i *Item) ID() kernel.UUID {
	return i.id
}

// ProductRef returns the referenced product.
func (i *Item) ProductRef() string {
	return i.productRef
}

// Quantity returns the ordered quantity.
func (i *Item) Quantity() int {
	return i.quantity
}

// UnitPrice returns the price of a single unit.
func (i *Item) UnitPrice() float64 {
	return i.unitPrice
}

// Comment returns the free-text comment attached to the item.
func (i *Item) Comment() string {
	return i.comment
}

// Status returns the preparation state of the item.
func (i *Item) Status() ItemStatus {
	return i.status
}

// IsFinished reports whether the kitchen has finished the item.
func (i *Item) IsFinished() bool {
	return i.status == ItemFinished
}

// Total returns quantity times unit price.
func (i *Item) Total() float64 {
	return float64(i.quantity) * i.unitPrice
}

// merge absorbs another line for the same product reference by adding its quantity.
func (i *Item) merge(quantity int) {
	i.quantity += quantity
}

// finish marks the item as finished. Finishing an already finished item is a
// no-op so redelivered kitchen events do not fail.
func (i *Item) finish() {
	i.status = ItemFinished
}

func (i *Item) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.id = id
	return nil
}

func (i *Item) setProductRef(productRef string) error {
	if productRef == "" {
		return errs.NewValueIsRequiredError("productRef")
	}
	i.productRef = productRef
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause(
			"quantity is invalid", fmt.Errorf("%d is not greater than 0", quantity))
	}
	i.quantity = quantity
	return nil
}

func (i *Item) setUnitPrice(unitPrice float64) error {
	if unitPrice < 0 {
		return errs.NewValueIsInvalidErrorWithCause(
			"unitPrice is invalid", fmt.Errorf("%v is negative", unitPrice))
	}
	i.unitPrice = unitPrice
	return nil
}
