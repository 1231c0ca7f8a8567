// Package orderrepo provides data transfer objects and mapping functions for
// order persistence. It implements the repository pattern for the order
// aggregate, converting between domain entities and database rows.
package orderrepo

import (
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// The customer and its addresses are embedded into the orders table; items
// live in their own table keyed by order id.
type OrderDTO struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Reference   string    `gorm:"size:16;uniqueIndex"`
	Fulfillment int
	Status      int `gorm:"index"`
	Abandoned   bool
	Customer    *CustomerDTO `gorm:"embedded;embeddedPrefix:customer_"`
	Items       []ItemDTO    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt         time.Time `gorm:"index"`
	PaidAt            *time.Time
	StartProcessingAt *time.Time
	PreparedAt        *time.Time
	DeliveredAt       *time.Time
	ClosedAt          *time.Time
}

// TableName overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// ItemDTO represents one order line in the order_items table.
type ItemDTO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;index"`
	ProductRef string    `gorm:"size:128"`
	Quantity   int
	UnitPrice  float64
	Comment    string
	Status     int
}

// TableName overrides GORM's default naming convention to use "order_items".
func (ItemDTO) TableName() string {
	return "order_items"
}

// CustomerDTO represents the customer embedded within the orders table.
type CustomerDTO struct {
	FirstName       string
	LastName        string
	LoyaltyRef      string
	InvoiceAddress  *AddressDTO `gorm:"embedded;embeddedPrefix:invoice_"`
	DeliveryAddress *AddressDTO `gorm:"embedded;embeddedPrefix:delivery_"`
}

// AddressDTO represents an embedded postal address.
type AddressDTO struct {
	Street string
	City   string
	Zip    string
}

// fromDomain converts an order aggregate to its database representation.
func fromDomain(aggregate *order.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(aggregate.Items()))
	for _, item := range aggregate.Items() {
		items = append(items, ItemDTO{
			ID:         item.ID().Bytes(),
			OrderID:    aggregate.ID().Bytes(),
			ProductRef: item.ProductRef(),
			Quantity:   item.Quantity(),
			UnitPrice:  item.UnitPrice(),
			Comment:    item.Comment(),
			Status:     int(item.Status()),
		})
	}

	var customer *CustomerDTO
	if c := aggregate.Customer(); c != nil {
		customer = &CustomerDTO{
			FirstName:       c.FirstName(),
			LastName:        c.LastName(),
			LoyaltyRef:      c.LoyaltyRef(),
			InvoiceAddress:  addressToDTO(c.InvoiceAddress()),
			DeliveryAddress: addressToDTO(c.DeliveryAddress()),
		}
	}

	snapshot := aggregate.Snapshot()
	return OrderDTO{
		ID:                aggregate.ID().Bytes(),
		Reference:         aggregate.Reference(),
		Fulfillment:       int(aggregate.FulfillmentType()),
		Status:            int(aggregate.Status()),
		Abandoned:         aggregate.Abandoned(),
		Customer:          customer,
		Items:             items,
		CreatedAt:         aggregate.CreatedAt(),
		PaidAt:            snapshot.PaidAt,
		StartProcessingAt: snapshot.StartProcessingAt,
		PreparedAt:        snapshot.PreparedAt,
		DeliveredAt:       snapshot.DeliveredAt,
		ClosedAt:          snapshot.ClosedAt,
	}
}

func addressToDTO(a *order.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{Street: a.Street(), City: a.City(), Zip: a.Zip()}
}

func addressFromDTO(a *AddressDTO) (*order.Address, error) {
	if a == nil || a.Street == "" {
		return nil, nil
	}
	address, err := order.NewAddress(a.Street, a.City, a.Zip)
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// toDomain converts a database row back to an order aggregate using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	items := make([]*order.Item, 0, len(dto.Items))
	for _, row := range dto.Items {
		itemID, err := kernel.UUIDFromBytes(row.ID[:])
		if err != nil {
			return nil, err
		}
		item, err := order.RestoreItem(
			itemID, row.ProductRef, row.Quantity, row.UnitPrice, row.Comment, order.ItemStatus(row.Status))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var customer *order.Customer
	if dto.Customer != nil {
		invoice, err := addressFromDTO(dto.Customer.InvoiceAddress)
		if err != nil {
			return nil, err
		}
		delivery, err := addressFromDTO(dto.Customer.DeliveryAddress)
		if err != nil {
			return nil, err
		}

		// An address may be assigned before the customer, so a row can hold
		// an address-only customer record.
		if dto.Customer.FirstName != "" || dto.Customer.LastName != "" ||
			dto.Customer.LoyaltyRef != "" || invoice != nil || delivery != nil {
			restored, err := order.RestoreCustomer(
				dto.Customer.FirstName, dto.Customer.LastName, dto.Customer.LoyaltyRef, invoice, delivery)
			if err != nil {
				return nil, err
			}
			customer = &restored
		}
	}

	return order.RestoreOrder(order.RestoreOrderParams{
		ID:                id,
		Reference:         dto.Reference,
		Fulfillment:       order.Fulfillment(dto.Fulfillment),
		Status:            order.Status(dto.Status),
		Items:             items,
		Customer:          customer,
		Abandoned:         dto.Abandoned,
		CreatedAt:         dto.CreatedAt,
		PaidAt:            dto.PaidAt,
		StartProcessingAt: dto.StartProcessingAt,
		PreparedAt:        dto.PreparedAt,
		DeliveredAt:       dto.DeliveredAt,
		ClosedAt:          dto.ClosedAt,
	})
}
