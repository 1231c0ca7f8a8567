package order

import (
	"errors"

	"ordering/internal/pkg/errs"
	"ordering/internal/pkg/guard"
)

// ErrAddressIsNotConstructed is returned when an Address was not created via NewAddress.
var ErrAddressIsNotConstructed = errors.New("Address must be created via NewAddress constructor")

// Address is a value object holding a postal address used for invoicing or delivery.
type Address struct {
	street string
	city   string
	zip    string

	guard guard.ConstructorGuard
}

// NewAddress creates a validated address. Street and city are required.
func NewAddress(street, city, zip string) (Address, error) {
	if street == "" {
		return Address{}, errs.NewValueIsRequiredError("street")
	}
	if city == "" {
		return Address{}, errs.NewValueIsRequiredError("city")
	}

	return Address{
		street: street,
		city:   city,
		zip:    zip,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the address was created through NewAddress.
func (a Address) Validate() error {
	return a.guard.Validate(ErrAddressIsNotConstructed)
}

// Street returns the street line of the address.
func (a Address) Street() string { return a.street }

// City returns the city of the address.
func (a Address) City() string { return a.city }

// Zip returns the postal code of the address.
func (a Address) Zip() string { return a.zip }

// Customer is an optional value attached to an order. It is owned exclusively
// by the order that references it and is not shared or persisted on its own.
type Customer struct {
	firstName       string
	lastName        string
	loyaltyRef      string
	invoiceAddress  *Address
	deliveryAddress *Address
}

// NewCustomer creates a customer value. The loyalty reference is optional.
func NewCustomer(firstName, lastName, loyaltyRef string) (Customer, error) {
	if firstName == "" {
		return Customer{}, errs.NewValueIsRequiredError("firstName")
	}
	if lastName == "" {
		return Customer{}, errs.NewValueIsRequiredError("lastName")
	}

	return Customer{
		firstName:  firstName,
		lastName:   lastName,
		loyaltyRef: loyaltyRef,
	}, nil
}

// RestoreCustomer reconstructs a customer from persistence, including its
// assigned addresses. Unlike NewCustomer it accepts a record with empty
// names: assigning an address before a customer leaves an address-only
// placeholder on the order, and that placeholder must survive a round-trip.
func RestoreCustomer(firstName, lastName, loyaltyRef string, invoice, delivery *Address) (Customer, error) {
	customer := Customer{loyaltyRef: loyaltyRef}
	if firstName != "" || lastName != "" {
		named, err := NewCustomer(firstName, lastName, loyaltyRef)
		if err != nil {
			return Customer{}, err
		}
		customer = named
	}
	if invoice != nil {
		if err := invoice.Validate(); err != nil {
			return Customer{}, err
		}
		customer.invoiceAddress = invoice
	}
	if delivery != nil {
		if err := delivery.Validate(); err != nil {
			return Customer{}, err
		}
		customer.deliveryAddress = delivery
	}
	return customer, nil
}

// FirstName returns the customer's first name.
func (c Customer) FirstName() string { return c.firstName }

// LastName returns the customer's last name.
func (c Customer) LastName() string { return c.lastName }

// LoyaltyRef returns the customer's loyalty reference, empty when absent.
func (c Customer) LoyaltyRef() string { return c.loyaltyRef }

// InvoiceAddress returns the invoice address, nil when not assigned.
func (c Customer) InvoiceAddress() *Address { return c.invoiceAddress }

// DeliveryAddress returns the delivery address, nil when not assigned.
func (c Customer) DeliveryAddress() *Address { return c.deliveryAddress }
