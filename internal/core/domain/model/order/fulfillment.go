package order

import (
	"fmt"

	"ordering/internal/pkg/errs"
)

// Fulfillment describes how an order reaches the customer. It decides which
// closing path the lifecycle takes: dine-in and take-away orders are served,
// delivery orders go through Delivering before they close.
type Fulfillment int

const (
	// FulfillmentUnknown represents an invalid or undefined fulfillment type.
	FulfillmentUnknown Fulfillment = iota

	// DineIn orders are served at the table.
	DineIn

	// Delivery orders are handed to a courier after preparation.
	Delivery

	// TakeAway orders are served at the counter.
	TakeAway
)

func getFulfillmentStrings() map[Fulfillment]string {
	return map[Fulfillment]string{
		FulfillmentUnknown: "Unknown",
		DineIn:             "DineIn",
		Delivery:           "Delivery",
		TakeAway:           "TakeAway",
	}
}

// FulfillmentFromString parses a fulfillment type from its string form.
func FulfillmentFromString(s string) (Fulfillment, error) {
	for f, str := range getFulfillmentStrings() {
		if str == s && f != FulfillmentUnknown {
			return f, nil
		}
	}
	return FulfillmentUnknown, errs.NewValueIsInvalidErrorWithCause(
		"fulfillment is invalid",
		fmt.Errorf("%q is not a valid fulfillment type", s),
	)
}

// Validate checks that the fulfillment type is one of the defined values.
func (f Fulfillment) Validate() error {
	if f != DineIn && f != Delivery && f != TakeAway {
		return errs.NewValueIsInvalidErrorWithCause(
			"fulfillment is invalid",
			fmt.Errorf("%d is not a valid fulfillment type", f),
		)
	}
	return nil
}

// String returns the human-readable name of the fulfillment type.
func (f Fulfillment) String() string {
	if str, ok := getFulfillmentStrings()[f]; ok {
		return str
	}
	return "Unknown"
}
