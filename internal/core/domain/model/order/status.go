package order

import (
	"fmt"

	"ordering/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure
// orders follow the correct business workflow.
//
// State transitions:
//
//	Creating ──> Confirmed ──> Paid ──> Processing ──> Prepared ──┬──> Closed
//	                                                              │
//	                                                              └──> Delivering ──> Closed
//
// States only ever move forward; there are no backward transitions.
// Status is a value object that validates states and provides string
// representations for persistence and display.
type Status int

const (
	// StatusUnknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	StatusUnknown Status = iota

	// Creating is the initial status. The order is still being composed:
	// customer, addresses and items may be assigned, added and removed.
	Creating

	// Confirmed indicates the customer has confirmed the order composition.
	// The order is waiting for payment.
	Confirmed

	// Paid indicates payment was confirmed. The order is waiting for the
	// kitchen to start preparation.
	Paid

	// Processing indicates the kitchen is preparing the items.
	Processing

	// Prepared indicates every item has been finished by the kitchen.
	Prepared

	// Delivering indicates a delivery order has left with a courier.
	Delivering

	// Closed is the final state. No further mutation is expected.
	Closed
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		StatusUnknown: "Unknown",
		Creating:      "Creating",
		Confirmed:     "Confirmed",
		Paid:          "Paid",
		Processing:    "Processing",
		Prepared:      "Prepared",
		Delivering:    "Delivering",
		Closed:        "Closed",
	}
}

// StatusFromString parses a status from its string form. Used when
// reconstructing orders from persistence.
func StatusFromString(s string) (Status, error) {
	for st, str := range getStatusStrings() {
		if str == s && st != StatusUnknown {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%q is not a valid status", s),
	)
}

// Validate checks if the Status value is a defined lifecycle state.
func (s Status) Validate() error {
	if _, ok := getStatusStrings()[s]; !ok || s == StatusUnknown {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%d is not a valid status", s),
		)
	}
	return nil
}

// String returns the human-readable name of the status.
// It implements the fmt.Stringer interface and is safe to call on any
// Status value, including invalid ones.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// IsTerminal reports whether the status is final. Routing assignments are
// removed once an order reaches a terminal status.
func (s Status) IsTerminal() bool {
	return s == Closed
}
