package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the order lifecycle taxonomy.
var (
	// ErrInvalidStateTransition marks a command issued from a state it is not
	// allowed in. Callers must not retry it automatically.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrItemNotFound marks a command referencing an item the order does not contain.
	ErrItemNotFound = errors.New("order item not found")

	// ErrRoutingNotFound marks a lookup for an order that has no routing assignment,
	// either because it was never assigned or because it has already been removed.
	ErrRoutingNotFound = errors.New("routing assignment not found")

	// ErrPersistenceFailure marks a store failure. The caller may retry the same
	// idempotent command.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrPublishFailure marks an event bus failure after a committed state change.
	ErrPublishFailure = errors.New("event publish failure")

	// ErrDownstreamCallFailure marks an unreachable downstream collaborator.
	// The already committed state transition is never rolled back.
	ErrDownstreamCallFailure = errors.New("downstream call failure")
)

// InvalidStateTransitionError carries the attempted command, the current state
// and the order it was issued against.
type InvalidStateTransitionError struct {
	OrderID string
	Command string
	State   string
}

// NewInvalidStateTransitionError creates an InvalidStateTransitionError.
func NewInvalidStateTransitionError(orderID, command, state string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{OrderID: orderID, Command: command, State: state}
}

func (e *InvalidStateTransitionError) Error() string {
	return sanitize(fmt.Sprintf("%s: cannot %s order %s in state %s",
		ErrInvalidStateTransition, e.Command, e.OrderID, e.State))
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// ItemNotFoundError identifies the order and the missing item.
type ItemNotFoundError struct {
	OrderID string
	ItemID  string
}

// NewItemNotFoundError creates an ItemNotFoundError.
func NewItemNotFoundError(orderID, itemID string) *ItemNotFoundError {
	return &ItemNotFoundError{OrderID: orderID, ItemID: itemID}
}

func (e *ItemNotFoundError) Error() string {
	return sanitize(fmt.Sprintf("%s: item %s in order %s", ErrItemNotFound, e.ItemID, e.OrderID))
}

func (e *ItemNotFoundError) Unwrap() error {
	return ErrItemNotFound
}

// RoutingNotFoundError identifies the order without a routing assignment.
type RoutingNotFoundError struct {
	OrderID string
}

// NewRoutingNotFoundError creates a RoutingNotFoundError.
func NewRoutingNotFoundError(orderID string) *RoutingNotFoundError {
	return &RoutingNotFoundError{OrderID: orderID}
}

func (e *RoutingNotFoundError) Error() string {
	return sanitize(fmt.Sprintf("%s: order %s", ErrRoutingNotFound, e.OrderID))
}

func (e *RoutingNotFoundError) Unwrap() error {
	return ErrRoutingNotFound
}

// PersistenceFailureError wraps a store error for a named operation.
type PersistenceFailureError struct {
	Op    string
	Cause error
}

// NewPersistenceFailureError creates a PersistenceFailureError wrapping the store error.
func NewPersistenceFailureError(op string, cause error) *PersistenceFailureError {
	return &PersistenceFailureError{Op: op, Cause: cause}
}

func (e *PersistenceFailureError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s (cause: %s)", ErrPersistenceFailure, e.Op, e.Cause))
}

func (e *PersistenceFailureError) Unwrap() error {
	return ErrPersistenceFailure
}

// PublishFailureError wraps an event bus error for a specific event and order.
type PublishFailureError struct {
	Event   string
	OrderID string
	Cause   error
}

// NewPublishFailureError creates a PublishFailureError wrapping the bus error.
func NewPublishFailureError(event, orderID string, cause error) *PublishFailureError {
	return &PublishFailureError{Event: event, OrderID: orderID, Cause: cause}
}

func (e *PublishFailureError) Error() string {
	return sanitize(fmt.Sprintf("%s: event %s for order %s (cause: %s)",
		ErrPublishFailure, e.Event, e.OrderID, e.Cause))
}

func (e *PublishFailureError) Unwrap() error {
	return ErrPublishFailure
}

// DownstreamCallFailureError wraps a failed call to an external collaborator.
type DownstreamCallFailureError struct {
	Endpoint string
	OrderID  string
	Cause    error
}

// NewDownstreamCallFailureError creates a DownstreamCallFailureError wrapping the transport error.
func NewDownstreamCallFailureError(endpoint, orderID string, cause error) *DownstreamCallFailureError {
	return &DownstreamCallFailureError{Endpoint: endpoint, OrderID: orderID, Cause: cause}
}

func (e *DownstreamCallFailureError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s for order %s (cause: %s)",
		ErrDownstreamCallFailure, e.Endpoint, e.OrderID, e.Cause))
}

func (e *DownstreamCallFailureError) Unwrap() error {
	return ErrDownstreamCallFailure
}
