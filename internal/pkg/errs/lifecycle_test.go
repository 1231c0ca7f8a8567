package errs_test

import (
	"errors"
	"testing"

	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

func TestInvalidStateTransitionError(t *testing.T) {
	err := errs.NewInvalidStateTransitionError("ord-1", "ConfirmPayment", "Creating")

	assert.Equal(t,
		"invalid state transition: cannot ConfirmPayment order ord-1 in state Creating",
		err.Error())
	assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
}

func TestItemNotFoundError(t *testing.T) {
	err := errs.NewItemNotFoundError("ord-1", "item-9")

	assert.Equal(t, "order item not found: item item-9 in order ord-1", err.Error())
	assert.ErrorIs(t, err, errs.ErrItemNotFound)
}

func TestRoutingNotFoundError(t *testing.T) {
	err := errs.NewRoutingNotFoundError("ord-1")

	assert.Equal(t, "routing assignment not found: order ord-1", err.Error())
	assert.ErrorIs(t, err, errs.ErrRoutingNotFound)
}

func TestPersistenceFailureError(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.NewPersistenceFailureError("update order", cause)

	assert.Equal(t, "persistence failure: update order (cause: connection reset)", err.Error())
	assert.ErrorIs(t, err, errs.ErrPersistenceFailure)

	// The sentinel is the only unwrap target; the cause stays diagnostic.
	assert.False(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), cause.Error())
}

func TestPublishFailureError(t *testing.T) {
	cause := errors.New("nats: connection closed")
	err := errs.NewPublishFailureError("order.paid", "ord-1", cause)

	assert.Equal(t,
		"event publish failure: event order.paid for order ord-1 (cause: nats: connection closed)",
		err.Error())
	assert.ErrorIs(t, err, errs.ErrPublishFailure)
}

func TestDownstreamCallFailureError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := errs.NewDownstreamCallFailureError("finance/new-order", "ord-1", cause)

	assert.Equal(t,
		"downstream call failure: finance/new-order for order ord-1 (cause: dial tcp: refused)",
		err.Error())
	assert.ErrorIs(t, err, errs.ErrDownstreamCallFailure)
}

func TestLifecycleSentinelsAreDistinct(t *testing.T) {
	guard := errs.NewInvalidStateTransitionError("ord-1", "Serve", "Processing")

	assert.False(t, errors.Is(guard, errs.ErrItemNotFound))
	assert.False(t, errors.Is(guard, errs.ErrPersistenceFailure))
	assert.False(t, errors.Is(guard, errs.ErrPublishFailure))
}
