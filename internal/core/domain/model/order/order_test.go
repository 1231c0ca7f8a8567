package order_test

import (
	"testing"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, productRef string, quantity int, price float64) *order.Item {
	t.Helper()
	item, err := order.NewItem(kernel.NewUUID(), productRef, quantity, price, "")
	require.NoError(t, err)
	return item
}

func eventNames(events []order.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name()
	}
	return names
}

func TestNewOrder(t *testing.T) {
	now := time.Now()

	t.Run("should create valid order in Creating status", func(t *testing.T) {
		id := kernel.NewUUID()

		o, err := order.NewOrder(id, order.DineIn, now)

		require.NoError(t, err)
		require.NoError(t, o.Validate())
		assert.True(t, o.ID().IsEqual(id))
		assert.Equal(t, order.Creating, o.Status())
		assert.Equal(t, order.DineIn, o.FulfillmentType())
		assert.Equal(t, now.UTC(), o.CreatedAt())
		assert.Empty(t, o.Items())
		assert.Nil(t, o.Customer())
		assert.Equal(t, []string{order.EventOrderCreated}, eventNames(o.PopEvents()))
	})

	t.Run("should derive a stable reference code from the id", func(t *testing.T) {
		id := kernel.NewUUID()

		first, err := order.NewOrder(id, order.Delivery, now)
		require.NoError(t, err)
		second, err := order.NewOrder(id, order.Delivery, now)
		require.NoError(t, err)

		assert.Equal(t, first.Reference(), second.Reference())
		assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, first.Reference())
	})

	t.Run("should fail with invalid UUID", func(t *testing.T) {
		var invalidID kernel.UUID

		o, err := order.NewOrder(invalidID, order.DineIn, now)

		require.Error(t, err)
		assert.Nil(t, o)
	})

	t.Run("should fail with invalid fulfillment type", func(t *testing.T) {
		o, err := order.NewOrder(kernel.NewUUID(), order.FulfillmentUnknown, now)

		require.Error(t, err)
		assert.Nil(t, o)
	})

	t.Run("non-constructed order fails validation", func(t *testing.T) {
		var o order.Order
		require.ErrorIs(t, o.Validate(), order.ErrOrderIsNotConstructed)
	})
}

func TestOrder_AddItem(t *testing.T) {
	now := time.Now()

	t.Run("should append new items", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)

		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.AddItem(mustItem(t, "quattro-formaggi", 1, 7.50), now))

		assert.Len(t, o.Items(), 2)
		assert.InDelta(t, 10.0, o.Total(), 0.001)
	})

	t.Run("should merge quantity for same product reference", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)

		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 2, 2.50), now))

		items := o.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity())
	})

	t.Run("should be a no-op for a redelivered item id", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		item := mustItem(t, "margherita", 2, 2.50)

		require.NoError(t, o.AddItem(item, now))
		require.NoError(t, o.AddItem(item, now))

		items := o.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity())
	})

	t.Run("should fail outside Creating", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))

		err := o.AddItem(mustItem(t, "calzone", 1, 4.00), now)

		require.ErrorIs(t, err, errs.ErrInvalidStateTransition)
		var transitionErr *errs.InvalidStateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, order.CommandAddItem, transitionErr.Command)
		assert.Equal(t, "Confirmed", transitionErr.State)
		assert.Equal(t, o.ID().String(), transitionErr.OrderID)
	})
}

func TestOrder_RemoveItem(t *testing.T) {
	now := time.Now()

	t.Run("should remove an item by id", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		item := mustItem(t, "margherita", 1, 2.50)
		require.NoError(t, o.AddItem(item, now))

		require.NoError(t, o.RemoveItem(item.ID(), now))

		assert.Empty(t, o.Items())
	})

	t.Run("should be a no-op for an absent item id", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))

		require.NoError(t, o.RemoveItem(kernel.NewUUID(), now))

		assert.Len(t, o.Items(), 1)
	})
}

func TestOrder_Confirm(t *testing.T) {
	now := time.Now()

	t.Run("should confirm an order with items", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		o.PopEvents()

		require.NoError(t, o.Confirm(now))

		assert.Equal(t, order.Confirmed, o.Status())
		assert.Equal(t, []string{order.EventOrderConfirmed}, eventNames(o.PopEvents()))
	})

	t.Run("should refuse an empty order", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)

		require.ErrorIs(t, o.Confirm(now), order.ErrOrderHasNoItems)
		assert.Equal(t, order.Creating, o.Status())
	})

	t.Run("should fail when already confirmed", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))

		require.ErrorIs(t, o.Confirm(now), errs.ErrInvalidStateTransition)
	})
}

func TestOrder_ConfirmPayment(t *testing.T) {
	now := time.Now()

	t.Run("should pay a confirmed order", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))
		o.PopEvents()

		paidAt := now.Add(time.Minute)
		require.NoError(t, o.ConfirmPayment(paidAt))

		assert.Equal(t, order.Paid, o.Status())
		assert.Equal(t, paidAt.UTC(), o.PaidAt())
		assert.Equal(t, []string{order.EventOrderPaid}, eventNames(o.PopEvents()))
	})

	t.Run("should fail from Creating and leave state unchanged", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)

		err := o.ConfirmPayment(now)

		require.ErrorIs(t, err, errs.ErrInvalidStateTransition)
		assert.Equal(t, order.Creating, o.Status())
		assert.True(t, o.PaidAt().IsZero())
	})
}

func confirmedAndPaid(t *testing.T, fulfillment order.Fulfillment, items ...*order.Item) *order.Order {
	t.Helper()
	now := time.Now()
	o, err := order.NewOrder(kernel.NewUUID(), fulfillment, now)
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, o.AddItem(item, now))
	}
	require.NoError(t, o.Confirm(now))
	require.NoError(t, o.ConfirmPayment(now))
	require.NoError(t, o.StartProcessing(now))
	o.PopEvents()
	return o
}

func TestOrder_FinishItem(t *testing.T) {
	now := time.Now()

	t.Run("should prepare the order exactly once when the last item finishes", func(t *testing.T) {
		itemA := mustItem(t, "margherita", 1, 2.50)
		itemB := mustItem(t, "quattro-formaggi", 1, 7.50)
		o := confirmedAndPaid(t, order.DineIn, itemA, itemB)

		require.NoError(t, o.FinishItem(itemA.ID(), now))
		assert.Equal(t, order.Processing, o.Status())
		assert.Equal(t, []string{order.EventOrderProcessingUpdated}, eventNames(o.PopEvents()))

		require.NoError(t, o.FinishItem(itemB.ID(), now))
		assert.Equal(t, order.Prepared, o.Status())
		assert.False(t, o.PreparedAt().IsZero())
		assert.Equal(t,
			[]string{order.EventOrderProcessingUpdated, order.EventOrderPrepared},
			eventNames(o.PopEvents()))
	})

	t.Run("should fail with ItemNotFound for an unknown item", func(t *testing.T) {
		o := confirmedAndPaid(t, order.DineIn, mustItem(t, "margherita", 1, 2.50))

		err := o.FinishItem(kernel.NewUUID(), now)

		require.ErrorIs(t, err, errs.ErrItemNotFound)
		assert.Equal(t, order.Processing, o.Status())
	})

	t.Run("should fail outside Processing", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		item := mustItem(t, "margherita", 1, 2.50)
		require.NoError(t, o.AddItem(item, now))

		require.ErrorIs(t, o.FinishItem(item.ID(), now), errs.ErrInvalidStateTransition)
	})
}

func TestOrder_CloseDineIn(t *testing.T) {
	now := time.Now()

	t.Run("should serve a prepared dine-in order", func(t *testing.T) {
		item := mustItem(t, "margherita", 1, 2.50)
		o := confirmedAndPaid(t, order.DineIn, item)
		require.NoError(t, o.FinishItem(item.ID(), now))
		o.PopEvents()

		require.NoError(t, o.Serve(now))

		assert.Equal(t, order.Closed, o.Status())
		assert.False(t, o.ClosedAt().IsZero())
		assert.Equal(t, []string{order.EventOrderClosed}, eventNames(o.PopEvents()))
	})

	t.Run("should refuse Serve while still Processing", func(t *testing.T) {
		o := confirmedAndPaid(t, order.DineIn, mustItem(t, "margherita", 1, 2.50))

		err := o.Serve(now)

		require.ErrorIs(t, err, errs.ErrInvalidStateTransition)
		assert.Equal(t, order.Processing, o.Status())
		assert.True(t, o.ClosedAt().IsZero())
	})

	t.Run("should refuse Serve for a delivery order", func(t *testing.T) {
		item := mustItem(t, "margherita", 1, 2.50)
		o := confirmedAndPaid(t, order.Delivery, item)
		require.NoError(t, o.FinishItem(item.ID(), now))

		require.ErrorIs(t, o.Serve(now), errs.ErrInvalidStateTransition)
		assert.Equal(t, order.Prepared, o.Status())
	})
}

func TestOrder_CloseDelivery(t *testing.T) {
	now := time.Now()

	t.Run("should deliver a prepared delivery order", func(t *testing.T) {
		item := mustItem(t, "margherita", 1, 2.50)
		o := confirmedAndPaid(t, order.Delivery, item)
		require.NoError(t, o.FinishItem(item.ID(), now))

		require.NoError(t, o.StartDelivery(now))
		assert.Equal(t, order.Delivering, o.Status())

		deliveredAt := now.Add(30 * time.Minute)
		require.NoError(t, o.Delivered(deliveredAt))

		assert.Equal(t, order.Closed, o.Status())
		assert.Equal(t, deliveredAt.UTC(), o.DeliveredAt())
		assert.Equal(t, o.DeliveredAt(), o.ClosedAt())
	})

	t.Run("should refuse StartDelivery for a dine-in order", func(t *testing.T) {
		item := mustItem(t, "margherita", 1, 2.50)
		o := confirmedAndPaid(t, order.DineIn, item)
		require.NoError(t, o.FinishItem(item.ID(), now))

		require.ErrorIs(t, o.StartDelivery(now), errs.ErrInvalidStateTransition)
	})

	t.Run("should refuse Delivered before StartDelivery", func(t *testing.T) {
		item := mustItem(t, "margherita", 1, 2.50)
		o := confirmedAndPaid(t, order.Delivery, item)
		require.NoError(t, o.FinishItem(item.ID(), now))

		require.ErrorIs(t, o.Delivered(now), errs.ErrInvalidStateTransition)
	})
}

func TestOrder_AssignCustomerAndAddresses(t *testing.T) {
	now := time.Now()

	t.Run("should assign customer while Creating", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		customer, err := order.NewCustomer("Ada", "Lovelace", "LOY-1")
		require.NoError(t, err)

		require.NoError(t, o.AssignCustomer(customer, now))

		require.NotNil(t, o.Customer())
		assert.Equal(t, "Ada", o.Customer().FirstName())
	})

	t.Run("address before customer attaches to an empty customer", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.Delivery, now)
		address, err := order.NewAddress("1 Main St", "Springfield", "12345")
		require.NoError(t, err)

		require.NoError(t, o.AssignDeliveryAddress(address, now))

		require.NotNil(t, o.Customer())
		require.NotNil(t, o.Customer().DeliveryAddress())
		assert.Equal(t, "1 Main St", o.Customer().DeliveryAddress().Street())
	})

	t.Run("address-only customer survives a snapshot round-trip", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.Delivery, now)
		address, err := order.NewAddress("1 Main St", "Springfield", "12345")
		require.NoError(t, err)
		require.NoError(t, o.AssignDeliveryAddress(address, now))

		restored, err := order.FromSnapshot(o.Snapshot())
		require.NoError(t, err)

		require.NotNil(t, restored.Customer())
		require.NotNil(t, restored.Customer().DeliveryAddress())
		assert.Equal(t, "1 Main St", restored.Customer().DeliveryAddress().Street())
		assert.Empty(t, restored.Customer().FirstName())
	})

	t.Run("assigning customer keeps previously assigned addresses", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.Delivery, now)
		address, _ := order.NewAddress("1 Main St", "Springfield", "12345")
		require.NoError(t, o.AssignInvoiceAddress(address, now))
		customer, _ := order.NewCustomer("Ada", "Lovelace", "")

		require.NoError(t, o.AssignCustomer(customer, now))

		require.NotNil(t, o.Customer().InvoiceAddress())
		assert.Equal(t, "Ada", o.Customer().FirstName())
	})

	t.Run("should fail outside Creating", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))
		customer, _ := order.NewCustomer("Ada", "Lovelace", "")

		require.ErrorIs(t, o.AssignCustomer(customer, now), errs.ErrInvalidStateTransition)
	})
}

func TestOrder_MarkAbandoned(t *testing.T) {
	now := time.Now()

	t.Run("flags a stalled order once", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		o.PopEvents()

		o.MarkAbandoned(now)
		o.MarkAbandoned(now)

		assert.True(t, o.Abandoned())
		assert.Equal(t, []string{order.EventOrderUpdated}, eventNames(o.PopEvents()))
		assert.Equal(t, order.Creating, o.Status())
	})

	t.Run("does nothing after the order advanced", func(t *testing.T) {
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))

		o.MarkAbandoned(now)

		assert.False(t, o.Abandoned())
	})
}

func TestOrder_Timestamps(t *testing.T) {
	t.Run("timestamps never decrease even with a skewed clock", func(t *testing.T) {
		now := time.Now()
		o, _ := order.NewOrder(kernel.NewUUID(), order.DineIn, now)
		require.NoError(t, o.AddItem(mustItem(t, "margherita", 1, 2.50), now))
		require.NoError(t, o.Confirm(now))

		require.NoError(t, o.ConfirmPayment(now.Add(-time.Hour)))

		assert.False(t, o.PaidAt().Before(o.CreatedAt()))
	})
}

func TestRestoreOrder(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should rebuild an order from persisted state", func(t *testing.T) {
		id := kernel.NewUUID()
		item, err := order.RestoreItem(kernel.NewUUID(), "margherita", 2, 2.50, "", order.ItemFinished)
		require.NoError(t, err)
		paidAt := now.Add(time.Minute)

		o, err := order.RestoreOrder(order.RestoreOrderParams{
			ID:          id,
			Reference:   "ORD-AAAA1111",
			Fulfillment: order.DineIn,
			Status:      order.Paid,
			Items:       []*order.Item{item},
			CreatedAt:   now,
			PaidAt:      &paidAt,
		})

		require.NoError(t, err)
		assert.Equal(t, order.Paid, o.Status())
		assert.Equal(t, "ORD-AAAA1111", o.Reference())
		assert.Equal(t, paidAt, o.PaidAt())
		assert.Empty(t, o.PopEvents())
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		_, err := order.RestoreOrder(order.RestoreOrderParams{
			ID:          kernel.NewUUID(),
			Fulfillment: order.DineIn,
			Status:      order.StatusUnknown,
			CreatedAt:   now,
		})

		require.Error(t, err)
	})
}
