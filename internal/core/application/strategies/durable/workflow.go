package durable

import (
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"
)

// Activity names. Each marks one completed side effect in the history.
const (
	activityPersistSnapshot     = "persist_snapshot"
	activityPublishEvent        = "publish_event"
	activityNotifyFinancePaid   = "notify_finance_paid"
	activityNotifyFinanceClosed = "notify_finance_closed"
	activityRegisterKitchen     = "register_kitchen"
	activityRemoveRouting       = "remove_routing"
)

// eventPayload is the recorded argument of a publish_event activity: enough
// to rebuild the domain event for the bus.
type eventPayload struct {
	Name       string         `json:"name"`
	OrderID    string         `json:"order_id"`
	ItemID     string         `json:"item_id,omitempty"`
	OccurredAt string         `json:"occurred_at"`
	Snapshot   order.Snapshot `json:"snapshot"`
}

// orderWorkflow is the orchestration of one order's lifecycle. It is a plain
// deterministic function: every run starts from the beginning, folds the
// recorded signals into the aggregate, skips over already completed
// activities, and suspends when it needs a signal that has not arrived.
// There is no wall-clock, randomness or I/O here; all of that lives behind
// ExecuteActivity.
func orderWorkflow(wf *Context) error {
	var aggregate *order.Order

	// Composition phase. Until the order is confirmed the customer is still
	// shaping it, so any composition signal may arrive in any sequence.
	for aggregate == nil || aggregate.Status() == order.Creating {
		sig, err := wf.AwaitSignal()
		if err != nil {
			return err
		}

		aggregate, err = applySignal(wf.OrderID(), aggregate, sig)
		if err != nil {
			return err
		}

		if err := recordEffects(wf, aggregate); err != nil {
			return err
		}
	}

	// From here the lifecycle is strictly sequential: each wait accepts
	// exactly one kind of signal and rejects anything else without
	// extending the history.
	if err := awaitExpected(wf, aggregate, signalConfirmPayment); err != nil {
		return err
	}
	if err := awaitExpected(wf, aggregate, signalStartProcessing); err != nil {
		return err
	}

	// Preparation: one item-finished signal at a time until the kitchen
	// reports the last item and the order turns Prepared.
	for aggregate.Status() == order.Processing {
		if err := awaitExpected(wf, aggregate, signalFinishItem); err != nil {
			return err
		}
	}

	if aggregate.FulfillmentType() == order.Delivery {
		if err := awaitExpected(wf, aggregate, signalStartDelivery); err != nil {
			return err
		}
		if err := awaitExpected(wf, aggregate, signalDelivered); err != nil {
			return err
		}
	} else {
		if err := awaitExpected(wf, aggregate, signalServe); err != nil {
			return err
		}
	}

	return wf.ExecuteActivity(activityRemoveRouting, wf.OrderID().String())
}

// awaitExpected waits for one named signal, applies it, and records its
// effects. Any other signal is an invalid transition for the current state.
func awaitExpected(wf *Context, aggregate *order.Order, name string) error {
	sig, err := wf.AwaitSignal()
	if err != nil {
		return err
	}

	if sig.Name != name {
		return errs.NewInvalidStateTransitionError(wf.OrderID().String(),
			sig.Name, aggregate.Status().String())
	}

	if _, err := applySignal(wf.OrderID(), aggregate, sig); err != nil {
		return err
	}

	return recordEffects(wf, aggregate)
}

// recordEffects drains the events the last transition produced, runs their
// activities, and closes the turn with the snapshot write. The store only
// ever reflects turns whose effects all completed.
func recordEffects(wf *Context, aggregate *order.Order) error {
	for _, event := range aggregate.PopEvents() {
		payload := eventPayload{
			Name:       event.Name(),
			OrderID:    event.OrderID().String(),
			OccurredAt: event.OccurredAt().Format(timeLayout),
			Snapshot:   event.Snapshot(),
		}
		if itemID := event.ItemID(); itemID != nil {
			payload.ItemID = itemID.String()
		}

		if err := wf.ExecuteActivity(activityPublishEvent, payload); err != nil {
			return err
		}

		switch event.Name() {
		case order.EventOrderPaid:
			if err := wf.ExecuteActivity(activityNotifyFinancePaid, event.Snapshot()); err != nil {
				return err
			}
			if err := wf.ExecuteActivity(activityRegisterKitchen, event.Snapshot()); err != nil {
				return err
			}
		case order.EventOrderClosed:
			if err := wf.ExecuteActivity(activityNotifyFinanceClosed, event.Snapshot()); err != nil {
				return err
			}
		}
	}

	return wf.ExecuteActivity(activityPersistSnapshot, aggregate.Snapshot())
}
