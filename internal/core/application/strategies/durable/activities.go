package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

const timeLayout = time.RFC3339Nano

// activities executes the side effects the workflow records. Every executor
// is idempotent: the snapshot write is an upsert keyed by order id, the bus
// publishes at-least-once, and the routing removal tolerates an already
// removed assignment.
type activities struct {
	uowFactory ports.UnitOfWorkFactory
	notifier   *lifecycle.Notifier
}

func (a *activities) Execute(ctx context.Context, name string, payload []byte) error {
	switch name {
	case activityPersistSnapshot:
		return a.persistSnapshot(ctx, payload)
	case activityPublishEvent:
		return a.publishEvent(ctx, payload)
	case activityNotifyFinancePaid:
		return a.withSnapshot(payload, func(s order.Snapshot) error {
			return a.notifier.NotifyPaid(ctx, s)
		})
	case activityNotifyFinanceClosed:
		return a.withSnapshot(payload, func(s order.Snapshot) error {
			return a.notifier.NotifyClosed(ctx, s)
		})
	case activityRegisterKitchen:
		return a.withSnapshot(payload, func(s order.Snapshot) error {
			return a.notifier.RegisterKitchen(ctx, s)
		})
	case activityRemoveRouting:
		return a.removeRouting(ctx, payload)
	default:
		return errs.NewValueIsInvalidError("activity " + name + " is unknown")
	}
}

func (a *activities) persistSnapshot(ctx context.Context, payload []byte) error {
	var snapshot order.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return err
	}

	aggregate, err := order.FromSnapshot(snapshot)
	if err != nil {
		return err
	}

	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}

	repo := uow.OrderRepository()
	_, err = repo.Get(ctx, aggregate.ID())
	switch {
	case err == nil:
		err = repo.Update(ctx, aggregate)
	case errors.Is(err, errs.ErrObjectNotFound):
		err = repo.Add(ctx, aggregate)
	}
	if err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("persist snapshot", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}
	return nil
}

func (a *activities) publishEvent(ctx context.Context, payload []byte) error {
	var p eventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	orderID, err := kernel.UUIDFromString(p.OrderID)
	if err != nil {
		return err
	}

	var itemID *kernel.UUID
	if p.ItemID != "" {
		id, err := kernel.UUIDFromString(p.ItemID)
		if err != nil {
			return err
		}
		itemID = &id
	}

	occurredAt, err := time.Parse(timeLayout, p.OccurredAt)
	if err != nil {
		return fmt.Errorf("parse event time: %w", err)
	}

	event := order.RestoreEvent(p.Name, orderID, itemID, occurredAt, p.Snapshot)
	return a.notifier.PublishEvent(ctx, event)
}

func (a *activities) removeRouting(ctx context.Context, payload []byte) error {
	var raw string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return err
	}
	orderID, err := kernel.UUIDFromString(raw)
	if err != nil {
		return err
	}

	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}
	if err := uow.RoutingRepository().Remove(ctx, orderID); err != nil && !errors.Is(err, errs.ErrRoutingNotFound) {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("remove routing", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}
	return nil
}

func (a *activities) withSnapshot(payload []byte, fn func(order.Snapshot) error) error {
	var snapshot order.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return err
	}
	return fn(snapshot)
}
