package entity

import (
	"context"
	"log/slog"
	"time"

	"ordering/internal/core/application/lifecycle"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"
)

// envelope is one command queued on an entity's mailbox. The reply channel is
// buffered so the entity never blocks on a caller that gave up.
type envelope struct {
	command func(*order.Order, time.Time) error
	reply   chan error
}

// entity is the in-memory actor owning a single order. All commands for the
// order funnel through its mailbox and are executed one at a time by its
// goroutine, so turns never interleave and the aggregate needs no locking.
type entity struct {
	aggregate *order.Order
	mailbox   chan envelope
	done      chan struct{}

	host    *Host
	timer   *time.Timer
	flagged bool
}

func newEntity(host *Host, aggregate *order.Order) *entity {
	return &entity{
		aggregate: aggregate,
		mailbox:   make(chan envelope, mailboxCapacity),
		done:      make(chan struct{}),
		host:      host,
		flagged:   aggregate.Abandoned(),
	}
}

// run is the entity's turn loop. It processes mailbox envelopes until the
// order reaches a terminal state or the host shuts down. The recovery timer
// fires into the same loop, so abandonment detection is serialized with
// regular commands like any other turn.
func (e *entity) run() {
	defer close(e.done)
	defer e.stopTimer()

	e.armRecoveryTimer()

	for {
		var timerFired <-chan time.Time
		if e.timer != nil {
			timerFired = e.timer.C
		}

		select {
		case env, ok := <-e.mailbox:
			if !ok {
				return
			}
			env.reply <- e.turn(env.command)
			if e.aggregate.Status().IsTerminal() {
				e.host.passivate(e.aggregate.ID())
				return
			}

		case <-timerFired:
			e.onRecoveryTimer()
			// The timer re-fires every window until payment cancels it.
			e.timer = time.NewTimer(e.host.recoveryWindow)

		case <-e.host.shutdown:
			return
		}
	}
}

// turn executes one command against the aggregate and persists the result.
// The persist happens before the reply, so a caller that got nil knows the
// state change is durable. Post-commit effects run inside the turn as well,
// keeping per-order event order intact.
func (e *entity) turn(command func(*order.Order, time.Time) error) error {
	now := e.host.clock()

	if err := command(e.aggregate, now); err != nil {
		return err
	}

	if err := e.persist(); err != nil {
		return err
	}

	// The recovery timer survives confirmation; payment is the one event
	// that cancels it.
	if e.recoveryCancelled() {
		e.stopTimer()
	}

	e.host.deliver(e.aggregate)
	return nil
}

// persist writes the aggregate inside its own transaction. A closing turn
// removes the routing assignment in the same transaction.
func (e *entity) persist() error {
	ctx := context.Background()

	uow := e.host.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.NewPersistenceFailureError("begin", err)
	}

	if err := uow.OrderRepository().Update(ctx, e.aggregate); err != nil {
		_ = uow.Rollback(ctx)
		return errs.NewPersistenceFailureError("update order", err)
	}

	if e.aggregate.Status().IsTerminal() {
		if err := uow.RoutingRepository().Remove(ctx, e.aggregate.ID()); err != nil {
			_ = uow.Rollback(ctx)
			return errs.NewPersistenceFailureError("remove routing", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return errs.NewPersistenceFailureError("commit", err)
	}

	return nil
}

// armRecoveryTimer starts the abandonment timer for orders not yet paid.
// The first deadline is anchored on the creation time, so an entity
// re-activated after a crash inherits the remaining window instead of a
// fresh one.
func (e *entity) armRecoveryTimer() {
	if e.recoveryCancelled() {
		return
	}

	deadline := e.aggregate.CreatedAt().Add(e.host.recoveryWindow)
	wait := deadline.Sub(e.host.clock())
	if wait < 0 {
		wait = 0
	}
	e.timer = time.NewTimer(wait)
}

// recoveryCancelled reports whether payment was confirmed, the one event
// that cancels the recovery timer.
func (e *entity) recoveryCancelled() bool {
	s := e.aggregate.Status()
	return s != order.Creating && s != order.Confirmed
}

// onRecoveryTimer flags the order as abandoned. The order stays in Creating
// and remains fully commandable: detection only, no automatic cancellation.
// A fire that could not persist the flag leaves it for the next one; fires
// on an already flagged order only log.
func (e *entity) onRecoveryTimer() {
	if e.aggregate.Status() != order.Creating {
		return
	}

	if !e.flagged {
		e.aggregate.MarkAbandoned(e.host.clock())

		if err := e.persist(); err != nil {
			e.host.logger.Error("abandoned flag not persisted",
				slog.String("order_id", e.aggregate.ID().String()),
				slog.Any("error", err))
			return
		}

		e.flagged = true
		e.host.deliver(e.aggregate)
	}

	e.host.logger.Warn("order flagged abandoned",
		slog.String("order_id", e.aggregate.ID().String()),
		slog.Duration("window", e.host.recoveryWindow))
}

func (e *entity) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// itemInputFactory adapts an ItemInput into the turn command shape, deferring
// entity construction into the turn so a bad input fails without a turn.
func itemInputFactory(input lifecycle.ItemInput) func(*order.Order, time.Time) error {
	return func(o *order.Order, now time.Time) error {
		item, err := input.Item()
		if err != nil {
			return err
		}
		return o.AddItem(item, now)
	}
}
