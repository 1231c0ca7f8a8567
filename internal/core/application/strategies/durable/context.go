package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// ActivityExecutor runs one activity's side effect. Executors must be
// idempotent: a turn that fails after some activities ran is retried from the
// top and re-executes them.
type ActivityExecutor func(ctx context.Context, name string, payload []byte) error

// suspension is the private panic value the workflow context throws when the
// orchestration asks for a signal that has not arrived yet. The engine
// recovers it and treats the turn as complete.
type suspension struct{}

// Context is the deterministic execution environment of one workflow turn.
// The orchestration function runs from the beginning every turn: calls that
// are covered by history consume the recorded outcome without side effects,
// and only calls past the end of history actually execute. New records are
// collected in memory and persisted by the engine once the turn completes.
type Context struct {
	ctx     context.Context
	orderID kernel.UUID
	clock   func() time.Time

	history []ports.HistoryRecord
	cursor  int

	pending         *signal
	pendingConsumed bool

	executor ActivityExecutor
	appended []ports.HistoryRecord
}

func newContext(
	ctx context.Context,
	orderID kernel.UUID,
	history []ports.HistoryRecord,
	pending *signal,
	executor ActivityExecutor,
	clock func() time.Time,
) *Context {
	return &Context{
		ctx:      ctx,
		orderID:  orderID,
		clock:    clock,
		history:  history,
		pending:  pending,
		executor: executor,
	}
}

// OrderID returns the id of the order this workflow instance owns.
func (c *Context) OrderID() kernel.UUID { return c.orderID }

// AwaitSignal returns the next signal: a recorded one during replay, the
// pending live one once history is exhausted. When neither exists the turn is
// over and the context suspends the orchestration.
func (c *Context) AwaitSignal() (signal, error) {
	if c.cursor < len(c.history) {
		record := c.history[c.cursor]
		if record.Kind != ports.HistoryKindSignal {
			return signal{}, errs.NewValueIsInvalidErrorWithCause("workflow history",
				fmt.Errorf("expected a signal at seq %d, found activity %q", record.Seq, record.Name))
		}
		c.cursor++
		return decodeSignal(record.Name, record.At, record.Payload)
	}

	if c.pending != nil && !c.pendingConsumed {
		c.pendingConsumed = true
		raw, err := c.pending.encode()
		if err != nil {
			return signal{}, err
		}
		c.append(ports.HistoryKindSignal, c.pending.Name, raw, c.pending.At)
		return *c.pending, nil
	}

	panic(suspension{})
}

// ExecuteActivity runs (or replays) one side-effecting activity. During
// replay the recorded completion is consumed and nothing executes; past the
// end of history the executor runs and its completion is recorded.
func (c *Context) ExecuteActivity(name string, payload any) error {
	if c.cursor < len(c.history) {
		record := c.history[c.cursor]
		if record.Kind != ports.HistoryKindActivity || record.Name != name {
			return errs.NewValueIsInvalidErrorWithCause("workflow history",
				fmt.Errorf("expected activity %q at seq %d, found %s %q", name, record.Seq, record.Kind, record.Name))
		}
		c.cursor++
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := c.executor(c.ctx, name, raw); err != nil {
		return err
	}

	c.append(ports.HistoryKindActivity, name, raw, c.clock())
	return nil
}

// newRecords returns the records produced by this turn, in execution order.
func (c *Context) newRecords() []ports.HistoryRecord {
	return c.appended
}

// progressed reports whether the pending signal was consumed this turn.
func (c *Context) progressed() bool {
	return c.pendingConsumed
}

func (c *Context) append(kind, name string, payload []byte, at time.Time) {
	seq := len(c.history) + len(c.appended) + 1
	c.appended = append(c.appended, ports.HistoryRecord{
		Seq:     seq,
		Kind:    kind,
		Name:    name,
		Payload: payload,
		At:      at,
	})
}
