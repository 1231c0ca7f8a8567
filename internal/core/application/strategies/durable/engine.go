package durable

import (
	"context"
	"log/slog"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// Engine drives workflow turns: it loads the history, replays the
// orchestration over it with the incoming signal pending, and persists the
// records the turn produced. Nothing is persisted for a rejected signal, so
// a failed turn leaves the workflow exactly where it was.
type Engine struct {
	history  ports.HistoryRepository
	executor ActivityExecutor
	clock    func() time.Time
	logger   *slog.Logger
}

func newEngine(history ports.HistoryRepository, executor ActivityExecutor, clock func() time.Time, logger *slog.Logger) *Engine {
	return &Engine{
		history:  history,
		executor: executor,
		clock:    clock,
		logger:   logger,
	}
}

// Signal delivers one signal to the order's workflow and runs it until the
// next suspension point or completion. Faults — a rejected signal, a failed
// activity, a corrupted history — are logged and rethrown to the caller; the
// history is only extended when the whole turn succeeds, so retrying the same
// signal replays cleanly.
func (e *Engine) Signal(ctx context.Context, orderID kernel.UUID, sig signal) error {
	records, err := e.history.Load(ctx, orderID)
	if err != nil {
		return errs.NewPersistenceFailureError("load history", err)
	}

	wf := newContext(ctx, orderID, records, &sig, e.executor, e.clock)

	if err := e.runTurn(wf); err != nil {
		e.logger.Warn("workflow turn faulted",
			slog.String("order_id", orderID.String()),
			slog.String("signal", sig.Name),
			slog.Any("error", err))
		return err
	}

	if !wf.progressed() {
		// The orchestration completed during replay without needing the
		// signal: the order is already closed out.
		return errs.NewInvalidStateTransitionError(orderID.String(), sig.Name, "Closed")
	}

	if err := e.history.Append(ctx, orderID, wf.newRecords()); err != nil {
		return errs.NewPersistenceFailureError("append history", err)
	}

	return nil
}

// runTurn executes the orchestration, converting the suspension panic back
// into a normal return. Suspension is how the workflow says "waiting for the
// next signal" and is the expected outcome of most turns.
func (e *Engine) runTurn(wf *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(suspension); ok {
				err = nil
				return
			}
			panic(r)
		}
	}()

	return orderWorkflow(wf)
}
