package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// OrderFlagger is the slice of the lifecycle service the sweep uses: the
// flag goes through the strategy that owns the order, so each strategy
// records it in its own durability model.
type OrderFlagger interface {
	MarkAbandoned(ctx context.Context, orderID kernel.UUID) error
}

// AbandonedOrderJob periodically scans for orders stuck in Creating longer
// than the recovery window and flags them abandoned. It mirrors the entity
// strategy's in-process recovery timer for orders owned by the other
// strategies; entity-owned orders are skipped because the actor's own timer
// already covers them.
type AbandonedOrderJob struct {
	commands       OrderFlagger
	uowFactory     ports.UnitOfWorkFactory
	orders         ports.OrderRepository
	routing        ports.RoutingRepository
	recoveryWindow time.Duration
	clock          func() time.Time
	cron           *cron.Cron
	logger         *slog.Logger
}

// NewAbandonedOrderJob creates the recovery sweep job. The scan reads
// through the plain repository; each order is flagged on its own so one
// failed write does not abort the sweep.
func NewAbandonedOrderJob(
	commands OrderFlagger,
	uowFactory ports.UnitOfWorkFactory,
	orders ports.OrderRepository,
	routing ports.RoutingRepository,
	recoveryWindow time.Duration,
	logger *slog.Logger,
) *AbandonedOrderJob {
	return &AbandonedOrderJob{
		commands:       commands,
		uowFactory:     uowFactory,
		orders:         orders,
		routing:        routing,
		recoveryWindow: recoveryWindow,
		clock:          time.Now,
		cron:           cron.New(cron.WithSeconds()),
		logger:         logger.With("component", "abandoned_order_job"),
	}
}

// Start begins the sweep, running at the top of every minute.
func (j *AbandonedOrderJob) Start() error {
	_, err := j.cron.AddFunc("0 * * * * *", func() {
		ctx := context.Background()
		if err := j.sweep(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Abandoned order sweep failed", "error", err)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Abandoned order job started (running every minute)")
	return nil
}

// Stop stops the sweep.
func (j *AbandonedOrderJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Abandoned order job stopped")
}

func (j *AbandonedOrderJob) sweep(ctx context.Context) error {
	now := j.clock()
	cutoff := now.Add(-j.recoveryWindow)

	stale, err := j.orders.GetAllCreatingBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, aggregate := range stale {
		orderID := aggregate.ID()

		strategy, err := j.routing.Get(ctx, orderID)
		switch {
		case errors.Is(err, errs.ErrRoutingNotFound):
			// No strategy owns the order, so the sweep writes the flag itself.
			if err := j.flag(ctx, orderID, now); err != nil {
				j.logger.ErrorContext(ctx, "Failed to flag abandoned order",
					"order_id", orderID.String(), "error", err)
				continue
			}

		case err != nil:
			j.logger.ErrorContext(ctx, "Failed to resolve routing during sweep",
				"order_id", orderID.String(), "error", err)
			continue

		case strategy == services.StrategyEntity:
			continue

		default:
			if err := j.commands.MarkAbandoned(ctx, orderID); err != nil {
				if errors.Is(err, errs.ErrInvalidStateTransition) {
					// The order progressed between the scan and the flag.
					continue
				}
				j.logger.ErrorContext(ctx, "Failed to flag abandoned order",
					"order_id", orderID.String(), "error", err)
				continue
			}
		}

		j.logger.WarnContext(ctx, "Order abandoned in creation",
			"order_id", orderID.String(), "strategy", string(strategy), "cutoff", cutoff)
	}

	return nil
}

// flag re-reads the order inside its own transaction so a command that
// landed between scan and write is respected.
func (j *AbandonedOrderJob) flag(ctx context.Context, orderID kernel.UUID, now time.Time) error {
	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	aggregate, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	if aggregate.Status() != order.Creating || aggregate.Abandoned() {
		_ = uow.Rollback(ctx)
		return nil
	}

	aggregate.MarkAbandoned(now)
	if err := uow.OrderRepository().Update(ctx, aggregate); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	return uow.Commit(ctx)
}
