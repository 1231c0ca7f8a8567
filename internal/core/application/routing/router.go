// Package routing implements the sticky event router: the single entry point
// deciding which execution strategy owns each order. The assignment is made
// once at creation, persisted, and honored for every later command until the
// order reaches a terminal state and the owning strategy removes it.
package routing

import (
	"context"
	"errors"
	"log/slog"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

// Router assigns new orders to execution strategies and resolves the
// assignment for in-flight ones. Assignment is deterministic in the order id
// and the rollout configuration, so a retried creation lands on the same
// strategy even if the first attempt crashed before persisting.
type Router struct {
	selector    services.StrategySelector
	rollout     services.RolloutConfig
	assignments ports.RoutingRepository
	logger      *slog.Logger
}

func NewRouter(
	rollout services.RolloutConfig,
	assignments ports.RoutingRepository,
	logger *slog.Logger,
) (*Router, error) {
	if err := rollout.Validate(); err != nil {
		return nil, err
	}
	if assignments == nil {
		return nil, errs.NewValueIsRequiredError("assignments")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		selector:    services.NewStrategySelector(),
		rollout:     rollout,
		assignments: assignments,
		logger:      logger,
	}, nil
}

// Assign resolves the strategy for a newly created order and persists the
// assignment. If an assignment already exists it is returned as is: stickiness
// wins over the current rollout configuration, so orders created under an
// older split keep their strategy.
func (r *Router) Assign(ctx context.Context, orderID kernel.UUID) (services.StrategyID, error) {
	existing, err := r.assignments.Get(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errs.ErrRoutingNotFound) {
		return "", err
	}

	strategy, err := r.selector.Select(orderID, r.rollout)
	if err != nil {
		return "", err
	}

	if err := r.assignments.Add(ctx, orderID, strategy); err != nil {
		return "", err
	}

	r.logger.Info("order routed",
		slog.String("order_id", orderID.String()),
		slog.String("strategy", string(strategy)))

	return strategy, nil
}

// Lookup returns the strategy owning an in-flight order.
// Returns errs.RoutingNotFoundError when the order was never routed or has
// already been closed out.
func (r *Router) Lookup(ctx context.Context, orderID kernel.UUID) (services.StrategyID, error) {
	return r.assignments.Get(ctx, orderID)
}
