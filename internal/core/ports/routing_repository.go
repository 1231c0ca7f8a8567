package ports

import (
	"context"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/services"
)

// RoutingRepository defines the persistence contract for routing assignments:
// the durable mapping from an order id to the execution strategy owning it.
// Assignments are immutable once written and removed exactly once, when the
// order reaches a terminal state, so no locking is required around them.
type RoutingRepository interface {
	// Add persists a new assignment. Re-adding the same order id with the
	// same strategy is a no-op so that retried creations succeed.
	Add(ctx context.Context, orderID kernel.UUID, strategy services.StrategyID) error

	// Get retrieves the assignment for an order.
	// Returns errs.RoutingNotFoundError when no assignment exists.
	Get(ctx context.Context, orderID kernel.UUID) (services.StrategyID, error)

	// Remove deletes the assignment for an order.
	Remove(ctx context.Context, orderID kernel.UUID) error
}
