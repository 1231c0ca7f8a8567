// Package ports defines the contracts between the core and its adapters:
// persistence for orders, routing assignments and workflow histories, the
// event bus, and the external collaborators consumed by the lifecycle.
package ports

import (
	"context"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
// Every execution strategy persists full aggregate snapshots through it, so
// reads return the last fully committed state regardless of the strategy
// owning the order.
type OrderRepository interface {
	// Add persists a new order aggregate to storage.
	// The order must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order aggregate.
	// The order must exist in the repository and be valid.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetAllCreatingBefore retrieves orders still in Creating status whose
	// creation predates the cutoff and that have not been flagged abandoned
	// yet. Used by the recovery sweep to detect orders lost mid-creation.
	GetAllCreatingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error)
}
