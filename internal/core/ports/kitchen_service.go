package ports

import (
	"context"

	"ordering/internal/core/domain/model/order"
)

// KitchenService defines the single call the core makes to the kitchen
// coordinator: registering a newly paid order's items for preparation. The
// coordinator answers asynchronously through its processing-started and
// item-finished events, which flow back into the owning strategy.
type KitchenService interface {
	RegisterOrder(ctx context.Context, snapshot order.Snapshot) error
}
