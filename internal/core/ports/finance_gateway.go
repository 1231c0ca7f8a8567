package ports

import (
	"context"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
)

// FinanceGateway defines the two synchronous calls the core makes to the
// finance collaborator. Both are best-effort: a failure is logged and never
// rolls back the already committed state transition.
type FinanceGateway interface {
	// NotifyOrderPaid is called on ConfirmPayment with the order and its
	// computed charge breakdown.
	NotifyOrderPaid(ctx context.Context, snapshot order.Snapshot, charges services.Charges) error

	// NotifyOrderClosed is called when the order closes (Serve or Delivered).
	NotifyOrderClosed(ctx context.Context, orderID string) error
}
