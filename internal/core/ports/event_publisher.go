package ports

import (
	"context"

	"ordering/internal/core/domain/model/order"
)

// EventPublisher defines the outbound contract to the event bus. Delivery is
// at-least-once; publishing happens after the state change is committed, so a
// crash between commit and publish can lose an event (accepted in the
// keyed-store strategy, compensated by idempotent activities in the durable
// one).
type EventPublisher interface {
	Publish(ctx context.Context, event order.Event) error
}
