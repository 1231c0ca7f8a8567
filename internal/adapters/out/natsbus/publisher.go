// Package natsbus publishes order domain events to NATS. One subject per
// event name under the "orders." prefix, JSON payload carrying the order
// snapshot taken when the event was recorded.
package natsbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "orders."

// Envelope is the wire form of a domain event.
type Envelope struct {
	Name       string         `json:"name"`
	OrderID    string         `json:"order_id"`
	ItemID     string         `json:"item_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Order      order.Snapshot `json:"order"`
}

// Publisher implements ports.EventPublisher over a NATS connection. The
// connection is owned by the caller; the publisher never closes it.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(conn *nats.Conn, logger *slog.Logger) (*Publisher, error) {
	if conn == nil {
		return nil, errs.NewValueIsRequiredError("conn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		conn:   conn,
		logger: logger.With("component", "nats_publisher"),
	}, nil
}

// Publish sends the event to "orders.<name>". Marshal and transport failures
// come back as PublishFailureError so callers can decide whether the loss is
// acceptable or the turn must be retried.
func (p *Publisher) Publish(ctx context.Context, event order.Event) error {
	envelope := Envelope{
		Name:       event.Name(),
		OrderID:    event.OrderID().String(),
		OccurredAt: event.OccurredAt(),
		Order:      event.Snapshot(),
	}
	if itemID := event.ItemID(); itemID != nil {
		envelope.ItemID = itemID.String()
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return errs.NewPublishFailureError(event.Name(), envelope.OrderID, err)
	}

	subject := subjectPrefix + event.Name()
	if err := p.conn.Publish(subject, data); err != nil {
		return errs.NewPublishFailureError(event.Name(), envelope.OrderID, err)
	}

	p.logger.DebugContext(ctx, "Published domain event", "subject", subject, "order_id", envelope.OrderID)
	return nil
}
