// Package kitchen is the in-process stand-in for the kitchen coordinator.
// The real coordinator is a separate service; the stub speaks its wire
// protocol so the rest of the system cannot tell the difference: it accepts
// order registrations and answers over NATS with the same events the
// coordinator would send.
package kitchen

import (
	"context"
	"encoding/json"
	"log/slog"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/nats-io/nats.go"
)

// Subjects the kitchen coordinator publishes on. The inbound subscriber
// listens on these and feeds the commands back into the owning strategy.
const (
	SubjectStartProcessing = "kitchen.order.start_processing"
	SubjectItemFinished    = "kitchen.item.finished"
)

// OrderMessage is the payload of a start-processing event.
type OrderMessage struct {
	OrderID string `json:"order_id"`
}

// ItemMessage is the payload of an item-finished event.
type ItemMessage struct {
	OrderID string `json:"order_id"`
	ItemID  string `json:"item_id"`
}

// Stub implements ports.KitchenService. RegisterOrder immediately announces
// that preparation started; FinishItem reports a single item done. Callers
// that want kitchen timing realism drive FinishItem themselves.
type Stub struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewStub(conn *nats.Conn, logger *slog.Logger) (*Stub, error) {
	if conn == nil {
		return nil, errs.NewValueIsRequiredError("conn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Stub{
		conn:   conn,
		logger: logger.With("component", "kitchen_stub"),
	}, nil
}

// RegisterOrder accepts a paid order's items for preparation and publishes
// the start-processing event the coordinator would send once a station picks
// the order up.
func (s *Stub) RegisterOrder(ctx context.Context, snapshot order.Snapshot) error {
	if err := s.publish(SubjectStartProcessing, snapshot.ID, OrderMessage{OrderID: snapshot.ID}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Registered order with kitchen",
		"order_id", snapshot.ID, "items", len(snapshot.Items))
	return nil
}

// FinishItem publishes the item-finished event for one item of an order.
func (s *Stub) FinishItem(ctx context.Context, orderID, itemID kernel.UUID) error {
	msg := ItemMessage{OrderID: orderID.String(), ItemID: itemID.String()}
	if err := s.publish(SubjectItemFinished, msg.OrderID, msg); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Reported item finished", "order_id", msg.OrderID, "item_id", msg.ItemID)
	return nil
}

func (s *Stub) publish(subject, orderID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errs.NewPublishFailureError(subject, orderID, err)
	}
	if err := s.conn.Publish(subject, data); err != nil {
		return errs.NewPublishFailureError(subject, orderID, err)
	}
	return nil
}
