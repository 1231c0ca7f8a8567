package ports

import (
	"context"
	"time"

	"ordering/internal/core/domain/model/kernel"
)

// History record kinds.
const (
	HistoryKindActivity = "activity"
	HistoryKindSignal   = "signal"
)

// HistoryRecord is one entry in a durable-workflow history: either a received
// external signal or a completed activity result. The payload is an opaque
// JSON document owned by the workflow code; the repository only orders and
// stores it.
type HistoryRecord struct {
	Seq     int
	Kind    string
	Name    string
	Payload []byte
	At      time.Time
}

// HistoryRepository defines the persistence contract for workflow histories.
// Records are append-only and strictly ordered by Seq per order; replay
// depends on reading them back in exactly the order they were written.
type HistoryRepository interface {
	// Append persists new records for the order. Seq values must continue
	// the existing sequence without gaps.
	Append(ctx context.Context, orderID kernel.UUID, records []HistoryRecord) error

	// Load retrieves the full history of the order in Seq order.
	// An order without history yields an empty slice, not an error.
	Load(ctx context.Context, orderID kernel.UUID) ([]HistoryRecord, error)
}
