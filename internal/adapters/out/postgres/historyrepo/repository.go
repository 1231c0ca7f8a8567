// Package historyrepo persists durable-workflow histories: the append-only,
// strictly ordered record of signals received and activities completed per
// order.
package historyrepo

import (
	"context"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRecordDTO represents one history record row.
type HistoryRecordDTO struct {
	OrderID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq     int       `gorm:"primaryKey;autoIncrement:false"`
	Kind    string    `gorm:"size:16"`
	Name    string    `gorm:"size:64"`
	Payload []byte    `gorm:"type:jsonb"`
	At      time.Time
}

// TableName overrides GORM's default naming convention to use "workflow_history".
func (HistoryRecordDTO) TableName() string {
	return "workflow_history"
}

// GormHistoryRepository implements HistoryRepository using GORM.
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GORM history repository.
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

var _ ports.HistoryRepository = (*GormHistoryRepository)(nil)

// Append persists the records of one completed turn. The composite primary
// key on (order_id, seq) makes a duplicated or racing append fail instead of
// corrupting the sequence.
func (r *GormHistoryRepository) Append(ctx context.Context, orderID kernel.UUID, records []ports.HistoryRecord) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	dtos := make([]HistoryRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, HistoryRecordDTO{
			OrderID: orderID.Bytes(),
			Seq:     record.Seq,
			Kind:    record.Kind,
			Name:    record.Name,
			Payload: record.Payload,
			At:      record.At,
		})
	}

	return r.db.WithContext(ctx).Create(&dtos).Error
}

// Load retrieves the full history of the order in sequence order.
func (r *GormHistoryRepository) Load(ctx context.Context, orderID kernel.UUID) ([]ports.HistoryRecord, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []HistoryRecordDTO
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Order("seq").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	records := make([]ports.HistoryRecord, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, ports.HistoryRecord{
			Seq:     dto.Seq,
			Kind:    dto.Kind,
			Name:    dto.Name,
			Payload: dto.Payload,
			At:      dto.At,
		})
	}

	return records, nil
}
