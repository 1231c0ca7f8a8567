// Package routingrepo persists the routing assignments: the durable mapping
// from an order id to the execution strategy owning it.
package routingrepo

import (
	"context"
	"errors"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoutingDTO represents one routing assignment row.
type RoutingDTO struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Strategy  string    `gorm:"size:32"`
	CreatedAt time.Time
}

// TableName overrides GORM's default naming convention to use "order_routing".
func (RoutingDTO) TableName() string {
	return "order_routing"
}

// GormRoutingRepository implements RoutingRepository using GORM.
type GormRoutingRepository struct {
	db *gorm.DB
}

// NewGormRoutingRepository creates a new GORM routing repository.
func NewGormRoutingRepository(db *gorm.DB) *GormRoutingRepository {
	return &GormRoutingRepository{db: db}
}

var _ ports.RoutingRepository = (*GormRoutingRepository)(nil)

// Add persists a new assignment. Inserting the same order id with the same
// strategy again is a no-op, so a retried creation converges on one row; a
// conflicting strategy for an existing id is rejected.
func (r *GormRoutingRepository) Add(ctx context.Context, orderID kernel.UUID, strategy services.StrategyID) error {
	if err := errors.Join(orderID.Validate(), strategy.Validate()); err != nil {
		return err
	}

	dto := RoutingDTO{OrderID: orderID.Bytes(), Strategy: string(strategy), CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dto).Error
	if err != nil {
		return err
	}

	existing, err := r.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if existing != strategy {
		return errs.NewValueIsInvalidError("order is already routed to " + string(existing))
	}
	return nil
}

// Get retrieves the assignment for an order.
func (r *GormRoutingRepository) Get(ctx context.Context, orderID kernel.UUID) (services.StrategyID, error) {
	if err := orderID.Validate(); err != nil {
		return "", err
	}

	var dto RoutingDTO
	err := r.db.WithContext(ctx).First(&dto, "order_id = ?", orderID.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.NewRoutingNotFoundError(orderID.String())
		}
		return "", err
	}

	return services.StrategyID(dto.Strategy), nil
}

// Remove deletes the assignment for an order. Removing an already removed
// assignment succeeds, so closing retries stay idempotent.
func (r *GormRoutingRepository) Remove(ctx context.Context, orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Delete(&RoutingDTO{}, "order_id = ?", orderID.Bytes()).Error
}
