package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, allocation *Allocation) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Allocation, error)
	Update(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	ListByShipment(ctx context.Context, db *gorm.DB, shipmentID int64) ([]*Allocation, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]*Allocation, error)
	// SumShipped totals shipped_qty for an order item, skipping excludeID when non-zero.
	SumShipped(ctx context.Context, db *gorm.DB, orderItemID, excludeID int64) (float64, error)
}
