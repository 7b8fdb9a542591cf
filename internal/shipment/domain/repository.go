package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, shipment *Shipment) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Shipment, error)
	List(ctx context.Context, db *gorm.DB, status Status) ([]*Shipment, error)
	// UpdateVersioned writes fields and bumps the version when the stored
	// version still equals version.
	UpdateVersioned(ctx context.Context, db *gorm.DB, id, version int64, fields map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
