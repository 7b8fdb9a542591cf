package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	CreatorID string
	Status    Status
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order, items []*OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, error)
	// UpdateVersioned writes fields and bumps the version only when the stored
	// version still equals version. It reports whether the row was updated.
	UpdateVersioned(ctx context.Context, db *gorm.DB, id, version int64, fields map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error

	ListItems(ctx context.Context, db *gorm.DB, orderID int64) ([]*OrderItem, error)
	FindItemByID(ctx context.Context, db *gorm.DB, id int64) (*OrderItem, error)
	UpdateItem(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error
	// DeleteItems removes the order's items with the given ids and their allocations.
	DeleteItems(ctx context.Context, db *gorm.DB, orderID int64, itemIDs []int64) (int64, error)
}
