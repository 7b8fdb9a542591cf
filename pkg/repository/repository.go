package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic row store over a gorm model keyed by an "id" column.
// Lookups that match nothing return (nil, nil).
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id any) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id any, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id any) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
	BatchUpdate(ctx context.Context, resources []*T) error
}
