package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/shipment/domain"
	"github.com/smallbiznis/shipledger/pkg/db/option"
	"github.com/smallbiznis/shipledger/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Shipment] {
	return repository.ProvideStore[domain.Shipment](db)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, shipment *domain.Shipment) error {
	return r.store(db).Create(ctx, shipment)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Shipment, error) {
	return r.store(db).FindByID(ctx, id)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status domain.Status) ([]*domain.Shipment, error) {
	opts := []option.QueryOption{
		option.WithSortBy("created_at", option.DESC),
		option.WithSortBy("id", option.DESC),
	}
	if status != "" {
		opts = append(opts, option.WithWhere("status = ?", status))
	}
	return r.store(db).Find(ctx, nil, opts...)
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, id, version int64, fields map[string]any) (bool, error) {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["version"] = version + 1

	res := db.WithContext(ctx).
		Model(&domain.Shipment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM allocations WHERE shipment_id = ?`, id).Error; err != nil {
		return err
	}
	return r.store(db).Delete(ctx, id)
}
