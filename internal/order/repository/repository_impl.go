package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/order/domain"
	"github.com/smallbiznis/shipledger/pkg/db/option"
	"github.com/smallbiznis/shipledger/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) orders(db *gorm.DB) repository.Repository[domain.Order] {
	return repository.ProvideStore[domain.Order](db)
}

func (r *repo) items(db *gorm.DB) repository.Repository[domain.OrderItem] {
	return repository.ProvideStore[domain.OrderItem](db)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order, items []*domain.OrderItem) error {
	if err := r.orders(db).Create(ctx, order); err != nil {
		return err
	}
	return r.items(db).BatchCreate(ctx, items)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	return r.orders(db).FindByID(ctx, id)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	query := &domain.Order{CreatorID: filter.CreatorID, Status: filter.Status}
	return r.orders(db).Find(ctx, query,
		option.WithSortBy("created_at", option.DESC),
		option.WithSortBy("id", option.DESC),
	)
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, id, version int64, fields map[string]any) (bool, error) {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["version"] = version + 1

	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM allocations WHERE order_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}
	return r.orders(db).Delete(ctx, id)
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID int64) ([]*domain.OrderItem, error) {
	return r.items(db).Find(ctx, nil,
		option.WithWhere("order_id = ?", orderID),
		option.WithSortBy("line_no", option.ASC),
		option.WithSortBy("id", option.ASC),
	)
}

func (r *repo) FindItemByID(ctx context.Context, db *gorm.DB, id int64) (*domain.OrderItem, error) {
	return r.items(db).FindByID(ctx, id)
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	_, err := r.items(db).Update(ctx, id, fields)
	return err
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, orderID int64, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	if err := db.WithContext(ctx).
		Exec(`DELETE FROM allocations WHERE order_id = ? AND order_item_id IN ?`, orderID, itemIDs).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).
		Where("order_id = ? AND id IN ?", orderID, itemIDs).
		Delete(&domain.OrderItem{})
	return res.RowsAffected, res.Error
}
