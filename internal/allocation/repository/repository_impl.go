package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/pkg/db/option"
	"github.com/smallbiznis/shipledger/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Allocation] {
	return repository.ProvideStore[domain.Allocation](db)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, allocation *domain.Allocation) error {
	return r.store(db).Create(ctx, allocation)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Allocation, error) {
	return r.store(db).FindByID(ctx, id)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	_, err := r.store(db).Update(ctx, id, fields)
	return err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return r.store(db).Delete(ctx, id)
}

func (r *repo) ListByShipment(ctx context.Context, db *gorm.DB, shipmentID int64) ([]*domain.Allocation, error) {
	return r.store(db).Find(ctx, nil,
		option.WithWhere("shipment_id = ?", shipmentID),
		option.WithSortBy("id", option.ASC),
	)
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]*domain.Allocation, error) {
	return r.store(db).Find(ctx, nil,
		option.WithWhere("order_id = ?", orderID),
		option.WithSortBy("id", option.ASC),
	)
}

func (r *repo) SumShipped(ctx context.Context, db *gorm.DB, orderItemID, excludeID int64) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(shipped_qty), 0) FROM allocations WHERE order_item_id = ? AND id <> ?`,
		orderItemID,
		excludeID,
	).Scan(&total).Error
	return total, err
}
