package repository

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/reconcile/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, run *domain.Run) error {
	if run == nil {
		return nil
	}
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) ListByTarget(ctx context.Context, db *gorm.DB, kind domain.Kind, targetID int64, limit int) ([]*domain.Run, error) {
	var runs []*domain.Run
	stmt := db.WithContext(ctx).Model(&domain.Run{}).
		Where("kind = ? AND target_id = ?", kind, targetID).
		Order("started_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
