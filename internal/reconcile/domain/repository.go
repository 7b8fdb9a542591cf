package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, run *Run) error
	// ListByTarget returns the newest runs first.
	ListByTarget(ctx context.Context, db *gorm.DB, kind Kind, targetID int64, limit int) ([]*Run, error)
}
