package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a read/write store over a single gorm model.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	FindByID(ctx context.Context, id int64) (*T, error)
	FindOne(ctx context.Context, query *T) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
}
