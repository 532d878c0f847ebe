package store

import (
	"context"
	"errors"

	"stocktrack/backend/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")
)

// ProductStore is the narrow record store the core operates against.
// PutProduct is a full upsert: the record (sales, stats and quantity
// included) is written as one unit so a reader never observes a partial
// mutation.
type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	PutProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}
