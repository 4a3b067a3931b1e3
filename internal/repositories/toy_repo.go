package repositories

import (
	"context"

	"toyshop/internal/models"
)

// ToyRepository defines the interface for catalog access.
type ToyRepository interface {
	// GetAll returns toys sorted by name, optionally only those with stock > 0.
	GetAll(ctx context.Context, inStockOnly bool) ([]models.Toy, error)
	GetByID(ctx context.Context, id string) (*models.Toy, error)
	Create(ctx context.Context, toy *models.Toy) error
	Update(ctx context.Context, toy *models.Toy) error
	Delete(ctx context.Context, id string) error
	// DecrementStock subtracts quantity only when the current stock covers it.
	// It returns ErrInsufficientStock when the guard fails and ErrToyNotFound
	// when the toy does not exist.
	DecrementStock(ctx context.Context, id string, quantity int) error
	Count(ctx context.Context) (int64, error)
}
