package repositories

import (
	"context"

	"toyshop/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetAll returns orders newest first; an empty status returns every order.
	GetAll(ctx context.Context, status string) ([]models.Order, error)
	GetByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetByStockState(ctx context.Context, state string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateStockState(ctx context.Context, id, state, note string) error
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByStockState(ctx context.Context, state string) (int64, error)
}
