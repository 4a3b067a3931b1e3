package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toyshop/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts the order together with its line items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = newID()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order and its line items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	if !validID(id) {
		return nil, ErrOrderNotFound
	}
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetAll retrieves orders newest first, optionally filtered by status.
func (r *GORMOrderRepository) GetAll(ctx context.Context, status string) ([]models.Order, error) {
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return r.find(ctx, q)
}

// GetByUser retrieves the orders of one customer newest first.
func (r *GORMOrderRepository) GetByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if !validID(userID) {
		return []models.Order{}, nil
	}
	return r.find(ctx, r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// GetByStockState retrieves orders in the given stock state newest first.
func (r *GORMOrderRepository) GetByStockState(ctx context.Context, state string) ([]models.Order, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("stock_state = ?", state))
}

func (r *GORMOrderRepository) find(_ context.Context, q *gorm.DB) ([]models.Order, error) {
	var orders []models.Order
	if err := q.Preload("Items").Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the administrative status of an order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, id, map[string]interface{}{"status": status})
}

// UpdateStockState records the outcome of the stock decrement phase.
func (r *GORMOrderRepository) UpdateStockState(ctx context.Context, id, state, note string) error {
	return r.update(ctx, id, map[string]interface{}{"stock_state": state, "reconciliation_note": note})
}

func (r *GORMOrderRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	if !validID(id) {
		return ErrOrderNotFound
	}
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// CountByStatus counts orders with the given status; empty counts all.
func (r *GORMOrderRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// CountByStockState counts orders in the given stock state.
func (r *GORMOrderRepository) CountByStockState(ctx context.Context, state string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("stock_state = ?", state).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}
