package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"toyshop/internal/models"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

// Create adds a new order.
func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = newID()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order = cloneOrder(order)
	return &order, nil
}

// GetAll returns orders newest first, optionally filtered by status.
func (r *MemoryOrderRepository) GetAll(_ context.Context, status string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return status == "" || o.Status == status }), nil
}

// GetByUser returns the orders of a user newest first.
func (r *MemoryOrderRepository) GetByUser(_ context.Context, userID string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.UserID == userID }), nil
}

// GetByStockState returns orders in a stock state newest first.
func (r *MemoryOrderRepository) GetByStockState(_ context.Context, state string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.StockState == state }), nil
}

func (r *MemoryOrderRepository) filter(keep func(models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			list = append(list, cloneOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// UpdateStatus updates the status of an order.
func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id, status string) error {
	return r.mutate(id, func(o *models.Order) { o.Status = status })
}

// UpdateStockState records the stock outcome of an order.
func (r *MemoryOrderRepository) UpdateStockState(_ context.Context, id, state, note string) error {
	return r.mutate(id, func(o *models.Order) {
		o.StockState = state
		o.ReconciliationNote = note
	})
}

func (r *MemoryOrderRepository) mutate(id string, fn func(*models.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	fn(&order)
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// CountByStatus counts orders with a status; empty counts all.
func (r *MemoryOrderRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	orders, _ := r.GetAll(ctx, status)
	return int64(len(orders)), nil
}

// CountByStockState counts orders in a stock state.
func (r *MemoryOrderRepository) CountByStockState(ctx context.Context, state string) (int64, error) {
	orders, _ := r.GetByStockState(ctx, state)
	return int64(len(orders)), nil
}
