package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"toyshop/internal/models"
)

// MemoryToyRepository is an in-memory implementation of ToyRepository.
type MemoryToyRepository struct {
	toys map[string]models.Toy
	mu   sync.RWMutex
}

// NewMemoryToyRepository creates a new instance of MemoryToyRepository.
func NewMemoryToyRepository() *MemoryToyRepository {
	return &MemoryToyRepository{
		toys: make(map[string]models.Toy),
	}
}

// GetAll returns toys sorted by name.
func (r *MemoryToyRepository) GetAll(_ context.Context, inStockOnly bool) ([]models.Toy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	toyList := make([]models.Toy, 0, len(r.toys))
	for _, t := range r.toys {
		if inStockOnly && t.Stock <= 0 {
			continue
		}
		toyList = append(toyList, t)
	}
	sort.Slice(toyList, func(i, j int) bool { return toyList[i].Name < toyList[j].Name })
	return toyList, nil
}

// GetByID returns a toy by its ID.
func (r *MemoryToyRepository) GetByID(_ context.Context, id string) (*models.Toy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	toy, ok := r.toys[id]
	if !ok {
		return nil, ErrToyNotFound
	}
	return &toy, nil
}

// Create adds a new toy.
func (r *MemoryToyRepository) Create(_ context.Context, toy *models.Toy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if toy.ID == "" {
		toy.ID = newID()
	}
	now := time.Now()
	toy.CreatedAt = now
	toy.UpdatedAt = now
	r.toys[toy.ID] = *toy
	return nil
}

// Update modifies an existing toy.
func (r *MemoryToyRepository) Update(_ context.Context, toy *models.Toy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.toys[toy.ID]
	if !ok {
		return ErrToyNotFound
	}
	toy.CreatedAt = existing.CreatedAt
	toy.UpdatedAt = time.Now()
	r.toys[toy.ID] = *toy
	return nil
}

// Delete removes a toy by its ID.
func (r *MemoryToyRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.toys[id]; !ok {
		return ErrToyNotFound
	}
	delete(r.toys, id)
	return nil
}

// DecrementStock applies the compare-and-decrement under the write lock.
func (r *MemoryToyRepository) DecrementStock(_ context.Context, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if quantity <= 0 {
		return fmt.Errorf("invalid decrement quantity %d", quantity)
	}
	toy, ok := r.toys[id]
	if !ok {
		return ErrToyNotFound
	}
	if toy.Stock < quantity {
		return ErrInsufficientStock
	}
	toy.Stock -= quantity
	toy.UpdatedAt = time.Now()
	r.toys[id] = toy
	return nil
}

// Count returns the number of toys.
func (r *MemoryToyRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.toys)), nil
}
