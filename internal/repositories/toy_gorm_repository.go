package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toyshop/internal/models"

	"gorm.io/gorm"
)

// GORMToyRepository is a GORM implementation of ToyRepository.
type GORMToyRepository struct {
	db *gorm.DB
}

// NewGORMToyRepository creates a new instance of GORMToyRepository.
func NewGORMToyRepository(db *gorm.DB) *GORMToyRepository {
	return &GORMToyRepository{
		db: db,
	}
}

// GetAll retrieves toys sorted by name.
func (r *GORMToyRepository) GetAll(ctx context.Context, inStockOnly bool) ([]models.Toy, error) {
	var toys []models.Toy
	q := r.db.WithContext(ctx).Order("name asc")
	if inStockOnly {
		q = q.Where("stock > 0")
	}
	if err := q.Find(&toys).Error; err != nil {
		return nil, fmt.Errorf("failed to get toys: %w", err)
	}
	return toys, nil
}

// GetByID retrieves a single toy by its ID from the database.
func (r *GORMToyRepository) GetByID(ctx context.Context, id string) (*models.Toy, error) {
	if !validID(id) {
		return nil, ErrToyNotFound
	}
	var toy models.Toy
	if err := r.db.WithContext(ctx).First(&toy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrToyNotFound
		}
		return nil, fmt.Errorf("failed to get toy by ID %s: %w", id, err)
	}
	return &toy, nil
}

// Create creates a new toy in the database.
func (r *GORMToyRepository) Create(ctx context.Context, toy *models.Toy) error {
	if toy.ID == "" {
		toy.ID = newID()
	}
	if err := r.db.WithContext(ctx).Create(toy).Error; err != nil {
		return fmt.Errorf("failed to create toy: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of an existing toy.
// Save is avoided because it inserts when the row is missing.
func (r *GORMToyRepository) Update(ctx context.Context, toy *models.Toy) error {
	if !validID(toy.ID) {
		return ErrToyNotFound
	}
	toy.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Toy{}).
		Where("id = ?", toy.ID).
		Updates(map[string]interface{}{
			"name":        toy.Name,
			"description": toy.Description,
			"price":       toy.Price,
			"stock":       toy.Stock,
			"image_path":  toy.ImagePath,
			"updated_at":  toy.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update toy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrToyNotFound
	}
	return nil
}

// Delete deletes a toy by its ID. Order snapshots are untouched.
func (r *GORMToyRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrToyNotFound
	}
	res := r.db.WithContext(ctx).Delete(&models.Toy{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete toy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrToyNotFound
	}
	return nil
}

// DecrementStock runs a single conditional UPDATE; the WHERE clause is the
// only guard keeping stock non-negative under concurrent checkouts.
func (r *GORMToyRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if !validID(id) {
		return ErrToyNotFound
	}
	if quantity <= 0 {
		return fmt.Errorf("invalid decrement quantity %d", quantity)
	}
	res := r.db.WithContext(ctx).Model(&models.Toy{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock for toy %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Toy{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check toy %s after decrement: %w", id, err)
		}
		if n == 0 {
			return ErrToyNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// Count returns the number of toys.
func (r *GORMToyRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Toy{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count toys: %w", err)
	}
	return n, nil
}
