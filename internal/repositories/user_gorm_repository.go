package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toyshop/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, ErrUserNotFound
	}
	return r.first(ctx, "id = ?", id)
}

func (r *GORMUserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user (%s %s): %w", query, arg, err)
	}
	return &user, nil
}

// ListByApproval returns approved or pending users, oldest first.
func (r *GORMUserRepository) ListByApproval(ctx context.Context, approved bool) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("is_approved = ?", approved).
		Order("created_at asc").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Approve flips the approval flag. There is no way back.
func (r *GORMUserRepository) Approve(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrUserNotFound
	}
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_approved": true, "updated_at": &now})
	if res.Error != nil {
		return fmt.Errorf("failed to approve user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile replaces the address and phone of a user.
func (r *GORMUserRepository) UpdateProfile(ctx context.Context, id, address, phone string) error {
	if !validID(id) {
		return ErrUserNotFound
	}
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"address": address, "phone": phone, "updated_at": &now})
	if res.Error != nil {
		return fmt.Errorf("failed to update profile for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountByApproval counts approved or pending users.
func (r *GORMUserRepository) CountByApproval(ctx context.Context, approved bool) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_approved = ?", approved).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
