package repositories

import (
	"context"

	"toyshop/internal/models"
)

// UserRepository defines the interface for customer account access.
// Usernames and emails are expected to be lowercased by the caller.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListByApproval(ctx context.Context, approved bool) ([]models.User, error)
	Approve(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, address, phone string) error
	CountByApproval(ctx context.Context, approved bool) (int64, error)
}
