package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"toyshop/internal/models"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a user, enforcing unique username and email.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicateUser
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.ID] = *user
	return nil
}

// GetByUsername returns a user by username.
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

// GetByEmail returns a user by email.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

// GetByID returns a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) find(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

// ListByApproval returns users by approval flag, oldest first.
func (r *MemoryUserRepository) ListByApproval(_ context.Context, approved bool) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.User, 0)
	for _, u := range r.users {
		if u.IsApproved == approved {
			list = append(list, u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// Approve marks a user approved.
func (r *MemoryUserRepository) Approve(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) { u.IsApproved = true })
}

// UpdateProfile replaces address and phone.
func (r *MemoryUserRepository) UpdateProfile(_ context.Context, id, address, phone string) error {
	return r.mutate(id, func(u *models.User) {
		u.Address = address
		u.Phone = phone
	})
}

func (r *MemoryUserRepository) mutate(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&user)
	now := time.Now()
	user.UpdatedAt = &now
	r.users[id] = user
	return nil
}

// CountByApproval counts users by approval flag.
func (r *MemoryUserRepository) CountByApproval(ctx context.Context, approved bool) (int64, error) {
	users, _ := r.ListByApproval(ctx, approved)
	return int64(len(users)), nil
}
