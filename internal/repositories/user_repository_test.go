package repositories

import (
	"context"
	"testing"
	"time"

	"toyshop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRepositories(t *testing.T) map[string]UserRepository {
	return map[string]UserRepository{
		"gorm":   NewGORMUserRepository(newTestDB(t)),
		"memory": NewMemoryUserRepository(),
	}
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	for name, repo := range userRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
			require.NoError(t, repo.Create(ctx, user))
			assert.NotEmpty(t, user.ID)

			byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)
			assert.False(t, byEmail.IsApproved)

			byName, err := repo.GetByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byName.ID)

			_, err = repo.GetByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, ErrUserNotFound)
			_, err = repo.GetByID(ctx, "garbage")
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestUserRepository_DuplicateIsRejected(t *testing.T) {
	for name, repo := range userRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"}))

			err := repo.Create(ctx, &models.User{Username: "bobby", Email: "bob@example.com", PasswordHash: "h"})
			assert.ErrorIs(t, err, ErrDuplicateUser)
			err = repo.Create(ctx, &models.User{Username: "bob", Email: "other@example.com", PasswordHash: "h"})
			assert.ErrorIs(t, err, ErrDuplicateUser)

			pending, err := repo.ListByApproval(ctx, false)
			require.NoError(t, err)
			assert.Len(t, pending, 1)
		})
	}
}

func TestUserRepository_ApprovalAndProfile(t *testing.T) {
	for name, repo := range userRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := &models.User{Username: "first", Email: "first@example.com", PasswordHash: "h", CreatedAt: time.Now().Add(-time.Hour)}
			second := &models.User{Username: "second", Email: "second@example.com", PasswordHash: "h", CreatedAt: time.Now()}
			require.NoError(t, repo.Create(ctx, second))
			require.NoError(t, repo.Create(ctx, first))

			pending, err := repo.ListByApproval(ctx, false)
			require.NoError(t, err)
			require.Len(t, pending, 2)
			assert.Equal(t, "first", pending[0].Username)

			require.NoError(t, repo.Approve(ctx, first.ID))
			assert.ErrorIs(t, repo.Approve(ctx, "3f0e4a43-8f3c-4f0e-9e59-3b0b7c1f0000"), ErrUserNotFound)

			approved, err := repo.CountByApproval(ctx, true)
			require.NoError(t, err)
			assert.EqualValues(t, 1, approved)

			require.NoError(t, repo.UpdateProfile(ctx, first.ID, "1 Toy Street", "5551234567"))
			got, err := repo.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.True(t, got.IsApproved)
			assert.Equal(t, "1 Toy Street", got.Address)
			assert.Equal(t, "5551234567", got.Phone)
			assert.NotNil(t, got.UpdatedAt)
		})
	}
}
