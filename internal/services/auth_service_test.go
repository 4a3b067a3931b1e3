package services_test

import (
	"context"
	"errors"
	"testing"

	"toyshop/internal/models"
	"toyshop/internal/repositories"
	"toyshop/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testAdmin = services.AdminCredentials{Username: "admin", Password: "admin-pass"}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testAdmin, zap.NewNop())

	mockRepo.On("GetByUsername", ctx, "newbie").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("GetByEmail", ctx, "newbie@example.com").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "newbie" &&
			u.Email == "newbie@example.com" &&
			!u.IsApproved &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Return(nil).Once()

	user, err := authService.Register(ctx, services.SignupInput{
		Username: " Newbie ",
		Email:    "NEWBIE@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, user.IsApproved)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testAdmin, zap.NewNop())

	mockRepo.On("GetByUsername", ctx, "other").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("GetByEmail", ctx, "taken@example.com").Return(&models.User{ID: "1"}, nil).Once()

	_, err := authService.Register(ctx, services.SignupInput{Username: "other", Email: "taken@example.com", Password: "secret1"})

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Conflict)
	assert.Contains(t, verr.Fields, "email")
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RegisterLosesRace(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testAdmin, zap.NewNop())

	mockRepo.On("GetByUsername", ctx, "racer").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("GetByEmail", ctx, "racer@example.com").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateUser).Once()

	_, err := authService.Register(ctx, services.SignupInput{Username: "racer", Email: "racer@example.com", Password: "secret1"})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Conflict)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testAdmin, zap.NewNop())

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	approved := &models.User{ID: "u-1", Username: "amy", Email: "amy@example.com", PasswordHash: string(hash), IsApproved: true}
	pending := &models.User{ID: "u-2", Username: "pat", Email: "pat@example.com", PasswordHash: string(hash)}

	mockRepo.On("GetByEmail", ctx, "amy@example.com").Return(approved, nil)
	mockRepo.On("GetByEmail", ctx, "pat@example.com").Return(pending, nil)
	mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repositories.ErrUserNotFound)

	customer, err := authService.Authenticate(ctx, "AMY@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", customer.ID())
	assert.False(t, customer.IsAdmin())

	_, err = authService.Authenticate(ctx, "amy@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = authService.Authenticate(ctx, "pat@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrPendingApproval)

	_, err = authService.Authenticate(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
}

func TestAuthService_AuthenticateAdmin(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testAdmin, zap.NewNop())

	admin, err := authService.AuthenticateAdmin("admin", "admin-pass")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, models.AdminID, admin.ID())

	_, err = authService.AuthenticateAdmin("admin", "nope")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = authService.AuthenticateAdmin("root", "admin-pass")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	empty := services.NewAuthService(new(MockUserRepository), services.AdminCredentials{Username: "admin"}, zap.NewNop())
	_, err = empty.AuthenticateAdmin("admin", "")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_LoadCustomerAndApprove(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testAdmin, zap.NewNop())

	mockRepo.On("GetByID", ctx, "u-2").Return(&models.User{ID: "u-2"}, nil).Once()
	_, err := authService.LoadCustomer(ctx, "u-2")
	assert.ErrorIs(t, err, services.ErrPendingApproval)

	mockRepo.On("Approve", ctx, "u-2").Return(nil).Once()
	require.NoError(t, authService.Approve(ctx, "u-2"))

	mockRepo.On("Approve", ctx, "missing").Return(repositories.ErrUserNotFound).Once()
	assert.ErrorIs(t, authService.Approve(ctx, "missing"), services.ErrAccountNotFound)

	mockRepo.On("GetByID", ctx, "gone").Return(nil, repositories.ErrUserNotFound).Once()
	_, err = authService.LoadCustomer(ctx, "gone")
	assert.ErrorIs(t, err, services.ErrAccountNotFound)

	mockRepo.On("GetByID", ctx, "broken").Return(nil, errors.New("db down")).Once()
	_, err = authService.LoadCustomer(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrAccountNotFound)
	mockRepo.AssertExpectations(t)
}
