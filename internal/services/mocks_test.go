package services_test

import (
	"context"
	"mime/multipart"
	"os"
	"testing"

	"toyshop/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListByApproval(ctx context.Context, approved bool) ([]models.User, error) {
	args := m.Called(ctx, approved)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Approve(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, address, phone string) error {
	args := m.Called(ctx, id, address, phone)
	return args.Error(0)
}

func (m *MockUserRepository) CountByApproval(ctx context.Context, approved bool) (int64, error) {
	args := m.Called(ctx, approved)
	return args.Get(0).(int64), args.Error(1)
}

// MockToyRepository is a mock implementation of repositories.ToyRepository
type MockToyRepository struct {
	mock.Mock
}

func (m *MockToyRepository) GetAll(ctx context.Context, inStockOnly bool) ([]models.Toy, error) {
	args := m.Called(ctx, inStockOnly)
	return args.Get(0).([]models.Toy), args.Error(1)
}

func (m *MockToyRepository) GetByID(ctx context.Context, id string) (*models.Toy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Toy), args.Error(1)
}

func (m *MockToyRepository) Create(ctx context.Context, toy *models.Toy) error {
	args := m.Called(ctx, toy)
	return args.Error(0)
}

func (m *MockToyRepository) Update(ctx context.Context, toy *models.Toy) error {
	args := m.Called(ctx, toy)
	return args.Error(0)
}

func (m *MockToyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockToyRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockToyRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockImageStore is a mock implementation of services.ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(fh *multipart.FileHeader) (string, error) {
	args := m.Called(fh)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
