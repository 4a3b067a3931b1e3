package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials are the configured operator login.
type AdminCredentials struct {
	Username string
	Password string
}

// SignupInput is a validated signup form.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Address  string
	Phone    string
}

// AuthService handles registration, authentication and account approval.
type AuthService struct {
	userRepo repositories.UserRepository
	admin    AdminCredentials
	logger   *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, admin AdminCredentials, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		admin:    admin,
		logger:   logger,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates an unapproved customer account.
func (s *AuthService) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	username := normalize(in.Username)
	email := normalize(in.Email)

	taken := &ValidationError{Fields: map[string]string{}, Conflict: true}
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		taken.Fields["username"] = "Username taken."
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		taken.Fields["email"] = "Email already registered."
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if len(taken.Fields) > 0 {
		return nil, taken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Address:      strings.TrimSpace(in.Address),
		Phone:        strings.TrimSpace(in.Phone),
		IsApproved:   false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return nil, &ValidationError{
				Fields:   map[string]string{"email": "Username or email already registered."},
				Conflict: true,
			}
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	logging.Info(ctx, s.logger, "customer registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate checks customer credentials by email.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.Customer, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Customer{}, ErrAccountNotFound
		}
		return models.Customer{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Customer{}, ErrInvalidCredentials
	}
	if !user.IsApproved {
		return models.Customer{}, ErrPendingApproval
	}
	return models.Customer{User: user}, nil
}

// AuthenticateAdmin compares against the configured credentials.
func (s *AuthService) AuthenticateAdmin(username, password string) (models.Administrator, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	if !userOK || !passOK || s.admin.Password == "" {
		return models.Administrator{}, ErrInvalidCredentials
	}
	return models.Administrator{Username: s.admin.Username}, nil
}

// Administrator returns the configured operator identity.
func (s *AuthService) Administrator() models.Administrator {
	return models.Administrator{Username: s.admin.Username}
}

// LoadCustomer resolves a session user id to an approved customer.
func (s *AuthService) LoadCustomer(ctx context.Context, id string) (models.Customer, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Customer{}, ErrAccountNotFound
		}
		return models.Customer{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsApproved {
		return models.Customer{}, ErrPendingApproval
	}
	return models.Customer{User: user}, nil
}

// ListPending returns accounts awaiting approval, oldest first.
func (s *AuthService) ListPending(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByApproval(ctx, false)
}

// ListApproved returns approved accounts, oldest first.
func (s *AuthService) ListApproved(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByApproval(ctx, true)
}

// Approve moves an account to approved. Approving twice is harmless.
func (s *AuthService) Approve(ctx context.Context, id string) error {
	if err := s.userRepo.Approve(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	logging.Info(ctx, s.logger, "customer approved", zap.String("user_id", id))
	return nil
}

// UpdateProfile replaces the shipping address and phone of a customer.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, address, phone string) error {
	if err := s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(address), strings.TrimSpace(phone)); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}
