package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"toyshop/internal/cart"
	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/repositories"
	"toyshop/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImageStore saves and removes uploaded toy images.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Delete(name string) error
}

// ToyInput is a validated toy form.
type ToyInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// ToyService handles catalog management.
type ToyService struct {
	repo   repositories.ToyRepository
	images ImageStore
	logger *zap.Logger
}

// NewToyService creates a new ToyService.
func NewToyService(repo repositories.ToyRepository, images ImageStore, logger *zap.Logger) *ToyService {
	return &ToyService{
		repo:   repo,
		images: images,
		logger: logger,
	}
}

// ListInStock returns toys customers can buy, sorted by name.
func (s *ToyService) ListInStock(ctx context.Context) ([]models.Toy, error) {
	return s.repo.GetAll(ctx, true)
}

// ListAll returns every toy, sorted by name.
func (s *ToyService) ListAll(ctx context.Context) ([]models.Toy, error) {
	return s.repo.GetAll(ctx, false)
}

// Get retrieves a toy by its ID.
func (s *ToyService) Get(ctx context.Context, id string) (*models.Toy, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAvailable hides out-of-stock toys from customers.
func (s *ToyService) GetAvailable(ctx context.Context, id string) (*models.Toy, error) {
	toy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !toy.InStock() {
		return nil, repositories.ErrToyNotFound
	}
	return toy, nil
}

func checkToyInput(in ToyInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required."
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "Description is required."
	}
	if in.Price.IsNegative() {
		fields["price"] = "Price must be 0 or more."
	}
	if in.Stock < 0 {
		fields["stock"] = "Stock must be 0 or more."
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *ToyService) saveImage(image *multipart.FileHeader) (string, error) {
	name, err := s.images.Save(image)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return "", fieldError("image", "Images only (jpg, jpeg, png, gif).")
		}
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return name, nil
}

// removeImage deletes an uploaded image. The shared placeholder is never
// removed.
func (s *ToyService) removeImage(ctx context.Context, name string) {
	if name == "" || name == cart.DefaultImage {
		return
	}
	if err := s.images.Delete(name); err != nil {
		logging.Warn(ctx, s.logger, "failed to remove toy image", zap.String("image", name), zap.Error(err))
	}
}

// Create adds a toy. The image is required.
func (s *ToyService) Create(ctx context.Context, in ToyInput, image *multipart.FileHeader) (*models.Toy, error) {
	if err := checkToyInput(in); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, fieldError("image", "Toy image is required.")
	}
	name, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	toy := &models.Toy{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		ImagePath:   name,
	}
	if err := s.repo.Create(ctx, toy); err != nil {
		s.removeImage(ctx, name)
		return nil, err
	}
	logging.Info(ctx, s.logger, "toy created", zap.String("toy_id", toy.ID), zap.String("name", toy.Name))
	return toy, nil
}

// Update edits a toy. A new image replaces and removes the previous one.
func (s *ToyService) Update(ctx context.Context, id string, in ToyInput, image *multipart.FileHeader) (*models.Toy, error) {
	toy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkToyInput(in); err != nil {
		return nil, err
	}

	oldImage := toy.ImagePath
	newImage := ""
	if image != nil {
		if newImage, err = s.saveImage(image); err != nil {
			return nil, err
		}
		toy.ImagePath = newImage
	}
	toy.Name = strings.TrimSpace(in.Name)
	toy.Description = strings.TrimSpace(in.Description)
	toy.Price = in.Price.Round(2)
	toy.Stock = in.Stock

	if err := s.repo.Update(ctx, toy); err != nil {
		if newImage != "" {
			s.removeImage(ctx, newImage)
		}
		return nil, err
	}
	if newImage != "" && oldImage != "" {
		s.removeImage(ctx, oldImage)
	}
	logging.Info(ctx, s.logger, "toy updated", zap.String("toy_id", toy.ID))
	return toy, nil
}

// Delete removes a toy and its image. Orders keep their snapshots.
func (s *ToyService) Delete(ctx context.Context, id string) error {
	toy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, toy.ImagePath)
	logging.Info(ctx, s.logger, "toy deleted", zap.String("toy_id", id), zap.String("name", toy.Name))
	return nil
}
