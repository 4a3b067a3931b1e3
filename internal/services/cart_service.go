package services

import (
	"context"
	"errors"
	"fmt"

	"toyshop/internal/cart"
	"toyshop/internal/repositories"

	"go.uber.org/zap"
)

// Notice levels match the session flash categories.
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
)

// CartNotice is the message shown after a cart change.
type CartNotice struct {
	Level   string
	Message string
}

// CartService applies cart changes against live stock. It never writes to
// the catalog; the returned cart replaces the session cart.
type CartService struct {
	toyRepo repositories.ToyRepository
	logger  *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(toyRepo repositories.ToyRepository, logger *zap.Logger) *CartService {
	return &CartService{toyRepo: toyRepo, logger: logger}
}

// AddItem adds quantity of a toy. Quantities below one count as one.
func (s *CartService) AddItem(ctx context.Context, current cart.Cart, toyID string, quantity int) (cart.Cart, CartNotice, error) {
	if quantity <= 0 {
		quantity = 1
	}
	toy, err := s.toyRepo.GetByID(ctx, toyID)
	if err != nil {
		return current, CartNotice{}, err
	}

	c := current.Clone()
	existing, inCart := c.Get(toyID)
	wanted := existing.Quantity + quantity
	notice := CartNotice{Level: NoticeSuccess, Message: fmt.Sprintf("%s (x%d) added to cart.", toy.Name, quantity)}

	if wanted > toy.Stock {
		if inCart {
			return current, CartNotice{}, &CartRejection{
				Message: fmt.Sprintf("Cannot add %d more. Total requested exceeds stock for %s.", quantity, toy.Name),
			}
		}
		if toy.Stock <= 0 {
			return current, CartNotice{}, &CartRejection{Message: fmt.Sprintf("%s is out of stock.", toy.Name)}
		}
		wanted = toy.Stock
		notice = CartNotice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("Only %d of %s available. Added %d to your cart.", toy.Stock, toy.Name, toy.Stock),
		}
	}

	image := toy.ImagePath
	if image == "" {
		image = cart.DefaultImage
	}
	c.Put(cart.Item{
		ToyID:     toy.ID,
		Name:      toy.Name,
		Price:     toy.Price,
		ImagePath: image,
		Quantity:  wanted,
	})
	return c, notice, nil
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, current cart.Cart, toyID string, quantity int) (cart.Cart, CartNotice, error) {
	item, ok := current.Get(toyID)
	if !ok {
		return current, CartNotice{}, ErrNotInCart
	}
	if quantity <= 0 {
		c, notice := s.RemoveItem(current, toyID)
		return c, notice, nil
	}

	available := 0
	toy, err := s.toyRepo.GetByID(ctx, toyID)
	switch {
	case err == nil:
		available = toy.Stock
	case errors.Is(err, repositories.ErrToyNotFound):
	default:
		return current, CartNotice{}, err
	}
	if available < quantity {
		return current, CartNotice{}, &CartRejection{
			Message: fmt.Sprintf("Cannot update quantity. Only %d of %s in stock.", available, item.Name),
		}
	}

	c := current.Clone()
	item.Quantity = quantity
	c.Put(item)
	return c, CartNotice{Level: NoticeSuccess, Message: "Cart updated."}, nil
}

// RemoveItem drops a line. Removing a missing line only warns.
func (s *CartService) RemoveItem(current cart.Cart, toyID string) (cart.Cart, CartNotice) {
	item, ok := current.Get(toyID)
	if !ok {
		return current, CartNotice{Level: NoticeWarning, Message: "Item not found in cart."}
	}
	c := current.Clone()
	c.Remove(toyID)
	return c, CartNotice{Level: NoticeSuccess, Message: fmt.Sprintf("%s removed from cart.", item.Name)}
}
