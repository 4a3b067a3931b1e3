package services_test

import (
	"context"
	"testing"

	"toyshop/internal/cart"
	"toyshop/internal/models"
	"toyshop/internal/repositories"
	"toyshop/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedToy(t *testing.T, repo repositories.ToyRepository, name string, price int64, stock int) *models.Toy {
	t.Helper()
	toy := &models.Toy{Name: name, Description: name + " toy", Price: decimal.NewFromInt(price), Stock: stock}
	require.NoError(t, repo.Create(context.Background(), toy))
	return toy
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()
	toys := repositories.NewMemoryToyRepository()
	svc := services.NewCartService(toys, zap.NewNop())
	robot := seedToy(t, toys, "Robot", 100, 3)

	c, notice, err := svc.AddItem(ctx, cart.New(), robot.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, services.NoticeSuccess, notice.Level)
	assert.Equal(t, "Robot (x1) added to cart.", notice.Message)
	item, _ := c.Get(robot.ID)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, cart.DefaultImage, item.ImagePath)

	c, _, err = svc.AddItem(ctx, c, robot.ID, 2)
	require.NoError(t, err)
	item, _ = c.Get(robot.ID)
	assert.Equal(t, 3, item.Quantity)

	// an existing line never goes past stock and keeps its quantity
	after, _, err := svc.AddItem(ctx, c, robot.ID, 1)
	var rej *services.CartRejection
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Message, "exceeds stock for Robot")
	item, _ = after.Get(robot.ID)
	assert.Equal(t, 3, item.Quantity)
}

func TestCartService_AddItemClampsNewLine(t *testing.T) {
	ctx := context.Background()
	toys := repositories.NewMemoryToyRepository()
	svc := services.NewCartService(toys, zap.NewNop())
	kite := seedToy(t, toys, "Kite", 10, 2)
	empty := seedToy(t, toys, "Ghost", 10, 0)

	c, notice, err := svc.AddItem(ctx, cart.New(), kite.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, services.NoticeWarning, notice.Level)
	item, _ := c.Get(kite.ID)
	assert.Equal(t, 2, item.Quantity)

	_, _, err = svc.AddItem(ctx, c, empty.ID, 1)
	var rej *services.CartRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Ghost is out of stock.", rej.Message)

	_, _, err = svc.AddItem(ctx, c, "missing", 1)
	assert.ErrorIs(t, err, repositories.ErrToyNotFound)
}

func TestCartService_AddItemRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	toys := repositories.NewMemoryToyRepository()
	svc := services.NewCartService(toys, zap.NewNop())
	toy := seedToy(t, toys, "Drum", 20, 10)

	c, _, err := svc.AddItem(ctx, cart.New(), toy.ID, 1)
	require.NoError(t, err)

	toy.Price = decimal.NewFromInt(25)
	toy.ImagePath = "drum.png"
	require.NoError(t, toys.Update(ctx, toy))

	c, _, err = svc.AddItem(ctx, c, toy.ID, 1)
	require.NoError(t, err)
	item, _ := c.Get(toy.ID)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "drum.png", item.ImagePath)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(50)))
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	toys := repositories.NewMemoryToyRepository()
	svc := services.NewCartService(toys, zap.NewNop())
	toy := seedToy(t, toys, "Puzzle", 15, 4)

	c, _, err := svc.AddItem(ctx, cart.New(), toy.ID, 1)
	require.NoError(t, err)

	c, notice, err := svc.UpdateItem(ctx, c, toy.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "Cart updated.", notice.Message)
	assert.Equal(t, 4, c.ItemCount())

	_, _, err = svc.UpdateItem(ctx, c, toy.ID, 5)
	var rej *services.CartRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Cannot update quantity. Only 4 of Puzzle in stock.", rej.Message)

	_, _, err = svc.UpdateItem(ctx, c, "not-in-cart", 1)
	assert.ErrorIs(t, err, services.ErrNotInCart)

	require.NoError(t, toys.Delete(ctx, toy.ID))
	_, _, err = svc.UpdateItem(ctx, c, toy.ID, 1)
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Message, "Only 0 of Puzzle")

	removed, notice, err := svc.UpdateItem(ctx, c, toy.ID, 0)
	require.NoError(t, err)
	assert.True(t, removed.IsEmpty())
	assert.Equal(t, "Puzzle removed from cart.", notice.Message)
	assert.False(t, c.IsEmpty(), "input cart must stay untouched")

	_, notice = svc.RemoveItem(removed, toy.ID)
	assert.Equal(t, services.NoticeWarning, notice.Level)
}
