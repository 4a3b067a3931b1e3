package repositories

import (
	"context"
	"testing"
	"time"

	"toyshop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(userID string, items ...models.OrderItem) *models.Order {
	return &models.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     models.ItemsTotal(items),
		ShippingAddress: "1 Toy Street",
		Phone:           "5551234567",
		Status:          models.StatusPending,
		StockState:      models.StockAwaiting,
		PaymentMethod:   models.PaymentCashOnDelivery,
	}
}

func TestOrderRepository_SnapshotSurvivesToyDeletion(t *testing.T) {
	db := newTestDB(t)
	toys := NewGORMToyRepository(db)
	orders := NewGORMOrderRepository(db)
	ctx := context.Background()

	toy := &models.Toy{Name: "Train", Description: "Choo", Price: decimal.NewFromInt(100), Stock: 4}
	require.NoError(t, toys.Create(ctx, toy))

	order := newTestOrder(newID(), models.OrderItem{ToyID: toy.ID, Name: toy.Name, Quantity: 2, Price: toy.Price})
	require.NoError(t, orders.Create(ctx, order))

	toy.Price = decimal.NewFromInt(300)
	require.NoError(t, toys.Update(ctx, toy))
	require.NoError(t, toys.Delete(ctx, toy.ID))

	got, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Train", got.Items[0].Name)
	assert.Equal(t, toy.ID, got.Items[0].ToyID)
	assert.True(t, got.Items[0].Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(200)))
}

func orderRepositories(t *testing.T) map[string]OrderRepository {
	return map[string]OrderRepository{
		"gorm":   NewGORMOrderRepository(newTestDB(t)),
		"memory": NewMemoryOrderRepository(),
	}
}

func TestOrderRepository_ListingAndUpdates(t *testing.T) {
	for name, repo := range orderRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userID := newID()
			item := models.OrderItem{ToyID: newID(), Name: "Doll", Quantity: 1, Price: decimal.NewFromInt(7)}

			older := newTestOrder(userID, item)
			require.NoError(t, repo.Create(ctx, older))
			time.Sleep(5 * time.Millisecond)
			newer := newTestOrder(userID, item)
			require.NoError(t, repo.Create(ctx, newer))
			require.NoError(t, repo.Create(ctx, newTestOrder(newID(), item)))

			mine, err := repo.GetByUser(ctx, userID)
			require.NoError(t, err)
			require.Len(t, mine, 2)
			assert.Equal(t, newer.ID, mine[0].ID)
			assert.Len(t, mine[0].Items, 1)

			require.NoError(t, repo.UpdateStatus(ctx, older.ID, models.StatusAccepted))
			accepted, err := repo.GetAll(ctx, models.StatusAccepted)
			require.NoError(t, err)
			require.Len(t, accepted, 1)
			assert.Equal(t, older.ID, accepted[0].ID)

			require.NoError(t, repo.UpdateStockState(ctx, newer.ID, models.StockReconciliation, "Doll: insufficient stock"))
			flagged, err := repo.GetByStockState(ctx, models.StockReconciliation)
			require.NoError(t, err)
			require.Len(t, flagged, 1)
			assert.Equal(t, "Doll: insufficient stock", flagged[0].ReconciliationNote)

			total, err := repo.CountByStatus(ctx, "")
			require.NoError(t, err)
			assert.EqualValues(t, 3, total)
			pending, err := repo.CountByStatus(ctx, models.StatusPending)
			require.NoError(t, err)
			assert.EqualValues(t, 2, pending)
			n, err := repo.CountByStockState(ctx, models.StockReconciliation)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			assert.ErrorIs(t, repo.UpdateStatus(ctx, newID(), models.StatusShipped), ErrOrderNotFound)
			_, err = repo.GetByID(ctx, "bad-id")
			assert.ErrorIs(t, err, ErrOrderNotFound)
		})
	}
}
