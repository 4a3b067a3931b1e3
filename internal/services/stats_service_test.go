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
)

func TestStatsService_Counts(t *testing.T) {
	ctx := context.Background()
	toys := repositories.NewMemoryToyRepository()
	users := repositories.NewMemoryUserRepository()
	orders := repositories.NewMemoryOrderRepository()
	svc := services.NewStatsService(toys, users, orders, zap.NewNop())

	seedToy(t, toys, "A", 1, 1)
	seedToy(t, toys, "B", 1, 0)
	require.NoError(t, users.Create(ctx, &models.User{Username: "a", Email: "a@x.io", IsApproved: true}))
	require.NoError(t, users.Create(ctx, &models.User{Username: "b", Email: "b@x.io"}))
	seedOrder(t, orders, "u", models.StockConfirmed)
	accepted := seedOrder(t, orders, "u", models.StockReconciliation)
	require.NoError(t, orders.UpdateStatus(ctx, accepted.ID, models.StatusAccepted))

	st := svc.Stats(ctx)
	assert.Equal(t, models.AdminStats{
		TotalToys:            2,
		TotalCustomers:       1,
		PendingApprovals:     1,
		TotalOrders:          2,
		PendingOrders:        1,
		AcceptedOrders:       1,
		ReconciliationNeeded: 1,
	}, st)
}

func TestStatsService_ZerosOnFailure(t *testing.T) {
	ctx := context.Background()
	toys := new(MockToyRepository)
	toys.On("Count", mock.Anything).Return(int64(0), errors.New("db down"))
	svc := services.NewStatsService(toys, repositories.NewMemoryUserRepository(), repositories.NewMemoryOrderRepository(), zap.NewNop())

	assert.Equal(t, models.AdminStats{}, svc.Stats(ctx))
}
