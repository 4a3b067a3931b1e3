package services

import (
	"context"

	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/repositories"

	"go.uber.org/zap"
)

// StatsService computes the admin dashboard counters.
type StatsService struct {
	toyRepo   repositories.ToyRepository
	userRepo  repositories.UserRepository
	orderRepo repositories.OrderRepository
	logger    *zap.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(toyRepo repositories.ToyRepository, userRepo repositories.UserRepository, orderRepo repositories.OrderRepository, logger *zap.Logger) *StatsService {
	return &StatsService{toyRepo: toyRepo, userRepo: userRepo, orderRepo: orderRepo, logger: logger}
}

// Stats returns all zeros when any count fails.
func (s *StatsService) Stats(ctx context.Context) models.AdminStats {
	var st models.AdminStats
	counts := []struct {
		name string
		dst  *int64
		fn   func() (int64, error)
	}{
		{"total_toys", &st.TotalToys, func() (int64, error) { return s.toyRepo.Count(ctx) }},
		{"total_customers", &st.TotalCustomers, func() (int64, error) { return s.userRepo.CountByApproval(ctx, true) }},
		{"pending_approvals", &st.PendingApprovals, func() (int64, error) { return s.userRepo.CountByApproval(ctx, false) }},
		{"total_orders", &st.TotalOrders, func() (int64, error) { return s.orderRepo.CountByStatus(ctx, "") }},
		{"pending_orders", &st.PendingOrders, func() (int64, error) { return s.orderRepo.CountByStatus(ctx, models.StatusPending) }},
		{"accepted_orders", &st.AcceptedOrders, func() (int64, error) { return s.orderRepo.CountByStatus(ctx, models.StatusAccepted) }},
		{"reconciliation_needed", &st.ReconciliationNeeded, func() (int64, error) {
			return s.orderRepo.CountByStockState(ctx, models.StockReconciliation)
		}},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			logging.Error(ctx, s.logger, "failed to compute admin stats", zap.String("counter", c.name), zap.Error(err))
			return models.AdminStats{}
		}
		*c.dst = n
	}
	return st
}
