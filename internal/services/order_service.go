package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"toyshop/internal/events"
	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/repositories"

	"go.uber.org/zap"
)

const unknownUser = "Unknown"

// OrderService handles order listing, the status workflow and the
// reconciliation queue.
type OrderService struct {
	orderRepo repositories.OrderRepository
	userRepo  repositories.UserRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, userRepo repositories.UserRepository, publisher events.Publisher, logger *zap.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// ListAll returns orders newest first with their owners. An unknown status
// filter is ignored.
func (s *OrderService) ListAll(ctx context.Context, status string) ([]models.OrderView, error) {
	if status != "" && !models.IsValidStatus(status) {
		logging.Warn(ctx, s.logger, "ignoring unknown status filter", zap.String("status", status))
		status = ""
	}
	orders, err := s.orderRepo.GetAll(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, orders), nil
}

// Get returns one order with its owner.
func (s *OrderService) Get(ctx context.Context, id string) (*models.OrderView, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views := s.withOwners(ctx, []models.Order{*order})
	return &views[0], nil
}

// ListForUser returns the history of a customer, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(ctx, userID)
}

// GetForUser returns an order only to its owner. Other users get
// ErrOrderNotFound.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repositories.ErrOrderNotFound
	}
	return order, nil
}

// SetStatus moves an order to any of the known statuses.
func (s *OrderService) SetStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	previous := order.Status
	order.Status = status

	if status == models.StatusCancelled && previous != models.StatusCancelled {
		logging.Warn(ctx, s.logger, "order cancelled, stock is not restored automatically",
			zap.String("order_id", id),
			zap.String("previous_status", previous),
		)
	}
	logging.Info(ctx, s.logger, "order status changed",
		zap.String("order_id", id),
		zap.String("from", previous),
		zap.String("to", status),
	)
	s.publish(ctx, events.OrderStatusChanged, order)
	return order, nil
}

// ListReconciliation returns orders whose stock decrement partly failed.
func (s *OrderService) ListReconciliation(ctx context.Context) ([]models.OrderView, error) {
	orders, err := s.orderRepo.GetByStockState(ctx, models.StockReconciliation)
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, orders), nil
}

// MarkReconciled closes a reconciliation case with an operator note.
func (s *OrderService) MarkReconciled(ctx context.Context, id, note string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.StockState != models.StockReconciliation {
		return nil, ErrNotReconcilable
	}

	combined := order.ReconciliationNote
	if note = strings.TrimSpace(note); note != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += "Resolved: " + note
	}
	if err := s.orderRepo.UpdateStockState(ctx, id, models.StockReconciled, combined); err != nil {
		return nil, fmt.Errorf("failed to mark order reconciled: %w", err)
	}
	order.StockState = models.StockReconciled
	order.ReconciliationNote = combined

	logging.Info(ctx, s.logger, "order reconciled", zap.String("order_id", id))
	s.publish(ctx, events.OrderReconciled, order)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order)); err != nil {
		logging.Warn(ctx, s.logger, "failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) withOwners(ctx context.Context, orders []models.Order) []models.OrderView {
	owners := make(map[string]*models.User)
	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		user, seen := owners[o.UserID]
		if !seen {
			u, err := s.userRepo.GetByID(ctx, o.UserID)
			if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
				logging.Warn(ctx, s.logger, "failed to load order owner", zap.String("user_id", o.UserID), zap.Error(err))
			}
			user = u
			owners[o.UserID] = u
		}
		view := models.OrderView{Order: o, UserEmail: unknownUser, UserUsername: unknownUser}
		if user != nil {
			view.UserEmail = user.Email
			view.UserUsername = user.Username
		}
		views = append(views, view)
	}
	return views
}
