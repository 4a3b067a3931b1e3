package services

import (
	"context"
	"errors"
	"fmt"

	"toyshop/internal/cart"
	"toyshop/internal/events"
	"toyshop/internal/logging"
	"toyshop/internal/metrics"
	"toyshop/internal/models"
	"toyshop/internal/repositories"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CheckoutRequest is a submitted checkout form.
type CheckoutRequest struct {
	UserID  string
	Cart    cart.Cart
	Address string
	Phone   string
}

// CheckoutService turns a cart into an order. It reads the catalog, writes
// the order and then writes the catalog back, without a transaction
// spanning the three steps.
type CheckoutService struct {
	toyRepo   repositories.ToyRepository
	orderRepo repositories.OrderRepository
	auth      *AuthService
	publisher events.Publisher
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	toyRepo repositories.ToyRepository,
	orderRepo repositories.OrderRepository,
	auth *AuthService,
	publisher events.Publisher,
	logger *zap.Logger,
) *CheckoutService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CheckoutService{
		toyRepo:   toyRepo,
		orderRepo: orderRepo,
		auth:      auth,
		publisher: publisher,
		tracer:    otel.Tracer("toyshop/checkout"),
		logger:    logger,
	}
}

// PlaceOrder runs validation, order creation, stock decrement and
// completion. On a *ReconciliationError the returned order exists and must
// be shown to the customer together with the error.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place_order", trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	if req.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	s.syncProfile(ctx, req)

	items, err := s.validate(ctx, req.Cart)
	if err != nil {
		var stockErr *StockValidationError
		if errors.As(err, &stockErr) {
			metrics.RecordCheckout(metrics.OutcomeStockRejected)
			logging.Info(ctx, s.logger, "checkout rejected by stock validation",
				zap.String("user_id", req.UserID),
				zap.String("toy_id", stockErr.ToyID),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available),
			)
		} else {
			metrics.RecordCheckout(metrics.OutcomeFailed)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	order, err := s.createOrder(ctx, req, items)
	if err != nil {
		metrics.RecordCheckout(metrics.OutcomeFailed)
		span.SetStatus(codes.Error, err.Error())
		logging.Error(ctx, s.logger, "failed to create order", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("order_id", order.ID))

	failures := s.decrementStock(ctx, order)

	recErr := s.complete(ctx, order, failures)
	if recErr != nil {
		metrics.RecordCheckout(metrics.OutcomeReconciliation)
		span.SetStatus(codes.Error, "stock reconciliation needed")
	} else {
		metrics.RecordCheckout(metrics.OutcomeConfirmed)
		logging.Info(ctx, s.logger, "order placed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.String("total", order.TotalAmount.StringFixed(2)),
		)
	}

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.OrderPlaced, order)); err != nil {
		logging.Warn(ctx, s.logger, "failed to publish order event", zap.String("order_id", order.ID), zap.Error(err))
	}

	if recErr != nil {
		return order, recErr
	}
	return order, nil
}

func (s *CheckoutService) syncProfile(ctx context.Context, req CheckoutRequest) {
	customer, err := s.auth.LoadCustomer(ctx, req.UserID)
	if err != nil {
		logging.Warn(ctx, s.logger, "could not load profile before checkout", zap.String("user_id", req.UserID), zap.Error(err))
		return
	}
	if customer.User.Address == req.Address && customer.User.Phone == req.Phone {
		return
	}
	if err := s.auth.UpdateProfile(ctx, req.UserID, req.Address, req.Phone); err != nil {
		logging.Warn(ctx, s.logger, "failed to update profile during checkout", zap.String("user_id", req.UserID), zap.Error(err))
	}
}

// validate re-reads every toy. Nothing is written.
func (s *CheckoutService) validate(ctx context.Context, c cart.Cart) ([]models.OrderItem, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.validate")
	defer span.End()

	lines := c.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		toy, err := s.toyRepo.GetByID(ctx, line.ToyID)
		if err != nil {
			if errors.Is(err, repositories.ErrToyNotFound) {
				return nil, &StockValidationError{ToyID: line.ToyID, Name: line.Name, Requested: line.Quantity, Available: 0}
			}
			return nil, fmt.Errorf("failed to validate %s: %w", line.Name, err)
		}
		if toy.Stock < line.Quantity {
			return nil, &StockValidationError{ToyID: line.ToyID, Name: line.Name, Requested: line.Quantity, Available: toy.Stock}
		}
		items = append(items, models.OrderItem{
			ToyID:    line.ToyID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}
	return items, nil
}

func (s *CheckoutService) createOrder(ctx context.Context, req CheckoutRequest, items []models.OrderItem) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.create_order")
	defer span.End()

	order := &models.Order{
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     models.ItemsTotal(items),
		ShippingAddress: req.Address,
		Phone:           req.Phone,
		Status:          models.StatusPending,
		StockState:      models.StockAwaiting,
		PaymentMethod:   models.PaymentCashOnDelivery,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// decrementStock runs every line even after a failure.
func (s *CheckoutService) decrementStock(ctx context.Context, order *models.Order) []LineFailure {
	ctx, span := s.tracer.Start(ctx, "checkout.decrement_stock")
	defer span.End()

	var failures []LineFailure
	for _, item := range order.Items {
		if err := s.toyRepo.DecrementStock(ctx, item.ToyID, item.Quantity); err != nil {
			metrics.RecordDecrementFailure()
			logging.Error(ctx, s.logger, "stock decrement failed",
				zap.String("order_id", order.ID),
				zap.String("toy_id", item.ToyID),
				zap.String("toy_name", item.Name),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			failures = append(failures, LineFailure{ToyID: item.ToyID, Name: item.Name, Quantity: item.Quantity, Err: err})
		}
	}
	span.SetAttributes(attribute.Int("failed_lines", len(failures)))
	return failures
}

// complete records the stock outcome on the order.
func (s *CheckoutService) complete(ctx context.Context, order *models.Order, failures []LineFailure) *ReconciliationError {
	ctx, span := s.tracer.Start(ctx, "checkout.complete")
	defer span.End()

	state, note := models.StockConfirmed, ""
	var recErr *ReconciliationError
	if len(failures) > 0 {
		recErr = &ReconciliationError{OrderID: order.ID, Failures: failures}
		state, note = models.StockReconciliation, recErr.Note()
	}

	if err := s.orderRepo.UpdateStockState(ctx, order.ID, state, note); err != nil {
		// the order stays awaiting_stock and shows up for operators
		logging.Error(ctx, s.logger, "failed to record stock state",
			zap.String("order_id", order.ID),
			zap.String("stock_state", state),
			zap.Error(err),
		)
	} else {
		order.StockState = state
		order.ReconciliationNote = note
	}
	return recErr
}
