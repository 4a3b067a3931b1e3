package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"toyshop/internal/logging"
	"toyshop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Event types, also used as routing keys.
const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
	OrderReconciled    = "order.reconciled"
)

// OrderEvent is the message published when an order changes.
type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Status     string          `json:"status"`
	StockState string          `json:"stock_state"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"item_count"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewOrderEvent builds an event from the current state of an order.
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		StockState: order.StockState,
		Total:      order.TotalAmount,
		ItemCount:  count,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends order events. Failures never undo the change that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// Transport is the raw message sink, satisfied by *rabbitmq.Client.
type Transport interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// BrokerPublisher publishes through a circuit breaker so a broker outage
// fails fast instead of slowing down every checkout.
type BrokerPublisher struct {
	transport Transport
	cb        *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewBrokerPublisher wraps transport in a circuit breaker.
func NewBrokerPublisher(transport Transport, logger *zap.Logger) *BrokerPublisher {
	settings := gobreaker.Settings{
		Name:        "OrderEvents",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &BrokerPublisher{
		transport: transport,
		cb:        gobreaker.NewCircuitBreaker(settings),
		logger:    logger,
	}
}

// Publish marshals the event and sends it with the event type as routing key.
func (p *BrokerPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	_, err = executeWithBreaker(p.cb, func() (struct{}, error) {
		return struct{}{}, p.transport.Publish(ctx, event.Type, body)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", event.Type, event.OrderID, err)
	}
	logging.Debug(ctx, p.logger, "order event published",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID),
	)
	return nil
}

func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})

	if err != nil {
		return *new(T), err
	}

	return res.(T), nil
}

// NotificationHook is the consumer side of order events. It only logs; it
// is where customer notifications would be sent from.
func NotificationHook(logger *zap.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// unparseable messages would be redelivered forever
			logger.Warn("dropping malformed order event",
				zap.Uint64("delivery_tag", msg.DeliveryTag),
				zap.Error(err),
			)
			return nil
		}
		logger.Info("order notification",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.String("user_id", event.UserID),
			zap.String("status", event.Status),
			zap.String("stock_state", event.StockState),
			zap.String("total", event.Total.StringFixed(2)),
		)
		return nil
	}
}
