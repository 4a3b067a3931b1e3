package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses managed by the administrator.
const (
	StatusPending   = "Pending"
	StatusAccepted  = "Accepted"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
)

// OrderStatuses lists every status an administrator may set, in display order.
var OrderStatuses = []string{StatusPending, StatusAccepted, StatusShipped, StatusDelivered, StatusCancelled}

// IsValidStatus reports whether status is one of OrderStatuses.
func IsValidStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Stock states record how the inventory side of checkout ended.
const (
	StockAwaiting       = "awaiting_stock"
	StockConfirmed      = "stock_confirmed"
	StockReconciliation = "reconciliation_needed"
	StockReconciled     = "reconciled"
)

// PaymentCashOnDelivery is the only supported payment method.
const PaymentCashOnDelivery = "Cash on Delivery"

// OrderItem is an immutable snapshot of a toy at the time of order.
// ToyID deliberately carries no foreign key: toys may be deleted later.
type OrderItem struct {
	ID       uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID  string          `json:"-" gorm:"index;type:varchar(36);not null"`
	ToyID    string          `json:"toy_id" gorm:"type:varchar(36);not null"`
	Name     string          `json:"name" gorm:"type:varchar(100);not null"`
	Quantity int             `json:"quantity" gorm:"not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // unit price at order time
}

// Subtotal is price x quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed customer order.
type Order struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID             string          `json:"user_id" gorm:"index;type:varchar(36);not null"`
	Items              []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	ShippingAddress    string          `json:"shipping_address" gorm:"type:varchar(200)"`
	Phone              string          `json:"phone" gorm:"type:varchar(15)"`
	Status             string          `json:"status" gorm:"index;type:varchar(20);not null"`
	StockState         string          `json:"stock_state" gorm:"index;type:varchar(32);not null"`
	ReconciliationNote string          `json:"reconciliation_note,omitempty" gorm:"type:text"`
	PaymentMethod      string          `json:"payment_method" gorm:"type:varchar(50);not null"`
	CreatedAt          time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ItemsTotal sums the line subtotals.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderView decorates an order with its owner's account details for admin pages.
type OrderView struct {
	Order
	UserEmail    string `json:"user_email"`
	UserUsername string `json:"user_username"`
}
