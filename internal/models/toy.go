package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Toy is a purchasable catalog item.
type Toy struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"index;type:varchar(100);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	ImagePath   string          `json:"image_path" gorm:"type:varchar(255)"` // relative to the static upload root
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (t *Toy) InStock() bool {
	return t.Stock > 0
}
