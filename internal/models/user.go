package models

import "time"

// User is a registered customer account. Administrators are not stored here.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string     `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"` // never serialized
	Address      string     `json:"address" gorm:"type:varchar(200)"`
	Phone        string     `json:"phone" gorm:"type:varchar(15)"`
	IsApproved   bool       `json:"is_approved" gorm:"index;not null;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
}
