package repositories

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrToyNotFound       = errors.New("toy not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateUser     = errors.New("username or email already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// validID reports whether id is a well-formed identifier. Malformed ids are
// answered with the not-found error of the collection.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}
