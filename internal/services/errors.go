package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrNotReconcilable    = errors.New("order does not need reconciliation")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotInCart          = errors.New("item not found in cart")
)

// ValidationError carries per-field messages. Conflict marks failures
// caused by existing data, such as a taken username.
type ValidationError struct {
	Fields   map[string]string
	Conflict bool
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// StockValidationError aborts checkout before anything is written.
type StockValidationError struct {
	ToyID     string
	Name      string
	Requested int
	Available int
}

func (e *StockValidationError) Error() string {
	return fmt.Sprintf("Sorry, stock for '%s' changed. Only %d available.", e.Name, e.Available)
}

// LineFailure is one order line whose stock could not be decremented.
type LineFailure struct {
	ToyID    string
	Name     string
	Quantity int
	Err      error
}

// ReconciliationError reports an order that was placed but whose stock
// could not be fully decremented.
type ReconciliationError struct {
	OrderID  string
	Failures []LineFailure
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("order %s needs stock reconciliation: %s", e.OrderID, e.Note())
}

// Note summarizes the failed lines for the order record.
func (e *ReconciliationError) Note() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (toy %s, qty %d): %v", f.Name, f.ToyID, f.Quantity, f.Err))
	}
	return strings.Join(parts, "; ")
}

// CartRejection is a cart change refused because of stock.
type CartRejection struct {
	Message string
}

func (e *CartRejection) Error() string {
	return e.Message
}
