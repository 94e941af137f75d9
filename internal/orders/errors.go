package orders

import (
	"errors"
	"fmt"
)

// ErrForbidden means the caller is neither the order's owner nor an admin.
var ErrForbidden = errors.New("not authorized to view this order")

// NotFoundError names the entity that failed to resolve.
type NotFoundError struct {
	Entity string // "user", "product", "order"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// InsufficientStockError reports a stock check failure for one product.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.Product, e.Requested, e.Available)
}

// ValidationError rejects a malformed request before any store call.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// StorageError wraps a store failure; callers see the message only.
type StorageError struct{ Err error }

func (e *StorageError) Error() string { return "storage error: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }
