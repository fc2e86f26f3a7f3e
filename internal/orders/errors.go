package orders

import (
	"errors"
	"fmt"
)

var ErrOrderNotFound = errors.New("order not found")

// InsufficientStockError reports which product could not cover the requested
// quantity, so the caller can correct the cart.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
