package checkout

import "fmt"

// ValidationError marks user-correctable input problems. It maps to a 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid checkout request: " + e.Reason
}

// NotFoundError names the cart line whose product no longer exists in the
// catalog. The whole checkout aborts; there are no partial orders.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}
