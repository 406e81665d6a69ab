package service

import "errors"

var (
	// ErrEmptyCart is a reported condition, not a fault: placing an order
	// with nothing in the cart fails validation and creates no order.
	ErrEmptyCart = errors.New("cart is empty, nothing to order")

	// ErrOrderCreationFailed wraps any store failure while the order
	// aggregate is being created. The cart is left untouched and the user
	// may resubmit.
	ErrOrderCreationFailed = errors.New("order creation failed")

	ErrIllegalTransition = errors.New("illegal transition of placement status")
)
