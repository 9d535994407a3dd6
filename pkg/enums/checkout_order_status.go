package enums

import "fmt"

// CheckoutOrderStatus tracks the lifecycle of the gateway correlation record.
type CheckoutOrderStatus string

const (
	CheckoutOrderStatusCreated         CheckoutOrderStatus = "CREATED"
	CheckoutOrderStatusCheckoutStarted CheckoutOrderStatus = "CHECKOUT_STARTED"
	CheckoutOrderStatusPending         CheckoutOrderStatus = "PENDING"
	CheckoutOrderStatusApproved        CheckoutOrderStatus = "APPROVED"
	CheckoutOrderStatusRejected        CheckoutOrderStatus = "REJECTED"
	CheckoutOrderStatusCancelled       CheckoutOrderStatus = "CANCELLED"
	CheckoutOrderStatusExpired         CheckoutOrderStatus = "EXPIRED"
	CheckoutOrderStatusFailed          CheckoutOrderStatus = "FAILED"
)

var validCheckoutOrderStatuses = []CheckoutOrderStatus{
	CheckoutOrderStatusCreated,
	CheckoutOrderStatusCheckoutStarted,
	CheckoutOrderStatusPending,
	CheckoutOrderStatusApproved,
	CheckoutOrderStatusRejected,
	CheckoutOrderStatusCancelled,
	CheckoutOrderStatusExpired,
	CheckoutOrderStatusFailed,
}

// String implements fmt.Stringer.
func (c CheckoutOrderStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CheckoutOrderStatus) IsValid() bool {
	for _, candidate := range validCheckoutOrderStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further gateway notification can change the state.
func (c CheckoutOrderStatus) IsTerminal() bool {
	switch c {
	case CheckoutOrderStatusRejected, CheckoutOrderStatusCancelled, CheckoutOrderStatusExpired:
		return true
	}
	return false
}

// ParseCheckoutOrderStatus converts raw input into a CheckoutOrderStatus.
func ParseCheckoutOrderStatus(value string) (CheckoutOrderStatus, error) {
	for _, candidate := range validCheckoutOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout order status %q", value)
}
