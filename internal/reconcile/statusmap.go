package reconcile

import (
	"strings"

	"github.com/mercadito-dev/mercadito-backend/pkg/enums"
)

// Gateway status vocabulary. The pending family groups every transient
// state the gateway can report while a payment is still in flight.
const (
	gatewayApproved     = "approved"
	gatewayPending      = "pending"
	gatewayInProcess    = "in_process"
	gatewayInMediation  = "in_mediation"
	gatewayInCollection = "in_collection"
	gatewayRejected     = "rejected"
	gatewayCancelled    = "cancelled"
	gatewayRefunded     = "refunded"
	gatewayChargedBack  = "charged_back"
	gatewayExpired      = "expired"
)

// MapPaymentStatus translates a raw gateway status into the internal payment
// vocabulary. Total: unknown inputs land on pending.
func MapPaymentStatus(gatewayStatus string) enums.PaymentStatus {
	switch normalize(gatewayStatus) {
	case gatewayApproved:
		return enums.PaymentStatusApproved
	case gatewayRejected:
		return enums.PaymentStatusRejected
	case gatewayCancelled:
		return enums.PaymentStatusCancelled
	case gatewayRefunded:
		return enums.PaymentStatusRefunded
	case gatewayChargedBack:
		return enums.PaymentStatusChargeback
	case gatewayExpired:
		return enums.PaymentStatusExpired
	default:
		return enums.PaymentStatusPending
	}
}

// MapCheckoutOrderStatus translates a raw gateway status into the checkout
// order lifecycle. Refunds and chargebacks keep the order APPROVED; the money
// flow is handled by the access router, not by un-converting the order.
// Total: unknown inputs land on PENDING.
func MapCheckoutOrderStatus(gatewayStatus string) enums.CheckoutOrderStatus {
	switch normalize(gatewayStatus) {
	case gatewayApproved, gatewayRefunded, gatewayChargedBack:
		return enums.CheckoutOrderStatusApproved
	case gatewayRejected:
		return enums.CheckoutOrderStatusRejected
	case gatewayCancelled:
		return enums.CheckoutOrderStatusCancelled
	case gatewayExpired:
		return enums.CheckoutOrderStatusExpired
	default:
		return enums.CheckoutOrderStatusPending
	}
}

// IsApproved reports whether the gateway status means the money arrived.
func IsApproved(gatewayStatus string) bool {
	return normalize(gatewayStatus) == gatewayApproved
}

// IsPending reports whether the gateway status is still in flight.
func IsPending(gatewayStatus string) bool {
	switch normalize(gatewayStatus) {
	case gatewayPending, gatewayInProcess, gatewayInMediation, gatewayInCollection:
		return true
	}
	return false
}

// IsFailed reports whether the payment terminally failed without ever
// having been approved.
func IsFailed(gatewayStatus string) bool {
	switch normalize(gatewayStatus) {
	case gatewayRejected, gatewayCancelled:
		return true
	}
	return false
}

func normalize(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
