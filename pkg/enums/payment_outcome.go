package enums

import "fmt"

// PaymentOutcome is the normalized result carried by a gateway payment signal.
type PaymentOutcome string

const (
	PaymentOutcomePaid                 PaymentOutcome = "paid"
	PaymentOutcomeFailed               PaymentOutcome = "failed"
	PaymentOutcomeReady                PaymentOutcome = "ready"
	PaymentOutcomeVirtualAccountIssued PaymentOutcome = "virtual_account_issued"
	PaymentOutcomeCancelled            PaymentOutcome = "cancelled"
	PaymentOutcomePartialCancelled     PaymentOutcome = "partial_cancelled"
)

var validPaymentOutcomes = []PaymentOutcome{
	PaymentOutcomePaid,
	PaymentOutcomeFailed,
	PaymentOutcomeReady,
	PaymentOutcomeVirtualAccountIssued,
	PaymentOutcomeCancelled,
	PaymentOutcomePartialCancelled,
}

// String implements fmt.Stringer.
func (p PaymentOutcome) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentOutcome.
func (p PaymentOutcome) IsValid() bool {
	for _, candidate := range validPaymentOutcomes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentOutcome converts raw input into a PaymentOutcome.
func ParsePaymentOutcome(value string) (PaymentOutcome, error) {
	for _, candidate := range validPaymentOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment outcome %q", value)
}

// OrderTarget maps a gateway outcome onto the order status it drives.
func (p PaymentOutcome) OrderTarget() (OrderStatus, bool) {
	switch p {
	case PaymentOutcomePaid:
		return OrderStatusCompleted, true
	case PaymentOutcomeFailed:
		return OrderStatusFailed, true
	case PaymentOutcomeReady, PaymentOutcomeVirtualAccountIssued:
		return OrderStatusProcessing, true
	case PaymentOutcomeCancelled:
		return OrderStatusCancelled, true
	}
	// partial_cancelled leaves part of the charge standing, so it must not
	// drive the order to cancelled; it maps to nothing and is discarded.
	return "", false
}
