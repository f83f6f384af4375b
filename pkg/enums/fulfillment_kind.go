package enums

import "fmt"

// FulfillmentKind is how the customer takes the order.
type FulfillmentKind string

const (
	FulfillmentDineIn   FulfillmentKind = "dine_in"
	FulfillmentTakeout  FulfillmentKind = "takeout"
	FulfillmentDelivery FulfillmentKind = "delivery"
)

var validFulfillmentKinds = []FulfillmentKind{
	FulfillmentDineIn,
	FulfillmentTakeout,
	FulfillmentDelivery,
}

// String implements fmt.Stringer.
func (f FulfillmentKind) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentKind.
func (f FulfillmentKind) IsValid() bool {
	for _, candidate := range validFulfillmentKinds {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentKind converts raw input into a FulfillmentKind.
func ParseFulfillmentKind(value string) (FulfillmentKind, error) {
	for _, candidate := range validFulfillmentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment kind %q", value)
}
