package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/localbites/kiosk-backend/pkg/config"
)

// Pricer computes the server-side delivery fee. All amounts stay in integer
// cents; decimal is only used for the rate multiplication so the percentage
// never goes through float arithmetic.
type Pricer struct {
	baseCents       int64
	rate            decimal.Decimal
	capCents        int64
	freeDeliveryMin int64
}

// NewPricer parses the configured rate and validates the fee bounds.
func NewPricer(cfg config.PricingConfig) (*Pricer, error) {
	rate, err := decimal.NewFromString(cfg.DeliveryRatePercent)
	if err != nil {
		return nil, fmt.Errorf("parsing delivery rate %q: %w", cfg.DeliveryRatePercent, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("delivery rate must not be negative")
	}
	if cfg.DeliveryBaseCents < 0 || cfg.DeliveryCapCents < 0 || cfg.FreeDeliveryMinCents < 0 {
		return nil, fmt.Errorf("delivery fee bounds must not be negative")
	}
	return &Pricer{
		baseCents:       cfg.DeliveryBaseCents,
		rate:            rate,
		capCents:        cfg.DeliveryCapCents,
		freeDeliveryMin: cfg.FreeDeliveryMinCents,
	}, nil
}

// DeliveryFeeCents returns base + subtotal*rate%, rounded half-up to a cent
// and capped. Subtotals at or above the free-delivery threshold pay nothing.
func (p *Pricer) DeliveryFeeCents(subtotalCents int64) int64 {
	if p.freeDeliveryMin > 0 && subtotalCents >= p.freeDeliveryMin {
		return 0
	}
	variable := decimal.NewFromInt(subtotalCents).
		Mul(p.rate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	fee := p.baseCents + variable.IntPart()
	if p.capCents > 0 && fee > p.capCents {
		return p.capCents
	}
	return fee
}
