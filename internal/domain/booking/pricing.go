package booking

import (
	"math"
	"time"

	"github.com/aerolot/service-parking/internal/domain"
)

// taxRate is the flat tax applied to every booking subtotal.
const taxRate = 0.08

// loyaltyPointUnit is the amount of total spend that earns one loyalty point.
const loyaltyPointUnit = 10.0

// PricingBreakdown is the immutable cost snapshot frozen on a booking at
// creation time.
type PricingBreakdown struct {
	DailyRate           float64 `json:"daily_rate"`
	TotalDays           int     `json:"total_days"`
	Subtotal            float64 `json:"subtotal"`
	Discount            float64 `json:"discount"`
	Tax                 float64 `json:"tax"`
	Total               float64 `json:"total"`
	LoyaltyPointsEarned int     `json:"loyalty_points_earned"`
}

// PricingCalculator defines the interface for computing a booking's cost breakdown.
type PricingCalculator interface {
	// Compute returns the cost breakdown for a stay. It is pure: identical
	// inputs always produce an identical breakdown.
	Compute(checkIn, checkOut time.Time, dailyRate, discount float64) (PricingBreakdown, error)
}

// StandardPricingCalculator implements the default airport parking pricing.
type StandardPricingCalculator struct{}

// NewStandardPricingCalculator creates a new StandardPricingCalculator.
func NewStandardPricingCalculator() *StandardPricingCalculator {
	return &StandardPricingCalculator{}
}

// Compute calculates the cost breakdown for a stay.
//
// Pricing rules:
//   - Days are billed whole: a partial day rounds up, so a 25-hour stay
//     bills as 2 days.
//   - Tax is a flat 8% of the subtotal.
//   - Discount must lie within [0, subtotal].
//   - Currency values are rounded to 2 decimal places (half away from zero)
//     once per output field, never on intermediates.
func (c *StandardPricingCalculator) Compute(checkIn, checkOut time.Time, dailyRate, discount float64) (PricingBreakdown, error) {
	if !checkOut.After(checkIn) {
		return PricingBreakdown{}, domain.NewInvalidRangeError("check-out must be after check-in")
	}
	if dailyRate < 0 {
		return PricingBreakdown{}, domain.NewValidationError("daily rate cannot be negative")
	}

	totalDays := int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
	subtotal := dailyRate * float64(totalDays)

	if discount < 0 || discount > subtotal {
		return PricingBreakdown{}, domain.NewInvalidDiscountError("discount must be between 0 and the subtotal")
	}

	tax := subtotal * taxRate
	total := roundCurrency(subtotal - discount + tax)

	return PricingBreakdown{
		DailyRate:           roundCurrency(dailyRate),
		TotalDays:           totalDays,
		Subtotal:            roundCurrency(subtotal),
		Discount:            roundCurrency(discount),
		Tax:                 roundCurrency(tax),
		Total:               total,
		LoyaltyPointsEarned: int(math.Floor(total / loyaltyPointUnit)),
	}, nil
}

// roundCurrency rounds to 2 decimal places, half away from zero.
func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
