// Package pricing maps an item's distance to expiry onto a markdown.
//
// The markdown is linear over the last four days of shelf life:
//
//	f(x) = 100              x <= 0  (expired)
//	f(x) = (4 - x) / 4 * 100  0 < x <= 4
//	f(x) = 0                x > 4   (fresh)
//
// Note the jump at x = 0: one day out is 75%, the expiry day itself is 100%.
package pricing

import (
	"math"

	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
)

const (
	// MarkdownWindowDays is how many days before expiry markdowns begin.
	MarkdownWindowDays = 4

	// NearExpiryDays is the upper bound (inclusive) of the near-expiry band.
	NearExpiryDays = 2

	// DefaultCostRatio is applied to the base price when no cost price is given.
	DefaultCostRatio = 0.7
)

// Status colors.
const (
	StatusRed    = "red"
	StatusYellow = "yellow"
	StatusGreen  = "green"
)

// ComputeDiscount returns the discount percentage in [0, 100] for an item
// expiring in daysToExpiry days.
func ComputeDiscount(daysToExpiry int) float64 {
	switch {
	case daysToExpiry <= 0:
		return 100.0
	case daysToExpiry > MarkdownWindowDays:
		return 0.0
	}
	remaining := float64(MarkdownWindowDays - daysToExpiry)
	return Round2(remaining / MarkdownWindowDays * 100)
}

// ComputeDiscountedPrice applies discountPercentage to basePrice, rounded to
// cents. Percentages outside [0, 100] are clamped so the result always lies
// in [0, basePrice].
func ComputeDiscountedPrice(basePrice, discountPercentage float64) (float64, error) {
	if math.IsNaN(basePrice) || math.IsInf(basePrice, 0) {
		return 0, apperrors.AddValidationError("base_price", "must be a finite number")
	}
	if basePrice < 0 {
		return 0, apperrors.AddValidationError("base_price", "must be >= 0")
	}
	pct := math.Min(math.Max(discountPercentage, 0), 100)
	price := Round2(basePrice * (1 - pct/100))
	return math.Min(price, basePrice), nil
}

// DefaultCostPrice is the cost assumed for an item whose seller gave none.
func DefaultCostPrice(basePrice float64) float64 {
	return Round2(basePrice * DefaultCostRatio)
}

// IsExpired reports whether an item with daysToExpiry days left is expired.
func IsExpired(daysToExpiry int) bool {
	return daysToExpiry <= 0
}

// IsNearExpiry reports whether an item is in the 1-2 day band.
func IsNearExpiry(daysToExpiry int) bool {
	return daysToExpiry > 0 && daysToExpiry <= NearExpiryDays
}

// StatusColor returns the dashboard color for an item: red for expired or
// near expiry, yellow at three days, green otherwise.
func StatusColor(daysToExpiry int) string {
	switch {
	case daysToExpiry <= NearExpiryDays:
		return StatusRed
	case daysToExpiry == NearExpiryDays+1:
		return StatusYellow
	default:
		return StatusGreen
	}
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
