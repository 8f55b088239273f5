// internal/services/valuation.go
package services

import (
	"math"

	"github.com/cardmeet/cardmeet-backend/internal/models"
)

// MaxValueDifferencePct is the fairness threshold: proposals whose
// side valuations differ by more than 15% are rejected outright.
const MaxValueDifferencePct = 0.15

// valuationFallback is used when an item carries neither an estimated
// value nor a desired sale price.
const valuationFallback = 0

// ItemValuation returns the monetary value of a single inventory item:
// the estimated value when present, else the desired sale price, else
// the fallback. Captured once per trade item at proposal time and
// frozen from then on.
func ItemValuation(item *models.InventoryItem) float64 {
	if item.EstimatedValue != nil {
		return *item.EstimatedValue
	}
	if item.DesiredSalePrice != nil {
		return *item.DesiredSalePrice
	}
	return valuationFallback
}

// SideValuation sums the item valuations of one side plus its cash.
func SideValuation(items []*models.InventoryItem, cash float64) float64 {
	total := cash
	for _, item := range items {
		total += ItemValuation(item)
	}
	return total
}

// ValueDifferencePct computes |a-b| / max(a, b, 1). The 1 floor avoids
// division by zero and inflated percentages when both sides value at 0.
func ValueDifferencePct(a, b float64) float64 {
	maxValue := math.Max(math.Max(a, b), 1)
	return math.Abs(a-b) / maxValue
}

// WithinValueLimit reports whether two side valuations satisfy the
// fairness threshold.
func WithinValueLimit(a, b float64) bool {
	return ValueDifferencePct(a, b) <= MaxValueDifferencePct
}
