// internal/services/valuation_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardmeet/cardmeet-backend/internal/models"
)

func TestItemValuation(t *testing.T) {
	tests := []struct {
		name     string
		item     *models.InventoryItem
		expected float64
	}{
		{
			name:     "estimated value wins",
			item:     &models.InventoryItem{EstimatedValue: floatPtr(120), DesiredSalePrice: floatPtr(90)},
			expected: 120,
		},
		{
			name:     "desired sale price as fallback",
			item:     &models.InventoryItem{DesiredSalePrice: floatPtr(90)},
			expected: 90,
		},
		{
			name:     "zero estimated value still wins over sale price",
			item:     &models.InventoryItem{EstimatedValue: floatPtr(0), DesiredSalePrice: floatPtr(90)},
			expected: 0,
		},
		{
			name:     "no prices at all",
			item:     &models.InventoryItem{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ItemValuation(tt.item))
		})
	}
}

func TestSideValuation(t *testing.T) {
	items := []*models.InventoryItem{
		{EstimatedValue: floatPtr(50)},
		{DesiredSalePrice: floatPtr(30)},
		{},
	}

	assert.Equal(t, 80.0, SideValuation(items, 0))
	assert.Equal(t, 95.5, SideValuation(items, 15.5))
	assert.Equal(t, 10.0, SideValuation(nil, 10))
}

func TestValueDifferencePct(t *testing.T) {
	assert.InDelta(t, 0.0909, ValueDifferencePct(100, 110), 0.0001)
	assert.InDelta(t, 0.1667, ValueDifferencePct(100, 120), 0.0001)
	assert.Equal(t, 0.0, ValueDifferencePct(100, 100))

	// Symmetric in its arguments
	assert.Equal(t, ValueDifferencePct(80, 100), ValueDifferencePct(100, 80))

	// The 1 floor keeps zero-value sides from dividing by zero
	assert.Equal(t, 0.0, ValueDifferencePct(0, 0))
	assert.Equal(t, 0.5, ValueDifferencePct(0, 0.5))
}

func TestWithinValueLimit(t *testing.T) {
	assert.True(t, WithinValueLimit(100, 110))
	assert.True(t, WithinValueLimit(100, 115))
	assert.False(t, WithinValueLimit(100, 120))
	assert.True(t, WithinValueLimit(0, 0))
}
