package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

func TestLinearPrice(t *testing.T) {
	tests := []struct {
		name   string
		supply uint64
		units  uint64
		want   uint64
	}{
		{"first unit", 0, 1, 1},
		{"first two units", 0, 2, 3},
		{"second unit alone", 1, 1, 2},
		{"zero units", 42, 0, 0},
		{"ten from zero", 0, 10, 55},
		{"odd run sum", 2, 3, 12}, // 3+4+5
		{"deep supply", 1_000_000, 1, 1_000_001},
	}

	var c Linear
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Price(tt.supply, tt.units)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinearPriceSegmentIdentity(t *testing.T) {
	// price(supply, units) == price(0, supply+units) - price(0, supply).
	var c Linear
	cases := []struct{ supply, units uint64 }{
		{0, 1}, {1, 1}, {3, 7}, {100, 250}, {999, 2},
	}
	for _, tc := range cases {
		seg, err := c.Price(tc.supply, tc.units)
		require.NoError(t, err)
		whole, err := c.Price(0, tc.supply+tc.units)
		require.NoError(t, err)
		prefix, err := c.Price(0, tc.supply)
		require.NoError(t, err)
		assert.Equal(t, whole-prefix, seg, "supply=%d units=%d", tc.supply, tc.units)
	}
}

func TestLinearPriceMonotonic(t *testing.T) {
	var c Linear
	prev := uint64(0)
	for units := uint64(1); units <= 64; units++ {
		got, err := c.Price(10, units)
		require.NoError(t, err)
		assert.Greater(t, got, prev)
		prev = got
	}

	prev = 0
	for supply := uint64(0); supply <= 64; supply++ {
		got, err := c.Price(supply, 5)
		require.NoError(t, err)
		if supply > 0 {
			assert.Greater(t, got, prev)
		}
		prev = got
	}
}

func TestLinearPriceOverflow(t *testing.T) {
	var c Linear

	_, err := c.Price(math.MaxUint64, 1)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)

	_, err = c.Price(math.MaxUint64/2, math.MaxUint64/2)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)

	// Largest single-unit purchase that still fits.
	got, err := c.Price(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
}
