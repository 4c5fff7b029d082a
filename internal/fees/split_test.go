package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		basisPoints   uint32
		total         uint64
		wantFee       uint64
		wantRemainder uint64
	}{
		{"ten percent", 1000, 1000, 100, 900},
		{"zero rate", 0, 1000, 0, 1000},
		{"full rate", 10000, 1000, 1000, 0},
		{"floor rounding", 500, 3, 0, 3},       // 3*500/10000 = 0.15
		{"one bp of large", 1, 10000, 1, 9999},
		{"zero total", 2500, 0, 0, 0},
		{"max total full rate", 10000, math.MaxUint64, math.MaxUint64, 0},
		{"max total half rate", 5000, math.MaxUint64, math.MaxUint64 / 2, math.MaxUint64 - math.MaxUint64/2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, remainder := Split(tt.basisPoints, tt.total)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantRemainder, remainder)
			assert.Equal(t, tt.total, fee+remainder, "split must be lossless")
		})
	}
}

func TestSplitConservation(t *testing.T) {
	// fee + remainder == total across a sweep of rates and totals.
	for bps := uint32(0); bps <= 10000; bps += 137 {
		for _, total := range []uint64{0, 1, 7, 999, 1 << 32, math.MaxUint64} {
			fee, remainder := Split(bps, total)
			assert.Equal(t, total, fee+remainder, "bps=%d total=%d", bps, total)
			assert.LessOrEqual(t, fee, total)
		}
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(0))
	assert.True(t, Valid(10000))
	assert.False(t, Valid(10001))
}
