// Package curve defines the pricing curve contract and the default linear
// implementation. Curves are pure: no state, no side effects, deterministic
// for a given (supply, units) pair.
package curve

import (
	"github.com/holiman/uint256"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Curve prices a run of units minted on top of the current supply. The cost
// must be monotonically non-decreasing in both arguments.
type Curve interface {
	Price(supply, units uint64) (uint64, error)
}

// Linear prices each newly minted unit at its integer supply level: the n-th
// unit ever minted costs n. The cost of a run is therefore the arithmetic sum
// supply+1 + supply+2 + ... + supply+units.
type Linear struct{}

// Price returns units*(first+last)/2 where first = supply+1 and
// last = supply+units. The multiplication happens before the halving, in
// 256-bit intermediates, so an odd partial sum never truncates; results that
// do not fit in a uint64 fail with ErrArithmeticOverflow instead of wrapping.
func (Linear) Price(supply, units uint64) (uint64, error) {
	if units == 0 {
		return 0, nil
	}

	// units * (2*supply + units + 1) / 2, computed wide. One factor of the
	// product is always even, so the final shift is exact.
	run := new(uint256.Int).SetUint64(supply)
	run.Lsh(run, 1)
	run.AddUint64(run, units)
	run.AddUint64(run, 1)
	run.Mul(run, new(uint256.Int).SetUint64(units))
	run.Rsh(run, 1)

	if !run.IsUint64() {
		return 0, domain.ErrArithmeticOverflow
	}
	return run.Uint64(), nil
}
