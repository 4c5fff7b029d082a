// Package fees implements basis-point fee splitting. Splitting is pure and
// lossless: the fee and remainder always sum back to the original total.
package fees

import (
	"github.com/holiman/uint256"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Valid reports whether a basis-point rate is inside [0, 10000].
func Valid(basisPoints uint32) bool {
	return basisPoints <= domain.BasisPointsDenominator
}

// Split divides total into a fee share and a remainder at the given
// basis-point rate: fee = floor(total*basisPoints/10000). The caller must
// ensure basisPoints is valid (the engine enforces this at the point rates
// enter the system); the intermediate product is computed in 256 bits so the
// multiplication itself can never wrap.
func Split(basisPoints uint32, total uint64) (fee, remainder uint64) {
	f := new(uint256.Int).SetUint64(total)
	f.Mul(f, new(uint256.Int).SetUint64(uint64(basisPoints)))
	f.Div(f, new(uint256.Int).SetUint64(domain.BasisPointsDenominator))
	fee = f.Uint64()
	return fee, total - fee
}
