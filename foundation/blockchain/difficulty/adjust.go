package difficulty

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Parameters of the adjustment schedule.
const (
	BlockTime           = 600  // Target seconds between blocks.
	AdjustmentInterval  = 2016 // Blocks per adjustment epoch.
	MaxAdjustmentFactor = 4    // Bound on the change per epoch, either way.
)

// ErrZeroTimespan is returned when the expected epoch time is zero.
var ErrZeroTimespan = errors.New("target timespan is zero")

// Adjust recalibrates the compact difficulty at an epoch boundary. The
// observed time is clamped to [target/4, target*4] and the mantissa is
// scaled by actual/target with integer arithmetic, truncating, and capped at
// MaxMantissa. The exponent is carried over unchanged.
//
// Blocks that arrived faster than expected shrink the mantissa which makes
// the target smaller and mining harder.
func Adjust(oldBits uint32, actual uint64, target uint64) (uint32, error) {
	if target == 0 {
		return 0, ErrZeroTimespan
	}

	c := FromBits(oldBits)
	if c.Exponent > MaxExponent {
		return 0, fmt.Errorf("%w: exponent %d", ErrExponentOverflow, c.Exponent)
	}

	tgt := uint256.NewInt(target)
	factor := uint256.NewInt(MaxAdjustmentFactor)

	lower := new(uint256.Int).Div(tgt, factor)
	upper := new(uint256.Int).Mul(tgt, factor)

	clamped := uint256.NewInt(actual)
	switch {
	case clamped.Lt(lower):
		clamped.Set(lower)
	case clamped.Gt(upper):
		clamped.Set(upper)
	}

	mantissa := uint256.NewInt(uint64(c.Mantissa))
	mantissa.Mul(mantissa, clamped)
	mantissa.Div(mantissa, tgt)

	if mantissa.GtUint64(MaxMantissa) {
		mantissa.SetUint64(MaxMantissa)
	}

	return Compact{Exponent: c.Exponent, Mantissa: uint32(mantissa.Uint64())}.Bits(), nil
}

// CalculateTargetTime returns the expected number of seconds for the
// specified number of blocks.
func CalculateTargetTime(numBlocks uint64) uint64 {
	return numBlocks * BlockTime
}
