package codec

import (
	"fmt"
	"math"

	"github.com/metaffric/bufr/errs"
)

// integerize maps a double value (already unit-converted) to its on-wire
// unsigned integer form, round(dval * 10^scale) - ref, with bounds checked
// against the effective bit width.
func integerize(dval float64, scale int, ref int64, bitLen int) (uint32, error) {
	scaled := math.Round(dval * math.Pow(10, float64(scale)))
	raw := int64(scaled) - ref

	if raw < 0 {
		return 0, fmt.Errorf("%w: value %g scales to negative raw %d", errs.ErrValueOutOfRange, dval, raw)
	}

	if bitLen < 32 && raw >= int64(1)<<uint(bitLen) {
		return 0, fmt.Errorf("%w: value %g scales to raw %d exceeding %d bits", errs.ErrValueOutOfRange, dval, raw, bitLen)
	}

	return uint32(raw), nil
}

// deintegerize is integerize's inverse: recovers the double value from a raw
// on-wire unsigned integer, reference, and scale.
func deintegerize(raw uint32, ref int64, scale int) float64 {
	return float64(int64(raw)+ref) * math.Pow(10, -float64(scale))
}

// allOnes returns the all-ones bit pattern for an n-bit field, the BUFR
// missing sentinel.
func allOnes(n int) uint32 {
	if n >= 32 {
		return 0xFFFFFFFF
	}

	return (uint32(1) << uint(n)) - 1
}
