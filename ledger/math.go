package ledger

import (
	"math"

	"github.com/holiman/uint256"
)

// MulDiv returns floor(a*b/d) using a 256-bit intermediate, so the result is
// exact for every uint64 input. d == 0 yields 0 and results that do not fit
// in 64 bits saturate at math.MaxUint64.
func MulDiv(a, b, d uint64) uint64 {
	return Ratio([]uint64{a, b}, []uint64{d})
}

// Ratio returns floor(Π num / Π den) with the same guarantees as MulDiv.
// Up to three factors per side fit in the 256-bit intermediate.
func Ratio(num, den []uint64) uint64 {
	n := product(num)
	d := product(den)
	if d.IsZero() {
		return 0
	}
	q := new(uint256.Int).Div(n, d)
	if !q.IsUint64() {
		return math.MaxUint64
	}
	return q.Uint64()
}

func product(fs []uint64) *uint256.Int {
	p := uint256.NewInt(1)
	for _, f := range fs {
		p.Mul(p, uint256.NewInt(f))
	}
	return p
}
