package intrange

import (
	"math"
	"math/big"

	"github.com/tileir/tileir/ir"
)

// maybeTripCount estimates an upper bound on the number of iterations of
// a loop-like operation with a single induction variable. Bounds and step
// are resolved from literals first, then from already-computed lattice
// ranges, then from the type's signed extrema (step defaults to 1). A
// backwards loop (negative step) is normalized to a forward count; a zero
// step is treated as 1 so the estimate stays defined. The estimate is
// unknown when the resolved bounds are inverted or the count does not fit
// an int64.
func (a *Analysis) maybeTripCount(loop *ir.Op) (int64, bool) {
	info, ok := loop.LoopInfo()
	if !ok || info.IndVar == nil {
		return 0, false
	}
	width, ok := ir.StorageWidth(info.IndVar.Type())
	checkf(ok && width > 0, "loop induction variable %s has no storage width", info.IndVar.Name())

	resolve := func(bound ir.Value, upper bool, def *big.Int) *big.Int {
		if bound != nil {
			if k, ok := ir.ConstantIntValue(bound); ok {
				return k
			}
			if c := a.solver.Lookup(bound); c != nil && !c.Uninitialized() {
				if r, ok := c.State().(Interval); ok && !r.IsEmpty() {
					if upper {
						return r.Upper()
					}
					return r.Lower()
				}
			}
		}
		if def != nil {
			return def
		}
		if upper {
			return signedMax(width)
		}
		return signedMin(width)
	}

	one := big.NewInt(1)
	min := resolve(info.Lower, false, nil)
	max := resolve(info.Upper, true, nil)
	// Assuming step 1 when nothing is known yields the largest, hence
	// still sound, iteration bound.
	step := new(big.Int).Set(resolve(info.Step, false, one))

	if step.Sign() < 0 {
		min, max = max, min
		step.Neg(step)
	}
	// A derived step range can bottom out at zero, as in
	// step = ceildiv(K, k) with k ∈ [0, 16]; count as if it were 1.
	if step.Sign() == 0 {
		step.Set(one)
	}
	if max.Cmp(min) < 0 {
		return 0, false
	}

	diff := new(big.Int).Sub(max, min)
	q, r := new(big.Int).QuoRem(diff, step, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, one)
	}
	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}

// totalTripCount composes the loop's own trip count with the counts of
// every statically enclosing loop. Any unknown component contributes
// MaxTripCount+1 so the product stays defined and trips the widening
// policy. The product saturates instead of overflowing.
func (a *Analysis) totalTripCount(loop *ir.Op) int64 {
	loops := append([]*ir.Op{loop}, ir.EnclosingLoops(loop)...)
	total := int64(1)
	for _, l := range loops {
		n, ok := a.maybeTripCount(l)
		if !ok {
			n = a.cfg.MaxTripCount + 1
		}
		total = satMul(total, n)
	}
	return total
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
