// Package intrange implements integer range analysis for the tile IR: a
// forward dataflow analysis that computes, for every integer- or
// index-typed value, a conservative interval over-approximating its
// runtime contents. The results feed a folding step that rewrites
// comparisons proven always-true into literals.
//
// The analysis is plugged into the dataflow solver and converges by
// monotone joins on the interval lattice. Loops are handled with a
// trip-count heuristic: propagation of loop-carried values is counted per
// lattice cell and frozen once it reaches the loop's estimated trip
// count, and loops whose bound is too large or unknown are widened
// straight to the maximal range instead of being iterated.
package intrange

import (
	"fmt"
	"math/big"

	"github.com/tileir/tileir/analysis/dataflow"
	"github.com/tileir/tileir/ir"
)

// Interval is a closed integer interval [lower, upper] with an explicit
// bit width and signedness. The zero value (width 0) is the empty
// sentinel: no information. Bounds are always within the representable
// range of the width and signedness, so only the declared top element
// MaxRange is the lattice's ⊤.
type Interval struct {
	lower, upper *big.Int
	width        uint
	signed       bool
}

// Empty returns the width-zero no-information sentinel.
func Empty() Interval { return Interval{} }

func (i Interval) IsEmpty() bool { return i.width == 0 }

func (i Interval) Width() uint  { return i.width }
func (i Interval) Signed() bool { return i.signed }

// Lower and Upper return copies of the interval's bounds.
func (i Interval) Lower() *big.Int { return new(big.Int).Set(i.lower) }
func (i Interval) Upper() *big.Int { return new(big.Int).Set(i.upper) }

func signedMin(width uint) *big.Int {
	n := big.NewInt(1)
	n.Lsh(n, width-1)
	return n.Neg(n)
}

func signedMax(width uint) *big.Int {
	n := big.NewInt(1)
	n.Lsh(n, width-1)
	return n.Sub(n, big.NewInt(1))
}

func unsignedMax(width uint) *big.Int {
	n := big.NewInt(1)
	n.Lsh(n, width)
	return n.Sub(n, big.NewInt(1))
}

// typeMin and typeMax are the representable extrema for a width and
// signedness.
func typeMin(width uint, signed bool) *big.Int {
	if signed {
		return signedMin(width)
	}
	return new(big.Int)
}

func typeMax(width uint, signed bool) *big.Int {
	if signed {
		return signedMax(width)
	}
	return unsignedMax(width)
}

// New returns [lower, upper] clamped to the representable range. An
// inverted pair after clamping yields the empty sentinel: the interval is
// unsatisfiable.
func New(lower, upper *big.Int, width uint, signed bool) Interval {
	checkf(width > 0, "expected non-zero bitwidth")
	lo := new(big.Int).Set(lower)
	hi := new(big.Int).Set(upper)
	if min := typeMin(width, signed); lo.Cmp(min) < 0 {
		lo.Set(min)
	}
	if max := typeMax(width, signed); hi.Cmp(max) > 0 {
		hi.Set(max)
	}
	if lo.Cmp(hi) > 0 {
		return Empty()
	}
	return Interval{lower: lo, upper: hi, width: width, signed: signed}
}

func newInt64(lower, upper int64, width uint, signed bool) Interval {
	return New(big.NewInt(lower), big.NewInt(upper), width, signed)
}

// Constant returns the degenerate interval [v, v].
func Constant(v *big.Int, width uint, signed bool) Interval {
	return New(v, v, width, signed)
}

// MaxRange returns the full representable interval for the width and
// signedness, the lattice's ⊤ element.
func MaxRange(width uint, signed bool) Interval {
	return New(typeMin(width, signed), typeMax(width, signed), width, signed)
}

// MaxRangeFor returns the ⊤ element for an IR value's type, or false if
// the type is not integer-like.
func MaxRangeFor(v ir.Value) (Interval, bool) {
	width, ok := ir.StorageWidth(v.Type())
	if !ok {
		return Empty(), false
	}
	return MaxRange(width, typeSigned(v.Type())), true
}

// typeSigned maps an IR type to the signedness its ranges are modelled
// with. i1 is modelled unsigned so booleans span [0, 1].
func typeSigned(t ir.Type) bool {
	width, ok := ir.StorageWidth(t)
	checkf(ok, "no storage width for %s", t)
	return !ir.IsUnsigned(t) && width > 1
}

func (i Interval) IsMaxRange() bool {
	if i.IsEmpty() {
		return false
	}
	return i.lower.Cmp(typeMin(i.width, i.signed)) == 0 &&
		i.upper.Cmp(typeMax(i.width, i.signed)) == 0
}

// IsConstant reports whether the interval holds exactly one value.
func (i Interval) IsConstant() bool {
	return !i.IsEmpty() && i.lower.Cmp(i.upper) == 0
}

func (i Interval) Contains(v *big.Int) bool {
	return !i.IsEmpty() && i.lower.Cmp(v) <= 0 && i.upper.Cmp(v) >= 0
}

// nonNegative reports whether every value in the interval is >= 0, which
// makes signed and unsigned interpretations of the bounds agree.
func (i Interval) nonNegative() bool {
	return !i.IsEmpty() && i.lower.Sign() >= 0
}

// Union widens to the smallest interval covering both operands. The empty
// sentinel is the identity.
func (i Interval) Union(o Interval) Interval {
	if i.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return i
	}
	checkf(i.width == o.width && i.signed == o.signed,
		"union of mismatched intervals %s and %s", i, o)
	lo := minBig(i.lower, o.lower)
	hi := maxBig(i.upper, o.upper)
	return Interval{lower: lo, upper: hi, width: i.width, signed: i.signed}
}

// Intersect narrows to the overlap of both operands. A disjoint pair
// yields the empty sentinel.
func (i Interval) Intersect(o Interval) Interval {
	if i.IsEmpty() || o.IsEmpty() {
		return Empty()
	}
	checkf(i.width == o.width && i.signed == o.signed,
		"intersection of mismatched intervals %s and %s", i, o)
	lo := maxBig(i.lower, o.lower)
	hi := minBig(i.upper, o.upper)
	if lo.Cmp(hi) > 0 {
		return Empty()
	}
	return Interval{lower: lo, upper: hi, width: i.width, signed: i.signed}
}

// reinterpretSigned converts the interval to the other signedness. This
// is exact only when every member has the same representation under both
// interpretations, i.e. the interval lies within [0, smax]; otherwise it
// reports failure.
func (i Interval) reinterpretSigned(signed bool) (Interval, bool) {
	if i.IsEmpty() || i.signed == signed {
		return i, true
	}
	if i.lower.Sign() >= 0 && i.upper.Cmp(signedMax(i.width)) <= 0 {
		j := i
		j.signed = signed
		return j, true
	}
	return Empty(), false
}

func (i Interval) EqInterval(o Interval) bool {
	if i.IsEmpty() || o.IsEmpty() {
		return i.IsEmpty() == o.IsEmpty()
	}
	return i.width == o.width && i.signed == o.signed &&
		i.lower.Cmp(o.lower) == 0 && i.upper.Cmp(o.upper) == 0
}

func (i Interval) String() string {
	if i.IsEmpty() {
		return "[⊥, ⊥]"
	}
	return fmt.Sprintf("[%s, %s]", i.lower, i.upper)
}

// Join implements dataflow.Lattice. It is the monotone union.
func (i Interval) Join(other dataflow.Lattice) dataflow.Lattice {
	o, ok := other.(Interval)
	checkf(ok, "join of Interval with %T", other)
	return i.Union(o)
}

// Eq implements dataflow.Lattice.
func (i Interval) Eq(other dataflow.Lattice) bool {
	o, ok := other.(Interval)
	return ok && i.EqInterval(o)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func checkf(cond bool, f string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(f, args...))
	}
}

// EvaluatePred evaluates a comparison predicate over two intervals. The
// second result is false when the outcome depends on which members of the
// intervals are compared; the first result is meaningful only when the
// second is true. Unsigned predicates are decided only when both
// intervals are wholly non-negative, where the two interpretations of the
// bounds agree.
func EvaluatePred(p ir.Pred, a, b Interval) (bool, bool) {
	if a.IsEmpty() || b.IsEmpty() {
		return false, false
	}
	if p.Unsigned() && (!a.nonNegative() || !b.nonNegative()) {
		return false, false
	}
	switch p {
	case ir.PredEq:
		if a.IsConstant() && b.IsConstant() && a.lower.Cmp(b.lower) == 0 {
			return true, true
		}
		if a.upper.Cmp(b.lower) < 0 || b.upper.Cmp(a.lower) < 0 {
			return false, true
		}
		return false, false
	case ir.PredNe:
		res, ok := EvaluatePred(ir.PredEq, a, b)
		return !res, ok
	case ir.PredSlt, ir.PredUlt:
		if a.upper.Cmp(b.lower) < 0 {
			return true, true
		}
		if a.lower.Cmp(b.upper) >= 0 {
			return false, true
		}
		return false, false
	case ir.PredSle, ir.PredUle:
		if a.upper.Cmp(b.lower) <= 0 {
			return true, true
		}
		if a.lower.Cmp(b.upper) > 0 {
			return false, true
		}
		return false, false
	case ir.PredSgt, ir.PredUgt:
		return EvaluatePred(ir.PredSlt, b, a)
	case ir.PredSge, ir.PredUge:
		return EvaluatePred(ir.PredSle, b, a)
	default:
		panic(fmt.Sprintf("unhandled predicate %s", p))
	}
}
