package intrange

import (
	"math/big"

	"github.com/tileir/tileir/ir"
)

// inferable reports whether the operation kind can infer its own result
// ranges from operand ranges, the analogue of a range-inference interface
// on the operation. These rules tolerate uninitialized operands (lifted
// to the maximal range by the caller) and degrade to the maximal range
// whenever a bound could overflow the result width.
func inferable(k ir.OpKind) bool {
	switch k {
	case ir.Constant,
		ir.AddI, ir.SubI, ir.MulI,
		ir.DivSI, ir.DivUI, ir.RemSI, ir.RemUI,
		ir.AndI, ir.OrI, ir.XorI,
		ir.ShlI, ir.ShrSI, ir.ShrUI,
		ir.MinSI, ir.MaxSI, ir.MinUI, ir.MaxUI,
		ir.ExtSI, ir.ExtUI, ir.TruncI, ir.IndexCast,
		ir.Select, ir.CmpI:
		return true
	}
	return false
}

// resultRange returns the range of op's single result given operand
// ranges. Operand ranges are never empty: the caller lifts uninitialized
// cells to the maximal range first.
func resultRange(op *ir.Op, args []Interval) Interval {
	res := op.Result(0)
	width, ok := ir.StorageWidth(res.Type())
	checkf(ok, "range inference on non-integer result of %s", op.Kind)
	signed := typeSigned(res.Type())
	top := MaxRange(width, signed)

	switch op.Kind {
	case ir.Constant:
		return Constant(op.Value, width, signed)

	case ir.AddI:
		return boundedBinary(args[0], args[1], top, func(x, y *big.Int) *big.Int {
			return new(big.Int).Add(x, y)
		})
	case ir.SubI:
		a, b := args[0], args[1]
		lo := new(big.Int).Sub(a.Lower(), b.Upper())
		hi := new(big.Int).Sub(a.Upper(), b.Lower())
		return fitOrTop(lo, hi, top)
	case ir.MulI:
		return boundedBinary(args[0], args[1], top, func(x, y *big.Int) *big.Int {
			return new(big.Int).Mul(x, y)
		})

	case ir.DivSI, ir.DivUI:
		d, ok := constantPositive(args[1])
		if !ok {
			return top
		}
		if op.Kind == ir.DivUI && !args[0].nonNegative() {
			return top
		}
		lo := new(big.Int).Quo(args[0].Lower(), d)
		hi := new(big.Int).Quo(args[0].Upper(), d)
		return fitOrTop(lo, hi, top)

	case ir.RemSI, ir.RemUI:
		d, ok := constantPositive(args[1])
		if !ok {
			return top
		}
		bound := new(big.Int).Sub(d, big.NewInt(1))
		if op.Kind == ir.RemUI || args[0].nonNegative() {
			return New(new(big.Int), bound, width, signed)
		}
		return New(new(big.Int).Neg(bound), bound, width, signed)

	case ir.AndI:
		if mask, ok := constantPositive(args[1]); ok && args[0].nonNegative() {
			return New(new(big.Int), minBig(args[0].Upper(), mask), width, signed)
		}
		if mask, ok := constantPositive(args[0]); ok && args[1].nonNegative() {
			return New(new(big.Int), minBig(args[1].Upper(), mask), width, signed)
		}
		if args[0].nonNegative() && args[1].nonNegative() {
			return New(new(big.Int), minBig(args[0].Upper(), args[1].Upper()), width, signed)
		}
		return top

	case ir.OrI, ir.XorI:
		if args[0].nonNegative() && args[1].nonNegative() {
			// Bitwise results stay below the next power of two covering
			// both uppers.
			bits := args[0].Upper().BitLen()
			if b := args[1].Upper().BitLen(); b > bits {
				bits = b
			}
			hi := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			hi.Sub(hi, big.NewInt(1))
			return fitOrTop(new(big.Int), hi, top)
		}
		return top

	case ir.ShlI:
		s, ok := constantShift(args[1], width)
		if !ok || !args[0].nonNegative() {
			return top
		}
		lo := new(big.Int).Lsh(args[0].Lower(), s)
		hi := new(big.Int).Lsh(args[0].Upper(), s)
		return fitOrTop(lo, hi, top)
	case ir.ShrSI, ir.ShrUI:
		s, ok := constantShift(args[1], width)
		if !ok || !args[0].nonNegative() {
			return top
		}
		lo := new(big.Int).Rsh(args[0].Lower(), s)
		hi := new(big.Int).Rsh(args[0].Upper(), s)
		return fitOrTop(lo, hi, top)

	case ir.MinSI:
		return fitOrTop(minBig(args[0].Lower(), args[1].Lower()), minBig(args[0].Upper(), args[1].Upper()), top)
	case ir.MaxSI:
		return fitOrTop(maxBig(args[0].Lower(), args[1].Lower()), maxBig(args[0].Upper(), args[1].Upper()), top)
	case ir.MinUI, ir.MaxUI:
		if !args[0].nonNegative() || !args[1].nonNegative() {
			return top
		}
		if op.Kind == ir.MinUI {
			return fitOrTop(minBig(args[0].Lower(), args[1].Lower()), minBig(args[0].Upper(), args[1].Upper()), top)
		}
		return fitOrTop(maxBig(args[0].Lower(), args[1].Lower()), maxBig(args[0].Upper(), args[1].Upper()), top)

	case ir.ExtSI, ir.IndexCast:
		return fitOrTop(args[0].Lower(), args[0].Upper(), top)
	case ir.ExtUI:
		if !args[0].nonNegative() {
			return top
		}
		return fitOrTop(args[0].Lower(), args[0].Upper(), top)
	case ir.TruncI:
		if args[0].Lower().Cmp(typeMin(width, signed)) >= 0 &&
			args[0].Upper().Cmp(typeMax(width, signed)) <= 0 {
			return New(args[0].Lower(), args[0].Upper(), width, signed)
		}
		return top

	case ir.Select:
		if args[0].IsConstant() {
			if args[0].Lower().Sign() != 0 {
				return clampTo(args[1], width, signed, top)
			}
			return clampTo(args[2], width, signed, top)
		}
		t := clampTo(args[1], width, signed, top)
		f := clampTo(args[2], width, signed, top)
		return t.Union(f)

	case ir.CmpI:
		if res, known := EvaluatePred(op.Pred, args[0], args[1]); known {
			v := big.NewInt(0)
			if res {
				v = big.NewInt(1)
			}
			return Constant(v, width, signed)
		}
		return New(new(big.Int), big.NewInt(1), width, signed)

	default:
		panic("unsupported op " + op.Kind.String())
	}
}

// boundedBinary applies f to all bound pairs and returns the covering
// interval, or top when a bound leaves the representable range.
func boundedBinary(a, b, top Interval, f func(x, y *big.Int) *big.Int) Interval {
	c1 := f(a.Lower(), b.Lower())
	c2 := f(a.Lower(), b.Upper())
	c3 := f(a.Upper(), b.Lower())
	c4 := f(a.Upper(), b.Upper())
	lo := minBig(minBig(c1, c2), minBig(c3, c4))
	hi := maxBig(maxBig(c1, c2), maxBig(c3, c4))
	return fitOrTop(lo, hi, top)
}

// fitOrTop keeps [lo, hi] if it is representable at top's width and
// signedness, and widens to top otherwise: a bound past the type's
// extrema means wrapping is possible and nothing useful is known.
func fitOrTop(lo, hi *big.Int, top Interval) Interval {
	if lo.Cmp(top.Lower()) < 0 || hi.Cmp(top.Upper()) > 0 {
		return top
	}
	return New(lo, hi, top.Width(), top.Signed())
}

// clampTo coerces an operand interval into the result's width and
// signedness, falling back to top when the reinterpretation would be
// lossy.
func clampTo(i Interval, width uint, signed bool, top Interval) Interval {
	if i.IsEmpty() {
		return top
	}
	if i.Width() == width {
		if j, ok := i.reinterpretSigned(signed); ok {
			return j
		}
		return top
	}
	return fitOrTop(i.Lower(), i.Upper(), top)
}

func constantPositive(i Interval) (*big.Int, bool) {
	if i.IsConstant() && i.Lower().Sign() > 0 {
		return i.Lower(), true
	}
	return nil, false
}

func constantShift(i Interval, width uint) (uint, bool) {
	if !i.IsConstant() || i.Lower().Sign() < 0 || !i.Lower().IsUint64() {
		return 0, false
	}
	s := i.Lower().Uint64()
	if s >= uint64(width) {
		return 0, false
	}
	return uint(s), true
}
