package intrange

import (
	"math/big"

	"golang.org/x/exp/slices"

	"github.com/tileir/tileir/ir"
)

// RemarkFunc receives best-effort diagnostics for constructs the analysis
// could not interpret. Remarks never stop the analysis.
type RemarkFunc func(op *ir.Op, msg string)

// CollectAssumptions scans root for assume statements and indexes the
// condition operation of each by the values it constrains. With
// filterConstants set, compile-time-constant operands are not indexed.
func CollectAssumptions(root *ir.Op, filterConstants bool) map[ir.ValueID][]*ir.Op {
	assumptions := map[ir.ValueID][]*ir.Op{}
	ir.Walk(root, func(op *ir.Op) {
		if op.Kind != ir.Assume {
			return
		}
		cond := op.Operand(0).DefiningOp()
		if cond == nil {
			return
		}
		for _, operand := range cond.Operands() {
			if _, isConst := ir.ConstantIntValue(operand); isConst && filterConstants {
				continue
			}
			id := operand.ID()
			if !slices.Contains(assumptions[id], cond) {
				assumptions[id] = append(assumptions[id], cond)
			}
		}
	})
	return assumptions
}

// derivedRange computes the tightest interval that forces the assumed
// condition to hold for anchor. It requires a comparison against a
// constant; anything else yields no constraint, with a remark.
func derivedRange(assumption *ir.Op, anchor ir.Value, remark RemarkFunc) (Interval, bool) {
	if assumption.Kind != ir.CmpI {
		remark(assumption, "unsupported assumption operation")
		return Empty(), false
	}

	pred := assumption.Pred
	signed := !pred.Unsigned()

	anchorIsLhs := assumption.Operand(0).ID() == anchor.ID()
	var other ir.Value
	if anchorIsLhs {
		other = assumption.Operand(1)
	} else {
		other = assumption.Operand(0)
	}
	k, ok := ir.ConstantIntValue(other)
	if !ok {
		return Empty(), false
	}

	width, ok := ir.StorageWidth(anchor.Type())
	checkf(ok && width > 0, "expected non-zero bitwidth for %s", anchor.Name())
	min := typeMin(width, signed)
	max := typeMax(width, signed)
	one := big.NewInt(1)

	switch pred {
	case ir.PredEq:
		return Constant(k, width, signed), true
	case ir.PredSge, ir.PredUge:
		// anchor >= k implies anchor ∈ [k, max];
		// k >= anchor implies anchor ∈ [min, k].
		if anchorIsLhs {
			return New(k, max, width, signed), true
		}
		return New(min, k, width, signed), true
	case ir.PredSgt, ir.PredUgt:
		// anchor > k implies anchor ∈ [k+1, max];
		// k > anchor implies anchor ∈ [min, k-1].
		if anchorIsLhs {
			return New(new(big.Int).Add(k, one), max, width, signed), true
		}
		return New(min, new(big.Int).Sub(k, one), width, signed), true
	case ir.PredSle, ir.PredUle:
		// anchor <= k implies anchor ∈ [min, k];
		// k <= anchor implies anchor ∈ [k, max].
		if anchorIsLhs {
			return New(min, k, width, signed), true
		}
		return New(k, max, width, signed), true
	case ir.PredSlt, ir.PredUlt:
		// anchor < k implies anchor ∈ [min, k-1];
		// k < anchor implies anchor ∈ [k+1, max].
		if anchorIsLhs {
			return New(min, new(big.Int).Sub(k, one), width, signed), true
		}
		return New(new(big.Int).Add(k, one), max, width, signed), true
	default:
		remark(assumption, "unsupported cmp predicate for assumption")
		return Empty(), false
	}
}

// assumedRange combines every assumption registered against anchor by
// repeated intersection starting from the maximal range. A contradictory
// set of assumptions (empty intersection) falls back to the maximal
// range instead of poisoning the analysis.
func (a *Analysis) assumedRange(anchor ir.Value) (Interval, bool) {
	matching := a.assumptions[anchor.ID()]
	if len(matching) == 0 {
		return Empty(), false
	}
	width, ok := ir.StorageWidth(anchor.Type())
	if !ok {
		return Empty(), false
	}
	checkf(width > 0, "expected non-zero bitwidth for %s", anchor.Name())

	r := MaxRange(width, typeSigned(anchor.Type()))
	for _, assumption := range matching {
		d, ok := derivedRange(assumption, anchor, a.remark)
		if !ok {
			continue
		}
		// An unsigned predicate constrains the anchor under unsigned
		// interpretation; only fold it in when that interpretation
		// coincides with the anchor's own.
		d, ok = d.reinterpretSigned(r.Signed())
		if !ok {
			continue
		}
		r = r.Intersect(d)
	}
	if r.IsEmpty() {
		// Unreachable under the assumptions; stay conservative.
		return MaxRange(width, typeSigned(anchor.Type())), true
	}
	return r, true
}
