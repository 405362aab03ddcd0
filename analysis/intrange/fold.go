package intrange

import (
	"math/big"

	"github.com/tileir/tileir/analysis/dataflow"
	"github.com/tileir/tileir/ir"
)

// CollectValueRanges reads the converged ranges for values out of the
// solver. Values without an inferred range get a nil entry.
func CollectValueRanges(solver *dataflow.Solver, values []ir.Value) []*Interval {
	out := make([]*Interval, len(values))
	for i, v := range values {
		c := solver.Lookup(v)
		if c == nil || c.Uninitialized() {
			continue
		}
		r, ok := c.State().(Interval)
		if !ok || r.IsEmpty() {
			continue
		}
		out[i] = &r
	}
	return out
}

// CmpIsStaticallyTrue reports whether the converged ranges prove cmp's
// predicate holds for every pair of operand values.
func CmpIsStaticallyTrue(solver *dataflow.Solver, cmp *ir.Op) bool {
	if cmp.Kind != ir.CmpI {
		return false
	}
	ranges := CollectValueRanges(solver, cmp.Operands())
	if ranges[0] == nil || ranges[1] == nil {
		return false
	}
	res, ok := EvaluatePred(cmp.Pred, *ranges[0], *ranges[1])
	return ok && res
}

// FoldTrueCmps rewrites every scalar comparison under root that the
// converged ranges prove always-true into the constant 1, returning the
// number of rewrites. Tensor comparisons are left alone; folding them
// would need a splat, not a scalar literal.
func FoldTrueCmps(root *ir.Op, solver *dataflow.Solver, rw *ir.Rewriter, remark RemarkFunc) int {
	var folded []*ir.Op
	ir.Walk(root, func(op *ir.Op) {
		if op.Kind != ir.CmpI {
			return
		}
		if _, isTensor := op.Result(0).Type().(ir.TensorType); isTensor {
			return
		}
		if CmpIsStaticallyTrue(solver, op) {
			folded = append(folded, op)
		}
	})

	n := 0
	for _, op := range folded {
		if !rw.ReplaceWithConstant(op.Result(0), big.NewInt(1)) {
			remark(op, "failed to replace with constant")
			continue
		}
		n++
	}
	return n
}
