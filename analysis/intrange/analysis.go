package intrange

import (
	"math"
	"math/big"

	"github.com/tileir/tileir/analysis/dataflow"
	"github.com/tileir/tileir/config"
	"github.com/tileir/tileir/ir"
)

// Options configures an analysis run. The zero value uses the default
// configuration and discards remarks and trace output.
type Options struct {
	Config *config.Config
	// Logf receives debug trace output. Nil disables tracing.
	Logf func(format string, args ...interface{})
	// Remark receives non-fatal diagnostics. Nil discards them.
	Remark RemarkFunc
}

// Analysis computes integer value ranges for one program. All state is
// owned by the instance and discarded with it; instances must not be
// reused across programs.
type Analysis struct {
	cfg    config.Config
	logf   func(format string, args ...interface{})
	remark RemarkFunc

	solver      *dataflow.Solver
	assumptions map[ir.ValueID][]*ir.Op

	// tripCounts holds the minimum total trip count ever estimated per
	// loop; bounds only tighten. visits counts, per loop and lattice
	// cell, how many propagations along that loop's edges actually
	// changed the cell.
	tripCounts map[*ir.Op]int64
	visits     map[visitKey]int64
}

type visitKey struct {
	loop *ir.Op
	cell *dataflow.Cell
}

func NewAnalysis(opts Options) *Analysis {
	a := &Analysis{
		cfg:        config.Default(),
		logf:       func(string, ...interface{}) {},
		remark:     func(*ir.Op, string) {},
		tripCounts: map[*ir.Op]int64{},
		visits:     map[visitKey]int64{},
	}
	if opts.Config != nil {
		a.cfg = *opts.Config
	}
	if opts.Logf != nil {
		a.logf = opts.Logf
	}
	if opts.Remark != nil {
		a.remark = opts.Remark
	}
	return a
}

// Solver exposes the converged lattice for queries once Run returned.
func (a *Analysis) Solver() *dataflow.Solver { return a.solver }

// Run collects assumptions, seeds entry states for function parameters
// and drives the solver to a fixed point.
func (a *Analysis) Run(root *ir.Op) {
	a.assumptions = CollectAssumptions(root, true)
	a.solver = dataflow.NewSolver(a)

	// Function parameters have no inbound dataflow edge; their entry
	// state is the maximal range narrowed by any assumptions on them.
	ir.Walk(root, func(op *ir.Op) {
		if op.Kind != ir.Func {
			return
		}
		for _, arg := range op.Region(0).Entry().Args() {
			r, ok := MaxRangeFor(arg)
			if !ok {
				continue
			}
			if assumed, ok := a.assumedRange(arg); ok {
				r = assumed
			}
			a.solver.Join(a.solver.CellOf(arg), r)
		}
	})

	a.solver.Run(root)
}

// ValueRange returns the converged range for v, if one was inferred.
func (a *Analysis) ValueRange(v ir.Value) (Interval, bool) {
	c := a.solver.Lookup(v)
	if c == nil || c.Uninitialized() {
		return Empty(), false
	}
	r := c.State().(Interval)
	if r.IsEmpty() {
		return Empty(), false
	}
	return r, true
}

// fixedRangeKind covers producers whose result range is independent of
// their operands. The set is closed; VisitOperation panics on a member
// it has no rule for.
func fixedRangeKind(k ir.OpKind) bool {
	switch k {
	case ir.ProgramID, ir.NumPrograms, ir.MakeRange, ir.Histogram:
		return true
	}
	return false
}

// shapeKind covers ops that rearrange elements without creating new
// values: their result ranges derive purely from operand ranges. Closed
// set, like fixedRangeKind.
func shapeKind(k ir.OpKind) bool {
	switch k {
	case ir.Transpose, ir.Reshape, ir.Broadcast, ir.Splat, ir.ExpandDims,
		ir.ConvertLayout, ir.Split, ir.Join, ir.Concat, ir.Gather:
		return true
	}
	return false
}

// VisitOperation implements dataflow.Visitor for operations without
// regions.
func (a *Analysis) VisitOperation(op *ir.Op, operands, results []*dataflow.Cell) {
	a.logf("inferring ranges for %s", op)

	// Assumptions dominate ordinary inference for first initialization:
	// a result that is still uninitialized but constrained by an
	// assumption starts from its assumed entry state instead.
	for _, res := range results {
		if !res.Uninitialized() {
			continue
		}
		if len(a.assumptions[res.Value().ID()]) > 0 {
			a.setToEntryState(res)
			return
		}
	}

	if fixedRangeKind(op.Kind) {
		a.inferFixedRange(op, results)
		return
	}

	if shapeKind(op.Kind) {
		args := make([]Interval, len(operands))
		for i, c := range operands {
			if c.Uninitialized() {
				a.setAllToEntryStates(results)
				return
			}
			args[i] = c.State().(Interval)
		}
		a.inferShape(op, args, results)
		return
	}

	if inferable(op.Kind) {
		args := make([]Interval, len(operands))
		for i, c := range operands {
			args[i] = a.liftOperand(op.Operand(i), c)
		}
		a.joinResult(results[0], resultRange(op, args))
		return
	}

	a.setAllToEntryStates(results)
}

// inferFixedRange handles the trip-count-independent producers.
func (a *Analysis) inferFixedRange(op *ir.Op, results []*dataflow.Cell) {
	res := op.Result(0)
	width, ok := ir.StorageWidth(res.Type())
	checkf(ok, "expected integer result for %s", op.Kind)
	signed := typeSigned(res.Type())

	var r Interval
	switch op.Kind {
	case ir.ProgramID:
		checkf(op.NumResults() == 1, "expected %s to have one result", op.Kind)
		r = newInt64(0, a.cfg.MaxPrograms-1, width, signed)
	case ir.NumPrograms:
		checkf(op.NumResults() == 1, "expected %s to have one result", op.Kind)
		r = newInt64(0, a.cfg.MaxPrograms, width, signed)
	case ir.MakeRange:
		// The produced values span [Start, End).
		r = newInt64(op.Start, op.End-1, width, signed)
	case ir.Histogram:
		// Bucket counts are non-negative.
		r = New(new(big.Int), signedMax(width), width, signed)
	default:
		panic("unsupported op " + op.Kind.String())
	}
	for _, res := range results {
		a.joinResult(res, r)
	}
}

// inferShape handles shape- and layout-preserving ops and combinators.
func (a *Analysis) inferShape(op *ir.Op, args []Interval, results []*dataflow.Cell) {
	switch op.Kind {
	case ir.Transpose, ir.Reshape, ir.Broadcast, ir.Splat, ir.ExpandDims,
		ir.ConvertLayout, ir.Split:
		for _, res := range results {
			a.joinResult(res, args[0])
		}
	case ir.Join, ir.Concat:
		checkf(op.NumOperands() == 2, "expected %s to have two operands", op.Kind)
		r := args[0].Union(args[1])
		for _, res := range results {
			a.joinResult(res, r)
		}
	case ir.Gather:
		checkf(len(args) == 2, "expected two operand ranges for %s", op.Kind)
		// The result draws from the data operand; the index operand only
		// selects positions.
		a.joinResult(results[0], args[0])
	default:
		panic("unsupported op " + op.Kind.String())
	}
}

// liftOperand turns a possibly-uninitialized operand cell into an
// interval, using the maximal range when nothing is known yet.
func (a *Analysis) liftOperand(v ir.Value, c *dataflow.Cell) Interval {
	if !c.Uninitialized() {
		if r := c.State().(Interval); !r.IsEmpty() {
			return r
		}
	}
	r, ok := MaxRangeFor(v)
	if !ok {
		return Empty()
	}
	return r
}

// joinResult merges an inferred range into a result cell, first
// narrowing it by the cell's assumption-derived range if it has one.
func (a *Analysis) joinResult(res *dataflow.Cell, r Interval) {
	if assumed, ok := a.assumedRange(res.Value()); ok {
		if narrowed := r.Intersect(assumed); !narrowed.IsEmpty() {
			r = narrowed
		}
	}
	changed := a.solver.Join(res, r)
	if changed {
		a.logf("inferred range for %s: %s", res.Value().Name(), r)
	}
	a.solver.PropagateIfChanged(res, changed)
}

// setToEntryState initializes a cell that has no usable inbound
// dataflow: the maximal range for its type, narrowed by assumptions.
// Non-integer cells are not part of this analysis and stay untouched.
func (a *Analysis) setToEntryState(c *dataflow.Cell) {
	r, ok := MaxRangeFor(c.Value())
	if !ok {
		return
	}
	if assumed, ok := a.assumedRange(c.Value()); ok {
		r = assumed
	}
	changed := a.solver.Join(c, r)
	if changed {
		a.logf("set range of %s to %s", c.Value().Name(), r)
	}
	a.solver.PropagateIfChanged(c, changed)
}

func (a *Analysis) setAllToEntryStates(cells []*dataflow.Cell) {
	for _, c := range cells {
		a.setToEntryState(c)
	}
}

// VisitRegionSuccessors implements dataflow.Visitor for control-flow
// edges into region successors, applying the trip-count policy for
// loop-carried cells.
func (a *Analysis) VisitRegionSuccessors(branch *ir.Op, succ ir.RegionSuccessor, cells []*dataflow.Cell) {
	a.logf("inferring ranges for %s successors", branch.Kind)

	var loop *ir.Op
	if branch.IsLoopLike() {
		loop = branch
	}
	if loop != nil {
		if _, ok := a.tripCounts[loop]; !ok {
			a.tripCounts[loop] = math.MaxInt64
			for _, c := range cells {
				a.visits[visitKey{loop, c}] = 0
			}
		}
		if n := a.totalTripCount(loop); n < a.tripCounts[loop] {
			a.tripCounts[loop] = n
			a.logf("trip count for %s loop: %d", loop.Kind, n)
		}
	}

	for _, pred := range a.solver.Predecessors(branch, succ) {
		var operands []ir.Value
		var ok bool
		if pred == branch {
			operands, ok = branch.EntrySuccessorOperands(succ)
		} else {
			operands, ok = pred.SuccessorOperands(succ)
		}
		if !ok {
			// The edge does not expose forwarded operands; nothing
			// better than the entry state can be claimed for its
			// targets.
			a.setAllToEntryStates(cells)
			return
		}

		inputs := succ.Inputs()
		checkf(len(inputs) == len(operands),
			"expected %d successor inputs for %s, got %d operands", len(inputs), branch.Kind, len(operands))

		firstIndex := 0
		if len(inputs) != len(cells) {
			if len(inputs) > 0 {
				firstIndex = inputIndex(inputs[0])
			}
			a.visitUncoveredArguments(loop, cells, firstIndex, len(inputs))
		}

		for i, oper := range operands {
			cell := cells[firstIndex+i]
			key := visitKey{loop, cell}
			// Once the loop has "run" trip-count many times for this
			// cell, stop propagating into it.
			if loop != nil && a.visits[key] >= a.tripCounts[loop] {
				continue
			}

			var changed bool
			if loop != nil && a.tripCounts[loop] > a.cfg.MaxTripCount {
				// Iterating a loop this large (or unknown) cannot
				// converge usefully; widen to the maximal range so the
				// lattice tops out immediately.
				if top, ok := MaxRangeFor(oper); ok {
					changed = a.solver.Join(cell, top)
				}
			} else {
				operCell := a.solver.CellOf(oper)
				if !operCell.Uninitialized() {
					changed = a.solver.Join(cell, operCell.State())
					if changed {
						a.logf("operand %s -> %s", oper.Name(), operCell.State())
					}
				}
				// Count only joins that moved the cell; propagation is
				// re-attempted many times per iteration.
				if loop != nil && changed {
					a.visits[key]++
				}
			}
			a.solver.PropagateIfChanged(cell, changed)
		}
	}
}

// visitUncoveredArguments handles successor cells outside the forwarded
// operand window: the loop induction variable is bounded from the loop's
// resolved bounds, anything else gets the entry state.
func (a *Analysis) visitUncoveredArguments(loop *ir.Op, cells []*dataflow.Cell, firstIndex, n int) {
	for i, c := range cells {
		if i >= firstIndex && i < firstIndex+n {
			continue
		}
		if loop != nil {
			if info, ok := loop.LoopInfo(); ok && info.IndVar != nil && c.Value().ID() == info.IndVar.ID() {
				if r, ok := a.inductionRange(loop); ok {
					changed := a.solver.Join(c, r)
					if changed {
						a.logf("induction variable %s: %s", info.IndVar.Name(), r)
					}
					a.solver.PropagateIfChanged(c, changed)
					continue
				}
			}
		}
		a.setToEntryState(c)
	}
}

// inductionRange bounds a loop's induction variable as [lb, ub):
// lower bound from the lower operand's minimum and upper bound one below
// the upper operand's maximum. Both operands must resolve through a
// literal or an already-computed range.
func (a *Analysis) inductionRange(loop *ir.Op) (Interval, bool) {
	info, ok := loop.LoopInfo()
	if !ok || info.IndVar == nil || info.Lower == nil || info.Upper == nil {
		return Empty(), false
	}
	width, ok := ir.StorageWidth(info.IndVar.Type())
	if !ok {
		return Empty(), false
	}

	lo, okLo := a.resolveBound(info.Lower, false)
	hi, okHi := a.resolveBound(info.Upper, true)
	if !okLo || !okHi {
		return Empty(), false
	}
	hi = new(big.Int).Sub(hi, big.NewInt(1))
	if lo.Cmp(hi) > 0 {
		return Empty(), false
	}
	return New(lo, hi, width, typeSigned(info.IndVar.Type())), true
}

func (a *Analysis) resolveBound(v ir.Value, upper bool) (*big.Int, bool) {
	if k, ok := ir.ConstantIntValue(v); ok {
		return k, true
	}
	if c := a.solver.Lookup(v); c != nil && !c.Uninitialized() {
		if r, ok := c.State().(Interval); ok && !r.IsEmpty() {
			if upper {
				return r.Upper(), true
			}
			return r.Lower(), true
		}
	}
	return nil, false
}

func inputIndex(v ir.Value) int {
	switch v := v.(type) {
	case *ir.Argument:
		return v.Index()
	case *ir.Result:
		return v.Index()
	default:
		panic("unexpected successor input")
	}
}
