package dataflow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tileir/tileir/ir"
)

// flagLattice is a two-point test domain: joined is sticky.
type flagLattice struct {
	joined bool
}

func (f flagLattice) Join(other Lattice) Lattice {
	o := other.(flagLattice)
	return flagLattice{joined: f.joined || o.joined}
}

func (f flagLattice) Eq(other Lattice) bool {
	o, ok := other.(flagLattice)
	return ok && f.joined == o.joined
}

func (f flagLattice) String() string { return fmt.Sprintf("joined=%v", f.joined) }

// markVisitor marks every result reachable from a marked operand and
// counts operation visits.
type markVisitor struct {
	solver *Solver
	visits map[ir.OpKind]int
}

func (v *markVisitor) VisitOperation(op *ir.Op, operands, results []*Cell) {
	v.visits[op.Kind]++
	mark := op.Kind == ir.ProgramID
	for _, c := range operands {
		if !c.Uninitialized() && c.State().(flagLattice).joined {
			mark = true
		}
	}
	for _, c := range results {
		changed := v.solver.Join(c, flagLattice{joined: mark})
		v.solver.PropagateIfChanged(c, changed)
	}
}

func (v *markVisitor) VisitRegionSuccessors(branch *ir.Op, succ ir.RegionSuccessor, cells []*Cell) {
	for _, pred := range v.solver.Predecessors(branch, succ) {
		var operands []ir.Value
		var ok bool
		if pred == branch {
			operands, ok = branch.EntrySuccessorOperands(succ)
		} else {
			operands, ok = pred.SuccessorOperands(succ)
		}
		if !ok {
			continue
		}
		inputs := succ.Inputs()
		offset := len(cells) - len(inputs)
		for i, oper := range operands {
			c := v.solver.CellOf(oper)
			if c.Uninitialized() {
				continue
			}
			changed := v.solver.Join(cells[offset+i], c.State())
			v.solver.PropagateIfChanged(cells[offset+i], changed)
		}
	}
}

func TestSolverReachesFixedPoint(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("f", nil, nil)
	pid := b.NamedOp(ir.ProgramID, nil, []string{"pid"}, []ir.Type{ir.I32}).Result(0)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	sum := b.NamedOp(ir.AddI, []ir.Value{pid, c1}, []string{"sum"}, []ir.Type{ir.I32}).Result(0)
	other := b.NamedOp(ir.AddI, []ir.Value{c1, c1}, []string{"other"}, []ir.Type{ir.I32}).Result(0)
	b.Return()

	v := &markVisitor{visits: map[ir.OpKind]int{}}
	s := NewSolver(v)
	v.solver = s
	s.Run(b.Module())

	if c := s.Lookup(sum); c.Uninitialized() || !c.State().(flagLattice).joined {
		t.Errorf("sum should be marked, got %s", c)
	}
	if c := s.Lookup(other); c.Uninitialized() || c.State().(flagLattice).joined {
		t.Errorf("other should stay unmarked, got %s", c)
	}
}

func TestSolverPropagatesThroughLoop(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("f", nil, nil)
	pid := b.NamedOp(ir.ProgramID, nil, []string{"pid"}, []ir.Type{ir.I32}).Result(0)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	c8 := b.NamedConstant("c8", 8, ir.I32)
	loop := b.For("i", c0, c8, c1, []string{"acc"}, []ir.Value{c0}, []string{"out"})
	acc := loop.Region(0).Entry().Arg(1)
	next := b.NamedOp(ir.AddI, []ir.Value{acc, pid}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
	b.Yield(next)
	b.Return()

	v := &markVisitor{visits: map[ir.OpKind]int{}}
	s := NewSolver(v)
	v.solver = s
	s.Run(b.Module())

	// pid's mark reaches the loop-carried value and the loop result.
	if c := s.Lookup(acc); c.Uninitialized() || !c.State().(flagLattice).joined {
		t.Errorf("loop-carried value should be marked, got %s", c)
	}
	if c := s.Lookup(loop.Result(0)); c.Uninitialized() || !c.State().(flagLattice).joined {
		t.Errorf("loop result should be marked, got %s", c)
	}
}

func TestSolverJoinIsSticky(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("f", nil, nil)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	b.Return()

	s := NewSolver(&markVisitor{visits: map[ir.OpKind]int{}})
	c := s.CellOf(c1)

	if !s.Join(c, flagLattice{joined: true}) {
		t.Fatal("first join must report a change")
	}
	if s.Join(c, flagLattice{joined: false}) {
		t.Fatal("join with a subsumed state must not report a change")
	}
	if !c.State().(flagLattice).joined {
		t.Fatal("join must be monotone")
	}
}

func TestDotOutput(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("f", nil, nil)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	b.NamedOp(ir.AddI, []ir.Value{c1, c1}, []string{"sum"}, []ir.Type{ir.I32})
	b.Return()

	v := &markVisitor{visits: map[ir.OpKind]int{}}
	s := NewSolver(v)
	v.solver = s
	s.Run(b.Module())

	dot := s.Dot(b.Module())
	if !strings.HasPrefix(dot, "digraph{") {
		t.Errorf("unexpected graph prefix: %q", dot)
	}
	if !strings.Contains(dot, "c1") || !strings.Contains(dot, "sum") {
		t.Errorf("graph should mention both values:\n%s", dot)
	}
}
