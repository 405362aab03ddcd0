// Package dataflow implements a sparse forward fixed-point solver for
// region-based IR. It owns the lattice cells (one per IR value, addressed
// by stable value ID), schedules re-visits of operations whose inputs
// changed, and answers predecessor queries for region-successor points.
//
// The solver is agnostic to the abstract domain: an analysis supplies the
// domain by implementing Visitor and calling Join/PropagateIfChanged on
// the cells handed to it. All IR values start in the ⊥ (uninitialized)
// state, represented by a cell without a state.
package dataflow

import (
	"fmt"
	"log"
	"strings"

	"github.com/tileir/tileir/ir"
)

const debugging = false

func debugf(f string, args ...interface{}) {
	if debugging {
		log.Printf(f, args...)
	}
}

// Lattice is an element of a join-semilattice. Join must be commutative,
// associative and monotone; Eq must be semantic equality, as the solver
// uses it to detect convergence.
type Lattice interface {
	Join(other Lattice) Lattice
	Eq(other Lattice) bool
	String() string
}

// Cell holds the abstract state currently known for one IR value. A nil
// state is the ⊥ element: nothing has been observed yet.
type Cell struct {
	value ir.Value
	state Lattice
}

func (c *Cell) Value() ir.Value { return c.value }

// State returns the cell's current state, nil while uninitialized.
func (c *Cell) State() Lattice { return c.state }

func (c *Cell) Uninitialized() bool { return c.state == nil }

func (c *Cell) String() string {
	if c.state == nil {
		return fmt.Sprintf("%s = ⊥", c.value.Name())
	}
	return fmt.Sprintf("%s = %s", c.value.Name(), c.state)
}

// Visitor is the analysis plugged into the solver.
type Visitor interface {
	// VisitOperation infers result cells from operand cells for an
	// operation without regions.
	VisitOperation(op *ir.Op, operands, results []*Cell)
	// VisitRegionSuccessors propagates along control-flow edges into the
	// given successor point of a region-branching operation. cells holds
	// every lattice cell living at that point, in declaration order.
	VisitRegionSuccessors(branch *ir.Op, succ ir.RegionSuccessor, cells []*Cell)
}

// Solver drives a Visitor to a fixed point.
type Solver struct {
	visitor Visitor
	cells   map[ir.ValueID]*Cell
	users   map[ir.ValueID][]*ir.Op
	queue   []*ir.Op
	queued  map[*ir.Op]bool
}

func NewSolver(visitor Visitor) *Solver {
	return &Solver{
		visitor: visitor,
		cells:   map[ir.ValueID]*Cell{},
		users:   map[ir.ValueID][]*ir.Op{},
		queued:  map[*ir.Op]bool{},
	}
}

// Lookup returns the cell for v, or nil if the solver has never seen v.
func (s *Solver) Lookup(v ir.Value) *Cell {
	return s.cells[v.ID()]
}

// CellOf returns the cell for v, creating an uninitialized one on first
// use.
func (s *Solver) CellOf(v ir.Value) *Cell {
	c, ok := s.cells[v.ID()]
	if !ok {
		c = &Cell{value: v}
		s.cells[v.ID()] = c
	}
	return c
}

// Join merges l into c and reports whether the cell changed. Joining a
// state already subsumed by the cell is a no-op.
func (s *Solver) Join(c *Cell, l Lattice) bool {
	if l == nil {
		return false
	}
	if c.state == nil {
		c.state = l
		debugf("set %s", c)
		return true
	}
	joined := c.state.Join(l)
	if joined.Eq(c.state) {
		return false
	}
	debugf("join %s ∨ %s on %s", c.state, l, c.value.Name())
	c.state = joined
	return true
}

// PropagateIfChanged re-enqueues every operation depending on c's value
// if changed is true.
func (s *Solver) PropagateIfChanged(c *Cell, changed bool) {
	if !changed {
		return
	}
	for _, user := range s.users[c.value.ID()] {
		s.enqueue(user)
	}
}

func (s *Solver) enqueue(op *ir.Op) {
	if s.queued[op] {
		return
	}
	s.queued[op] = true
	s.queue = append(s.queue, op)
}

// Predecessors returns the operations that may branch into the given
// successor point: the branching operation itself for entry edges, and
// region terminators for back and exit edges. The IR's structure makes
// the set fully resolved by construction.
func (s *Solver) Predecessors(branch *ir.Op, succ ir.RegionSuccessor) []*ir.Op {
	switch branch.Kind {
	case ir.For, ir.While:
		return []*ir.Op{branch, branch.Region(0).Entry().Terminator()}
	case ir.If:
		if succ.IsParent() {
			return []*ir.Op{
				branch.Region(0).Entry().Terminator(),
				branch.Region(1).Entry().Terminator(),
			}
		}
		return []*ir.Op{branch}
	default:
		panic(fmt.Sprintf("predecessor query on non-branching op %s", branch.Kind))
	}
}

// Cells maps values to their cells, creating cells as needed.
func (s *Solver) Cells(values []ir.Value) []*Cell {
	out := make([]*Cell, len(values))
	for i, v := range values {
		out[i] = s.CellOf(v)
	}
	return out
}

// Run seeds the worklist with every operation under root and iterates
// until no cell changes. Operations are re-visited only when one of their
// inputs changed, so convergence follows from the monotonicity of the
// visitor's joins.
func (s *Solver) Run(root *ir.Op) {
	ir.Walk(root, func(op *ir.Op) {
		for _, v := range op.Operands() {
			s.users[v.ID()] = append(s.users[v.ID()], op)
		}
		s.enqueue(op)
	})

	for len(s.queue) > 0 {
		op := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[op] = false
		s.visit(op)
	}
}

func (s *Solver) visit(op *ir.Op) {
	switch op.Kind {
	case ir.Module, ir.Func, ir.Return:
		// Containers and function exits carry no dataflow of their own.
		return
	}

	if succs := op.RegionSuccessors(); len(succs) > 0 {
		for _, succ := range succs {
			s.visitor.VisitRegionSuccessors(op, succ, s.Cells(succ.ArgCells()))
		}
		return
	}
	if succs := op.TerminatorSuccessors(); len(succs) > 0 {
		for _, succ := range succs {
			s.visitor.VisitRegionSuccessors(succ.Op, succ, s.Cells(succ.ArgCells()))
		}
		return
	}

	operands := make([]*Cell, op.NumOperands())
	for i, v := range op.Operands() {
		operands[i] = s.CellOf(v)
	}
	results := make([]*Cell, op.NumResults())
	for i, r := range op.Results() {
		results[i] = s.CellOf(r)
	}
	s.visitor.VisitOperation(op, operands, results)
}

// Dot returns the converged cells as a Graphviz graph, one vertex per
// value labelled with its state, with def-use edges.
func (s *Solver) Dot(root *ir.Op) string {
	var sb strings.Builder
	sb.WriteString("digraph{\n")
	ids := map[ir.ValueID]int{}
	n := 1
	ir.Walk(root, func(op *ir.Op) {
		for _, r := range op.Results() {
			c := s.Lookup(r)
			if c == nil {
				continue
			}
			ids[r.ID()] = n
			fmt.Fprintf(&sb, "n%d [shape=\"oval\", label=%q]\n", n, c.String())
			n++
		}
	})
	ir.Walk(root, func(op *ir.Op) {
		for _, v := range op.Operands() {
			from, ok := ids[v.ID()]
			if !ok {
				continue
			}
			for _, r := range op.Results() {
				if to, ok := ids[r.ID()]; ok {
					fmt.Fprintf(&sb, "n%d -> n%d\n", from, to)
				}
			}
		}
	})
	sb.WriteString("}")
	return sb.String()
}
