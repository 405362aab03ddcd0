package ir

// Region is a nested scope owned by an operation. All regions in this IR
// hold exactly one block; the slice exists to keep the structure close to
// the conventional region/block nesting.
type Region struct {
	parent *Op
	blocks []*Block
}

func (r *Region) Parent() *Op { return r.parent }

// Entry returns the region's entry (and only) block.
func (r *Region) Entry() *Block {
	checkf(len(r.blocks) > 0, "region of %s has no blocks", r.parent.Kind)
	return r.blocks[0]
}

// Block is a sequence of operations with block arguments. The last
// operation must be a terminator (Yield or Return).
type Block struct {
	region *Region
	args   []*Argument
	ops    []*Op
}

func (b *Block) Region() *Region     { return b.region }
func (b *Block) NumArgs() int        { return len(b.args) }
func (b *Block) Arg(i int) *Argument { return b.args[i] }
func (b *Block) Args() []*Argument   { return b.args }
func (b *Block) Ops() []*Op          { return b.ops }

// Terminator returns the block's final operation.
func (b *Block) Terminator() *Op {
	checkf(len(b.ops) > 0, "block in %s has no terminator", b.region.parent.Kind)
	term := b.ops[len(b.ops)-1]
	checkf(term.Kind == Yield || term.Kind == Return, "block in %s ends in %s, want terminator", b.region.parent.Kind, term.Kind)
	return term
}

// LoopInfo describes a loop-like operation's induction variable and
// bounds. Any of the fields may be nil when the loop does not expose them.
type LoopInfo struct {
	IndVar *Argument
	Lower  Value
	Upper  Value
	Step   Value
}

// LoopInfo returns loop metadata for loop-like operations. While loops are
// loop-like but expose neither an induction variable nor bounds.
func (op *Op) LoopInfo() (LoopInfo, bool) {
	switch op.Kind {
	case For:
		return LoopInfo{
			IndVar: op.regions[0].Entry().Arg(0),
			Lower:  op.operands[0],
			Upper:  op.operands[1],
			Step:   op.operands[2],
		}, true
	case While:
		return LoopInfo{}, true
	default:
		return LoopInfo{}, false
	}
}

// IsLoopLike reports whether op carries loop semantics for its region.
func (op *Op) IsLoopLike() bool {
	return op.Kind == For || op.Kind == While
}

// RegionSuccessor is a point control can branch to when entering or
// leaving one of an operation's regions: either the entry of one of the
// regions, or the operation's own results (Region == nil).
type RegionSuccessor struct {
	Op     *Op
	Region *Region
}

// IsParent reports whether the successor is the operation's results.
func (s RegionSuccessor) IsParent() bool { return s.Region == nil }

// Inputs returns the values at the successor point that receive forwarded
// operands. At a loop body boundary this excludes the induction variable,
// which no predecessor forwards into.
func (s RegionSuccessor) Inputs() []Value {
	if s.IsParent() {
		out := make([]Value, len(s.Op.results))
		for i, r := range s.Op.results {
			out[i] = r
		}
		return out
	}
	args := s.Region.Entry().Args()
	if s.Op.Kind == For {
		args = args[1:] // skip the induction variable
	}
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// ArgCells returns every value whose lattice cell lives at the successor
// point, induction variable included.
func (s RegionSuccessor) ArgCells() []Value {
	if s.IsParent() {
		out := make([]Value, len(s.Op.results))
		for i, r := range s.Op.results {
			out[i] = r
		}
		return out
	}
	args := s.Region.Entry().Args()
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// RegionSuccessors lists the points reachable by branching into or out of
// op's regions. Non-region-branching operations return nil.
func (op *Op) RegionSuccessors() []RegionSuccessor {
	switch op.Kind {
	case For, While:
		return []RegionSuccessor{
			{Op: op, Region: op.regions[0]},
			{Op: op},
		}
	case If:
		return []RegionSuccessor{
			{Op: op, Region: op.regions[0]},
			{Op: op, Region: op.regions[1]},
			{Op: op},
		}
	default:
		return nil
	}
}

// EntrySuccessorOperands returns the operands op forwards along the edge
// from before op to the given successor. The second result is false when
// op does not expose forwarded operands for that edge.
func (op *Op) EntrySuccessorOperands(s RegionSuccessor) ([]Value, bool) {
	switch op.Kind {
	case For:
		// Both the body (first iteration) and the results (zero-trip
		// loop) receive the init operands.
		return op.operands[3:], true
	case While:
		return op.operands, true
	case If:
		if s.IsParent() {
			return nil, false
		}
		return []Value{}, true
	default:
		return nil, false
	}
}

// SuccessorOperands returns the operands a terminator forwards to the
// given successor of its enclosing operation.
func (op *Op) SuccessorOperands(s RegionSuccessor) ([]Value, bool) {
	if op.Kind != Yield {
		return nil, false
	}
	parent := op.ParentOp()
	checkf(parent != nil, "detached terminator")
	switch parent.Kind {
	case For, While:
		// Back edge and exit edge both carry the yielded values.
		return op.operands, true
	case If:
		if s.IsParent() {
			return op.operands, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// TerminatorSuccessors lists the successors a terminator feeds.
func (op *Op) TerminatorSuccessors() []RegionSuccessor {
	if op.Kind != Yield {
		return nil
	}
	parent := op.ParentOp()
	if parent == nil {
		return nil
	}
	switch parent.Kind {
	case For, While:
		return []RegionSuccessor{
			{Op: parent, Region: parent.regions[0]},
			{Op: parent},
		}
	case If:
		return []RegionSuccessor{{Op: parent}}
	default:
		return nil
	}
}

// Walk visits op and every operation nested in its regions in pre-order.
func Walk(op *Op, fn func(*Op)) {
	fn(op)
	for _, r := range op.regions {
		for _, b := range r.blocks {
			for _, o := range b.ops {
				Walk(o, fn)
			}
		}
	}
}

// EnclosingLoops appends every loop-like operation statically enclosing op,
// innermost first.
func EnclosingLoops(op *Op) []*Op {
	var loops []*Op
	for cur := op.ParentOp(); cur != nil; cur = cur.ParentOp() {
		if cur.IsLoopLike() {
			loops = append(loops, cur)
		}
	}
	return loops
}
