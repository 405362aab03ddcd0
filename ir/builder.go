package ir

import (
	"fmt"
	"math/big"
)

// Builder constructs IR. It owns value-ID assignment and auto-naming for a
// module, and keeps an insertion point so that ops are appended to the
// block under construction.
type Builder struct {
	module *Op
	nextID ValueID
	names  map[string]bool
	insert *Block
}

// NewBuilder returns a builder with a fresh, empty module.
func NewBuilder() *Builder {
	b := &Builder{names: map[string]bool{}}
	b.module = &Op{Kind: Module}
	b.module.regions = []*Region{newRegion(b.module)}
	return b
}

// Module returns the op under construction.
func (b *Builder) Module() *Op { return b.module }

// BuilderFor returns a builder resuming construction of an existing
// module. Name and ID assignment continue after the values already
// present, so new ops cannot collide with old ones.
func BuilderFor(module *Op) *Builder {
	checkf(module.Kind == Module, "BuilderFor on %s", module.Kind)
	b := &Builder{module: module, names: map[string]bool{}}
	Walk(module, func(op *Op) {
		for _, r := range op.results {
			b.names[r.name] = true
			if r.id > b.nextID {
				b.nextID = r.id
			}
		}
		for _, reg := range op.regions {
			for _, a := range reg.Entry().args {
				b.names[a.name] = true
				if a.id > b.nextID {
					b.nextID = a.id
				}
			}
		}
	})
	return b
}

func newRegion(parent *Op) *Region {
	r := &Region{parent: parent}
	r.blocks = []*Block{{region: r}}
	return r
}

func (b *Builder) newID() ValueID {
	b.nextID++
	return b.nextID
}

// uniqueName reserves name, or derives a fresh one when name is empty or
// taken.
func (b *Builder) uniqueName(name string) string {
	if name == "" {
		name = fmt.Sprintf("t%d", b.nextID)
	}
	for base, i := name, 1; b.names[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	b.names[name] = true
	return name
}

// SetInsertion directs subsequent ops into block.
func (b *Builder) SetInsertion(block *Block) { b.insert = block }

// Insertion returns the current insertion block.
func (b *Builder) Insertion() *Block { return b.insert }

func (b *Builder) addArg(block *Block, name string, typ Type) *Argument {
	arg := &Argument{
		id:    b.newID(),
		name:  b.uniqueName(name),
		typ:   typ,
		block: block,
		num:   len(block.args),
	}
	block.args = append(block.args, arg)
	return arg
}

func (b *Builder) addResults(op *Op, names []string, types []Type) {
	for i, typ := range types {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		op.results = append(op.results, &Result{
			id:   b.newID(),
			name: b.uniqueName(name),
			typ:  typ,
			op:   op,
			num:  i,
		})
	}
}

func (b *Builder) emit(op *Op) *Op {
	checkf(b.insert != nil, "builder has no insertion point")
	op.parent = b.insert
	b.insert.ops = append(b.insert.ops, op)
	return op
}

// Func creates a function in the module and moves the insertion point into
// its body. The returned op's body arguments are the function parameters.
func (b *Builder) Func(name string, paramNames []string, paramTypes []Type) *Op {
	fn := &Op{Kind: Func, Sym: name}
	fn.regions = []*Region{newRegion(fn)}
	body := fn.regions[0].Entry()
	for i, typ := range paramTypes {
		pn := ""
		if i < len(paramNames) {
			pn = paramNames[i]
		}
		b.addArg(body, pn, typ)
	}
	mod := b.module.regions[0].Entry()
	fn.parent = mod
	mod.ops = append(mod.ops, fn)
	b.insert = body
	return fn
}

// Op emits a plain operation with the given kind, operands and result
// types. Attribute-carrying kinds have dedicated helpers below.
func (b *Builder) Op(kind OpKind, operands []Value, resultTypes []Type) *Op {
	return b.NamedOp(kind, operands, nil, resultTypes)
}

// NamedOp is Op with explicit result names; empty or missing names are
// auto-assigned.
func (b *Builder) NamedOp(kind OpKind, operands []Value, resultNames []string, resultTypes []Type) *Op {
	op := &Op{Kind: kind, operands: operands}
	b.addResults(op, resultNames, resultTypes)
	return b.emit(op)
}

// Constant emits an integer literal.
func (b *Builder) Constant(v int64, typ Type) *Result {
	return b.NamedConstant("", v, typ)
}

func (b *Builder) NamedConstant(name string, v int64, typ Type) *Result {
	op := &Op{Kind: Constant, Value: big.NewInt(v)}
	b.addResults(op, []string{name}, []Type{typ})
	b.emit(op)
	return op.results[0]
}

// MakeRange emits a range-generation op producing values in [start, end).
func (b *Builder) MakeRange(name string, start, end int64, typ Type) *Result {
	op := &Op{Kind: MakeRange, Start: start, End: end}
	b.addResults(op, []string{name}, []Type{typ})
	b.emit(op)
	return op.results[0]
}

// CmpI emits a comparison.
func (b *Builder) CmpI(name string, pred Pred, lhs, rhs Value) *Result {
	typ := Type(Bool)
	if tt, ok := lhs.Type().(TensorType); ok {
		typ = TensorType{Dims: tt.Dims, Elem: Bool}
	}
	op := &Op{Kind: CmpI, Pred: pred, operands: []Value{lhs, rhs}}
	b.addResults(op, []string{name}, []Type{typ})
	b.emit(op)
	return op.results[0]
}

// Assume emits an assumption over a boolean condition.
func (b *Builder) Assume(cond Value) *Op {
	return b.emit(&Op{Kind: Assume, operands: []Value{cond}})
}

// For emits a loop with bounds lb/ub/step and loop-carried inits, and
// moves the insertion point into the loop body. The body's first argument
// is the induction variable.
func (b *Builder) For(ivName string, lb, ub, step Value, iterNames []string, inits []Value, resultNames []string) *Op {
	operands := append([]Value{lb, ub, step}, inits...)
	op := &Op{Kind: For, operands: operands}
	op.regions = []*Region{newRegion(op)}
	body := op.regions[0].Entry()
	b.addArg(body, ivName, lb.Type())
	resultTypes := make([]Type, len(inits))
	for i, init := range inits {
		in := ""
		if i < len(iterNames) {
			in = iterNames[i]
		}
		b.addArg(body, in, init.Type())
		resultTypes[i] = init.Type()
	}
	b.addResults(op, resultNames, resultTypes)
	b.emit(op)
	b.insert = body
	return op
}

// While emits a bound-less loop carrying inits, and moves the insertion
// point into the body.
func (b *Builder) While(iterNames []string, inits []Value, resultNames []string) *Op {
	op := &Op{Kind: While, operands: inits}
	op.regions = []*Region{newRegion(op)}
	body := op.regions[0].Entry()
	resultTypes := make([]Type, len(inits))
	for i, init := range inits {
		in := ""
		if i < len(iterNames) {
			in = iterNames[i]
		}
		b.addArg(body, in, init.Type())
		resultTypes[i] = init.Type()
	}
	b.addResults(op, resultNames, resultTypes)
	b.emit(op)
	b.insert = body
	return op
}

// If emits a two-armed conditional yielding values of resultTypes. The
// insertion point moves into the "then" region; use Else to switch arms.
func (b *Builder) If(cond Value, resultNames []string, resultTypes []Type) *Op {
	op := &Op{Kind: If, operands: []Value{cond}}
	op.regions = []*Region{newRegion(op), newRegion(op)}
	b.addResults(op, resultNames, resultTypes)
	b.emit(op)
	b.insert = op.regions[0].Entry()
	return op
}

// Else moves the insertion point into the else region of an If.
func (b *Builder) Else(ifOp *Op) {
	checkf(ifOp.Kind == If, "Else on %s", ifOp.Kind)
	b.insert = ifOp.regions[1].Entry()
}

// Yield terminates the current block, forwarding operands, and moves the
// insertion point to the block containing the enclosing op.
func (b *Builder) Yield(operands ...Value) *Op {
	op := b.emit(&Op{Kind: Yield, operands: operands})
	b.insert = b.insert.region.parent.parent
	return op
}

// Return terminates a function body.
func (b *Builder) Return(operands ...Value) *Op {
	op := b.emit(&Op{Kind: Return, operands: operands})
	b.insert = nil
	return op
}
