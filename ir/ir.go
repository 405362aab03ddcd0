// Package ir defines a small region-based SSA IR for tile-style compute
// kernels. Operations carry a closed kind enumeration, an ordered operand
// list, an ordered result list and zero or more nested regions. Structured
// control flow (loops, conditionals) is expressed with region-holding
// operations whose terminators forward values across region boundaries,
// rather than with explicit branch instructions.
//
// Every value (operation result or block argument) carries a stable
// identifier. Analyses that need per-value state are expected to key it by
// ID instead of holding references into the IR.
package ir

import (
	"fmt"
	"math/big"
)

// ValueID is a stable, per-module identifier for a value. IDs are assigned
// by the Builder and are never reused within a module.
type ValueID uint32

// Value is an SSA definition point: either an operation result or a block
// argument.
type Value interface {
	ID() ValueID
	Name() string
	Type() Type

	// DefiningOp returns the operation defining the value, or nil for
	// block arguments.
	DefiningOp() *Op
}

// Result is one result of an operation.
type Result struct {
	id   ValueID
	name string
	typ  Type
	op   *Op
	num  int
}

func (r *Result) ID() ValueID      { return r.id }
func (r *Result) Name() string     { return r.name }
func (r *Result) Type() Type       { return r.typ }
func (r *Result) DefiningOp() *Op  { return r.op }
func (r *Result) Op() *Op          { return r.op }
func (r *Result) Index() int       { return r.num }
func (r *Result) String() string   { return "%" + r.name }

// Argument is an argument of a block, such as a loop induction variable or
// a loop-carried value.
type Argument struct {
	id    ValueID
	name  string
	typ   Type
	block *Block
	num   int
}

func (a *Argument) ID() ValueID     { return a.id }
func (a *Argument) Name() string    { return a.name }
func (a *Argument) Type() Type      { return a.typ }
func (a *Argument) DefiningOp() *Op { return nil }
func (a *Argument) Block() *Block   { return a.block }
func (a *Argument) Index() int      { return a.num }
func (a *Argument) String() string  { return "%" + a.name }

// ConstantIntValue returns the literal value of v if v is the result of a
// Constant operation.
func ConstantIntValue(v Value) (*big.Int, bool) {
	op := v.DefiningOp()
	if op == nil || op.Kind != Constant {
		return nil, false
	}
	return op.Value, true
}

func checkf(cond bool, f string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(f, args...))
	}
}
