package ir

import (
	"fmt"
	"math/big"
)

// OpKind enumerates every operation the IR can represent. The set is
// closed: analyses dispatch on it exhaustively and treat an unlisted kind
// as a missing rule, not as input data.
type OpKind uint8

const (
	Invalid OpKind = iota

	// Nesting and functions.
	Module
	Func
	Return

	// Literals and fixed-range producers.
	Constant
	ProgramID
	NumPrograms
	MakeRange
	Histogram

	// Shape- and layout-preserving ops.
	Transpose
	Reshape
	Broadcast
	Splat
	ExpandDims
	ConvertLayout
	Split

	// Combinators.
	Join
	Concat
	Gather

	// Arithmetic and comparisons. These infer their own result ranges
	// from operand ranges.
	AddI
	SubI
	MulI
	DivSI
	DivUI
	RemSI
	RemUI
	AndI
	OrI
	XorI
	ShlI
	ShrSI
	ShrUI
	MinSI
	MaxSI
	MinUI
	MaxUI
	ExtSI
	ExtUI
	TruncI
	IndexCast
	Select
	CmpI

	// Structured control flow.
	For
	While
	If
	Yield

	// Assumptions.
	Assume

	// Call is opaque to all analyses shipped with this module.
	Call

	numOpKinds
)

var opKindNames = [...]string{
	Invalid:       "invalid",
	Module:        "module",
	Func:          "func",
	Return:        "return",
	Constant:      "constant",
	ProgramID:     "program_id",
	NumPrograms:   "num_programs",
	MakeRange:     "make_range",
	Histogram:     "histogram",
	Transpose:     "transpose",
	Reshape:       "reshape",
	Broadcast:     "broadcast",
	Splat:         "splat",
	ExpandDims:    "expand_dims",
	ConvertLayout: "convert_layout",
	Split:         "split",
	Join:          "join",
	Concat:        "concat",
	Gather:        "gather",
	AddI:          "addi",
	SubI:          "subi",
	MulI:          "muli",
	DivSI:         "divsi",
	DivUI:         "divui",
	RemSI:         "remsi",
	RemUI:         "remui",
	AndI:          "andi",
	OrI:           "ori",
	XorI:          "xori",
	ShlI:          "shli",
	ShrSI:         "shrsi",
	ShrUI:         "shrui",
	MinSI:         "minsi",
	MaxSI:         "maxsi",
	MinUI:         "minui",
	MaxUI:         "maxui",
	ExtSI:         "extsi",
	ExtUI:         "extui",
	TruncI:        "trunci",
	IndexCast:     "index_cast",
	Select:        "select",
	CmpI:          "cmpi",
	For:           "for",
	While:         "while",
	If:            "if",
	Yield:         "yield",
	Assume:        "assume",
	Call:          "call",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) && opKindNames[k] != "" {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// OpKindFromString maps a mnemonic back to its kind.
func OpKindFromString(s string) (OpKind, bool) {
	for k, name := range opKindNames {
		if name == s && OpKind(k) != Invalid {
			return OpKind(k), true
		}
	}
	return Invalid, false
}

// Pred is a comparison predicate for CmpI.
type Pred uint8

const (
	PredEq Pred = iota
	PredNe
	PredSlt
	PredSle
	PredSgt
	PredSge
	PredUlt
	PredUle
	PredUgt
	PredUge
)

var predNames = [...]string{
	PredEq:  "eq",
	PredNe:  "ne",
	PredSlt: "slt",
	PredSle: "sle",
	PredSgt: "sgt",
	PredSge: "sge",
	PredUlt: "ult",
	PredUle: "ule",
	PredUgt: "ugt",
	PredUge: "uge",
}

func (p Pred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return fmt.Sprintf("Pred(%d)", uint8(p))
}

func PredFromString(s string) (Pred, bool) {
	for p, name := range predNames {
		if name == s {
			return Pred(p), true
		}
	}
	return 0, false
}

// Unsigned reports whether the predicate compares its operands as
// unsigned integers.
func (p Pred) Unsigned() bool {
	switch p {
	case PredUlt, PredUle, PredUgt, PredUge:
		return true
	}
	return false
}

// Flip mirrors the predicate across the comparison: a < b becomes b > a.
func (p Pred) Flip() Pred {
	switch p {
	case PredEq, PredNe:
		return p
	case PredSlt:
		return PredSgt
	case PredSle:
		return PredSge
	case PredSgt:
		return PredSlt
	case PredSge:
		return PredSle
	case PredUlt:
		return PredUgt
	case PredUle:
		return PredUge
	case PredUgt:
		return PredUlt
	case PredUge:
		return PredUle
	default:
		panic(fmt.Sprintf("unhandled predicate %s", p))
	}
}

// Op is a single operation. Only the attribute fields relevant to Kind are
// set; the rest stay zero.
type Op struct {
	Kind OpKind

	operands []Value
	results  []*Result
	regions  []*Region

	// Attributes.
	Value      *big.Int // Constant
	Start, End int64    // MakeRange: the produced values span [Start, End)
	Pred       Pred     // CmpI
	Sym        string   // Func, Call

	parent *Block
}

func (op *Op) NumOperands() int   { return len(op.operands) }
func (op *Op) Operand(i int) Value { return op.operands[i] }
func (op *Op) Operands() []Value  { return op.operands }

func (op *Op) NumResults() int     { return len(op.results) }
func (op *Op) Result(i int) *Result { return op.results[i] }
func (op *Op) Results() []*Result  { return op.results }

func (op *Op) NumRegions() int       { return len(op.regions) }
func (op *Op) Region(i int) *Region  { return op.regions[i] }
func (op *Op) Regions() []*Region    { return op.regions }

// Block returns the block containing op, or nil for a detached or
// top-level op.
func (op *Op) Block() *Block { return op.parent }

// ParentOp returns the operation whose region contains op.
func (op *Op) ParentOp() *Op {
	if op.parent == nil {
		return nil
	}
	return op.parent.region.parent
}

func (op *Op) String() string {
	if len(op.results) > 0 {
		return fmt.Sprintf("%%%s = %s", op.results[0].name, op.Kind)
	}
	return op.Kind.String()
}

// replaceOperand rewrites every use of old in op's operand list.
func (op *Op) replaceOperand(old, new Value) {
	for i, o := range op.operands {
		if o == old {
			op.operands[i] = new
		}
	}
}
