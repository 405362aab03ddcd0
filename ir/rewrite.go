package ir

import "math/big"

// Rewriter performs IR mutations that analyses request once they have
// converged. It needs a Builder so replacement constants receive fresh
// value IDs.
type Rewriter struct {
	b *Builder
}

func NewRewriter(b *Builder) *Rewriter {
	return &Rewriter{b: b}
}

// ReplaceWithConstant tries to replace every use of res with a fresh
// integer literal of the same type. It reports whether the replacement was
// applied. Replacing is refused when res has a non-integer type or its
// defining op is detached from a block.
func (rw *Rewriter) ReplaceWithConstant(res *Result, v *big.Int) bool {
	if _, ok := StorageWidth(res.Type()); !ok {
		return false
	}
	op := res.Op()
	if op == nil || op.Block() == nil {
		return false
	}

	root := op.Block().Region().Parent()
	for root.Block() != nil {
		root = root.Block().Region().Parent()
	}

	konst := &Op{Kind: Constant, Value: new(big.Int).Set(v)}
	rw.b.addResults(konst, []string{res.Name() + "_c"}, []Type{res.Type()})

	// Insert the literal just before the op being replaced.
	block := op.Block()
	konst.parent = block
	for i, o := range block.ops {
		if o == op {
			block.ops = append(block.ops[:i], append([]*Op{konst}, block.ops[i:]...)...)
			break
		}
	}

	newRes := konst.results[0]
	Walk(root, func(user *Op) {
		if user != konst {
			user.replaceOperand(res, newRes)
		}
	})
	return true
}
