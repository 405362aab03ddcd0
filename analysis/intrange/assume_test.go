package intrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileir/tileir/ir"
)

func TestCollectAssumptions(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x", "y"}, []ir.Type{ir.I32, ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	y := fn.Region(0).Entry().Arg(1)
	c5 := b.NamedConstant("c5", 5, ir.I32)
	b.Assume(b.CmpI("a1", ir.PredSge, x, c5))
	b.Assume(b.CmpI("a2", ir.PredSlt, x, y))
	b.Return()

	got := CollectAssumptions(b.Module(), true)

	assert.Len(t, got[x.ID()], 2)
	assert.Len(t, got[y.ID()], 1)
	// Constants are filtered out of the index.
	assert.Empty(t, got[c5.ID()])

	unfiltered := CollectAssumptions(b.Module(), false)
	assert.Len(t, unfiltered[c5.ID()], 1)
}

func TestDerivedRangePredicates(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x"}, []ir.Type{ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	c10 := b.NamedConstant("c10", 10, ir.I32)
	noop := func(*ir.Op, string) {}

	for _, tc := range []struct {
		pred     ir.Pred
		anchorOn int // operand index of x
		want     string
	}{
		{ir.PredEq, 0, "[10, 10]"},
		{ir.PredSge, 0, "[10, 2147483647]"},
		{ir.PredSgt, 0, "[11, 2147483647]"},
		{ir.PredSle, 0, "[-2147483648, 10]"},
		{ir.PredSlt, 0, "[-2147483648, 9]"},
		{ir.PredSge, 1, "[-2147483648, 10]"}, // 10 >= x
		{ir.PredSlt, 1, "[11, 2147483647]"},  // 10 < x
		{ir.PredUle, 0, "[0, 10]"},
	} {
		var cmp *ir.Result
		if tc.anchorOn == 0 {
			cmp = b.CmpI("", tc.pred, x, c10)
		} else {
			cmp = b.CmpI("", tc.pred, c10, x)
		}
		r, ok := derivedRange(cmp.Op(), x, noop)
		require.True(t, ok, "pred %s", tc.pred)
		assert.Equal(t, tc.want, r.String(), "pred %s", tc.pred)
	}
}

func TestDerivedRangeUnsupported(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x"}, []ir.Type{ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	c10 := b.NamedConstant("c10", 10, ir.I32)

	var remarks []string
	remark := func(op *ir.Op, msg string) { remarks = append(remarks, msg) }

	// ne carves a hole out of the middle of an interval, which the
	// domain cannot represent.
	ne := b.CmpI("", ir.PredNe, x, c10)
	_, ok := derivedRange(ne.Op(), x, remark)
	assert.False(t, ok)

	// A non-comparison condition gives no constraint either.
	conj := b.NamedOp(ir.AndI, []ir.Value{ne, ne}, nil, []ir.Type{ir.Bool})
	_, ok = derivedRange(conj, x, remark)
	assert.False(t, ok)

	require.Len(t, remarks, 2)
	assert.Equal(t, "unsupported cmp predicate for assumption", remarks[0])
	assert.Equal(t, "unsupported assumption operation", remarks[1])
}

func TestDerivedRangeNonConstantOther(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x", "y"}, []ir.Type{ir.I32, ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	y := fn.Region(0).Entry().Arg(1)

	cmp := b.CmpI("", ir.PredSlt, x, y)
	_, ok := derivedRange(cmp.Op(), x, func(*ir.Op, string) {})
	assert.False(t, ok)
}

func TestContradictoryAssumptionsFallBack(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x"}, []ir.Type{ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	b.Assume(b.CmpI("lo", ir.PredSgt, x, b.NamedConstant("c100", 100, ir.I32)))
	b.Assume(b.CmpI("hi", ir.PredSlt, x, b.NamedConstant("c5", 5, ir.I32)))
	b.Return()

	a := NewAnalysis(Options{})
	a.Run(b.Module())

	r, ok := a.ValueRange(x)
	require.True(t, ok)
	assert.True(t, r.IsMaxRange(), "contradiction must fall back to the type range")
}
