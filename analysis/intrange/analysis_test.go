package intrange

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileir/tileir/config"
	"github.com/tileir/tileir/ir"
)

func runAnalysis(t *testing.T, b *ir.Builder) *Analysis {
	t.Helper()
	a := NewAnalysis(Options{Logf: t.Logf})
	a.Run(b.Module())
	return a
}

func TestAssumedArgumentRange(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x"}, []ir.Type{ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	c5 := b.NamedConstant("c5", 5, ir.I32)
	cond := b.CmpI("cond", ir.PredSge, x, c5)
	b.Assume(cond)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(x)
	require.True(t, ok)
	assert.Equal(t, "[5, 2147483647]", r.String())

	// The assumed condition itself becomes statically true.
	r, ok = a.ValueRange(cond)
	require.True(t, ok)
	assert.Equal(t, "[1, 1]", r.String())
}

func TestAssumptionsIntersect(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x"}, []ir.Type{ir.I32})
	x := fn.Region(0).Entry().Arg(0)
	b.Assume(b.CmpI("lo", ir.PredSge, x, b.NamedConstant("c5", 5, ir.I32)))
	b.Assume(b.CmpI("hi", ir.PredSlt, x, b.NamedConstant("c100", 100, ir.I32)))
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(x)
	require.True(t, ok)
	assert.Equal(t, "[5, 99]", r.String())
}

func TestMakeRange(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	tt := ir.TensorType{Dims: []int64{128}, Elem: ir.I32}
	r128 := b.MakeRange("r", 0, 128, tt)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(r128)
	require.True(t, ok)
	assert.Equal(t, "[0, 127]", r.String())
}

func TestProgramID(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	pid := b.NamedOp(ir.ProgramID, nil, []string{"pid"}, []ir.Type{ir.I32}).Result(0)
	np := b.NamedOp(ir.NumPrograms, nil, []string{"np"}, []ir.Type{ir.I32}).Result(0)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(pid)
	require.True(t, ok)
	assert.Equal(t, "[0, 65535]", r.String())

	r, ok = a.ValueRange(np)
	require.True(t, ok)
	assert.Equal(t, "[0, 65536]", r.String())
}

func TestArithmeticOnRanges(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	tt := ir.TensorType{Dims: []int64{128}, Elem: ir.I32}
	idx := b.MakeRange("idx", 0, 128, tt)
	c2 := b.NamedConstant("c2", 2, tt)
	scaled := b.NamedOp(ir.MulI, []ir.Value{idx, c2}, []string{"scaled"}, []ir.Type{tt}).Result(0)
	shifted := b.NamedOp(ir.AddI, []ir.Value{scaled, c2}, []string{"shifted"}, []ir.Type{tt}).Result(0)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(scaled)
	require.True(t, ok)
	assert.Equal(t, "[0, 254]", r.String())

	r, ok = a.ValueRange(shifted)
	require.True(t, ok)
	assert.Equal(t, "[2, 256]", r.String())
}

func TestShapeOpsForwardRanges(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	tt := ir.TensorType{Dims: []int64{128}, Elem: ir.I32}
	tt2 := ir.TensorType{Dims: []int64{128, 1}, Elem: ir.I32}
	idx := b.MakeRange("idx", 0, 128, tt)
	exp := b.NamedOp(ir.ExpandDims, []ir.Value{idx}, []string{"exp"}, []ir.Type{tt2}).Result(0)
	neg := b.MakeRange("neg", -8, 0, tt)
	cat := b.NamedOp(ir.Concat, []ir.Value{idx, neg}, []string{"cat"}, []ir.Type{ir.TensorType{Dims: []int64{256}, Elem: ir.I32}}).Result(0)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(exp)
	require.True(t, ok)
	assert.Equal(t, "[0, 127]", r.String())

	r, ok = a.ValueRange(cat)
	require.True(t, ok)
	assert.Equal(t, "[-8, 127]", r.String())
}

func TestGatherDrawsFromData(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	tt := ir.TensorType{Dims: []int64{128}, Elem: ir.I32}
	data := b.MakeRange("data", 100, 228, tt)
	idx := b.MakeRange("idx", 0, 128, tt)
	g := b.NamedOp(ir.Gather, []ir.Value{data, idx}, []string{"g"}, []ir.Type{tt}).Result(0)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(g)
	require.True(t, ok)
	assert.Equal(t, "[100, 227]", r.String())
}

func TestInductionVariableRange(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	cN := b.NamedConstant("cN", 1024, ir.I32)
	loop := b.For("i", c0, cN, c1, nil, nil, nil)
	iv := loop.Region(0).Entry().Arg(0)
	gate := b.CmpI("gate", ir.PredSlt, iv, cN)
	b.Yield()
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(iv)
	require.True(t, ok)
	assert.Equal(t, "[0, 1023]", r.String())

	r, ok = a.ValueRange(gate)
	require.True(t, ok)
	assert.Equal(t, "[1, 1]", r.String())
}

func TestLoopCarriedValueStaysBounded(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	c10 := b.NamedConstant("c10", 10, ir.I32)
	loop := b.For("i", c0, c10, c1, []string{"acc"}, []ir.Value{c0}, []string{"sum"})
	acc := loop.Region(0).Entry().Arg(1)
	next := b.NamedOp(ir.AddI, []ir.Value{acc, c1}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
	b.Yield(next)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(loop.Result(0))
	require.True(t, ok)
	assert.False(t, r.IsMaxRange(), "small loop must not be widened")
	assert.Equal(t, int64(0), r.Lower().Int64())
	assert.LessOrEqual(t, r.Upper().Int64(), int64(64))
}

func TestLargeLoopWidensCarriedValues(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	cN := b.NamedConstant("cN", 2048, ir.I32)
	loop := b.For("i", c0, cN, c1, []string{"acc"}, []ir.Value{c0}, []string{"sum"})
	acc := loop.Region(0).Entry().Arg(1)
	next := b.NamedOp(ir.AddI, []ir.Value{acc, c1}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
	b.Yield(next)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(loop.Result(0))
	require.True(t, ok)
	assert.True(t, r.IsMaxRange(), "trip count beyond the bound must widen")

	// The induction variable is still derived from the loop bounds.
	r, ok = a.ValueRange(loop.Region(0).Entry().Arg(0))
	require.True(t, ok)
	assert.Equal(t, "[0, 2047]", r.String())
}

func TestNestedLoopsMultiplyTripCounts(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	c64 := b.NamedConstant("c64", 64, ir.I32)

	outer := b.For("i", c0, c64, c1, []string{"accO"}, []ir.Value{c0}, []string{"sumO"})
	accO := outer.Region(0).Entry().Arg(1)
	inner := b.For("j", c0, c64, c1, []string{"accI"}, []ir.Value{accO}, []string{"sumI"})
	accI := inner.Region(0).Entry().Arg(1)
	next := b.NamedOp(ir.AddI, []ir.Value{accI, c1}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
	b.Yield(next)
	b.Yield(inner.Result(0))
	b.Return()

	a := runAnalysis(t, b)

	// 64 * 64 > 1024: the inner carried value must widen.
	r, ok := a.ValueRange(inner.Result(0))
	require.True(t, ok)
	assert.True(t, r.IsMaxRange())
}

func TestWhileLoopTerminatesWidened(t *testing.T) {
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	c0 := b.NamedConstant("c0", 0, ir.I32)
	c1 := b.NamedConstant("c1", 1, ir.I32)
	loop := b.While([]string{"acc"}, []ir.Value{c0}, []string{"out"})
	acc := loop.Region(0).Entry().Arg(0)
	next := b.NamedOp(ir.AddI, []ir.Value{acc, c1}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
	b.Yield(next)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(loop.Result(0))
	require.True(t, ok)
	assert.True(t, r.IsMaxRange(), "unknown trip count must widen")
}

func TestIfJoinsBothArms(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"p"}, []ir.Type{ir.Bool})
	p := fn.Region(0).Entry().Arg(0)
	c5 := b.NamedConstant("c5", 5, ir.I32)
	c7 := b.NamedConstant("c7", 7, ir.I32)
	cond := b.If(p, []string{"m"}, []ir.Type{ir.I32})
	b.Yield(c5)
	b.Else(cond)
	b.Yield(c7)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(cond.Result(0))
	require.True(t, ok)
	assert.Equal(t, "[5, 7]", r.String())
}

func TestCustomMaxPrograms(t *testing.T) {
	cfg := config.Config{MaxTripCount: 1024, MaxPrograms: 128}
	b := ir.NewBuilder()
	b.Func("kernel", nil, nil)
	pid := b.NamedOp(ir.ProgramID, nil, []string{"pid"}, []ir.Type{ir.I32}).Result(0)
	b.Return()

	a := NewAnalysis(Options{Config: &cfg})
	a.Run(b.Module())

	r, ok := a.ValueRange(pid)
	require.True(t, ok)
	assert.Equal(t, "[0, 127]", r.String())
}

func TestAnalysisIsDeterministic(t *testing.T) {
	build := func() (*ir.Builder, *ir.Op) {
		b := ir.NewBuilder()
		b.Func("kernel", nil, nil)
		c0 := b.NamedConstant("c0", 0, ir.I32)
		c1 := b.NamedConstant("c1", 1, ir.I32)
		c10 := b.NamedConstant("c10", 10, ir.I32)
		loop := b.For("i", c0, c10, c1, []string{"acc"}, []ir.Value{c0}, []string{"sum"})
		acc := loop.Region(0).Entry().Arg(1)
		next := b.NamedOp(ir.AddI, []ir.Value{acc, c1}, []string{"next"}, []ir.Type{ir.I32}).Result(0)
		b.Yield(next)
		b.Return()
		return b, loop
	}

	b1, l1 := build()
	b2, l2 := build()
	a1 := NewAnalysis(Options{})
	a1.Run(b1.Module())
	a2 := NewAnalysis(Options{})
	a2.Run(b2.Module())

	r1, ok := a1.ValueRange(l1.Result(0))
	require.True(t, ok)
	r2, ok := a2.ValueRange(l2.Result(0))
	require.True(t, ok)
	assert.True(t, r1.EqInterval(r2))
}

func TestUnknownValuesGetTypeRange(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Func("kernel", []string{"x", "u"}, []ir.Type{ir.I32, ir.IntType{Width: 8, Unsigned: true}})
	x := fn.Region(0).Entry().Arg(0)
	u := fn.Region(0).Entry().Arg(1)
	b.Return()

	a := runAnalysis(t, b)

	r, ok := a.ValueRange(x)
	require.True(t, ok)
	assert.True(t, r.IsMaxRange())
	assert.True(t, r.Contains(big.NewInt(-1)))

	r, ok = a.ValueRange(u)
	require.True(t, ok)
	assert.Equal(t, "[0, 255]", r.String())
}
