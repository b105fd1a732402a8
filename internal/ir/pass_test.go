package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/ir"
)

// buildConstAddFunc builds @k() -> i32 { ret (3+4) } where 3 and 4 are
// both const instructions, so const-fold should collapse the add to a
// single const 7 and DCE should then prune the now-dead add.
func buildConstAddFunc() (ir.UnitId, *ir.Module, *ir.UnitData) {
	sig := ir.NewSignature(nil, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	three := b.BuildConstInt(ir.FromUint64(32, 3))
	four := b.BuildConstInt(ir.FromUint64(32, 4))
	sum := b.BuildAdd(three, four, ir.IntTy(32))
	b.BuildRetValue(sum)

	m := ir.NewModule()
	id := m.AddUnit(u)
	return id, m, u
}

func TestConstFoldPassCollapsesConstantAdd(t *testing.T) {
	id, m, u := buildConstAddFunc()

	pass := &ir.ConstFoldPass{}
	ctx := ir.DefaultPassContext()
	changed, err := pass.RunOnUnit(ctx, id, u)
	require.NoError(t, err)
	assert.True(t, changed)

	errs := ir.Verify(id, u)
	assert.Empty(t, errs)

	entry, ok := u.EntryBlock()
	require.True(t, ok)
	term := u.Layout().Insts(entry)[len(u.Layout().Insts(entry))-1]
	td := u.DFG().InstData(term)
	require.Equal(t, ir.OpRetValue, td.Opcode)

	retOperand := td.Args[0]
	vd := u.DFG().ValueData(retOperand)
	require.Equal(t, ir.ValueInst, vd.Kind)
	rd := u.DFG().InstData(vd.Inst)
	require.Equal(t, ir.OpConstInt, rd.Opcode)
	assert.Equal(t, uint64(7), rd.ImmInt.Unsigned().Uint64())
}

func TestDCEPassPrunesDeadAdd(t *testing.T) {
	id, m, u := buildConstAddFunc()

	ctx := ir.DefaultPassContext()
	_, err := (&ir.ConstFoldPass{}).RunOnUnit(ctx, id, u)
	require.NoError(t, err)

	changed, err := (&ir.DCEPass{}).RunOnUnit(ctx, id, u)
	require.NoError(t, err)
	assert.True(t, changed)

	errs := ir.Verify(id, u)
	assert.Empty(t, errs)

	entry, _ := u.EntryBlock()
	insts := u.Layout().Insts(entry)
	for _, i := range insts {
		assert.NotEqual(t, ir.OpAdd, u.DFG().InstData(i).Opcode, "dead add must be pruned by DCE")
	}

	_ = m
}

func TestRunToFixedPointConvergesOnConstantProgram(t *testing.T) {
	id, m, u := buildConstAddFunc()
	_ = id

	ctx := ir.DefaultPassContext()
	err := ir.RunToFixedPoint(ctx, ir.DefaultPipeline(), m, 32)
	require.NoError(t, err)

	errs := ir.Verify(m.Units()[0], m.Unit(m.Units()[0]))
	assert.Empty(t, errs)

	entry, _ := u.EntryBlock()
	insts := u.Layout().Insts(entry)
	require.Len(t, insts, 2, "constant folding + DCE should leave just the const and the ret")
}

// foldSliceCase builds @f() -> i8 { ret <result of build> }, runs
// ConstFoldPass once, and returns the Value the ret instruction ends up
// pointing at — the fold's real output, since ReplaceUse rewrites that
// use in place rather than mutating the caller's original Value handle —
// along with the unit, so callers can inspect the DFG further.
func foldSliceCase(t *testing.T, build func(b *ir.Builder) ir.Value) (ir.Value, *ir.UnitData) {
	t.Helper()
	sig := ir.NewSignature(nil, nil, ir.IntTy(8))
	u := ir.NewUnitData(ir.FunctionKind, "f", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	result := build(b)
	b.BuildRetValue(result)

	m := ir.NewModule()
	id := m.AddUnit(u)

	ctx := ir.DefaultPassContext()
	_, err := (&ir.ConstFoldPass{}).RunOnUnit(ctx, id, u)
	require.NoError(t, err)

	entryB, _ := u.EntryBlock()
	insts := u.Layout().Insts(entryB)
	term := insts[len(insts)-1]
	return u.DFG().InstData(term).Args[0], u
}

func assertFoldedConst(t *testing.T, u *ir.UnitData, v ir.Value, want uint64) {
	t.Helper()
	vd := u.DFG().ValueData(v)
	require.Equal(t, ir.ValueInst, vd.Kind)
	rd := u.DFG().InstData(vd.Inst)
	require.Equal(t, ir.OpConstInt, rd.Opcode)
	assert.Equal(t, want, rd.ImmInt.Unsigned().Uint64())
}

func TestConstFoldPassExtSliceFullWidthIsIdentity(t *testing.T) {
	var target ir.Value
	result, _ := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target = b.BuildConstInt(ir.FromUint64(8, 0xF0))
		return b.BuildExtSlice(target, 0, 8, ir.IntTy(8))
	})
	assert.Equal(t, target, result)
}

func TestConstFoldPassExtSliceZeroWidthIsZeroConst(t *testing.T) {
	result, u := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target := b.BuildConstInt(ir.FromUint64(8, 0xF0))
		return b.BuildExtSlice(target, 2, 0, ir.IntTy(8))
	})
	assertFoldedConst(t, u, result, 0)
}

func TestConstFoldPassExtSliceConstantTargetExtracts(t *testing.T) {
	result, u := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target := b.BuildConstInt(ir.FromUint64(8, 0xF0))
		return b.BuildExtSlice(target, 4, 4, ir.IntTy(4))
	})
	assertFoldedConst(t, u, result, 0xF)
}

func TestConstFoldPassInsSliceFullWidthIsReplacement(t *testing.T) {
	var val ir.Value
	result, _ := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target := b.BuildConstInt(ir.FromUint64(8, 0xF0))
		val = b.BuildConstInt(ir.FromUint64(8, 0x3C))
		return b.BuildInsSlice(target, val, 0, 8, ir.IntTy(8))
	})
	assert.Equal(t, val, result)
}

func TestConstFoldPassInsSliceZeroWidthIsIdentity(t *testing.T) {
	var target ir.Value
	result, _ := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target = b.BuildConstInt(ir.FromUint64(8, 0xF0))
		val := b.BuildConstInt(ir.FromUint64(4, 0x0F))
		return b.BuildInsSlice(target, val, 2, 0, ir.IntTy(8))
	})
	assert.Equal(t, target, result)
}

// buildDeadChainFunc builds @k() -> i32 { ret 0 } plus a chain of three
// dead adds (c1 <- c0+c0, c2 <- c1+c1, c3 <- c2+c2) that nothing uses, so
// pruneDeadInsts' fixed-point loop needs three sweeps to remove all of
// them: each sweep only has a zero-use instruction at the current tail of
// the chain.
func buildDeadChainFunc() (ir.UnitId, *ir.UnitData) {
	sig := ir.NewSignature(nil, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	c0 := b.BuildConstInt(ir.FromUint64(32, 0))
	c1 := b.BuildAdd(c0, c0, ir.IntTy(32))
	c2 := b.BuildAdd(c1, c1, ir.IntTy(32))
	b.BuildAdd(c2, c2, ir.IntTy(32))
	b.BuildRetValue(c0)

	m := ir.NewModule()
	id := m.AddUnit(u)
	return id, u
}

func countAdds(u *ir.UnitData) int {
	n := 0
	entry, _ := u.EntryBlock()
	for _, i := range u.Layout().Insts(entry) {
		if u.DFG().InstData(i).Opcode == ir.OpAdd {
			n++
		}
	}
	return n
}

func TestDCEPassConfigCapsPruneIterations(t *testing.T) {
	id, u := buildDeadChainFunc()
	require.Equal(t, 3, countAdds(u))

	ctx := ir.DefaultPassContext()
	ctx.Config["dce.max_prune_iters"] = "1"

	changed, err := (&ir.DCEPass{}).RunOnUnit(ctx, id, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, countAdds(u), "a one-sweep cap should only prune the current tail of the dead chain")
}

func TestDCEPassUncappedRemovesFullDeadChain(t *testing.T) {
	id, u := buildDeadChainFunc()
	require.Equal(t, 3, countAdds(u))

	ctx := ir.DefaultPassContext()

	changed, err := (&ir.DCEPass{}).RunOnUnit(ctx, id, u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, countAdds(u), "without a configured cap the whole dead chain should be pruned")
}

func TestConstFoldPassInsSliceConstantTargetInserts(t *testing.T) {
	result, u := foldSliceCase(t, func(b *ir.Builder) ir.Value {
		target := b.BuildConstInt(ir.FromUint64(8, 0xF0))
		val := b.BuildConstInt(ir.FromUint64(4, 0x0F))
		return b.BuildInsSlice(target, val, 0, 4, ir.IntTy(8))
	})
	assertFoldedConst(t, u, result, 0xFF)
}
