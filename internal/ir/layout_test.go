package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/ir"
)

// threeConstFunc builds @k() -> i32 with three const instructions in
// sequence (c0, c1, c2) followed by a ret, giving SwapInst an adjacent
// pair (c0, c1) and a non-adjacent pair (c0, c2) to exercise.
func threeConstFunc() (*ir.UnitData, ir.Inst, ir.Inst, ir.Inst) {
	sig := ir.NewSignature(nil, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	v0 := b.BuildConstInt(ir.FromUint64(32, 0))
	v1 := b.BuildConstInt(ir.FromUint64(32, 1))
	v2 := b.BuildConstInt(ir.FromUint64(32, 2))
	b.BuildRetValue(v2)

	dfg := u.DFG()
	c0 := dfg.ValueData(v0).Inst
	c1 := dfg.ValueData(v1).Inst
	c2 := dfg.ValueData(v2).Inst
	return u, c0, c1, c2
}

func TestSwapInstAdjacentPreservesOrder(t *testing.T) {
	u, c0, c1, c2 := threeConstFunc()
	entry, ok := u.EntryBlock()
	require.True(t, ok)

	before := u.Layout().Insts(entry)
	require.Equal(t, []ir.Inst{c0, c1, c2, before[3]}, before)

	u.Layout().SwapInst(c0, c1)

	after := u.Layout().Insts(entry)
	require.Len(t, after, 4)
	assert.Equal(t, c1, after[0])
	assert.Equal(t, c0, after[1])
	assert.Equal(t, c2, after[2])
	assert.Equal(t, before[3], after[3])
}

func TestSwapInstNonAdjacentPreservesOrder(t *testing.T) {
	u, c0, c1, c2 := threeConstFunc()
	entry, ok := u.EntryBlock()
	require.True(t, ok)

	before := u.Layout().Insts(entry)

	u.Layout().SwapInst(c0, c2)

	after := u.Layout().Insts(entry)
	require.Len(t, after, 4)
	assert.Equal(t, c2, after[0])
	assert.Equal(t, c1, after[1])
	assert.Equal(t, c0, after[2])
	assert.Equal(t, before[3], after[3])
}
