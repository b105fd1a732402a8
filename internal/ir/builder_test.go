package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/ir"
)

// buildAdderFunc builds @add(i32,i32)->i32 returning a+b, exercising the
// builder's append-at-entry path and a two-argument signature.
func buildAdderFunc() (ir.UnitId, *ir.Module) {
	sig := ir.NewSignature([]*ir.Type{ir.IntTy(32), ir.IntTy(32)}, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "add", sig)
	b := ir.NewBuilder(u)

	a := u.DFG().BindArg(0, ir.IntTy(32))
	c := u.DFG().BindArg(1, ir.IntTy(32))

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	sum := b.BuildAdd(a, c, ir.IntTy(32))
	b.BuildRetValue(sum)

	m := ir.NewModule()
	id := m.AddUnit(u)
	return id, m
}

func TestBuilderProducesVerifiableFunc(t *testing.T) {
	id, m := buildAdderFunc()
	u := m.Unit(id)

	errs := ir.Verify(id, u)
	assert.Empty(t, errs)

	entry, ok := u.EntryBlock()
	require.True(t, ok)
	insts := u.Layout().Insts(entry)
	require.Len(t, insts, 2)

	term := insts[len(insts)-1]
	assert.Equal(t, ir.OpRetValue, u.DFG().InstData(term).Opcode)
}

func TestBuilderBranchingCFG(t *testing.T) {
	sig := ir.NewSignature([]*ir.Type{ir.IntTy(1)}, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "select", sig)
	b := ir.NewBuilder(u)

	cond := u.DFG().BindArg(0, ir.IntTy(1))

	entry := b.CreateBlock("entry")
	thenB := b.CreateBlock("then")
	elseB := b.CreateBlock("else")

	b.SetInsertPoint(ir.AppendTo(entry))
	b.BuildBrCond(cond, thenB, elseB)

	b.SetInsertPoint(ir.AppendTo(thenB))
	one := b.BuildConstInt(ir.FromUint64(32, 1))
	b.BuildRetValue(one)

	b.SetInsertPoint(ir.AppendTo(elseB))
	zero := b.BuildConstInt(ir.ZeroInt(32))
	b.BuildRetValue(zero)

	m := ir.NewModule()
	id := m.AddUnit(u)

	errs := ir.Verify(id, u)
	assert.Empty(t, errs)
}

func TestVerifyCatchesMissingTerminator(t *testing.T) {
	sig := ir.NewSignature(nil, nil, ir.VoidTy())
	u := ir.NewUnitData(ir.FunctionKind, "broken", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	b.BuildConstInt(ir.ZeroInt(32))
	// no terminator built: entry ends in a non-terminator instruction.

	m := ir.NewModule()
	id := m.AddUnit(u)

	errs := ir.Verify(id, u)
	assert.NotEmpty(t, errs, "a block with no terminator must fail verification")
}

// TestRemoveInstClearsResultMapping guards against a recycled Inst id
// inheriting its previous occupant's stale result Value: RemoveInst must
// clear the DFG's inst->result mapping, not just free the id.
func TestRemoveInstClearsResultMapping(t *testing.T) {
	sig := ir.NewSignature(nil, nil, ir.VoidTy())
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))

	v := b.BuildConstInt(ir.ZeroInt(32))
	dfg := u.DFG()
	constInst := dfg.ValueData(v).Inst

	b.RemoveInst(constInst)

	retInst := b.BuildRet()
	require.Equal(t, constInst, retInst, "RemoveInst must free the id for immediate recycling")

	_, ok := dfg.InstResult(retInst)
	assert.False(t, ok, "a recycled inst id must not inherit the previous occupant's stale result mapping")
}
