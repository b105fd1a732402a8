package mlir_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/ir"
	"llhd/internal/mlir"
)

func TestWriteFunctionUnit(t *testing.T) {
	sig := ir.NewSignature([]*ir.Type{ir.IntTy(32), ir.IntTy(32)}, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "add", sig)
	b := ir.NewBuilder(u)

	a := u.DFG().BindArg(0, ir.IntTy(32))
	y := u.DFG().BindArg(1, ir.IntTy(32))

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	sum := b.BuildAdd(a, y, ir.IntTy(32))
	b.BuildRetValue(sum)

	m := ir.NewModule()
	m.AddUnit(u)

	out := mlir.Write(m)
	assert.Contains(t, out, "func.func @add")
	assert.Contains(t, out, "comb.add")
	assert.Contains(t, out, "func.return")
}

func TestWriteProcessUnitWithSignal(t *testing.T) {
	sigTy := ir.SignalTy(ir.IntTy(1))
	sig := ir.NewSignature([]*ir.Type{sigTy}, []*ir.Type{sigTy}, nil)
	u := ir.NewUnitData(ir.ProcessKind, "buf", sig)
	b := ir.NewBuilder(u)

	in := u.DFG().BindArg(0, sigTy)
	out := u.DFG().BindArg(1, sigTy)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	delay := b.BuildConstTime(ir.NewTimeValue(big.NewRat(1, 1000000000), 0, 0))
	v := b.BuildPrb(in, ir.IntTy(1))
	b.BuildDrv(out, v, delay)
	b.BuildWait(entry, []ir.Value{in})

	m := ir.NewModule()
	m.AddUnit(u)

	out2 := mlir.Write(m)
	require.Contains(t, out2, "llhd.process @buf")
	assert.Contains(t, out2, "llhd.prb")
	assert.Contains(t, out2, "llhd.drv")
	assert.Contains(t, out2, "llhd.wait")
}
