package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"llhd/internal/ir"
)

func TestFormatCanonicalUsesDeclaredNames(t *testing.T) {
	sig := ir.NewSignature(nil, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	v := b.BuildConstInt(ir.FromUint64(32, 7))
	u.DFG().SetValueName(v, "seven")
	b.BuildRetValue(v)

	out := u.Format(false)
	assert.Contains(t, out, "%seven")
	assert.Contains(t, out, "ret %seven")
}

func TestFormatRawAlwaysUsesIds(t *testing.T) {
	sig := ir.NewSignature(nil, nil, ir.IntTy(32))
	u := ir.NewUnitData(ir.FunctionKind, "k", sig)
	b := ir.NewBuilder(u)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(ir.AppendTo(entry))
	v := b.BuildConstInt(ir.FromUint64(32, 7))
	u.DFG().SetValueName(v, "seven")
	b.BuildRetValue(v)

	out := u.Format(true)
	assert.NotContains(t, out, "%seven", "raw mode must ignore declared names")
	assert.Contains(t, out, "ret %0")
}
