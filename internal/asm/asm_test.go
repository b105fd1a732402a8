package asm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llhd/internal/asm"
	"llhd/internal/ir"
)

const addSrc = `
func @add (i32 %a, i32 %b) -> i32 {
entry:
  %r = add %a, %b
  ret %r
}
`

func TestParseLowerFunc(t *testing.T) {
	f, err := asm.Parse("add.ll", addSrc)
	require.NoError(t, err)
	require.Len(t, f.Items, 1)

	m, err := asm.Lower(f)
	require.NoError(t, err)
	require.Len(t, m.Units(), 1)

	u := m.Unit(m.Units()[0])
	assert.Equal(t, ir.FunctionKind, u.Kind)
	assert.Equal(t, "add", u.Name)
	assert.Equal(t, 2, len(u.Signature.Inputs))
	assert.Equal(t, "i32", u.Signature.Return.String())

	errs := ir.Verify(m.Units()[0], u)
	assert.Empty(t, errs)
}

const bufSrc = `
proc @buf (i32$ %in) -> (i32$ %out) {
entry:
  %d = const 1ns
  %v = prb %in
  drv %out, %v, %d
  wait entry, [%in]
}
`

func TestParseLowerProcessWithSignals(t *testing.T) {
	f, err := asm.Parse("buf.ll", bufSrc)
	require.NoError(t, err)

	m, err := asm.Lower(f)
	require.NoError(t, err)

	id := m.Units()[0]
	u := m.Unit(id)
	assert.Equal(t, ir.ProcessKind, u.Kind)

	errs := ir.Verify(id, u)
	assert.Empty(t, errs)

	entry, ok := u.EntryBlock()
	require.True(t, ok)
	insts := u.Layout().Insts(entry)
	require.Len(t, insts, 4)

	term := insts[len(insts)-1]
	assert.Equal(t, ir.OpWait, u.DFG().InstData(term).Opcode)
}

func TestWriteRoundTrips(t *testing.T) {
	f, err := asm.Parse("add.ll", addSrc)
	require.NoError(t, err)
	m, err := asm.Lower(f)
	require.NoError(t, err)

	out := asm.Write(m)
	assert.Contains(t, out, "func @add")
	assert.Contains(t, out, "add")
	assert.Contains(t, out, "ret")

	f2, err := asm.Parse("add-roundtrip.ll", out)
	require.NoError(t, err)
	m2, err := asm.Lower(f2)
	require.NoError(t, err)
	require.Len(t, m2.Units(), 1)

	u2 := m2.Unit(m2.Units()[0])
	errs := ir.Verify(m2.Units()[0], u2)
	assert.Empty(t, errs)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := asm.Parse("bad.ll", "func @f (i32 %a\n")
	require.Error(t, err)

	report := asm.ReportParseError("bad.ll", "func @f (i32 %a\n", err)
	assert.Contains(t, report, "bad.ll")
}

func TestLowerUndefinedValueError(t *testing.T) {
	src := `
func @f (i32 %a) -> i32 {
entry:
  ret %missing
}
`
	f, err := asm.Parse("f.ll", src)
	require.NoError(t, err)
	_, err = asm.Lower(f)
	require.Error(t, err)
}
