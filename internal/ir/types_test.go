package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"llhd/internal/ir"
)

func TestTypeInterningIsIdentity(t *testing.T) {
	a := ir.IntTy(32)
	b := ir.IntTy(32)
	assert.True(t, a == b, "equal int types must hash-cons to the same pointer")

	sa := ir.SignalTy(ir.IntTy(1))
	sb := ir.SignalTy(ir.IntTy(1))
	assert.True(t, sa == sb)

	assert.False(t, ir.IntTy(32) == ir.IntTy(64))
}

func TestTypeKindPredicates(t *testing.T) {
	i32 := ir.IntTy(32)
	assert.True(t, i32.IsInt())
	assert.Equal(t, 32, i32.IntWidth())
	assert.False(t, i32.IsSignal())

	sig := ir.SignalTy(i32)
	assert.True(t, sig.IsSignal())
	assert.Equal(t, i32, sig.Elem())

	ptr := ir.PointerTy(i32)
	assert.True(t, ptr.IsPointer())
	assert.Equal(t, i32, ptr.Elem())

	arr := ir.ArrayTy(4, i32)
	assert.True(t, arr.IsArray())
	assert.Equal(t, 4, arr.Len())
	assert.Equal(t, i32, arr.Elem())

	st := ir.StructTy(i32, ir.IntTy(8))
	assert.True(t, st.IsStruct())
	assert.Len(t, st.Fields(), 2)

	assert.True(t, ir.TimeTy().IsTime())
	assert.True(t, ir.VoidTy().IsVoid())
	assert.True(t, ir.EnumTy(3).IsEnum())
}
