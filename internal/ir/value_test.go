package ir_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"llhd/internal/ir"
)

func TestIntValueArithmeticWraps(t *testing.T) {
	a := ir.FromUint64(8, 250)
	b := ir.FromUint64(8, 10)

	sum := a.Add(b)
	assert.Equal(t, uint64(4), sum.Unsigned().Uint64(), "250+10 must wrap mod 256")

	zero := ir.ZeroInt(8)
	assert.True(t, zero.IsZero())
	assert.False(t, a.IsZero())

	assert.True(t, a.Eq(ir.FromUint64(8, 250)))
	assert.True(t, a.UGt(b))
	assert.True(t, b.ULt(a))
}

func TestIntValueNotNeg(t *testing.T) {
	v := ir.ZeroInt(4)
	assert.Equal(t, uint64(15), v.Not().Unsigned().Uint64())
	assert.Equal(t, uint64(0), v.Neg().Unsigned().Uint64())

	one := ir.FromUint64(4, 1)
	assert.Equal(t, uint64(15), one.Neg().Unsigned().Uint64())
}

func TestIntValueDivModByZero(t *testing.T) {
	a := ir.FromUint64(8, 10)
	zero := ir.ZeroInt(8)

	_, ok := a.UDiv(zero)
	assert.False(t, ok)
	_, ok = a.UMod(zero)
	assert.False(t, ok)

	q, ok := a.UDiv(ir.FromUint64(8, 3))
	assert.True(t, ok)
	assert.Equal(t, uint64(3), q.Unsigned().Uint64())
}

func TestShlShrHiddenOperand(t *testing.T) {
	base := ir.FromUint64(8, 0x0F)
	hidden := ir.ZeroInt(8)
	amount := ir.FromUint64(8, 4)

	shifted := ir.Shl(base, hidden, amount)
	assert.Equal(t, uint64(0xF0), shifted.Unsigned().Uint64())

	back := ir.Shr(shifted, hidden, amount)
	assert.Equal(t, uint64(0x0F), back.Unsigned().Uint64())
}

func TestTimeValueOrderingAndAdd(t *testing.T) {
	t0 := ir.ZeroTime()
	t1 := ir.FromSeconds(1, 1000000000) // 1ns
	assert.True(t, t0.Less(t1))
	assert.False(t, t1.Less(t0))

	sum := t0.Add(t1)
	assert.True(t, sum.Less(ir.FromSeconds(2, 1000000000)) || sum.String() == t1.String())
}

func TestTimeValueDeltaOrdering(t *testing.T) {
	same := big.NewRat(1, 1000000000)
	a := ir.NewTimeValue(same, 0, 0)
	b := ir.NewTimeValue(same, 1, 0)
	assert.True(t, a.Less(b), "equal real time but lower delta must order first")

	c := ir.NewTimeValue(same, 1, 0)
	d := ir.NewTimeValue(same, 1, 1)
	assert.True(t, c.Less(d), "equal real time and delta but lower epsilon must order first")
}
