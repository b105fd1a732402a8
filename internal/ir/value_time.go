package ir

import (
	"fmt"
	"math/big"
)

// TimeValue is a simulation-time constant: a rational number of seconds,
// plus integer delta and epsilon counts for same-instant ordering (the
// delta cycle and epsilon sub-delta cycle of the event-driven simulator).
// Grounded on the spec's explicit "rational seconds + delta + epsilon"
// representation; big.Rat is used for the same reason IntValue uses
// math/big — no pack example carries a rational-arithmetic library, and
// the spec requires exact (non-float) seconds so that repeated folding of
// time constants cannot drift.
type TimeValue struct {
	seconds big.Rat
	delta   int64
	epsilon int64
}

func NewTimeValue(seconds *big.Rat, delta, epsilon int64) TimeValue {
	var t TimeValue
	t.seconds.Set(seconds)
	t.delta = delta
	t.epsilon = epsilon
	return t
}

func ZeroTime() TimeValue { return TimeValue{} }

// FromSeconds builds a TimeValue from a numerator/denominator pair of
// seconds (e.g. FromSeconds(1, 1_000_000_000) is one nanosecond).
func FromSeconds(num, denom int64) TimeValue {
	var t TimeValue
	t.seconds.SetFrac64(num, denom)
	return t
}

func (t TimeValue) Seconds() *big.Rat { return new(big.Rat).Set(&t.seconds) }
func (t TimeValue) Delta() int64      { return t.delta }
func (t TimeValue) Epsilon() int64    { return t.epsilon }

func (t TimeValue) IsZero() bool {
	return t.seconds.Sign() == 0 && t.delta == 0 && t.epsilon == 0
}

// Compare orders two TimeValues lexicographically by (seconds, delta,
// epsilon), matching the simulator's same-instant tie-break rule.
func (t TimeValue) Compare(o TimeValue) int {
	if c := t.seconds.Cmp(&o.seconds); c != 0 {
		return c
	}
	if t.delta != o.delta {
		if t.delta < o.delta {
			return -1
		}
		return 1
	}
	switch {
	case t.epsilon < o.epsilon:
		return -1
	case t.epsilon > o.epsilon:
		return 1
	default:
		return 0
	}
}

func (t TimeValue) Equal(o TimeValue) bool { return t.Compare(o) == 0 }
func (t TimeValue) Less(o TimeValue) bool  { return t.Compare(o) < 0 }

func (t TimeValue) Add(o TimeValue) TimeValue {
	var r TimeValue
	r.seconds.Add(&t.seconds, &o.seconds)
	r.delta = t.delta + o.delta
	r.epsilon = t.epsilon + o.epsilon
	return r
}

// String renders using SI-prefixed seconds plus optional delta/epsilon
// suffixes, matching the textual-assembly time literal grammar (§6):
// "1ns 1d 2e".
func (t TimeValue) String() string {
	s := formatSIDuration(&t.seconds)
	if t.delta != 0 {
		s += fmt.Sprintf(" %dd", t.delta)
	}
	if t.epsilon != 0 {
		s += fmt.Sprintf(" %de", t.epsilon)
	}
	return s
}

var siScales = []struct {
	suffix string
	denom  int64
}{
	{"s", 1},
	{"ms", 1_000},
	{"us", 1_000_000},
	{"ns", 1_000_000_000},
	{"ps", 1_000_000_000_000},
	{"fs", 1_000_000_000_000_000},
}

func formatSIDuration(r *big.Rat) string {
	if r.Sign() == 0 {
		return "0s"
	}
	for _, scale := range siScales {
		scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(scale.denom))
		if scaled.IsInt() {
			return scaled.Num().String() + scale.suffix
		}
	}
	return r.RatString() + "s"
}
