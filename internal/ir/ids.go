package ir

import "fmt"

// Dense, opaque small-integer ids. Every id type here indexes a primary
// table (see table.go); ids are stable across layout changes and across
// unrelated edits, and tolerate gaps left by deletion.

// UnitId identifies a function, process, or entity within a Module.
type UnitId int32

// DeclId identifies an external declaration within a Module.
type DeclId int32

// Value identifies an SSA value within a unit's DFG.
type Value int32

// Inst identifies an instruction within a unit's DFG.
type Inst int32

// Block identifies a basic block within a unit's CFG.
type Block int32

// Arg identifies a formal argument of a unit's Signature.
type Arg int32

// ExtUnit identifies an external-unit reference interned into a unit's DFG.
type ExtUnit int32

// NoValue is the "invalid" value id, legal only in the specific optional
// argument slots documented by the DFG invariants (register gate operand,
// the placeholder operand of ext_field/ext_slice).
const NoValue Value = -1

// IsValid reports whether v is not the sentinel NoValue.
func (v Value) IsValid() bool { return v != NoValue }

func (u UnitId) String() string  { return fmt.Sprintf("unit%d", int32(u)) }
func (d DeclId) String() string  { return fmt.Sprintf("decl%d", int32(d)) }
func (v Value) String() string   { return fmt.Sprintf("%%%d", int32(v)) }
func (i Inst) String() string    { return fmt.Sprintf("inst%d", int32(i)) }
func (b Block) String() string   { return fmt.Sprintf("block%d", int32(b)) }
func (a Arg) String() string     { return fmt.Sprintf("arg%d", int32(a)) }
func (e ExtUnit) String() string { return fmt.Sprintf("ext%d", int32(e)) }
