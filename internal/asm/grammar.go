package asm

// AST grammar for the §6 textual assembly format, built with
// participle/v2. Grounded on the teacher's grammar.go: struct tags
// encode the BNF directly, alternation via leading `|`-prefixed sibling
// fields, and `@@` to recurse into a nested rule.
//
// Scope: the reader supports declare/func/proc/entity headers, block
// labels, and the instruction shapes that carry enough information to
// reconstruct result types without a separate type-inference pass
// (arithmetic, compares, shifts, mux, signals, memory, control flow,
// calls, instantiation, registers). Structural-value opcodes whose
// result type cannot be derived from their operands under this rule
// (array_uniform, array, struct, ins_field, ins_slice, ext_field,
// ext_slice, alias-to-a-different-type) are not yet parsed — see
// DESIGN.md.

// File is the top-level parse result: declarations and unit definitions
// in any order, in source order.
type File struct {
	Items []*Item `@@*`
}

type Item struct {
	Decl *Decl `  @@`
	Unit *Unit `| @@`
}

type Decl struct {
	Name string `"declare" @GlobalIdent`
	Sig  *Sig   `@@`
}

// Sig is a bare (unnamed) signature, used by declare.
type Sig struct {
	Inputs []*Type  `"(" [ @@ { "," @@ } ] ")"`
	Tail   *SigTail `[ "->" @@ ]`
}

type SigTail struct {
	Outputs []*Type `  "(" [ @@ { "," @@ } ] ")"`
	Ret     *Type   `| @@`
}

// Unit is a func/proc/entity definition with named parameters.
type Unit struct {
	Kind    string      `@("func" | "proc" | "entity")`
	Name    string      `@GlobalIdent`
	Inputs  []*Param    `"(" [ @@ { "," @@ } ] ")"`
	Tail    *UnitTail   `[ "->" @@ ]`
	Open    string      `"{"`
	Blocks  []*BlockAST `@@*`
	Close   string      `"}"`
}

type UnitTail struct {
	Outputs []*Param `  "(" [ @@ { "," @@ } ] ")"`
	Ret     *Type    `| @@`
}

type Param struct {
	Type *Type  `@@`
	Name string `@LocalIdent`
}

type BlockAST struct {
	Label string     `@Ident ":"`
	Insts []*InstAST `@@*`
}

// Type is recursive: a scalar name (void/time/iN/nN), an array, a
// struct, or any of those with trailing pointer (*) / signal ($)
// markers.
type Type struct {
	Void   bool        `(  @"void"`
	Time   bool        ` | @"time"`
	Scalar string      ` | @Ident`
	Arr    *ArrType    ` | @@`
	Struct *StructType ` | @@ )`
	Suffix []string    `{ @("*" | "$") }`
}

type ArrType struct {
	Length string `"[" @Integer "x"`
	Elem   *Type  `@@ "]"`
}

type StructType struct {
	Fields []*Type `"{" [ @@ { "," @@ } ] "}"`
}

// Operand is a generic instruction argument: a value reference, a block
// label reference, or the poison placeholder.
type Operand struct {
	Poison bool   `(  @"poison"`
	Value  string ` | @LocalIdent`
	Label  string ` | @Ident )`
}

type OperandList struct {
	Items []*Operand `[ @@ { "," @@ } ]`
}

type PhiArm struct {
	Label string `"[" @Ident ":"`
	Value string `@LocalIdent "]"`
}

type ConstIntInst struct {
	Result string `@LocalIdent "=" "const"`
	TyTok  string `@Ident`
	Value  string `@Integer`
}

type ConstTimeInst struct {
	Result  string `@LocalIdent "=" "const"`
	Seconds string `@TimeLit`
	Delta   string `[ @DeltaLit ]`
	Epsilon string `[ @EpsilonLit ]`
}

type PhiInst struct {
	Result string    `@LocalIdent "=" "phi"`
	Arms   []*PhiArm `@@ { "," @@ }`
}

type BrInst struct {
	Target string `"br" @Ident`
}

type BrCondInst struct {
	Cond  string `"br_cond" @LocalIdent ","`
	True  string `@Ident ","`
	False string `@Ident`
}

type WaitInst struct {
	Target string       `"wait" @Ident ","`
	Sens   *OperandList `"[" @@ "]"`
}

type WaitTimeInst struct {
	Target string       `"wait_time" @Ident ","`
	Delay  string       `@LocalIdent ","`
	Sens   *OperandList `"[" @@ "]"`
}

type RetInst struct {
	Value *string `"ret" [ @LocalIdent ]`
}

type HaltInst struct {
	Tok string `@"halt"`
}

type CallInst struct {
	Results []string     `[ @LocalIdent { "," @LocalIdent } "=" ]`
	Kind    string       `@("call" | "inst")`
	Name    string       `@GlobalIdent "("`
	Args    *OperandList `@@ ")"`
}

type RegTriggerAST struct {
	Data    string `"[" @LocalIdent ","`
	Mode    string `@Ident ","`
	Trigger string `@LocalIdent ","`
	Gate    string `( @LocalIdent | @"-" ) "]"`
}

type RegInst struct {
	Result   string           `@LocalIdent "=" "reg"`
	Init     string           `@LocalIdent ","`
	Triggers []*RegTriggerAST `@@ { "," @@ }`
}

// GenericInst covers every opcode whose result type can be derived
// structurally from its operands: unary/binary arithmetic, compares,
// shifts, mux, sig/prb, drv/drv_cond, con/del, var/ld/st.
type GenericInst struct {
	Result *string      `[ @LocalIdent "=" ]`
	Op     string       `@Ident`
	Args   *OperandList `@@`
}

type InstAST struct {
	ConstInt  *ConstIntInst  `  @@`
	ConstTime *ConstTimeInst `| @@`
	Phi       *PhiInst       `| @@`
	Br        *BrInst        `| @@`
	BrCond    *BrCondInst    `| @@`
	WaitTime  *WaitTimeInst  `| @@`
	Wait      *WaitInst      `| @@`
	Ret       *RetInst       `| @@`
	Halt      *HaltInst      `| @@`
	Reg       *RegInst       `| @@`
	Call      *CallInst      `| @@`
	Generic   *GenericInst   `| @@`
}
