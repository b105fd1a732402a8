package ir

// Opcode enumerates every instruction kind (component D). The opcode is
// the discriminator carried inside each Format variant below; the
// verifier checks that the two agree (FormatFor, below).
type Opcode int

const (
	OpConstInt Opcode = iota
	OpConstTime
	OpAlias

	OpArrayUniform
	OpArray
	OpStruct

	OpNot
	OpNeg

	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpMulS
	OpMulU
	OpDivS
	OpDivU
	OpModU
	OpRemS

	OpEq
	OpNeq
	OpULt
	OpUGt
	OpULe
	OpUGe
	OpSLt
	OpSGt
	OpSLe
	OpSGe

	OpShl
	OpShr

	OpMux

	OpReg

	OpInsField
	OpInsSlice
	OpExtField
	OpExtSlice

	OpSig
	OpPrb
	OpDrv
	OpDrvCond
	OpCon
	OpDel

	OpVar
	OpLd
	OpSt

	OpCall
	OpInst

	OpHalt
	OpRet
	OpRetValue
	OpPhi
	OpBr
	OpBrCond
	OpWait
	OpWaitTime
)

var opcodeNames = map[Opcode]string{
	OpConstInt: "const", OpConstTime: "const", OpAlias: "alias",
	OpArrayUniform: "array_uniform", OpArray: "array", OpStruct: "struct",
	OpNot: "not", OpNeg: "neg",
	OpAdd: "add", OpSub: "sub", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpMulS: "smul", OpMulU: "umul", OpDivS: "sdiv", OpDivU: "udiv",
	OpModU: "umod", OpRemS: "srem",
	OpEq: "eq", OpNeq: "neq",
	OpULt: "ult", OpUGt: "ugt", OpULe: "ule", OpUGe: "uge",
	OpSLt: "slt", OpSGt: "sgt", OpSLe: "sle", OpSGe: "sge",
	OpShl: "shl", OpShr: "shr",
	OpMux: "mux", OpReg: "reg",
	OpInsField: "ins_field", OpInsSlice: "ins_slice",
	OpExtField: "ext_field", OpExtSlice: "ext_slice",
	OpSig: "sig", OpPrb: "prb", OpDrv: "drv", OpDrvCond: "drv_cond",
	OpCon: "con", OpDel: "del",
	OpVar: "var", OpLd: "ld", OpSt: "st",
	OpCall: "call", OpInst: "inst",
	OpHalt: "halt", OpRet: "ret", OpRetValue: "ret_value",
	OpPhi: "phi", OpBr: "br", OpBrCond: "br_cond",
	OpWait: "wait", OpWaitTime: "wait_time",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "unknown"
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpHalt, OpRet, OpRetValue, OpBr, OpBrCond, OpWait, OpWaitTime:
		return true
	default:
		return false
	}
}

// ValidIn reports whether op is legal inside a unit of the given kind, per
// the spec's opcode/unit restriction table (§4.1): Halt in process/entity;
// Wait/WaitTime in process; Ret/RetValue/Phi/Br/BrCond in function/
// process; Con/Del/Reg/Inst in entity only; Var/Ld/St in function/process;
// everything else everywhere.
// Call is deliberately excluded from entities: nothing in the pass
// pipeline needs to call a function from inside a dataflow-only entity,
// and allowing it would let an entity smuggle control flow past the
// verifier's "entity has no control flow" check.
func (op Opcode) ValidIn(kind UnitKind) bool {
	switch op {
	case OpHalt:
		return kind == ProcessKind || kind == EntityKind
	case OpWait, OpWaitTime:
		return kind == ProcessKind
	case OpRet, OpRetValue, OpPhi, OpBr, OpBrCond:
		return kind == FunctionKind || kind == ProcessKind
	case OpCon, OpDel, OpReg, OpInst:
		return kind == EntityKind
	case OpCall:
		return kind == FunctionKind || kind == ProcessKind
	case OpLd, OpSt, OpVar:
		return kind == FunctionKind || kind == ProcessKind
	default:
		return true
	}
}

// HasResult reports whether op produces an SSA value.
func (op Opcode) HasResult() bool {
	switch op {
	case OpHalt, OpRet, OpRetValue, OpBr, OpBrCond, OpWait, OpWaitTime,
		OpSt, OpDrv, OpDrvCond, OpCon, OpDel:
		return false
	case OpCall, OpInst:
		return true // may produce zero or more outputs; see InstData.ResultTypes
	default:
		return true
	}
}

// TriggerMode is the edge/level condition of one Reg trigger.
type TriggerMode int

const (
	TriggerLow TriggerMode = iota
	TriggerHigh
	TriggerRise
	TriggerFall
	TriggerBoth
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerLow:
		return "low"
	case TriggerHigh:
		return "high"
	case TriggerRise:
		return "rise"
	case TriggerFall:
		return "fall"
	case TriggerBoth:
		return "both"
	default:
		return "?"
	}
}

// RegTrigger is one (data, mode, trigger-signal, optional gate) tuple.
// Gate is NoValue when the trigger is ungated.
type RegTrigger struct {
	Data    Value
	Mode    TriggerMode
	Trigger Value
	Gate    Value
}

// FormatKind discriminates InstData's payload shape; the verifier checks
// that FormatKind(op) is consistent with the opcode (FormatFor).
type FormatKind int

const (
	FmtNullary FormatKind = iota
	FmtUnary
	FmtBinary
	FmtTernary
	FmtQuaternary
	FmtConstInt
	FmtConstTime
	FmtArray
	FmtAggregate
	FmtPhi
	FmtJump
	FmtBranch
	FmtWait
	FmtCall
	FmtInsExt
	FmtReg
)

// FormatFor returns the expected format for op; the verifier rejects any
// InstData whose Format field disagrees.
func FormatFor(op Opcode) FormatKind {
	switch op {
	case OpConstInt:
		return FmtConstInt
	case OpConstTime:
		return FmtConstTime
	case OpAlias, OpNot, OpNeg, OpPrb, OpLd, OpVar, OpRetValue, OpSig:
		return FmtUnary
	case OpAdd, OpSub, OpAnd, OpOr, OpXor, OpMulS, OpMulU, OpDivS, OpDivU,
		OpModU, OpRemS, OpEq, OpNeq, OpULt, OpUGt, OpULe, OpUGe, OpSLt,
		OpSGt, OpSLe, OpSGe, OpMux, OpSt:
		return FmtBinary
	case OpShl, OpShr, OpDrv:
		return FmtTernary
	case OpDrvCond:
		return FmtQuaternary
	case OpCon, OpDel:
		return FmtBinary
	case OpArrayUniform:
		return FmtArray
	case OpArray, OpStruct:
		return FmtAggregate
	case OpPhi:
		return FmtPhi
	case OpBr:
		return FmtJump
	case OpBrCond:
		return FmtBranch
	case OpWait, OpWaitTime:
		return FmtWait
	case OpCall, OpInst:
		return FmtCall
	case OpInsField, OpInsSlice, OpExtField, OpExtSlice:
		return FmtInsExt
	case OpReg:
		return FmtReg
	case OpHalt, OpRet:
		return FmtNullary
	default:
		return FmtNullary
	}
}

// InstData is the tagged union of every instruction format, keyed by
// Opcode/Format rather than by a Go interface per opcode so that a single
// flat struct can live inline in the dense Inst->InstData table (component
// D) without per-instruction heap allocation for the common fixed-arity
// shapes. Grounded on the spec's "tagged instruction variants... sum type
// with one variant per instruction format, operand lists stored inline
// for hot formats or heap-allocated for variadic ones" (Design Notes,
// §REDESIGN FLAGS).
type InstData struct {
	Opcode Opcode
	Format FormatKind

	// Args holds the operand Values for every format except ConstInt/
	// ConstTime (which have none) and Reg (which packs init+data+trigger+
	// gate into Args and Triggers together, see below).
	Args []Value

	// Blocks holds block operands: Jump{block}; Branch{[then, else]};
	// Phi's parallel block vector; Wait's target block.
	Blocks []Block

	// ImmInt/ImmTime hold ConstInt/ConstTime immediates.
	ImmInt  IntValue
	ImmTime TimeValue

	// ResultType is the declared type of inst_result(i); zero Type (nil)
	// if the opcode has no result.
	ResultType *Type

	// Array/Aggregate shape.
	ArrayLen int

	// Call/Inst: the external unit being invoked, the split point between
	// input args and output args within Args, and (for Inst, a
	// hierarchical instantiation that may bind more than one result)
	// the result types of each output.
	Ext         ExtUnit
	InputCount  int
	ResultTypes []*Type

	// InsExt (InsField/InsSlice/ExtField/ExtSlice): Args[0] is the
	// aggregate/placeholder operand, Args[1] is the inserted value (for
	// Ins*) or NoValue (for Ext*); Imms holds [offset] for field ops or
	// [offset, length] for slice ops.
	Imms [2]int

	// Reg: Args[0] is the initial value; Triggers holds one RegTrigger
	// per trigger clause, evaluated in order.
	Triggers []RegTrigger
}

// Uses returns every Value operand referenced by this instruction,
// including those packed into Triggers, for use-index maintenance.
func (d *InstData) Uses() []Value {
	out := append([]Value(nil), d.Args...)
	for _, t := range d.Triggers {
		out = append(out, t.Data, t.Trigger)
		if t.Gate.IsValid() {
			out = append(out, t.Gate)
		}
	}
	return out
}

// BlockUses returns every Block operand referenced by this instruction.
func (d *InstData) BlockUses() []Block {
	return append([]Block(nil), d.Blocks...)
}
