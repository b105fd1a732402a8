package ir

import "fmt"

// VerifierError describes one well-formedness violation found by Verify.
// Grounded on the teacher's diagnostic-accumulation style (collect every
// error, never stop at the first) seen in its semantic analysis passes,
// adapted to the structural/type split the spec calls for (§4.3).
type VerifierError struct {
	Unit UnitId
	Inst Inst
	Msg  string
}

func (e *VerifierError) Error() string {
	if e.Inst >= 0 {
		return fmt.Sprintf("unit %s, inst %s: %s", e.Unit, e.Inst, e.Msg)
	}
	return fmt.Sprintf("unit %s: %s", e.Unit, e.Msg)
}

// Verify checks a single unit for structural and type well-formedness
// (§4.3). It never mutates the unit and returns every violation found,
// rather than stopping at the first.
func Verify(id UnitId, u *UnitData) []error {
	v := &verifierState{unitID: id, u: u}
	v.checkBlocks()
	v.checkUsesValid()
	v.checkOperandSchema()
	v.checkOpcodeLegality()
	v.checkReturnAgreement()
	if len(v.errs) == 0 {
		v.checkDominance()
	}
	return v.errs
}

type verifierState struct {
	unitID UnitId
	u      *UnitData
	errs   []error
}

func (v *verifierState) fail(i Inst, format string, args ...any) {
	v.errs = append(v.errs, &VerifierError{Unit: v.unitID, Inst: i, Msg: fmt.Sprintf(format, args...)})
}

func (v *verifierState) checkBlocks() {
	entry, ok := v.u.EntryBlock()
	if !ok {
		v.fail(-1, "unit has no entry block")
		return
	}
	if v.u.Kind == EntityKind {
		if _, hasNext := v.u.layout.NextBlock(entry); hasNext {
			v.fail(-1, "entity must have a single implicit entry block")
		}
	}
	for _, b := range v.u.layout.Blocks() {
		insts := v.u.layout.Insts(b)
		if len(insts) == 0 {
			v.fail(-1, "block %s is empty", b)
			continue
		}
		for idx, i := range insts {
			isLast := idx == len(insts)-1
			isTerm := v.u.dfg.InstData(i).Opcode.IsTerminator()
			if isTerm && !isLast {
				v.fail(i, "terminator is not the last instruction of its block")
			}
			if !isTerm && isLast {
				v.fail(i, "block %s does not end in a terminator", b)
			}
		}
	}
}

func (v *verifierState) checkUsesValid() {
	for _, i := range v.u.dfg.Insts() {
		d := v.u.dfg.InstData(i)
		for idx, val := range d.Uses() {
			if !val.IsValid() {
				if d.Format == FmtInsExt && idx == 1 &&
					(d.Opcode == OpExtField || d.Opcode == OpExtSlice) {
					continue
				}
				if d.Opcode == OpReg {
					continue // gate slots may legitimately be NoValue
				}
				v.fail(i, "invalid value used outside an allowed placeholder slot")
				continue
			}
			if v.u.dfg.ValueData(val).Kind == ValuePlaceholder {
				v.fail(i, "placeholder value %s not resolved before verification", val)
				continue
			}
			if !v.u.dfg.IsValue(val) {
				v.fail(i, "operand references a value not present in this unit")
			}
		}
		for _, b := range d.BlockUses() {
			if !v.u.cfg.IsBlock(b) {
				v.fail(i, "operand references a block not present in this unit")
			}
		}
	}
}

// checkOperandSchema checks the coarse per-opcode operand shape: integer
// arithmetic operands must be integer-typed and agree in width with the
// result, signal ops must wrap/unwrap a signal type, etc. This is not a
// type-checker for every constant-folding identity, only the invariants
// the spec names explicitly in §4.3.
func (v *verifierState) checkOperandSchema() {
	for _, i := range v.u.dfg.Insts() {
		d := v.u.dfg.InstData(i)
		if d.Format != FormatFor(d.Opcode) {
			v.fail(i, "instruction format does not match opcode %s", d.Opcode)
		}
		switch d.Opcode {
		case OpAdd, OpSub, OpAnd, OpOr, OpXor, OpMulS, OpMulU, OpDivS, OpDivU, OpModU, OpRemS:
			v.requireIntArgs(i, d)
		case OpNot, OpNeg:
			v.requireIntArgs(i, d)
		case OpSig:
			if len(d.Args) == 1 && !v.resultIsSignal(i) {
				v.fail(i, "sig result must be a signal type")
			}
		case OpPrb:
			if len(d.Args) == 1 && !v.argIsSignal(d.Args[0]) {
				v.fail(i, "prb operand must be a signal")
			}
		case OpDrv:
			if len(d.Args) >= 1 && !v.argIsSignal(d.Args[0]) {
				v.fail(i, "drv target must be a signal")
			}
		case OpLd:
			if len(d.Args) == 1 && !v.argIsPointer(d.Args[0]) {
				v.fail(i, "ld operand must be a pointer")
			}
		case OpSt:
			if len(d.Args) >= 1 && !v.argIsPointer(d.Args[0]) {
				v.fail(i, "st target must be a pointer")
			}
		case OpVar:
			if !v.resultIsPointer(i) {
				v.fail(i, "var result must be a pointer type")
			}
		case OpCall, OpInst:
			ed := v.u.dfg.ExtUnitData(d.Ext)
			if d.InputCount != len(ed.Signature.Inputs) {
				v.fail(i, "call/inst argument count disagrees with signature")
			}
		}
	}
}

func (v *verifierState) requireIntArgs(i Inst, d InstData) {
	for _, a := range d.Args {
		if !a.IsValid() {
			continue
		}
		t := v.u.dfg.ValueType(a)
		if t == nil || !t.IsInt() {
			v.fail(i, "operand of %s must be an integer", d.Opcode)
			return
		}
	}
}

func (v *verifierState) argIsSignal(a Value) bool {
	t := v.u.dfg.ValueType(a)
	return t != nil && t.IsSignal()
}

func (v *verifierState) argIsPointer(a Value) bool {
	t := v.u.dfg.ValueType(a)
	return t != nil && t.IsPointer()
}

func (v *verifierState) resultIsSignal(i Inst) bool {
	r, ok := v.u.dfg.InstResult(i)
	return ok && v.u.dfg.ValueType(r).IsSignal()
}

func (v *verifierState) resultIsPointer(i Inst) bool {
	r, ok := v.u.dfg.InstResult(i)
	return ok && v.u.dfg.ValueType(r).IsPointer()
}

func (v *verifierState) checkOpcodeLegality() {
	for _, i := range v.u.dfg.Insts() {
		op := v.u.dfg.InstData(i).Opcode
		if !op.ValidIn(v.u.Kind) {
			v.fail(i, "opcode %s not permitted in %s", op, v.u.Kind)
		}
	}
}

func (v *verifierState) checkReturnAgreement() {
	if v.u.Kind != FunctionKind {
		return
	}
	for _, i := range v.u.dfg.Insts() {
		d := v.u.dfg.InstData(i)
		switch d.Opcode {
		case OpRet:
			if v.u.Signature.Return != nil && !v.u.Signature.Return.IsVoid() {
				v.fail(i, "ret used in function with non-void return type")
			}
		case OpRetValue:
			if v.u.Signature.Return == nil {
				v.fail(i, "ret_value used in function with no return type")
				continue
			}
			if len(d.Args) == 1 && d.Args[0].IsValid() {
				t := v.u.dfg.ValueType(d.Args[0])
				if t != v.u.Signature.Return {
					v.fail(i, "ret_value type disagrees with signature")
				}
			}
		}
	}
}

// checkDominance verifies every value use is dominated by its definition,
// with the phi special-case from §4.3/§4.4: a phi operand's dominance is
// checked against the incoming edge's source block.
func (v *verifierState) checkDominance() {
	preds := ComputePredecessors(v.u)
	dt := ComputeDominatorTree(v.u, preds)

	for _, i := range v.u.dfg.Insts() {
		d := v.u.dfg.InstData(i)
		if d.Format == FmtPhi {
			for idx, val := range d.Args {
				if !val.IsValid() {
					continue
				}
				incoming := d.Blocks[idx]
				if !dt.ValueDominatesUse(v.u, val, i, incoming, true) {
					v.fail(i, "phi operand %s not dominated on edge from %s", val, incoming)
				}
			}
			continue
		}
		for _, val := range d.Uses() {
			if !val.IsValid() {
				continue
			}
			if !dt.ValueDominatesUse(v.u, val, i, 0, false) {
				v.fail(i, "operand %s does not dominate its use", val)
			}
		}
	}
}
