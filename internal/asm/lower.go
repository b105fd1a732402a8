package asm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"llhd/internal/ir"
)

// Lower walks a parsed File and builds an ir.Module from it. Two passes
// per unit body: pass 1 creates every block (so branches can target
// blocks not yet reached textually), pass 2 walks instructions in
// source order resolving %value operands from a table built
// incrementally as results are produced.
//
// Forward references to a not-yet-defined SSA value are not supported:
// an instruction may only reference a %value bound by an earlier
// instruction (or a unit parameter). Kanso's own grammar-based reader
// never needs to handle this either, since the source language has no
// phi nodes the way this IR's block arguments do; the limitation bites
// only loop-carried phi operands, which a round-tripped dump from
// Printer never produces out of order in the first place.
func Lower(f *File) (*ir.Module, error) {
	m := ir.NewModule()
	for _, item := range f.Items {
		switch {
		case item.Decl != nil:
			sig, err := lowerBareSig(item.Decl.Sig)
			if err != nil {
				return nil, fmt.Errorf("declare %s: %w", item.Decl.Name, err)
			}
			m.AddDecl(&ir.DeclData{Name: stripGlobal(item.Decl.Name), Signature: sig})
		case item.Unit != nil:
			u, err := lowerUnit(item.Unit)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", item.Unit.Kind, item.Unit.Name, err)
			}
			m.AddUnit(u)
		}
	}
	return m, nil
}

// stripGlobal removes the leading "@" the GlobalIdent token always
// carries: Printer's `@%s` format strings (and ExtUnitData.Name lookups)
// expect the bare name and add the sigil themselves, the same split
// declare/printMultiResult already assume for names round-tripped back
// out through ir.Print.
func stripGlobal(name string) string {
	return strings.TrimPrefix(name, "@")
}

func unitKind(kind string) (ir.UnitKind, error) {
	switch kind {
	case "func":
		return ir.FunctionKind, nil
	case "proc":
		return ir.ProcessKind, nil
	case "entity":
		return ir.EntityKind, nil
	default:
		return 0, fmt.Errorf("unknown unit kind %q", kind)
	}
}

func lowerBareSig(s *Sig) (*ir.Signature, error) {
	inputs, err := lowerTypes(s.Inputs)
	if err != nil {
		return nil, err
	}
	var outputs []*ir.Type
	var ret *ir.Type
	if s.Tail != nil {
		if s.Tail.Outputs != nil {
			outputs, err = lowerTypes(s.Tail.Outputs)
		} else if s.Tail.Ret != nil {
			ret, err = lowerType(s.Tail.Ret)
		}
		if err != nil {
			return nil, err
		}
	}
	return ir.NewSignature(inputs, outputs, ret), nil
}

func lowerTypes(ts []*Type) ([]*ir.Type, error) {
	out := make([]*ir.Type, len(ts))
	for i, t := range ts {
		rt, err := lowerType(t)
		if err != nil {
			return nil, err
		}
		out[i] = rt
	}
	return out, nil
}

func lowerType(t *Type) (*ir.Type, error) {
	var base *ir.Type
	var err error
	switch {
	case t.Void:
		base = ir.VoidTy()
	case t.Time:
		base = ir.TimeTy()
	case t.Scalar != "":
		base, err = lowerScalar(t.Scalar)
	case t.Arr != nil:
		var elem *ir.Type
		elem, err = lowerType(t.Arr.Elem)
		if err == nil {
			var n int
			n, err = strconv.Atoi(t.Arr.Length)
			if err == nil {
				base = ir.ArrayTy(n, elem)
			}
		}
	case t.Struct != nil:
		var fields []*ir.Type
		fields, err = lowerTypes(t.Struct.Fields)
		if err == nil {
			base = ir.StructTy(fields...)
		}
	default:
		return nil, fmt.Errorf("empty type")
	}
	if err != nil {
		return nil, err
	}
	for _, suffix := range t.Suffix {
		switch suffix {
		case "*":
			base = ir.PointerTy(base)
		case "$":
			base = ir.SignalTy(base)
		default:
			return nil, fmt.Errorf("unknown type suffix %q", suffix)
		}
	}
	return base, nil
}

func lowerScalar(name string) (*ir.Type, error) {
	if len(name) < 2 {
		return nil, fmt.Errorf("unrecognized scalar type %q", name)
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return nil, fmt.Errorf("unrecognized scalar type %q", name)
	}
	switch name[0] {
	case 'i':
		return ir.IntTy(n), nil
	case 'n':
		return ir.EnumTy(n), nil
	default:
		return nil, fmt.Errorf("unrecognized scalar type %q", name)
	}
}

// unitLowering holds the per-unit name tables threaded through pass 2.
type unitLowering struct {
	b      *ir.Builder
	unit   *ir.UnitData
	values map[string]ir.Value
	blocks map[string]ir.Block
}

func lowerUnit(u *Unit) (*ir.UnitData, error) {
	kind, err := unitKind(u.Kind)
	if err != nil {
		return nil, err
	}

	inputTypes := make([]*ir.Type, len(u.Inputs))
	for i, p := range u.Inputs {
		t, err := lowerType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		inputTypes[i] = t
	}

	var outputParams []*Param
	var ret *ir.Type
	if u.Tail != nil {
		if u.Tail.Outputs != nil {
			outputParams = u.Tail.Outputs
		} else if u.Tail.Ret != nil {
			ret, err = lowerType(u.Tail.Ret)
			if err != nil {
				return nil, err
			}
		}
	}
	outputTypes := make([]*ir.Type, len(outputParams))
	for i, p := range outputParams {
		t, err := lowerType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", p.Name, err)
		}
		outputTypes[i] = t
	}

	sig := ir.NewSignature(inputTypes, outputTypes, ret)
	unit := ir.NewUnitData(kind, stripGlobal(u.Name), sig)
	b := ir.NewBuilder(unit)

	lw := &unitLowering{b: b, unit: unit, values: map[string]ir.Value{}, blocks: map[string]ir.Block{}}

	argIdx := 0
	for i, p := range u.Inputs {
		v := unit.DFG().BindArg(ir.Arg(argIdx), inputTypes[i])
		lw.values[p.Name] = v
		argIdx++
	}
	for i, p := range outputParams {
		v := unit.DFG().BindArg(ir.Arg(argIdx), outputTypes[i])
		lw.values[p.Name] = v
		argIdx++
	}

	for _, blk := range u.Blocks {
		lw.blocks[blk.Label] = b.CreateBlock(blk.Label)
	}

	for _, blk := range u.Blocks {
		target := lw.blocks[blk.Label]
		for _, inst := range blk.Insts {
			b.SetInsertPoint(ir.AppendTo(target))
			if err := lw.lowerInst(inst); err != nil {
				return nil, fmt.Errorf("block %s: %w", blk.Label, err)
			}
		}
	}

	return unit, nil
}

func (lw *unitLowering) resolveValue(name string) (ir.Value, error) {
	v, ok := lw.values[name]
	if !ok {
		return ir.NoValue, fmt.Errorf("reference to undefined value %s", name)
	}
	return v, nil
}

func (lw *unitLowering) resolveBlock(label string) (ir.Block, error) {
	blk, ok := lw.blocks[label]
	if !ok {
		return 0, fmt.Errorf("reference to undefined block %s", label)
	}
	return blk, nil
}

func (lw *unitLowering) resolveOperand(op *Operand) (ir.Value, error) {
	switch {
	case op.Poison:
		return ir.NoValue, nil
	case op.Value != "":
		return lw.resolveValue(op.Value)
	default:
		return ir.NoValue, fmt.Errorf("expected a value operand, got label %s", op.Label)
	}
}

func (lw *unitLowering) resolveOperands(list *OperandList) ([]ir.Value, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]ir.Value, len(list.Items))
	for i, op := range list.Items {
		v, err := lw.resolveOperand(op)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseTimeLit(lit string) (*big.Rat, error) {
	var unit string
	for _, u := range []string{"fs", "ps", "ns", "us", "ms", "s"} {
		if strings.HasSuffix(lit, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return nil, fmt.Errorf("malformed time literal %q", lit)
	}
	numeric := strings.TrimSuffix(lit, unit)
	r, ok := new(big.Rat).SetString(numeric)
	if !ok {
		return nil, fmt.Errorf("malformed time literal %q", lit)
	}
	scale := map[string]*big.Rat{
		"fs": big.NewRat(1, 1000000000000000),
		"ps": big.NewRat(1, 1000000000000),
		"ns": big.NewRat(1, 1000000000),
		"us": big.NewRat(1, 1000000),
		"ms": big.NewRat(1, 1000),
		"s":  big.NewRat(1, 1),
	}[unit]
	return r.Mul(r, scale), nil
}

func parseSuffixedInt(lit string) (int64, error) {
	if lit == "" {
		return 0, nil
	}
	return strconv.ParseInt(lit[:len(lit)-1], 10, 64)
}

func (lw *unitLowering) lowerInst(inst *InstAST) error {
	switch {
	case inst.ConstInt != nil:
		return lw.lowerConstInt(inst.ConstInt)
	case inst.ConstTime != nil:
		return lw.lowerConstTime(inst.ConstTime)
	case inst.Phi != nil:
		return lw.lowerPhi(inst.Phi)
	case inst.Br != nil:
		target, err := lw.resolveBlock(inst.Br.Target)
		if err != nil {
			return err
		}
		lw.b.BuildBr(target)
		return nil
	case inst.BrCond != nil:
		return lw.lowerBrCond(inst.BrCond)
	case inst.WaitTime != nil:
		return lw.lowerWaitTime(inst.WaitTime)
	case inst.Wait != nil:
		return lw.lowerWait(inst.Wait)
	case inst.Ret != nil:
		if inst.Ret.Value != nil {
			v, err := lw.resolveValue(*inst.Ret.Value)
			if err != nil {
				return err
			}
			lw.b.BuildRetValue(v)
		} else {
			lw.b.BuildRet()
		}
		return nil
	case inst.Halt != nil:
		lw.b.BuildHalt()
		return nil
	case inst.Reg != nil:
		return lw.lowerReg(inst.Reg)
	case inst.Call != nil:
		return lw.lowerCall(inst.Call)
	case inst.Generic != nil:
		return lw.lowerGeneric(inst.Generic)
	default:
		return fmt.Errorf("empty instruction")
	}
}

func (lw *unitLowering) lowerConstInt(c *ConstIntInst) error {
	ty, err := lowerScalar(c.TyTok)
	if err != nil {
		return err
	}
	n, ok := new(big.Int).SetString(c.Value, 10)
	if !ok {
		return fmt.Errorf("malformed integer literal %q", c.Value)
	}
	v := lw.b.BuildConstInt(ir.FromUnsigned(ty.IntWidth(), n))
	lw.values[c.Result] = v
	return nil
}

func (lw *unitLowering) lowerConstTime(c *ConstTimeInst) error {
	secs, err := parseTimeLit(c.Seconds)
	if err != nil {
		return err
	}
	delta, err := parseSuffixedInt(c.Delta)
	if err != nil {
		return err
	}
	epsilon, err := parseSuffixedInt(c.Epsilon)
	if err != nil {
		return err
	}
	v := lw.b.BuildConstTime(ir.NewTimeValue(secs, delta, epsilon))
	lw.values[c.Result] = v
	return nil
}

func (lw *unitLowering) lowerPhi(p *PhiInst) error {
	args := make([]ir.Value, len(p.Arms))
	blocks := make([]ir.Block, len(p.Arms))
	var ty *ir.Type
	for i, arm := range p.Arms {
		v, err := lw.resolveValue(arm.Value)
		if err != nil {
			return err
		}
		b, err := lw.resolveBlock(arm.Label)
		if err != nil {
			return err
		}
		args[i] = v
		blocks[i] = b
		if ty == nil {
			ty = lw.unit.DFG().ValueType(v)
		}
	}
	v := lw.b.BuildPhi(args, blocks, ty)
	lw.values[p.Result] = v
	return nil
}

func (lw *unitLowering) lowerBrCond(c *BrCondInst) error {
	cond, err := lw.resolveValue(c.Cond)
	if err != nil {
		return err
	}
	thenB, err := lw.resolveBlock(c.True)
	if err != nil {
		return err
	}
	elseB, err := lw.resolveBlock(c.False)
	if err != nil {
		return err
	}
	lw.b.BuildBrCond(cond, thenB, elseB)
	return nil
}

func (lw *unitLowering) lowerWait(w *WaitInst) error {
	target, err := lw.resolveBlock(w.Target)
	if err != nil {
		return err
	}
	sens, err := lw.resolveOperands(w.Sens)
	if err != nil {
		return err
	}
	lw.b.BuildWait(target, sens)
	return nil
}

func (lw *unitLowering) lowerWaitTime(w *WaitTimeInst) error {
	target, err := lw.resolveBlock(w.Target)
	if err != nil {
		return err
	}
	delay, err := lw.resolveValue(w.Delay)
	if err != nil {
		return err
	}
	sens, err := lw.resolveOperands(w.Sens)
	if err != nil {
		return err
	}
	lw.b.BuildWaitTime(target, delay, sens)
	return nil
}

func (lw *unitLowering) lowerReg(r *RegInst) error {
	init, err := lw.resolveValue(r.Init)
	if err != nil {
		return err
	}
	ty := lw.unit.DFG().ValueType(init)
	triggers := make([]ir.RegTrigger, len(r.Triggers))
	for i, t := range r.Triggers {
		data, err := lw.resolveValue(t.Data)
		if err != nil {
			return err
		}
		mode, err := parseTriggerMode(t.Mode)
		if err != nil {
			return err
		}
		trig, err := lw.resolveValue(t.Trigger)
		if err != nil {
			return err
		}
		gate := ir.NoValue
		if t.Gate != "-" {
			gate, err = lw.resolveValue(t.Gate)
			if err != nil {
				return err
			}
		}
		triggers[i] = ir.RegTrigger{Data: data, Mode: mode, Trigger: trig, Gate: gate}
	}
	v := lw.b.BuildReg(init, triggers, ty)
	lw.values[r.Result] = v
	return nil
}

func parseTriggerMode(name string) (ir.TriggerMode, error) {
	switch name {
	case "low":
		return ir.TriggerLow, nil
	case "high":
		return ir.TriggerHigh, nil
	case "rise":
		return ir.TriggerRise, nil
	case "fall":
		return ir.TriggerFall, nil
	case "both":
		return ir.TriggerBoth, nil
	default:
		return 0, fmt.Errorf("unknown trigger mode %q", name)
	}
}

// lowerCall builds a call/inst site's signature from the operand values
// actually present at the call site, since Lower has no separate symbol
// table pass and a callee's declare/definition may appear after its
// first call site in the source text — output types aren't recoverable
// this way, so multi-result calls must be re-typed by a later pass
// (e.g. the type checker a full pipeline would run before codegen).
func (lw *unitLowering) lowerCall(c *CallInst) error {
	args, err := lw.resolveOperands(c.Args)
	if err != nil {
		return err
	}
	inputs := make([]ir.SigArg, len(args))
	for i, a := range args {
		inputs[i] = ir.SigArg{Arg: ir.Arg(i), Type: lw.unit.DFG().ValueType(a)}
	}
	sig := &ir.Signature{Inputs: inputs}

	var results []ir.Value
	if c.Kind == "inst" {
		_, results = lw.b.BuildInst(stripGlobal(c.Name), sig, args)
	} else {
		_, results = lw.b.BuildCall(stripGlobal(c.Name), sig, args)
	}
	for i, name := range c.Results {
		if i < len(results) {
			lw.values[name] = results[i]
		}
	}
	return nil
}

func (lw *unitLowering) lowerGeneric(g *GenericInst) error {
	args, err := lw.resolveOperands(g.Args)
	if err != nil {
		return err
	}
	dfg := lw.unit.DFG()

	result := func(v ir.Value) error {
		if g.Result != nil {
			lw.values[*g.Result] = v
		}
		return nil
	}

	switch g.Op {
	case "not":
		return result(lw.b.BuildNot(args[0], dfg.ValueType(args[0])))
	case "neg":
		return result(lw.b.BuildNeg(args[0], dfg.ValueType(args[0])))
	case "add":
		return result(lw.b.BuildAdd(args[0], args[1], dfg.ValueType(args[0])))
	case "sub":
		return result(lw.b.BuildSub(args[0], args[1], dfg.ValueType(args[0])))
	case "and":
		return result(lw.b.BuildAnd(args[0], args[1], dfg.ValueType(args[0])))
	case "or":
		return result(lw.b.BuildOr(args[0], args[1], dfg.ValueType(args[0])))
	case "xor":
		return result(lw.b.BuildXor(args[0], args[1], dfg.ValueType(args[0])))
	case "smul":
		return result(lw.b.BuildMulS(args[0], args[1], dfg.ValueType(args[0])))
	case "umul":
		return result(lw.b.BuildMulU(args[0], args[1], dfg.ValueType(args[0])))
	case "sdiv":
		return result(lw.b.BuildDivS(args[0], args[1], dfg.ValueType(args[0])))
	case "udiv":
		return result(lw.b.BuildDivU(args[0], args[1], dfg.ValueType(args[0])))
	case "umod":
		return result(lw.b.BuildModU(args[0], args[1], dfg.ValueType(args[0])))
	case "srem":
		return result(lw.b.BuildRemS(args[0], args[1], dfg.ValueType(args[0])))
	case "eq":
		return result(lw.b.BuildEq(args[0], args[1]))
	case "neq":
		return result(lw.b.BuildNeq(args[0], args[1]))
	case "ult":
		return result(lw.b.BuildULt(args[0], args[1]))
	case "ugt":
		return result(lw.b.BuildUGt(args[0], args[1]))
	case "ule":
		return result(lw.b.BuildULe(args[0], args[1]))
	case "uge":
		return result(lw.b.BuildUGe(args[0], args[1]))
	case "slt":
		return result(lw.b.BuildSLt(args[0], args[1]))
	case "sgt":
		return result(lw.b.BuildSGt(args[0], args[1]))
	case "sle":
		return result(lw.b.BuildSLe(args[0], args[1]))
	case "sge":
		return result(lw.b.BuildSGe(args[0], args[1]))
	case "shl":
		return result(lw.b.BuildShl(args[0], args[1], args[2], dfg.ValueType(args[0])))
	case "shr":
		return result(lw.b.BuildShr(args[0], args[1], args[2], dfg.ValueType(args[0])))
	case "mux":
		return result(lw.b.BuildMux(args[0], args[1], dfg.ValueType(args[0]).Elem()))
	case "sig":
		return result(lw.b.BuildSig(args[0], ir.SignalTy(dfg.ValueType(args[0]))))
	case "prb":
		return result(lw.b.BuildPrb(args[0], dfg.ValueType(args[0]).Elem()))
	case "drv":
		lw.b.BuildDrv(args[0], args[1], args[2])
		return nil
	case "drv_cond":
		lw.b.BuildDrvCond(args[0], args[1], args[2], args[3])
		return nil
	case "con":
		lw.b.BuildCon(args[0], args[1])
		return nil
	case "del":
		lw.b.BuildDel(args[0], args[1])
		return nil
	case "var":
		return result(lw.b.BuildVar(args[0], ir.PointerTy(dfg.ValueType(args[0]))))
	case "ld":
		return result(lw.b.BuildLd(args[0], dfg.ValueType(args[0]).Elem()))
	case "st":
		lw.b.BuildSt(args[0], args[1])
		return nil
	default:
		return fmt.Errorf("unsupported opcode %q", g.Op)
	}
}
