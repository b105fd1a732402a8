package ir

// ConstFoldPass implements constant folding (§4.6): per instruction, if
// every integer operand a binary/unary/compare opcode needs is a
// constant, compute the replacement constant and redirect uses to it.
// Also applies the single-constant-operand algebraic identities the
// spec lists, and the aggregate-access simplifications for ext_field/
// ext_slice/mux on constant or uniform aggregates.
//
// Grounded on the teacher's optimizeConstantFolding pass
// (internal/ir/optimizations.go), generalized from the teacher's
// int64-only arithmetic to the IntValue bigint algebra and extended with
// the hardware-specific identities (§4.6) the teacher's EVM-style IR
// never needed (shl/shr hidden operand, ins/ext slice, mux-of-uniform).
type ConstFoldPass struct{}

func (p *ConstFoldPass) Name() string { return "const-fold" }

func (p *ConstFoldPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *ConstFoldPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	return RunOnCFGDefault(ctx, p, u)
}

// RunOnInst sets the insertion cursor to just before i (§4.6: "insertion
// cursor set to before the current instruction so replacements are
// inserted locally"), folds, and redirects i's result to the new
// constant. The original instruction is left in place; DCE is
// responsible for pruning it once it has no more users.
func (p *ConstFoldPass) RunOnInst(ctx *PassContext, u *UnitData, i Inst) (bool, error) {
	d := u.dfg.InstData(i)
	result, ok := u.dfg.InstResult(i)
	if !ok {
		return false, nil
	}

	b := NewBuilder(u)
	b.SetInsertPoint(Before(i))

	replacement, did := tryFold(u, b, d)
	if !did {
		return false, nil
	}
	b.ReplaceUse(result, replacement)
	if name, hasName := u.dfg.ValueName(result); hasName {
		u.dfg.SetValueName(replacement, name)
	}
	return true, nil
}

// constIntOf returns the IntValue backing v if v is a const instruction
// result, or false otherwise.
func constIntOf(u *UnitData, v Value) (IntValue, bool) {
	if !v.IsValid() {
		return IntValue{}, false
	}
	vd := u.dfg.ValueData(v)
	if vd.Kind != ValueInst {
		return IntValue{}, false
	}
	d := u.dfg.InstData(vd.Inst)
	if d.Opcode != OpConstInt {
		return IntValue{}, false
	}
	return d.ImmInt, true
}

func tryFold(u *UnitData, b *Builder, d InstData) (Value, bool) {
	switch d.Opcode {
	case OpAdd, OpSub, OpAnd, OpOr, OpXor, OpMulS, OpMulU, OpDivS, OpDivU, OpModU, OpRemS:
		return foldBinaryArith(u, b, d)
	case OpEq, OpNeq, OpULt, OpUGt, OpULe, OpUGe, OpSLt, OpSGt, OpSLe, OpSGe:
		return foldCompare(u, b, d)
	case OpNot, OpNeg:
		return foldUnary(u, b, d)
	case OpShl, OpShr:
		return foldShift(u, d)
	case OpExtField:
		return foldExtField(u, d)
	case OpExtSlice:
		return foldExtSlice(u, b, d)
	case OpInsSlice:
		return foldInsSlice(u, b, d)
	case OpMux:
		return foldMux(u, d)
	default:
		return NoValue, false
	}
}

func foldBinaryArith(u *UnitData, b *Builder, d InstData) (Value, bool) {
	x, y := d.Args[0], d.Args[1]
	cx, xIsConst := constIntOf(u, x)
	cy, yIsConst := constIntOf(u, y)

	if xIsConst && yIsConst {
		if r, ok := cx.BinaryOp(d.Opcode, cy); ok {
			return b.BuildConstInt(r), true
		}
		return NoValue, false
	}

	// Single-constant-operand identities (§4.6).
	switch d.Opcode {
	case OpAdd, OpOr:
		if yIsConst && cy.IsZero() {
			return x, true
		}
		if xIsConst && cx.IsZero() {
			return y, true
		}
	case OpMulS, OpMulU:
		if (xIsConst && cx.IsZero()) || (yIsConst && cy.IsZero()) {
			return b.BuildConstInt(ZeroInt(d.ResultType.IntWidth())), true
		}
		if yIsConst && isOne(cy) {
			return x, true
		}
		if xIsConst && isOne(cx) {
			return y, true
		}
	case OpAnd:
		if (xIsConst && cx.IsZero()) || (yIsConst && cy.IsZero()) {
			return b.BuildConstInt(ZeroInt(d.ResultType.IntWidth())), true
		}
		if yIsConst && isAllOnes(cy) {
			return x, true
		}
		if xIsConst && isAllOnes(cx) {
			return y, true
		}
	case OpXor:
		if yIsConst && cy.IsZero() {
			return x, true
		}
		if yIsConst && isAllOnes(cy) {
			return b.buildUnary(OpNot, x, d.ResultType), true
		}
	case OpDivU, OpDivS:
		if yIsConst && isOne(cy) {
			return x, true
		}
	case OpModU, OpRemS:
		if yIsConst && isOne(cy) {
			return b.BuildConstInt(ZeroInt(d.ResultType.IntWidth())), true
		}
	}
	return NoValue, false
}

func isOne(v IntValue) bool {
	return v.Unsigned().Cmp(bigOne) == 0
}

func isAllOnes(v IntValue) bool {
	return v.Not().IsZero()
}

func foldCompare(u *UnitData, b *Builder, d InstData) (Value, bool) {
	cx, xok := constIntOf(u, d.Args[0])
	cy, yok := constIntOf(u, d.Args[1])
	if !xok || !yok {
		return NoValue, false
	}
	r, ok := cx.CompareOp(d.Opcode, cy)
	if !ok {
		return NoValue, false
	}
	if r {
		return b.BuildConstInt(FromUint64(1, 1)), true
	}
	return b.BuildConstInt(ZeroInt(1)), true
}

func foldUnary(u *UnitData, b *Builder, d InstData) (Value, bool) {
	cx, ok := constIntOf(u, d.Args[0])
	if !ok {
		return NoValue, false
	}
	r, ok := cx.UnaryOp(d.Opcode)
	if !ok {
		return NoValue, false
	}
	return b.BuildConstInt(r), true
}

// foldShift implements the zero-amount and full-width special cases of
// §4.6: a constant zero amount yields base, and a constant amount of at
// least hidden's width yields hidden. Any other amount, constant or not,
// is left unfolded; no ext-slice/ins-slice decomposition is done.
func foldShift(u *UnitData, d InstData) (Value, bool) {
	base, hidden, amount := d.Args[0], d.Args[1], d.Args[2]
	camount, ok := constIntOf(u, amount)
	if !ok {
		return NoValue, false
	}
	if camount.IsZero() {
		return base, true
	}
	hiddenWidth := u.dfg.ValueType(hidden).IntWidth()
	if camount.Unsigned().Cmp(bigFromInt(hiddenWidth)) >= 0 {
		return hidden, true
	}
	return NoValue, false
}

// foldExtField reads the selected argument directly when the aggregate
// is itself an Array/ArrayUniform/Struct instruction result (§4.6).
func foldExtField(u *UnitData, d InstData) (Value, bool) {
	agg := d.Args[0]
	offset := d.Imms[0]
	if !agg.IsValid() {
		return NoValue, false
	}
	vd := u.dfg.ValueData(agg)
	if vd.Kind != ValueInst {
		return NoValue, false
	}
	ad := u.dfg.InstData(vd.Inst)
	switch ad.Opcode {
	case OpArrayUniform:
		return ad.Args[0], true
	case OpArray, OpStruct:
		if offset >= 0 && offset < len(ad.Args) {
			return ad.Args[offset], true
		}
	}
	return NoValue, false
}

// foldExtSlice implements §4.6's slice-extraction identities: a
// full-width extraction is the identity, a zero-width extraction is the
// zero constant of the result width, and a constant target folds
// directly via IntValue.ExtractSlice.
func foldExtSlice(u *UnitData, b *Builder, d InstData) (Value, bool) {
	agg := d.Args[0]
	offset, length := d.Imms[0], d.Imms[1]
	if length == 0 {
		return b.BuildConstInt(ZeroInt(d.ResultType.IntWidth())), true
	}
	aggTy := u.dfg.ValueType(agg)
	if aggTy.IsInt() && length == aggTy.IntWidth() {
		return agg, true
	}
	if c, ok := constIntOf(u, agg); ok {
		return b.BuildConstInt(c.ExtractSlice(offset, length)), true
	}
	return NoValue, false
}

// foldInsSlice implements §4.6's slice-insertion identities: inserting
// across the full width replaces the target outright with the inserted
// value, inserting zero width is the identity on the target, and
// inserting a constant value into a constant target folds directly via
// IntValue.InsertSlice.
func foldInsSlice(u *UnitData, b *Builder, d InstData) (Value, bool) {
	agg, val := d.Args[0], d.Args[1]
	offset, length := d.Imms[0], d.Imms[1]
	if length == 0 {
		return agg, true
	}
	aggTy := u.dfg.ValueType(agg)
	if aggTy.IsInt() && length == aggTy.IntWidth() {
		return val, true
	}
	cAgg, aggOk := constIntOf(u, agg)
	cVal, valOk := constIntOf(u, val)
	if aggOk && valOk {
		return b.BuildConstInt(cAgg.InsertSlice(offset, length, cVal)), true
	}
	return NoValue, false
}

// foldMux rewrites mux(array, constSelector) into the corresponding
// element when the selector is constant (§4.6).
func foldMux(u *UnitData, d InstData) (Value, bool) {
	array, sel := d.Args[0], d.Args[1]
	csel, ok := constIntOf(u, sel)
	if !ok {
		return NoValue, false
	}
	idx := int(csel.Unsigned().Int64())
	return foldExtField(u, InstData{Opcode: OpExtField, Args: []Value{array, NoValue}, Imms: [2]int{idx, 0}})
}
