package ir

// InstSimplifyPass implements instruction simplification (§4.7): a small
// set of algebraic identities that constant folding does not cover
// because they compare two operands structurally rather than requiring
// either to be constant.
//
// Grounded on the teacher's peephole simplifications inside
// optimizeConstantFolding (internal/ir/optimizations.go), split into its
// own pass to match the spec's two-pass split between value-level folding
// and structural simplification.
type InstSimplifyPass struct{}

func (p *InstSimplifyPass) Name() string { return "inst-simplify" }

func (p *InstSimplifyPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *InstSimplifyPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	return RunOnCFGDefault(ctx, p, u)
}

func (p *InstSimplifyPass) RunOnInst(ctx *PassContext, u *UnitData, i Inst) (bool, error) {
	d := u.dfg.InstData(i)
	b := NewBuilder(u)
	b.SetInsertPoint(Before(i))

	switch d.Opcode {
	case OpDrvCond:
		return p.simplifyDrvCond(u, b, i, d)
	case OpAnd, OpOr:
		if len(d.Args) == 2 && d.Args[0] == d.Args[1] {
			if result, ok := u.dfg.InstResult(i); ok {
				b.ReplaceUse(result, d.Args[0])
				return true, nil
			}
		}
	case OpXor, OpModU, OpRemS:
		if len(d.Args) == 2 && d.Args[0] == d.Args[1] {
			if result, ok := u.dfg.InstResult(i); ok {
				zero := b.BuildConstInt(ZeroInt(d.ResultType.IntWidth()))
				b.ReplaceUse(result, zero)
				return true, nil
			}
		}
	case OpMux:
		return p.simplifyUniformMux(u, b, i, d)
	}
	return false, nil
}

// simplifyDrvCond deletes drv_cond with a known-false condition and
// rewrites a known-true condition into an unconditional drv (§4.7).
func (p *InstSimplifyPass) simplifyDrvCond(u *UnitData, b *Builder, i Inst, d InstData) (bool, error) {
	cond := d.Args[3]
	c, ok := constIntOf(u, cond)
	if !ok {
		return false, nil
	}
	if c.IsZero() {
		b.RemoveInst(i)
		return true, nil
	}
	b.BuildDrv(d.Args[0], d.Args[1], d.Args[2])
	b.RemoveInst(i)
	return true, nil
}

// simplifyUniformMux replaces mux(array, sel) with the shared element
// when every element of array is the same Value (§4.7).
func (p *InstSimplifyPass) simplifyUniformMux(u *UnitData, b *Builder, i Inst, d InstData) (bool, error) {
	array := d.Args[0]
	vd := u.dfg.ValueData(array)
	if vd.Kind != ValueInst {
		return false, nil
	}
	ad := u.dfg.InstData(vd.Inst)
	var elem Value
	switch ad.Opcode {
	case OpArrayUniform:
		elem = ad.Args[0]
	case OpArray:
		if len(ad.Args) == 0 {
			return false, nil
		}
		elem = ad.Args[0]
		for _, a := range ad.Args[1:] {
			if a != elem {
				return false, nil
			}
		}
	default:
		return false, nil
	}
	if result, ok := u.dfg.InstResult(i); ok {
		b.ReplaceUse(result, elem)
		return true, nil
	}
	return false, nil
}
