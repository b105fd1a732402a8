package ir

// ProcessLoweringPass implements process lowering (§4.14): a process
// with exactly one basic block, a wait/wait_time/halt terminator, only
// entity-legal non-terminator instructions, and (for a wait terminator)
// every input used by the body present in the wait's sensitivity list,
// is lowered to an entity by replacing its terminator with halt and
// switching its unit kind.
//
// Grounded on the teacher's lowering passes that rewrite a Function's
// Kind in place (internal/ir/optimizations.go's tail-call and inline
// transforms reassign Function fields directly); this pass follows the
// same in-place-mutation shape.
type ProcessLoweringPass struct{}

func (p *ProcessLoweringPass) Name() string { return "process-lowering" }

func (p *ProcessLoweringPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *ProcessLoweringPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	if u.Kind != ProcessKind {
		return false, nil
	}
	blocks := u.layout.Blocks()
	if len(blocks) != 1 {
		return false, nil
	}
	blk := blocks[0]
	term, ok := u.Terminator(blk)
	if !ok {
		return false, nil
	}
	td := u.dfg.InstData(term)
	if td.Opcode != OpWait && td.Opcode != OpWaitTime && td.Opcode != OpHalt {
		return false, nil
	}

	for _, i := range u.layout.Insts(blk) {
		if i == term {
			continue
		}
		op := u.dfg.InstData(i).Opcode
		if !op.ValidIn(EntityKind) {
			return false, nil
		}
	}

	if td.Opcode == OpWait || td.Opcode == OpWaitTime {
		inputs := map[Value]bool{}
		for _, in := range u.Signature.Inputs {
			if v, ok := u.dfg.ArgValue(in.Arg); ok {
				inputs[v] = true
			}
		}
		sensed := map[Value]bool{}
		signals := td.Args
		if td.Opcode == OpWaitTime {
			signals = td.Args[1:]
		}
		for _, s := range signals {
			sensed[s] = true
		}
		used := map[Value]bool{}
		for _, i := range u.layout.Insts(blk) {
			for _, v := range u.dfg.InstData(i).Uses() {
				used[v] = true
			}
		}
		for in := range inputs {
			if used[in] && !sensed[in] {
				return false, nil
			}
		}
	}

	b := NewBuilder(u)
	b.RemoveInst(term)
	b.SetInsertPoint(AppendTo(blk))
	b.BuildHalt()
	u.Kind = EntityKind
	return true, nil
}
