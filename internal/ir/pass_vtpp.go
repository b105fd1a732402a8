package ir

// VarToPhiPass implements variable-to-phi promotion (§4.12): simulate
// var/ld/st within each block using a local "last stored value" map; for
// loads that cannot be resolved locally, recursively reconstruct from
// predecessor exit states, inserting a phi when predecessors disagree.
// After rewiring, every st to a promoted var is deleted, and so is each
// var that has no remaining uses.
//
// Grounded on the teacher's mem2reg-flavored local-variable resolution in
// internal/semantic (stack-slot tracking for locals), reimplemented here
// over the IR's var/ld/st opcodes directly since this pass runs after
// lowering rather than during semantic analysis.
type VarToPhiPass struct{}

func (p *VarToPhiPass) Name() string { return "var-to-phi" }

func (p *VarToPhiPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

type vtppState struct {
	u        *UnitData
	b        *Builder
	preds    *PredecessorTable
	exitVal  map[Block]map[Value]Value // block -> var -> value at block exit
	visiting map[Block]map[Value]bool
	vars     map[Value]*Type
}

func (p *VarToPhiPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	vars := map[Value]*Type{}
	for _, i := range u.dfg.Insts() {
		d := u.dfg.InstData(i)
		if d.Opcode == OpVar {
			if r, ok := u.dfg.InstResult(i); ok {
				vars[r] = d.ResultType.Elem()
			}
		}
	}
	if len(vars) == 0 {
		return false, nil
	}

	st := &vtppState{
		u: u, b: NewBuilder(u),
		preds:    ComputePredecessors(u),
		exitVal:  map[Block]map[Value]Value{},
		visiting: map[Block]map[Value]bool{},
		vars:     vars,
	}

	changed := false
	for _, blk := range u.layout.Blocks() {
		local := map[Value]Value{}
		for _, i := range append([]Inst(nil), u.layout.Insts(blk)...) {
			if !u.dfg.IsInst(i) {
				continue
			}
			d := u.dfg.InstData(i)
			switch d.Opcode {
			case OpSt:
				ptr, val := d.Args[0], d.Args[1]
				if _, isVar := vars[ptr]; isVar {
					local[ptr] = val
				}
			case OpLd:
				ptr := d.Args[0]
				ty, isVar := vars[ptr]
				if !isVar {
					continue
				}
				var resolved Value
				if v, ok := local[ptr]; ok {
					resolved = v
				} else {
					resolved = st.reconstruct(blk, ptr, ty)
				}
				if result, ok := u.dfg.InstResult(i); ok && resolved.IsValid() {
					st.b.ReplaceUse(result, resolved)
					changed = true
				}
			}
		}
		st.exitVal[blk] = local
	}

	// Delete every var and st now that all loads are rewired.
	for _, i := range append([]Inst(nil), u.dfg.Insts()...) {
		if !u.dfg.IsInst(i) {
			continue
		}
		d := u.dfg.InstData(i)
		if d.Opcode == OpSt {
			if _, isVar := vars[d.Args[0]]; isVar {
				st.b.RemoveInst(i)
				changed = true
			}
			continue
		}
		if d.Opcode == OpVar {
			result, ok := u.dfg.InstResult(i)
			if !ok {
				continue
			}
			if _, isVar := vars[result]; isVar && len(u.dfg.ValueUses(result)) == 0 {
				st.b.RemoveInst(i)
				changed = true
			}
		}
	}
	return changed, nil
}

// reconstruct looks up the value a var held at the entry of block, by
// recursively resolving each predecessor's exit state. Guards against
// cycles with a visitation stack that returns "no value" (NoValue) on
// recursion, per §4.12.
func (st *vtppState) reconstruct(block Block, v Value, ty *Type) Value {
	if st.visiting[block] == nil {
		st.visiting[block] = map[Value]bool{}
	}
	if st.visiting[block][v] {
		return NoValue
	}
	st.visiting[block][v] = true
	defer delete(st.visiting[block], v)

	preds := st.preds.Preds(block)
	if len(preds) == 0 {
		return st.b.BuildConstInt(ZeroInt(widthOrOne(ty)))
	}

	vals := make([]Value, 0, len(preds))
	blocks := make([]Block, 0, len(preds))
	for _, p := range preds {
		pv := Value(NoValue)
		if exit, ok := st.exitVal[p]; ok {
			if val, ok2 := exit[v]; ok2 {
				pv = val
			}
		}
		if !pv.IsValid() {
			pv = st.reconstruct(p, v, ty)
		}
		vals = append(vals, pv)
		blocks = append(blocks, p)
	}

	allSame := true
	for _, pv := range vals[1:] {
		if pv != vals[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return vals[0]
	}

	ip := AppendTo(block)
	if entry, ok := st.u.layout.FirstInst(block); ok {
		ip = Before(entry)
	}
	st.b.SetInsertPoint(ip)
	phi := st.b.BuildPhi(vals, blocks, ty)
	if exit, ok := st.exitVal[block]; ok {
		exit[v] = phi
	}
	return phi
}

func widthOrOne(ty *Type) int {
	if ty.IsInt() || ty.IsEnum() {
		return ty.IntWidth()
	}
	return 1
}
