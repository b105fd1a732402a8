package ir

// GCSEPass implements global common-subexpression elimination (§4.10):
// group instructions by exact InstData equality, and for each group
// either rewrite the dominated instance into the dominator or hoist both
// into their lowest common dominator block.
//
// Grounded on the teacher's optimizeCommonSubexpressionElimination pass
// (internal/ir/optimizations.go: a single-block value-numbering map),
// generalized to whole-unit scope with real dominance checks and the
// temporal-region restriction on `prb` the teacher's IR has no analog
// for (it never models signals).
type GCSEPass struct{}

func (p *GCSEPass) Name() string { return "gcse" }

func (p *GCSEPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *GCSEPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	preds := ComputePredecessors(u)
	dt := ComputeDominatorTree(u, preds)
	tpreds := ComputeTemporalPredecessors(u)
	trg := ComputeTemporalRegionGraph(u, tpreds)

	grouped := make(map[string][]Inst)
	for _, i := range u.dfg.Insts() {
		d := u.dfg.InstData(i)
		if !eligibleForGCSE(d) {
			continue
		}
		key := instKey(d)
		grouped[key] = append(grouped[key], i)
	}

	changed := false
	b := NewBuilder(u)
	for _, insts := range grouped {
		if len(insts) < 2 {
			continue
		}
		// Process in layout order so repeated passes converge quickly.
		order := orderByLayout(u, insts)
		for a := 0; a < len(order); a++ {
			ia := order[a]
			if !u.dfg.IsInst(ia) {
				continue
			}
			for bIdx := a + 1; bIdx < len(order); bIdx++ {
				ib := order[bIdx]
				if !u.dfg.IsInst(ib) {
					continue
				}
				d := u.dfg.InstData(ia)
				if d.Opcode == OpPrb {
					ra, inA := trg.RegionOf(blockOfInst(u, ia))
					rb, inB := trg.RegionOf(blockOfInst(u, ib))
					if !inA || !inB || ra.ID != rb.ID {
						continue
					}
				}
				if p.tryUnify(u, b, dt, ia, ib) {
					changed = true
				}
			}
		}
	}
	return changed, nil
}

func blockOfInst(u *UnitData, i Inst) Block {
	blk, _ := u.layout.InstBlock(i)
	return blk
}

func orderByLayout(u *UnitData, insts []Inst) []Inst {
	pos := map[Inst]int{}
	n := 0
	for _, blk := range u.layout.Blocks() {
		for _, i := range u.layout.Insts(blk) {
			pos[i] = n
			n++
		}
	}
	out := append([]Inst(nil), insts...)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && pos[out[j-1]] > pos[out[j]] {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

func eligibleForGCSE(d InstData) bool {
	switch d.Opcode {
	case OpLd, OpVar, OpSig:
		return false
	}
	return d.ResultType != nil
}

// tryUnify rewrites the dominated instruction's result into the
// dominator's, or hoists both to their lowest common dominator block if
// neither dominates the other (§4.10).
func (p *GCSEPass) tryUnify(u *UnitData, b *Builder, dt *DominatorTree, ia, ib Inst) bool {
	ba, _ := u.layout.InstBlock(ia)
	bb, _ := u.layout.InstBlock(ib)

	ra, okA := u.dfg.InstResult(ia)
	rb, okB := u.dfg.InstResult(ib)
	if !okA || !okB {
		return false
	}

	if dt.InstDominates(u, ia, ib) {
		b.ReplaceUse(rb, ra)
		b.RemoveInst(ib)
		return true
	}
	if dt.InstDominates(u, ib, ia) {
		b.ReplaceUse(ra, rb)
		b.RemoveInst(ia)
		return true
	}

	lca, ok := dt.LCA(ba, bb)
	if !ok || (lca == ba) || (lca == bb) {
		return false
	}
	term, ok := u.Terminator(lca)
	if !ok {
		return false
	}
	b.SetInsertPoint(Before(term))
	u.layout.RemoveInst(ia)
	b.place(ia)
	b.ReplaceUse(rb, ra)
	b.RemoveInst(ib)
	return true
}

// instKey produces a structural equality key over the fields that make
// two instructions truly interchangeable: opcode, operands, immediates,
// and result type; source-location and name metadata are excluded.
func instKey(d InstData) string {
	s := d.Opcode.String() + "|"
	for _, v := range d.Args {
		s += v.String() + ","
	}
	s += "|"
	for _, bl := range d.Blocks {
		s += bl.String() + ","
	}
	s += "|"
	if d.Opcode == OpConstInt {
		s += d.ImmInt.Unsigned().String() + "#" + itoa(d.ImmInt.Width())
	}
	if d.ResultType != nil {
		s += "|" + d.ResultType.key()
	}
	s += "|" + itoa(d.Imms[0]) + "," + itoa(d.Imms[1])
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
