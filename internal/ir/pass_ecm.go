package ir

// EarlyCodeMotionPass implements early code motion (§4.11): sink every
// non-memory, non-signal, non-phi, non-terminator instruction to the
// earliest block dominated by all of its argument-defining blocks,
// preferring the block with the lowest topological distance from entry.
// Constants (no arguments) sink to the entry block.
//
// Grounded on the teacher's block-ordering pass inside
// internal/ir/optimizations.go (topological numbering of blocks for
// printing), reused here to drive motion rather than just display order.
type EarlyCodeMotionPass struct{}

func (p *EarlyCodeMotionPass) Name() string { return "early-code-motion" }

func (p *EarlyCodeMotionPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *EarlyCodeMotionPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	entry, ok := u.EntryBlock()
	if !ok {
		return false, nil
	}
	preds := ComputePredecessors(u)
	dt := ComputeDominatorTree(u, preds)
	order := topoOrder(u, preds, entry)

	changed := false
	b := NewBuilder(u)
	for _, i := range append([]Inst(nil), u.dfg.Insts()...) {
		if !u.dfg.IsInst(i) {
			continue
		}
		d := u.dfg.InstData(i)
		if !movable(d) {
			continue
		}
		curBlock, ok := u.layout.InstBlock(i)
		if !ok {
			continue
		}

		target := entry
		if len(d.Args) > 0 {
			found := false
			for _, a := range d.Args {
				if !a.IsValid() {
					continue
				}
				vd := u.dfg.ValueData(a)
				var defBlock Block
				switch vd.Kind {
				case ValueArg:
					defBlock = entry
				case ValueInst:
					db, ok := u.layout.InstBlock(vd.Inst)
					if !ok {
						continue
					}
					defBlock = db
				default:
					continue
				}
				if !found {
					target = defBlock
					found = true
					continue
				}
				target = lowestDominatedByBoth(dt, order, target, defBlock)
			}
			if !found {
				target = entry
			}
		}

		if target == curBlock {
			continue
		}
		term, ok := u.Terminator(target)
		if !ok {
			continue
		}
		if term == i {
			continue
		}
		u.layout.RemoveInst(i)
		b.SetInsertPoint(Before(term))
		b.place(i)
		changed = true
	}
	return changed, nil
}

// movable reports whether an instruction is eligible for early code
// motion: not memory, not a signal op, not phi, not a terminator.
func movable(d InstData) bool {
	if d.Opcode.IsTerminator() || d.Format == FmtPhi {
		return false
	}
	switch d.Opcode {
	case OpLd, OpSt, OpVar, OpSig, OpPrb, OpDrv, OpDrvCond, OpCon, OpDel, OpReg, OpCall, OpInst:
		return false
	}
	return d.ResultType != nil
}

// topoOrder assigns each reachable block a rank equal to its topological
// distance from entry, used to prefer the "lowest number" candidate block
// when several dominate equally (§4.11).
func topoOrder(u *UnitData, preds *PredecessorTable, entry Block) map[Block]int {
	rank := map[Block]int{entry: 0}
	queue := []Block{entry}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range preds.Succs(b) {
			if _, seen := rank[s]; !seen {
				rank[s] = rank[b] + 1
				queue = append(queue, s)
			}
		}
	}
	return rank
}

// lowestDominatedByBoth returns whichever of a, b is dominated by the
// other (i.e. the deeper of the two in the dominator tree), since an
// instruction's earliest legal home must be dominated by every
// argument-defining block simultaneously. When neither dominates the
// other it returns their lowest common ancestor in the dominator tree,
// and only if that is unavailable falls back to whichever of a, b has
// the lower topological rank.
func lowestDominatedByBoth(dt *DominatorTree, order map[Block]int, a, b Block) Block {
	if dt.Dominates(a, b) {
		return b
	}
	if dt.Dominates(b, a) {
		return a
	}
	if lca, ok := dt.LCA(a, b); ok {
		return lca
	}
	if order[a] <= order[b] {
		return a
	}
	return b
}
