package ir

import "strconv"

// DCEPass implements dead-code elimination and CFG pruning (§4.8): prune
// instructions whose result has no users (recursively through the dead
// producer tree), delete blocks unreachable from entry, and merge
// trivially sequential blocks using the temporal predecessor table.
//
// Grounded on the teacher's optimizeDeadCodeElimination pass
// (internal/ir/optimizations.go: a worklist over zero-use instructions),
// extended with the CFG-level reachability and block-merging steps the
// teacher never needs since it has no temporal region concept.
type DCEPass struct{}

func (p *DCEPass) Name() string { return "dce" }

func (p *DCEPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *DCEPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	changed := false
	if p.pruneDeadInsts(u, ctx) {
		changed = true
	}
	if p.pruneUnreachableBlocks(u) {
		changed = true
	}
	if p.mergeSequentialBlocks(u) {
		changed = true
	}
	if p.elideSinglePredPhis(u) {
		changed = true
	}
	return changed, nil
}

// dceMaxPruneItersKey overrides pruneDeadInsts' fixed-point loop with a cap,
// read out of PassContext.Config's free-form tuning map rather than a
// dedicated field since it exists purely to bound pathological producer
// chains during fuzzing/debugging and every other caller wants the
// unbounded default.
const dceMaxPruneItersKey = "dce.max_prune_iters"

// pruneDeadInsts removes every instruction whose result has no users,
// iterating to a fixed point so that pruning a producer can make its own
// arguments dead in turn (§4.8d). Side-effecting opcodes (no result, or
// drv/st/terminators) are never pruned.
func (p *DCEPass) pruneDeadInsts(u *UnitData, ctx *PassContext) bool {
	maxIters := -1
	if ctx != nil {
		if raw, ok := ctx.Config[dceMaxPruneItersKey]; ok {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				maxIters = n
			}
		}
	}

	changed := false
	b := NewBuilder(u)
	for iter := 0; maxIters < 0 || iter < maxIters; iter++ {
		progressed := false
		for _, i := range u.dfg.Insts() {
			d := u.dfg.InstData(i)
			if d.Opcode.IsTerminator() {
				continue
			}
			if isSideEffecting(d.Opcode) {
				continue
			}
			result, ok := u.dfg.InstResult(i)
			if !ok {
				continue
			}
			if len(u.dfg.ValueUses(result)) > 0 {
				continue
			}
			b.RemoveInst(i)
			progressed = true
			changed = true
		}
		if !progressed {
			break
		}
	}
	return changed
}

func isSideEffecting(op Opcode) bool {
	switch op {
	case OpSt, OpDrv, OpDrvCond, OpCon, OpDel, OpCall, OpInst:
		return true
	default:
		return false
	}
}

// pruneUnreachableBlocks deletes every block not reachable from entry
// (§4.8e).
func (p *DCEPass) pruneUnreachableBlocks(u *UnitData) bool {
	entry, ok := u.EntryBlock()
	if !ok {
		return false
	}
	preds := ComputePredecessors(u)
	reachable := map[Block]bool{entry: true}
	queue := []Block{entry}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range preds.Succs(b) {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}
	changed := false
	bld := NewBuilder(u)
	for _, b := range u.layout.Blocks() {
		if !reachable[b] {
			bld.RemoveBlock(b)
			changed = true
		}
	}
	return changed
}

// mergeSequentialBlocks merges a block into its sole predecessor when
// they form a 1:1 temporal edge: the predecessor's jump is deleted and
// every instruction of the block, phis included, is appended to the
// predecessor in order (§4.8, final sentence). Any phi moved this way is
// left for elideSinglePredPhis.
func (p *DCEPass) mergeSequentialBlocks(u *UnitData) bool {
	changed := false
	for {
		preds := ComputeTemporalPredecessors(u)
		progressed := false
		for _, b := range u.layout.Blocks() {
			if !u.cfg.IsBlock(b) {
				continue
			}
			bPreds := preds.Preds(b)
			if len(bPreds) != 1 {
				continue
			}
			pred := bPreds[0]
			if len(preds.Succs(pred)) != 1 {
				continue
			}
			if entry, ok := u.EntryBlock(); ok && b == entry {
				continue
			}
			term, ok := u.Terminator(pred)
			if !ok || u.dfg.InstData(term).Opcode != OpBr {
				continue
			}
			p.mergeInto(u, pred, b, term)
			progressed = true
			changed = true
			break
		}
		if !progressed {
			break
		}
	}
	return changed
}

func (p *DCEPass) mergeInto(u *UnitData, pred, b Block, jump Inst) {
	bld := NewBuilder(u)
	bld.RemoveInst(jump)
	bld.SetInsertPoint(AppendTo(pred))
	for _, i := range append([]Inst(nil), u.layout.Insts(b)...) {
		u.layout.RemoveInst(i)
		bld.place(i)
	}
	bld.RemoveBlock(b)
}

// elideSinglePredPhis replaces any phi with exactly one incoming value
// with that value directly (§4.8 final clause).
func (p *DCEPass) elideSinglePredPhis(u *UnitData) bool {
	changed := false
	bld := NewBuilder(u)
	for _, i := range u.dfg.Insts() {
		d := u.dfg.InstData(i)
		if d.Format != FmtPhi {
			continue
		}
		if len(d.Args) != 1 {
			continue
		}
		if result, ok := u.dfg.InstResult(i); ok {
			bld.ReplaceUse(result, d.Args[0])
			bld.RemoveInst(i)
			changed = true
		}
	}
	return changed
}
