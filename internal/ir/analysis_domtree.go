package ir

// DominatorTree implements Cooper-Harvey-Kennedy's iterative dominance
// algorithm over reverse post-order (§4.4). Grounded on the spec's
// four-step description; no example repo carries a dominator-tree
// implementation, so this is new code written in the teacher's analysis
// style (a single exported Compute constructor plus lifted query
// methods) as seen in its internal/ir/optimizations.go helper functions.
type DominatorTree struct {
	unit *UnitData

	order   []Block   // reverse post-order
	rpoNum  map[Block]int
	idom    map[Block]Block
	hasIdom map[Block]bool
	roots   map[Block]bool
}

// ComputeDominatorTree builds the dominator tree over every block
// reachable from entry, plus any predecessor-less block (treated as an
// additional root, per step 1 of §4.4).
func ComputeDominatorTree(u *UnitData, preds *PredecessorTable) *DominatorTree {
	dt := &DominatorTree{
		unit:    u,
		rpoNum:  make(map[Block]int),
		idom:    make(map[Block]Block),
		hasIdom: make(map[Block]bool),
		roots:   make(map[Block]bool),
	}

	entry, hasEntry := u.EntryBlock()
	visited := make(map[Block]bool)
	var postOrder []Block

	var visit func(b Block)
	visit = func(b Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range preds.Succs(b) {
			visit(s)
		}
		postOrder = append(postOrder, b)
	}
	if hasEntry {
		dt.roots[entry] = true
		visit(entry)
	}
	for _, b := range u.layout.Blocks() {
		if len(preds.Preds(b)) == 0 && !visited[b] {
			dt.roots[b] = true
			visit(b)
		}
	}

	dt.order = make([]Block, len(postOrder))
	for i, b := range postOrder {
		dt.order[len(postOrder)-1-i] = b
	}
	for i, b := range dt.order {
		dt.rpoNum[b] = i
	}

	for b := range dt.roots {
		dt.idom[b] = b
		dt.hasIdom[b] = true
	}

	changed := true
	for changed {
		changed = false
		for _, b := range dt.order {
			if dt.roots[b] {
				continue
			}
			var newIdom Block
			set := false
			for _, p := range preds.Preds(b) {
				if !dt.hasIdom[p] {
					continue
				}
				if !set {
					newIdom = p
					set = true
					continue
				}
				newIdom = dt.intersect(newIdom, p)
			}
			if !set {
				continue
			}
			if !dt.hasIdom[b] || dt.idom[b] != newIdom {
				dt.idom[b] = newIdom
				dt.hasIdom[b] = true
				changed = true
			}
		}
	}
	return dt
}

// intersect finds the lowest common ancestor of a and b in the partially
// built dominator tree via the two-finger walk on reverse-post-order
// indices.
func (dt *DominatorTree) intersect(a, b Block) Block {
	for a != b {
		for dt.rpoNum[a] > dt.rpoNum[b] {
			a = dt.idom[a]
		}
		for dt.rpoNum[b] > dt.rpoNum[a] {
			b = dt.idom[b]
		}
	}
	return a
}

// IDom returns the immediate dominator of b, or (0, false) if b is
// unreachable or a root.
func (dt *DominatorTree) IDom(b Block) (Block, bool) {
	if dt.roots[b] || !dt.hasIdom[b] {
		return 0, false
	}
	return dt.idom[b], true
}

// Dominates reports whether a dominates b (every root dominates itself
// and nothing else unless reached through the CFG).
func (dt *DominatorTree) Dominates(a, b Block) bool {
	if !dt.hasIdom[b] {
		return false
	}
	for cur := b; ; {
		if cur == a {
			return true
		}
		if dt.roots[cur] {
			return cur == a
		}
		cur = dt.idom[cur]
	}
}

// StrictlyDominates reports a dominates b and a != b.
func (dt *DominatorTree) StrictlyDominates(a, b Block) bool {
	return a != b && dt.Dominates(a, b)
}

// LCA returns the lowest common dominator block of a and b.
func (dt *DominatorTree) LCA(a, b Block) (Block, bool) {
	if !dt.hasIdom[a] || !dt.hasIdom[b] {
		return 0, false
	}
	return dt.intersect(a, b), true
}

// InstDominates reports whether instruction-defining point a dominates
// use point b: if they are in the same block, a must appear no later
// than b in layout order (an instruction dominates itself); otherwise
// a's block must strictly dominate b's block.
func (dt *DominatorTree) InstDominates(u *UnitData, a, b Inst) bool {
	ba, okA := u.layout.InstBlock(a)
	bb, okB := u.layout.InstBlock(b)
	if !okA || !okB {
		return false
	}
	if ba == bb {
		if a == b {
			return true
		}
		for cur, ok := u.layout.NextInst(a); ok; cur, ok = u.layout.NextInst(cur) {
			if cur == b {
				return true
			}
		}
		return false
	}
	return dt.Dominates(ba, bb)
}

// ValueDominatesUse reports whether the defining point of v dominates its
// use at instruction useInst. For a phi use, dominance is checked against
// the operand's incoming block (its last instruction) rather than the phi
// instruction itself, per the spec's special rule (§4.4).
func (dt *DominatorTree) ValueDominatesUse(u *UnitData, v Value, useInst Inst, incomingBlock Block, isPhiOperand bool) bool {
	vd := u.dfg.ValueData(v)
	var defBlock Block
	var defInst Inst
	switch vd.Kind {
	case ValueArg:
		// Arguments are defined at the (implicit) top of the entry block.
		entry, ok := u.EntryBlock()
		if !ok {
			return false
		}
		return dt.Dominates(entry, blockOf(u, useInst, incomingBlock, isPhiOperand))
	case ValueInst:
		defInst = vd.Inst
		var ok bool
		defBlock, ok = u.layout.InstBlock(defInst)
		if !ok {
			return false
		}
	default:
		return false
	}

	targetBlock := blockOf(u, useInst, incomingBlock, isPhiOperand)
	if isPhiOperand {
		if defBlock == targetBlock {
			return true
		}
		return dt.Dominates(defBlock, targetBlock)
	}
	return dt.InstDominates(u, defInst, useInst)
}

func blockOf(u *UnitData, useInst Inst, incomingBlock Block, isPhiOperand bool) Block {
	if isPhiOperand {
		return incomingBlock
	}
	b, _ := u.layout.InstBlock(useInst)
	return b
}
