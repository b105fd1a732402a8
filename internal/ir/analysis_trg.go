package ir

// TemporalRegion is one maximal set of blocks reachable from a head
// without crossing a temporal transition (wait/wait_time/halt), per
// §4.4.
type TemporalRegion struct {
	ID        int
	Blocks    []Block
	Heads     []Block
	Tails     []Block
	HeadInsts []Inst
	TailInsts []Inst

	// TightHead is true if no intra-region edge enters a head block from
	// within the same region; TightTail is true if no intra-region edge
	// leaves a tail block to within the same region.
	TightHead bool
	TightTail bool
}

// TemporalRegionGraph partitions a unit's blocks into temporal regions
// (§4.4). Grounded on the spec's three-step BFS-with-promotion algorithm;
// no example repo has an analog, since none model simulation time, so
// this is new code in the style of analysis_domtree.go.
type TemporalRegionGraph struct {
	regions   []*TemporalRegion
	blockToID map[Block]int
}

func (g *TemporalRegionGraph) Regions() []*TemporalRegion { return g.regions }

func (g *TemporalRegionGraph) RegionOf(b Block) (*TemporalRegion, bool) {
	id, ok := g.blockToID[b]
	if !ok {
		return nil, false
	}
	return g.regions[id], true
}

// ComputeTemporalRegionGraph builds the TRG for a process unit (entities
// have no temporal transitions and form a single trivial region).
func ComputeTemporalRegionGraph(u *UnitData, preds *PredecessorTable) *TemporalRegionGraph {
	g := &TemporalRegionGraph{blockToID: make(map[Block]int)}

	heads := map[Block]bool{}
	if entry, ok := u.EntryBlock(); ok {
		heads[entry] = true
	}
	for _, b := range u.layout.Blocks() {
		term, ok := u.Terminator(b)
		if !ok {
			continue
		}
		d := u.dfg.InstData(term)
		if d.Opcode == OpWait || d.Opcode == OpWaitTime {
			for _, target := range d.Blocks {
				heads[target] = true
			}
		}
	}

	headList := make([]Block, 0, len(heads))
	for h := range heads {
		headList = append(headList, h)
	}

	for _, h := range headList {
		if _, already := g.blockToID[h]; already {
			continue
		}
		id := len(g.regions)
		region := &TemporalRegion{ID: id, Heads: []Block{h}}
		g.regions = append(g.regions, region)
		g.bfsRegion(u, h, id, heads)
	}

	for id, region := range g.regions {
		for b, rid := range g.blockToID {
			if rid == id {
				region.Blocks = append(region.Blocks, b)
			}
		}
		region.TightHead = true
		region.TightTail = true
		for _, b := range region.Blocks {
			term, ok := u.Terminator(b)
			if !ok {
				continue
			}
			d := u.dfg.InstData(term)
			if isTemporalTerminator(d.Opcode) {
				region.Tails = append(region.Tails, b)
				region.TailInsts = append(region.TailInsts, term)
			}
			for _, p := range preds.Preds(b) {
				if g.blockToID[p] == id && heads[b] {
					region.TightHead = false
				}
			}
			for _, s := range successorsOf(u, b) {
				if heads[s] && g.blockToID[s] != id {
					continue
				}
				if isTemporalTerminator(d.Opcode) {
					continue
				}
				if g.blockToID[s] == id && containsBlock(region.Tails, b) {
					region.TightTail = false
				}
			}
		}
		for _, h := range region.Heads {
			for _, p := range preds.Preds(h) {
				pTerm, ok := u.Terminator(p)
				if !ok {
					continue
				}
				region.HeadInsts = append(region.HeadInsts, pTerm)
			}
		}
	}

	return g
}

func containsBlock(list []Block, b Block) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// bfsRegion propagates region id over successor edges that do not cross a
// temporal transition. A block reachable from two different regions is
// promoted to a new region head, per step 2 of §4.4. Promotion re-runs
// the promoted block's downstream closure via assignRegion rather than
// retagging only the block itself: every completed prior walk already
// assigned the merged suffix to its own (now stale) region, and that
// assignment has to be reclaimed by the new region or it mis-attributes
// the shared tail to whichever head happened to run its BFS first.
func (g *TemporalRegionGraph) bfsRegion(u *UnitData, start Block, id int, heads map[Block]bool) {
	queue := []Block{start}
	g.blockToID[start] = id
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		term, ok := u.Terminator(b)
		if !ok {
			continue
		}
		d := u.dfg.InstData(term)
		if isTemporalTerminator(d.Opcode) {
			continue
		}
		for _, s := range successorsOf(u, b) {
			if heads[s] && s != start {
				continue
			}
			if existing, seen := g.blockToID[s]; seen {
				if existing == id {
					continue
				}
				// Promote: reachable from two regions, make it its own
				// head region and reclaim its downstream closure.
				newID := len(g.regions)
				g.regions = append(g.regions, &TemporalRegion{ID: newID, Heads: []Block{s}})
				g.assignRegion(u, s, newID, heads)
				continue
			}
			g.blockToID[s] = id
			queue = append(queue, s)
		}
	}
}

// assignRegion (re)tags start and every block reachable from it without
// crossing a temporal transition or another head as id, overwriting
// whatever region a prior walk left there. Used both as bfsRegion's
// normal propagation step and, via promotion, to correct a region's
// downstream closure after the fact.
func (g *TemporalRegionGraph) assignRegion(u *UnitData, start Block, id int, heads map[Block]bool) {
	queue := []Block{start}
	g.blockToID[start] = id
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		term, ok := u.Terminator(b)
		if !ok {
			continue
		}
		d := u.dfg.InstData(term)
		if isTemporalTerminator(d.Opcode) {
			continue
		}
		for _, s := range successorsOf(u, b) {
			if heads[s] && s != start {
				continue
			}
			if g.blockToID[s] == id {
				continue
			}
			g.blockToID[s] = id
			queue = append(queue, s)
		}
	}
}
