package ir

// DesequentializationPass infers explicit reg instructions from process
// patterns that implement flip-flop/latch behavior (§4.15). Proceeds
// only when the TRG has exactly two single-block regions (tr0 entry,
// tr1 non-entry) with tr0's tail a wait collecting the triggering
// signals, canonicalizes every drive's condition into DNF over the
// literal set {signal sampled in trX} ∪ {constants} ∪ {opaque}, and
// classifies each clause as an edge trigger, a level condition, or pure
// level. If any drive in the process fails to classify, the whole
// transformation is abandoned and the process is left unchanged.
//
// Grounded on the spec's own worked example (§8 E3); nothing in the
// retrieved pack infers hardware registers from dataflow (the domain is
// unique to this spec), so the DNF engine and classifier below are new
// code, structured as a self-contained analysis object in the style of
// analysis_trg.go.
type DesequentializationPass struct{}

func (p *DesequentializationPass) Name() string { return "desequentialization" }

func (p *DesequentializationPass) RunOnModule(ctx *PassContext, m *Module) (bool, error) {
	return RunModuleParallel(ctx, p, m)
}

func (p *DesequentializationPass) RunOnUnit(ctx *PassContext, id UnitId, u *UnitData) (bool, error) {
	if u.Kind != ProcessKind {
		return false, nil
	}
	tpreds := ComputeTemporalPredecessors(u)
	trg := ComputeTemporalRegionGraph(u, tpreds)
	if len(trg.Regions()) != 2 {
		return false, nil
	}

	entry, ok := u.EntryBlock()
	if !ok {
		return false, nil
	}
	tr0, ok := trg.RegionOf(entry)
	if !ok || len(tr0.Blocks) != 1 {
		return false, nil
	}
	var tr1 *TemporalRegion
	for _, r := range trg.Regions() {
		if r.ID != tr0.ID {
			tr1 = r
		}
	}
	if tr1 == nil || len(tr1.Blocks) != 1 {
		return false, nil
	}

	tr0Block := tr0.Blocks[0]
	tr1Block := tr1.Blocks[0]
	tailTerm, ok := u.Terminator(tr0Block)
	if !ok {
		return false, nil
	}
	td := u.dfg.InstData(tailTerm)
	if td.Opcode != OpWait {
		return false, nil
	}

	engine := &deseqEngine{u: u, ctx: ctx, tr0: tr0Block, tr1: tr1Block, maxClauses: ctxCap(ctx)}

	var drives []Inst
	for _, i := range u.layout.Insts(tr1Block) {
		d := u.dfg.InstData(i)
		if d.Opcode == OpDrv || d.Opcode == OpDrvCond {
			drives = append(drives, i)
		}
	}
	if len(drives) == 0 {
		return false, nil
	}

	results := make([]*regPlan, 0, len(drives))
	for _, i := range drives {
		plan, ok := engine.classifyDrive(i)
		if !ok {
			return false, nil // any unclassified drive aborts the whole migration
		}
		results = append(results, plan)
	}

	// Commit: switch kind to entity, replace the wait with halt, drop
	// the drv/drv_cond instructions, and emit one reg+drv pair per plan.
	b := NewBuilder(u)
	for _, plan := range results {
		reg := materializeReg(u, plan)
		b.SetInsertPoint(AppendTo(tr1Block))
		b.BuildDrv(plan.signal, reg, plan.delay)
	}
	for _, i := range drives {
		b.RemoveInst(i)
	}
	b.RemoveInst(tailTerm)
	b.SetInsertPoint(AppendTo(tr0Block))
	b.BuildHalt()

	// Merge tr1's instructions into tr0 (now the entity's sole block) and
	// drop tr1.
	tr0Term, _ := u.Terminator(tr0Block)
	for _, i := range append([]Inst(nil), u.layout.Insts(tr1Block)...) {
		u.layout.RemoveInst(i)
		b.SetInsertPoint(Before(tr0Term))
		b.place(i)
	}
	b.RemoveBlock(tr1Block)
	u.Kind = EntityKind

	return true, nil
}

func ctxCap(ctx *PassContext) int {
	if ctx != nil && ctx.MaxDNFClauses > 0 {
		return ctx.MaxDNFClauses
	}
	return 256
}

// materializeReg builds a Reg instruction from a classified plan,
// defaulting the initial value to a zero constant since the spec leaves
// reset/power-up state outside the desequentialization contract.
func materializeReg(u *UnitData, plan *regPlan) Value {
	b := NewBuilder(u)
	b.SetInsertPoint(AppendTo(plan.block))
	init := b.BuildConstInt(ZeroInt(widthOrOne(plan.ty)))
	return b.BuildReg(init, plan.triggers, plan.ty)
}

type regPlan struct {
	signal   Value
	delay    Value
	ty       *Type
	block    Block
	triggers []RegTrigger
}

// deseqLiteral is a DNF atom: a Boolean-typed Value together with the region
// it was sampled in (needed by the edge-trigger classifier) and its
// polarity within the clause.
type deseqLiteral struct {
	value    Value
	region   int
	polarity bool
	opaque   bool
}

type deseqEngine struct {
	u          *UnitData
	ctx        *PassContext
	tr0, tr1   Block
	maxClauses int
}

func (e *deseqEngine) regionOf(v Value) int {
	vd := e.u.dfg.ValueData(v)
	if vd.Kind != ValueInst {
		return -1
	}
	blk, ok := e.u.layout.InstBlock(vd.Inst)
	if !ok {
		return -1
	}
	if blk == e.tr0 {
		return 0
	}
	if blk == e.tr1 {
		return 1
	}
	return -1
}

// dnf returns the disjunctive normal form of cond as a slice of clauses,
// each a slice of literals, or false if the expansion aborts (cap
// exceeded or an unrecognized opaque literal appears more than once in a
// conjunction with itself at opposing polarity is tolerated by the
// caller's classifier, not here).
func (e *deseqEngine) dnf(cond Value) ([][]deseqLiteral, bool) {
	if !cond.IsValid() {
		return nil, false
	}
	if c, ok := constIntOf(e.u, cond); ok {
		if c.IsZero() {
			return nil, true // false: empty disjunction
		}
		return [][]deseqLiteral{{}}, true // true: single empty clause
	}
	vd := e.u.dfg.ValueData(cond)
	if vd.Kind != ValueInst {
		return e.opaqueClause(cond), true
	}
	d := e.u.dfg.InstData(vd.Inst)
	switch d.Opcode {
	case OpNot:
		inner, ok := e.dnf(d.Args[0])
		if !ok {
			return nil, false
		}
		return e.negate(inner)
	case OpAnd:
		left, ok1 := e.dnf(d.Args[0])
		right, ok2 := e.dnf(d.Args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		return e.conjoin(left, right)
	case OpOr:
		left, ok1 := e.dnf(d.Args[0])
		right, ok2 := e.dnf(d.Args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		out := append(left, right...)
		return out, len(out) <= e.maxClauses
	case OpXor, OpNeq:
		return e.expandXor(d.Args[0], d.Args[1])
	case OpEq:
		x, ok1 := e.dnf(d.Args[0])
		y, ok2 := e.dnf(d.Args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		notY, ok := e.negate(y)
		if !ok {
			return nil, false
		}
		notX, ok := e.negate(x)
		if !ok {
			return nil, false
		}
		a, ok := e.conjoin(x, y)
		if !ok {
			return nil, false
		}
		b, ok := e.conjoin(notX, notY)
		if !ok {
			return nil, false
		}
		out := append(a, b...)
		return out, len(out) <= e.maxClauses
	case OpPrb:
		region := e.regionOf(cond)
		return [][]deseqLiteral{{{value: cond, region: region, polarity: true}}}, true
	default:
		return e.opaqueClause(cond), true
	}
}

func (e *deseqEngine) opaqueClause(v Value) [][]deseqLiteral {
	return [][]deseqLiteral{{{value: v, polarity: true, opaque: true}}}
}

func (e *deseqEngine) expandXor(x, y Value) ([][]deseqLiteral, bool) {
	dx, ok1 := e.dnf(x)
	dy, ok2 := e.dnf(y)
	if !ok1 || !ok2 {
		return nil, false
	}
	notY, ok := e.negate(dy)
	if !ok {
		return nil, false
	}
	notX, ok := e.negate(dx)
	if !ok {
		return nil, false
	}
	a, ok := e.conjoin(dx, notY)
	if !ok {
		return nil, false
	}
	b, ok := e.conjoin(notX, dy)
	if !ok {
		return nil, false
	}
	out := append(a, b...)
	return out, len(out) <= e.maxClauses
}

func (e *deseqEngine) negate(clauses [][]deseqLiteral) ([][]deseqLiteral, bool) {
	// De Morgan over a disjunction of conjunctions: negate by building the
	// conjunction of (disjunction of negated literals) per original
	// clause, i.e. treat each clause as a separate factor and distribute.
	result := [][]deseqLiteral{{}}
	for _, clause := range clauses {
		var factor [][]deseqLiteral
		for _, lit := range clause {
			factor = append(factor, []deseqLiteral{{value: lit.value, region: lit.region, polarity: !lit.polarity, opaque: lit.opaque}})
		}
		next, ok := e.conjoin(result, factor)
		if !ok {
			return nil, false
		}
		result = next
	}
	return result, len(result) <= e.maxClauses
}

func (e *deseqEngine) conjoin(a, b [][]deseqLiteral) ([][]deseqLiteral, bool) {
	if len(a) == 0 {
		return a, true
	}
	if len(b) == 0 {
		return b, true
	}
	var out [][]deseqLiteral
	for _, ca := range a {
		for _, cb := range b {
			merged := append(append([]deseqLiteral(nil), ca...), cb...)
			out = append(out, merged)
			if len(out) > e.maxClauses {
				return nil, false
			}
		}
	}
	return out, true
}

// classifyDrive canonicalizes one drv/drv_cond's condition into DNF and
// classifies each clause per §4.15.
func (e *deseqEngine) classifyDrive(i Inst) (*regPlan, bool) {
	d := e.u.dfg.InstData(i)
	signal, value, delay := d.Args[0], d.Args[1], d.Args[2]

	var cond Value = NoValue
	if d.Opcode == OpDrvCond {
		cond = d.Args[3]
	}

	var clauses [][]deseqLiteral
	if !cond.IsValid() {
		clauses = [][]deseqLiteral{{}}
	} else {
		var ok bool
		clauses, ok = e.dnf(cond)
		if !ok {
			return nil, false
		}
	}
	if len(clauses) == 0 {
		return nil, false // condition is always false: nothing to latch
	}

	plan := &regPlan{signal: signal, delay: delay, ty: e.u.dfg.ValueType(value), block: e.tr1}
	for _, clause := range clauses {
		trig, ok := e.classifyClause(clause, value)
		if !ok {
			return nil, false
		}
		plan.triggers = append(plan.triggers, trig)
	}
	return plan, true
}

// classifyClause implements the edge-trigger / level-condition / pure-
// level / other-literal classification of §4.15.
func (e *deseqEngine) classifyClause(clause []deseqLiteral, data Value) (RegTrigger, bool) {
	var edgeSignal Value = NoValue
	var edgeRise bool
	edgeCount := 0
	var levelSignals []deseqLiteral

	for _, lit := range clause {
		if lit.opaque {
			return RegTrigger{}, false
		}
	}

	// Detect edge pairs: the same underlying signal sampled with opposite
	// polarity in tr0 and tr1. Literals here are prb(signal) values, so
	// group by the probed signal rather than the literal Value itself.
	probed := map[Value][]deseqLiteral{}
	for _, lit := range clause {
		sig := e.probedSignal(lit.value)
		probed[sig] = append(probed[sig], lit)
	}

	for sig, lits := range probed {
		var tr0Lit, tr1Lit *deseqLiteral
		for idx := range lits {
			l := &lits[idx]
			if l.region == 0 {
				tr0Lit = l
			} else if l.region == 1 {
				tr1Lit = l
			}
		}
		if tr0Lit != nil && tr1Lit != nil && tr0Lit.polarity == !tr1Lit.polarity {
			edgeCount++
			edgeSignal = sig
			edgeRise = !tr0Lit.polarity && tr1Lit.polarity
			continue
		}
		for idx := range lits {
			l := lits[idx]
			if l.region == 1 {
				levelSignals = append(levelSignals, deseqLiteral{value: sig, polarity: l.polarity})
			}
		}
	}

	if edgeCount > 1 {
		return RegTrigger{}, false
	}
	if edgeCount == 1 {
		mode := TriggerFall
		if edgeRise {
			mode = TriggerRise
		}
		gate := e.buildGate(levelSignals)
		return RegTrigger{Data: data, Mode: mode, Trigger: edgeSignal, Gate: gate}, true
	}

	if len(levelSignals) == 0 {
		return RegTrigger{}, false
	}
	gate := e.buildGate(levelSignals[1:])
	first := levelSignals[0]
	mode := TriggerHigh
	if !first.polarity {
		mode = TriggerLow
	}
	return RegTrigger{Data: data, Mode: mode, Trigger: first.value, Gate: gate}, true
}

// probedSignal returns the signal argument of a prb instruction, or the
// literal's own value if it is not a prb (treated as an opaque single-
// region signal for grouping purposes).
func (e *deseqEngine) probedSignal(v Value) Value {
	vd := e.u.dfg.ValueData(v)
	if vd.Kind != ValueInst {
		return v
	}
	d := e.u.dfg.InstData(vd.Inst)
	if d.Opcode == OpPrb {
		return d.Args[0]
	}
	return v
}

// buildGate ANDs any remaining level literals into a single gate value,
// or returns NoValue if there are none (meaning "no gate").
func (e *deseqEngine) buildGate(lits []deseqLiteral) Value {
	if len(lits) == 0 {
		return NoValue
	}
	b := NewBuilder(e.u)
	b.SetInsertPoint(AppendTo(e.tr1))
	var gate Value = NoValue
	for _, l := range lits {
		v := l.value
		if !l.polarity {
			v = b.buildUnary(OpNot, v, IntTy(1))
		}
		if !gate.IsValid() {
			gate = v
			continue
		}
		gate = b.buildBinary(OpAnd, gate, v, IntTy(1))
	}
	return gate
}
