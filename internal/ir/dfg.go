package ir

// ValueKind discriminates ValueData's variant.
type ValueKind int

const (
	ValueInvalid ValueKind = iota
	ValueInst
	ValueArg
	ValuePlaceholder
)

// ValueData is the tagged record behind a Value id: Invalid (the
// Value::invalid() sentinel, legal only in specific optional operand
// slots), Inst{ty, inst} (the result of an instruction), Arg{ty, arg} (a
// formal argument), or Placeholder{ty} (a not-yet-resolved phi operand
// under construction).
type ValueData struct {
	Kind ValueKind
	Type *Type
	Inst Inst
	Arg  Arg
}

// ExtUnitData names an external unit reference interned into a DFG: the
// first build_call/build_inst naming a given (name, signature) allocates
// one ExtUnit id, reused by subsequent references.
type ExtUnitData struct {
	Name      string
	Signature *Signature
}

// DFG (data-flow graph) owns every instruction and value of one unit,
// plus the bidirectional use indices the spec requires (§3): Value->set
// of using Inst, and Block->set of using Inst. Grounded on the teacher's
// Function-local instruction/value storage (internal/ir/ir.go) but
// restructured around dense primary tables (table.go) and explicit use
// indices, which the teacher does not maintain because it never runs
// use-def-sensitive passes over its own IR.
type DFG struct {
	insts  primaryTable[Inst, InstData]
	values primaryTable[Value, ValueData]

	// results maps an instruction to its produced value, present only
	// for instructions whose opcode has a result.
	results secondaryTable[Inst, Value]

	args secondaryTable[Arg, Value]

	extUnits primaryTable[ExtUnit, ExtUnitData]
	// extUnitIndex deduplicates (name, signature) -> ExtUnit.
	extUnitIndex map[string]ExtUnit

	names         secondaryTable[Value, string]
	anonHints     secondaryTable[Value, string]
	blockNames    secondaryTable[Block, string]
	blockAnonHint secondaryTable[Block, string]

	locations secondaryTable[Inst, int]

	valueUses map[Value]map[Inst]struct{}
	blockUses map[Block]map[Inst]struct{}
}

func newDFG() *DFG {
	return &DFG{
		extUnitIndex: make(map[string]ExtUnit),
		valueUses:    make(map[Value]map[Inst]struct{}),
		blockUses:    make(map[Block]map[Inst]struct{}),
	}
}

func (f *DFG) InstData(i Inst) InstData { return f.insts.get(i) }
func (f *DFG) SetInstData(i Inst, d InstData) { f.insts.set(i, d) }
func (f *DFG) IsInst(i Inst) bool       { return f.insts.isUsed(i) }
func (f *DFG) Insts() []Inst            { return f.insts.ids() }

func (f *DFG) ValueData(v Value) ValueData { return f.values.get(v) }
func (f *DFG) IsValue(v Value) bool        { return v.IsValid() && f.values.isUsed(v) }
func (f *DFG) Values() []Value             { return f.values.ids() }

// InstResult returns the Value produced by i, or (NoValue, false) if the
// opcode has no result.
func (f *DFG) InstResult(i Inst) (Value, bool) {
	v, ok := f.results.get(i)
	return v, ok
}

func (f *DFG) ValueType(v Value) *Type { return f.values.get(v).Type }

func (f *DFG) ArgValue(a Arg) (Value, bool) { return f.args.get(a) }

// BindArg allocates the Value representing formal argument a, of type ty,
// and records it so later ArgValue(a) lookups resolve it. Exported for
// callers that populate a unit outside this package (internal/asm's
// lowering and the tests call it directly; Builder does not).
func (f *DFG) BindArg(a Arg, ty *Type) Value {
	if v, ok := f.args.get(a); ok {
		return v
	}
	v := f.values.alloc(ValueData{Kind: ValueArg, Type: ty, Arg: a})
	f.args.set(a, v)
	return v
}

func (f *DFG) ExtUnitData(e ExtUnit) ExtUnitData { return f.extUnits.get(e) }

// internExtUnit returns the existing ExtUnit for (name, sig) if one was
// already interned, or allocates a new one.
func (f *DFG) internExtUnit(name string, sig *Signature) ExtUnit {
	key := name + "#" + sig.key()
	if e, ok := f.extUnitIndex[key]; ok {
		return e
	}
	e := f.extUnits.alloc(ExtUnitData{Name: name, Signature: sig})
	f.extUnitIndex[key] = e
	return e
}

func (f *DFG) ValueName(v Value) (string, bool)   { return f.names.get(v) }
func (f *DFG) SetValueName(v Value, name string)  { f.names.set(v, name) }
func (f *DFG) BlockName(b Block) (string, bool)    { return f.blockNames.get(b) }
func (f *DFG) SetBlockName(b Block, name string)   { f.blockNames.set(b, name) }
func (f *DFG) Location(i Inst) (int, bool)         { return f.locations.get(i) }
func (f *DFG) SetLocation(i Inst, offset int)       { f.locations.set(i, offset) }

// ValueUses returns every instruction referencing v as an operand.
func (f *DFG) ValueUses(v Value) []Inst {
	set := f.valueUses[v]
	out := make([]Inst, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

// BlockUses returns every instruction referencing b as a block operand.
func (f *DFG) BlockUses(b Block) []Inst {
	set := f.blockUses[b]
	out := make([]Inst, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

func (f *DFG) addValueUse(v Value, i Inst) {
	if !v.IsValid() {
		return
	}
	set, ok := f.valueUses[v]
	if !ok {
		set = make(map[Inst]struct{})
		f.valueUses[v] = set
	}
	set[i] = struct{}{}
}

func (f *DFG) removeValueUse(v Value, i Inst) {
	if !v.IsValid() {
		return
	}
	delete(f.valueUses[v], i)
}

func (f *DFG) addBlockUse(b Block, i Inst) {
	set, ok := f.blockUses[b]
	if !ok {
		set = make(map[Inst]struct{})
		f.blockUses[b] = set
	}
	set[i] = struct{}{}
}

func (f *DFG) removeBlockUse(b Block, i Inst) {
	delete(f.blockUses[b], i)
}

// registerUses walks d's operands and records i in every referenced
// value's and block's use-set, per the builder invariant (§4.2 step 2).
func (f *DFG) registerUses(i Inst, d InstData) {
	for _, v := range d.Uses() {
		f.addValueUse(v, i)
	}
	for _, b := range d.BlockUses() {
		f.addBlockUse(b, i)
	}
}

func (f *DFG) unregisterUses(i Inst, d InstData) {
	for _, v := range d.Uses() {
		f.removeValueUse(v, i)
	}
	for _, b := range d.BlockUses() {
		f.removeBlockUse(b, i)
	}
}

// replaceUse rewrites every use of from to to across the whole DFG,
// keeping the bidirectional indices consistent, and returns the number of
// instructions rewritten. Grounded on the spec's §4.2 replace_use
// contract.
func (f *DFG) replaceUse(from, to Value) int {
	users := f.ValueUses(from)
	for _, i := range users {
		old := f.insts.get(i)
		next := old
		next.Args = append([]Value(nil), old.Args...)
		changed := false
		for idx, v := range next.Args {
			if v == from {
				next.Args[idx] = to
				changed = true
			}
		}
		for ti := range next.Triggers {
			t := &next.Triggers[ti]
			if t.Data == from {
				t.Data = to
				changed = true
			}
			if t.Trigger == from {
				t.Trigger = to
				changed = true
			}
			if t.Gate == from {
				t.Gate = to
				changed = true
			}
		}
		if changed {
			f.insts.set(i, next)
			f.removeValueUse(from, i)
			f.addValueUse(to, i)
		}
	}
	return len(users)
}

// removeBlockUseFromPhis removes per-edge entries naming b from every
// Phi in block uses rather than replacing the block with a sentinel,
// per the spec's explicit remove_block_use exception (§4.2).
func (f *DFG) removeBlockUseFromPhis(b Block) {
	users := f.BlockUses(b)
	for _, i := range users {
		d := f.insts.get(i)
		if d.Format != FmtPhi {
			continue
		}
		newArgs := make([]Value, 0, len(d.Args))
		newBlocks := make([]Block, 0, len(d.Blocks))
		for idx, blk := range d.Blocks {
			if blk == b {
				continue
			}
			newArgs = append(newArgs, d.Args[idx])
			newBlocks = append(newBlocks, blk)
		}
		d.Args = newArgs
		d.Blocks = newBlocks
		f.insts.set(i, d)
		f.removeBlockUse(b, i)
	}
}
