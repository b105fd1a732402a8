package ir

// UnitKind discriminates the three unit flavors (§3): Function, Process,
// Entity.
type UnitKind int

const (
	FunctionKind UnitKind = iota
	ProcessKind
	EntityKind
)

func (k UnitKind) String() string {
	switch k {
	case FunctionKind:
		return "func"
	case ProcessKind:
		return "proc"
	case EntityKind:
		return "entity"
	default:
		return "?"
	}
}

// UnitData is one function, process, or entity definition: its kind,
// name, calling convention, and the three owned graphs (DFG, CFG,
// Layout). Grounded on the teacher's Function struct (internal/ir/ir.go)
// generalized to the three-kind unit taxonomy and the signal/temporal
// opcode surface the spec adds.
type UnitData struct {
	Kind      UnitKind
	Name      string
	Signature *Signature

	dfg    *DFG
	cfg    *CFG
	layout *Layout
}

func newUnitData(kind UnitKind, name string, sig *Signature) *UnitData {
	return &UnitData{
		Kind:      kind,
		Name:      name,
		Signature: sig,
		dfg:       newDFG(),
		cfg:       newCFG(),
		layout:    newLayout(),
	}
}

// NewUnitData constructs an empty unit of the given kind, ready for a
// Builder to populate. Exported for internal/asm's reader, which builds
// units from parsed assembly before any instructions exist.
func NewUnitData(kind UnitKind, name string, sig *Signature) *UnitData {
	return newUnitData(kind, name, sig)
}

func (u *UnitData) DFG() *DFG       { return u.dfg }
func (u *UnitData) CFG() *CFG       { return u.cfg }
func (u *UnitData) Layout() *Layout { return u.layout }

// EntryBlock returns the unit's entry block: the first block in layout
// order.
func (u *UnitData) EntryBlock() (Block, bool) {
	return u.layout.FirstBlock()
}

// Terminator returns the terminator instruction of block b (its last
// instruction), if any.
func (u *UnitData) Terminator(b Block) (Inst, bool) {
	return u.layout.LastInst(b)
}
