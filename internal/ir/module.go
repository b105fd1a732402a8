package ir

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// DeclData is an external declaration: a name and a calling convention,
// with no body. Grounded on the spec's Module.DeclData (§3).
type DeclData struct {
	Name      string
	Signature *Signature
}

// LinkKind discriminates what an (UnitId, ExtUnit) reference resolved to.
type LinkKind int

const (
	LinkUnresolved LinkKind = iota
	LinkDef
	LinkDecl
)

// LinkedUnit is the resolution of one ExtUnit reference within one
// defining unit, produced by Module.Link.
type LinkedUnit struct {
	Kind LinkKind
	Unit UnitId
	Decl DeclId
}

type linkKey struct {
	owner UnitId
	ext   ExtUnit
}

// Module owns every unit and external declaration of one compilation
// unit, plus the link table the spec requires (§3). Grounded on the
// teacher's Program struct (internal/ir/ir.go: Functions []*Function)
// generalized to the dense-id table scheme and given a real link step,
// which the teacher does not need because it resolves call targets by
// name at codegen time instead of up front.
//
// The mutex is github.com/sasha-s/go-deadlock's drop-in replacement for
// sync.RWMutex, matching the teacher's use of the same package to guard
// shared compiler state (internal/semantic) with deadlock detection
// enabled in tests.
type Module struct {
	mu deadlock.RWMutex

	units primaryTable[UnitId, *UnitData]
	decls primaryTable[DeclId, *DeclData]

	links      map[linkKey]LinkedUnit
	linksValid bool

	locations secondaryTable[UnitId, int]
}

func NewModule() *Module {
	return &Module{links: make(map[linkKey]LinkedUnit)}
}

// AddUnit inserts a fully-built unit and returns its id. Any prior link
// table is invalidated, per the spec's "invalidated on any mutation"
// rule.
func (m *Module) AddUnit(u *UnitData) UnitId {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.units.alloc(u)
	m.linksValid = false
	return id
}

// AddDecl inserts an external declaration and returns its id.
func (m *Module) AddDecl(d *DeclData) DeclId {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.decls.alloc(d)
	m.linksValid = false
	return id
}

func (m *Module) Unit(id UnitId) *UnitData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.units.get(id)
}

func (m *Module) IsUnit(id UnitId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.units.isUsed(id)
}

// Units returns every unit id in insertion order.
func (m *Module) Units() []UnitId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.units.ids()
}

func (m *Module) Decl(id DeclId) *DeclData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decls.get(id)
}

func (m *Module) Decls() []DeclId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decls.ids()
}

// Invalidate marks the link table stale, called by the builder after any
// mutation that could change which ExtUnit names resolve to which unit or
// declaration (renaming a unit, adding/removing a unit or declaration).
func (m *Module) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linksValid = false
}

func (m *Module) SetLocation(u UnitId, offset int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations.set(u, offset)
}

func (m *Module) Location(u UnitId) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locations.get(u)
}

// LinkError reports a name/signature resolution failure discovered by
// Link.
type LinkError struct {
	Name string
	Msg  string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link: %s: %s", e.Name, e.Msg)
}

// Link resolves every ExtUnit reference in every unit's DFG to a
// definition or a declaration by name, checking the invariant that names
// are unique across symbols after linking except that multiple
// declarations of one name are allowed as long as at most one is a
// definition, and that a declaration's signature matches its resolved
// definition exactly (§3).
func (m *Module) Link() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byName := make(map[string][]struct {
		isDef bool
		unit  UnitId
		decl  DeclId
		sig   *Signature
	})
	for _, id := range m.units.ids() {
		u := m.units.get(id)
		byName[u.Name] = append(byName[u.Name], struct {
			isDef bool
			unit  UnitId
			decl  DeclId
			sig   *Signature
		}{true, id, 0, u.Signature})
	}
	for _, id := range m.decls.ids() {
		d := m.decls.get(id)
		byName[d.Name] = append(byName[d.Name], struct {
			isDef bool
			unit  UnitId
			decl  DeclId
			sig   *Signature
		}{false, 0, id, d.Signature})
	}

	var errs []error
	for name, entries := range byName {
		defs := 0
		for _, e := range entries {
			if e.isDef {
				defs++
			}
		}
		if defs > 1 {
			errs = append(errs, &LinkError{Name: name, Msg: "multiple definitions"})
			continue
		}
		if defs == 1 {
			var defSig *Signature
			for _, e := range entries {
				if e.isDef {
					defSig = e.sig
				}
			}
			for _, e := range entries {
				if !e.isDef && !e.sig.Equal(defSig) {
					errs = append(errs, &LinkError{Name: name, Msg: "declaration signature mismatches definition"})
				}
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	links := make(map[linkKey]LinkedUnit)
	for _, owner := range m.units.ids() {
		u := m.units.get(owner)
		for _, e := range u.dfg.extUnits.ids() {
			ed := u.dfg.extUnits.get(e)
			resolved := false
			for _, id := range m.units.ids() {
				ud := m.units.get(id)
				if ud.Name == ed.Name && ud.Signature.Equal(ed.Signature) {
					links[linkKey{owner, e}] = LinkedUnit{Kind: LinkDef, Unit: id}
					resolved = true
					break
				}
			}
			if resolved {
				continue
			}
			for _, id := range m.decls.ids() {
				dd := m.decls.get(id)
				if dd.Name == ed.Name && dd.Signature.Equal(ed.Signature) {
					links[linkKey{owner, e}] = LinkedUnit{Kind: LinkDecl, Decl: id}
					resolved = true
					break
				}
			}
			if !resolved {
				errs = append(errs, &LinkError{Name: ed.Name, Msg: "unresolved external unit"})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	m.links = links
	m.linksValid = true
	return nil
}

// Resolve looks up the linked target of an ExtUnit reference within
// owner. Returns LinkUnresolved if Link has not been run since the last
// mutation.
func (m *Module) Resolve(owner UnitId, e ExtUnit) LinkedUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.linksValid {
		return LinkedUnit{Kind: LinkUnresolved}
	}
	return m.links[linkKey{owner, e}]
}
