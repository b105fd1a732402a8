package ir

import (
	"fmt"
	"strings"
	"sync"
)

// Type system (component A): structural, hash-consed types shared by
// reference. Grounded on the teacher's ir.Type interface hierarchy
// (internal/ir/types.go: IntType/BoolType/AddressType/.../TupleType) but
// generalized to the hardware domain's variant set and given real
// structural sharing, since the spec requires types to be compared and
// stored by pointer identity after interning.
type Kind int

const (
	VoidKind Kind = iota
	TimeKind
	IntKind
	EnumKind
	PointerKind
	SignalKind
	ArrayKind
	StructKind
	FuncKind
	EntityKind
)

func (k Kind) String() string {
	switch k {
	case VoidKind:
		return "void"
	case TimeKind:
		return "time"
	case IntKind:
		return "int"
	case EnumKind:
		return "enum"
	case PointerKind:
		return "pointer"
	case SignalKind:
		return "signal"
	case ArrayKind:
		return "array"
	case StructKind:
		return "struct"
	case FuncKind:
		return "func"
	case EntityKind:
		return "entity"
	default:
		return "unknown"
	}
}

// Type is an immutable, structurally hash-consed IR type. Two Types
// describing the same structure are always the same pointer after passing
// through the intern table, so equality is pointer equality.
type Type struct {
	kind   Kind
	width  int     // IntKind bit width, or EnumKind variant count
	elem   *Type   // PointerKind/SignalKind/ArrayKind element type
	length int     // ArrayKind length
	fields []*Type // StructKind field types
	sig    *Signature
}

func (t *Type) key() string {
	switch t.kind {
	case VoidKind:
		return "void"
	case TimeKind:
		return "time"
	case IntKind:
		return fmt.Sprintf("i%d", t.width)
	case EnumKind:
		return fmt.Sprintf("n%d", t.width)
	case PointerKind:
		return t.elem.key() + "*"
	case SignalKind:
		return t.elem.key() + "$"
	case ArrayKind:
		return fmt.Sprintf("[%d x %s]", t.length, t.elem.key())
	case StructKind:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.key()
		}
		return "{" + strings.Join(parts, ",") + "}"
	case FuncKind:
		return "func" + t.sig.key()
	case EntityKind:
		return "entity" + t.sig.key()
	default:
		return "?"
	}
}

func (t *Type) String() string {
	switch t.kind {
	case VoidKind:
		return "void"
	case TimeKind:
		return "time"
	case IntKind:
		return fmt.Sprintf("i%d", t.width)
	case EnumKind:
		return fmt.Sprintf("n%d", t.width)
	case PointerKind:
		return t.elem.String() + "*"
	case SignalKind:
		return t.elem.String() + "$"
	case ArrayKind:
		return fmt.Sprintf("[%d x %s]", t.length, t.elem.String())
	case StructKind:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case FuncKind:
		return "func " + t.sig.String()
	case EntityKind:
		return "entity " + t.sig.String()
	default:
		return "<?>"
	}
}

// Predicates.
func (t *Type) IsVoid() bool    { return t.kind == VoidKind }
func (t *Type) IsTime() bool    { return t.kind == TimeKind }
func (t *Type) IsInt() bool     { return t.kind == IntKind }
func (t *Type) IsEnum() bool    { return t.kind == EnumKind }
func (t *Type) IsPointer() bool { return t.kind == PointerKind }
func (t *Type) IsSignal() bool  { return t.kind == SignalKind }
func (t *Type) IsArray() bool   { return t.kind == ArrayKind }
func (t *Type) IsStruct() bool  { return t.kind == StructKind }
func (t *Type) IsFunc() bool    { return t.kind == FuncKind }
func (t *Type) IsEntity() bool  { return t.kind == EntityKind }
func (t *Type) Kind() Kind      { return t.kind }

// IntWidth returns the bit width of an IntKind/EnumKind type; panics
// otherwise, mirroring the teacher's unchecked accessor style for types
// that the caller has already switched on.
func (t *Type) IntWidth() int {
	if t.kind != IntKind && t.kind != EnumKind {
		panic("ir: IntWidth of non-integer type " + t.String())
	}
	return t.width
}

// Elem returns the element/inner type of a pointer, signal, or array type.
func (t *Type) Elem() *Type {
	if t.elem == nil {
		panic("ir: Elem of type without an element: " + t.String())
	}
	return t.elem
}

// Len returns the length of an array type.
func (t *Type) Len() int {
	if t.kind != ArrayKind {
		panic("ir: Len of non-array type " + t.String())
	}
	return t.length
}

// Fields returns the field types of a struct type.
func (t *Type) Fields() []*Type {
	if t.kind != StructKind {
		panic("ir: Fields of non-struct type " + t.String())
	}
	return t.fields
}

// Signature returns the signature of a func/entity type.
func (t *Type) Signature() *Signature {
	if t.sig == nil {
		panic("ir: Signature of type without a signature: " + t.String())
	}
	return t.sig
}

// typeInterner hash-conses Types by structural key so that equal shapes
// always share one pointer. A single process-wide interner matches the
// spec's "shared by reference" invariant without threading a table handle
// through every call site that builds a type.
type typeInterner struct {
	mu   sync.Mutex
	pool map[string]*Type
}

var types = &typeInterner{pool: make(map[string]*Type)}

func (ti *typeInterner) intern(t *Type) *Type {
	key := t.key()
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if existing, ok := ti.pool[key]; ok {
		return existing
	}
	ti.pool[key] = t
	return t
}

// Constructors.

func VoidTy() *Type { return types.intern(&Type{kind: VoidKind}) }
func TimeTy() *Type { return types.intern(&Type{kind: TimeKind}) }

func IntTy(width int) *Type {
	if width <= 0 {
		panic("ir: non-positive integer width")
	}
	return types.intern(&Type{kind: IntKind, width: width})
}

func EnumTy(variants int) *Type {
	if variants <= 0 {
		panic("ir: non-positive enum variant count")
	}
	return types.intern(&Type{kind: EnumKind, width: variants})
}

func PointerTy(elem *Type) *Type {
	return types.intern(&Type{kind: PointerKind, elem: elem})
}

func SignalTy(elem *Type) *Type {
	return types.intern(&Type{kind: SignalKind, elem: elem})
}

func ArrayTy(length int, elem *Type) *Type {
	if length < 0 {
		panic("ir: negative array length")
	}
	return types.intern(&Type{kind: ArrayKind, length: length, elem: elem})
}

func StructTy(fields ...*Type) *Type {
	cp := append([]*Type(nil), fields...)
	return types.intern(&Type{kind: StructKind, fields: cp})
}

func FuncTy(sig *Signature) *Type {
	return types.intern(&Type{kind: FuncKind, sig: sig})
}

func EntityTy(sig *Signature) *Type {
	return types.intern(&Type{kind: EntityKind, sig: sig})
}
