package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Module as the textual assembly format of §6:
// `func`/`proc`/`entity` units with block labels and one instruction per
// line, `declare` for external declarations, typed operands, and
// `%name`/`@name`/`%<digits>` value/unit naming. Round-trips with
// internal/asm's reader.
//
// Grounded on the teacher's internal/ir/printer.go: a small stateful
// writer (indent + strings.Builder) with one write/writeLine helper pair
// and a big per-instruction-kind switch, reused here verbatim in shape
// and adapted to this package's opcode-table instruction model instead
// of the teacher's per-opcode struct types.
type Printer struct {
	indent  int
	out     strings.Builder
	withIds bool
}

func NewPrinter() *Printer { return &Printer{} }

// Print renders every declaration then every unit of m in id order.
func Print(m *Module) string {
	p := NewPrinter()
	for _, id := range m.Decls() {
		p.printDecl(id, *m.Decl(id))
	}
	if len(m.Decls()) > 0 {
		p.writeLine("")
	}
	ids := m.Units()
	for i, id := range ids {
		p.printUnit(m, id, m.Unit(id))
		if i < len(ids)-1 {
			p.writeLine("")
		}
	}
	return p.out.String()
}

// PrintUnit renders a single unit in isolation, useful for pass-level
// debug logging.
func PrintUnit(m *Module, id UnitId, u *UnitData) string {
	p := NewPrinter()
	p.printUnit(m, id, u)
	return p.out.String()
}

// Format renders u in isolation, choosing between the canonical writer
// (withIds false: a value prints its declared name, falling back to its
// %<id> only when anonymous — what Print/PrintUnit always use, so this
// round-trips with internal/asm) and the raw writer (withIds true: every
// value and block always prints its underlying %<id>/bb<id>, ignoring
// any name). Grounded on original_source/src/assembly/irwriter.rs's
// raw/canonical split, which the original reserves for debug dumps where
// a pass needs to see identity independent of whatever name a value
// happens to carry.
func (u *UnitData) Format(withIds bool) string {
	p := &Printer{withIds: withIds}
	p.printUnit(nil, 0, u)
	return p.out.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.out.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	fmt.Fprintf(&p.out, format, args...)
	p.out.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	fmt.Fprintf(&p.out, format, args...)
}

func (p *Printer) printDecl(id DeclId, d DeclData) {
	p.writeLine("declare @%s %s", escapeName(d.Name), d.Signature.String())
}

func (p *Printer) printUnit(m *Module, id UnitId, u *UnitData) {
	kw := "func"
	switch u.Kind {
	case ProcessKind:
		kw = "proc"
	case EntityKind:
		kw = "entity"
	}

	sig := u.Signature
	switch u.Kind {
	case FunctionKind:
		parts := make([]string, len(sig.Inputs))
		for i, a := range sig.Inputs {
			parts[i] = fmt.Sprintf("%s %s", a.Type.String(), p.argName(u, a.Arg))
		}
		ret := "void"
		if sig.Return != nil {
			ret = sig.Return.String()
		}
		p.writeLine("%s @%s (%s) %s {", kw, escapeName(u.Name), strings.Join(parts, ", "), ret)
	default:
		in := make([]string, len(sig.Inputs))
		for i, a := range sig.Inputs {
			in[i] = fmt.Sprintf("%s %s", a.Type.String(), p.argName(u, a.Arg))
		}
		out := make([]string, len(sig.Outputs))
		for i, a := range sig.Outputs {
			out[i] = fmt.Sprintf("%s %s", a.Type.String(), p.argName(u, a.Arg))
		}
		p.writeLine("%s @%s (%s) -> (%s) {", kw, escapeName(u.Name), strings.Join(in, ", "), strings.Join(out, ", "))
	}

	p.indent++
	for _, blk := range u.layout.Blocks() {
		p.printBlock(u, blk)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(u *UnitData, blk Block) {
	p.writeIndent()
	p.out.WriteString(p.blockLabel(u, blk))
	p.out.WriteString(":\n")
	p.indent++
	for _, i := range u.layout.Insts(blk) {
		p.printInst(u, i)
	}
	p.indent--
}

func (p *Printer) printInst(u *UnitData, i Inst) {
	d := u.dfg.InstData(i)
	result, hasResult := u.dfg.InstResult(i)
	prefix := ""
	if hasResult {
		prefix = p.valueName(u, result) + " = "
	}

	switch d.Opcode {
	case OpConstInt:
		p.writeLine("%s%s i%d %s", prefix, d.Opcode, d.ImmInt.Width(), d.ImmInt.Unsigned().String())
	case OpConstTime:
		p.writeLine("%s%s %s", prefix, d.Opcode, d.ImmTime.String())
	case OpPhi:
		parts := make([]string, len(d.Args))
		for idx, v := range d.Args {
			parts[idx] = fmt.Sprintf("[%s: %s]", p.blockLabel(u, d.Blocks[idx]), p.valueName(u, v))
		}
		p.writeLine("%s%s %s", prefix, d.Opcode, strings.Join(parts, ", "))
	case OpBr:
		p.writeLine("br %s", p.blockLabel(u, d.Blocks[0]))
	case OpBrCond:
		p.writeLine("br_cond %s, %s, %s", p.valueName(u, d.Args[0]), p.blockLabel(u, d.Blocks[0]), p.blockLabel(u, d.Blocks[1]))
	case OpWait:
		parts := make([]string, len(d.Args))
		for idx, v := range d.Args {
			parts[idx] = p.valueName(u, v)
		}
		p.writeLine("wait %s, [%s]", p.blockLabel(u, d.Blocks[0]), strings.Join(parts, ", "))
	case OpWaitTime:
		parts := make([]string, len(d.Args)-1)
		for idx, v := range d.Args[1:] {
			parts[idx] = p.valueName(u, v)
		}
		p.writeLine("wait_time %s, %s, [%s]", p.blockLabel(u, d.Blocks[0]), p.valueName(u, d.Args[0]), strings.Join(parts, ", "))
	case OpRet:
		p.writeLine("ret")
	case OpRetValue:
		p.writeLine("ret %s", p.valueName(u, d.Args[0]))
	case OpHalt:
		p.writeLine("halt")
	case OpCall, OpInst:
		p.printMultiResult(u, i, d, prefix)
	case OpReg:
		p.printReg(u, d, prefix)
	default:
		p.writeLine("%s%s %s", prefix, d.Opcode, p.argList(u, d.Args))
	}
}

func (p *Printer) printMultiResult(u *UnitData, i Inst, d InstData, _ string) {
	name := "@" + escapeName(u.dfg.ExtUnitData(d.Ext).Name)
	args := p.argList(u, d.Args)
	// Multi-result instructions (call/inst) print their results as a
	// comma-separated list of positional names (%<inst>.<index>).
	var results []string
	for idx := range d.ResultTypes {
		results = append(results, fmt.Sprintf("%%%d.%d", i, idx))
	}
	kw := "call"
	if d.Opcode == OpInst {
		kw = "inst"
	}
	if len(results) == 0 {
		p.writeLine("%s %s(%s)", kw, name, args)
		return
	}
	p.writeLine("%s = %s %s(%s)", strings.Join(results, ", "), kw, name, args)
}

func (p *Printer) printReg(u *UnitData, d InstData, prefix string) {
	parts := make([]string, len(d.Triggers))
	for idx, t := range d.Triggers {
		gate := "-"
		if t.Gate.IsValid() {
			gate = p.valueName(u, t.Gate)
		}
		parts[idx] = fmt.Sprintf("[%s, %s, %s, %s]", p.valueName(u, t.Data), t.Mode.String(), p.valueName(u, t.Trigger), gate)
	}
	p.writeLine("%sreg %s, %s", prefix, p.valueName(u, d.Args[0]), strings.Join(parts, ", "))
}

func (p *Printer) argList(u *UnitData, args []Value) string {
	parts := make([]string, len(args))
	for i, v := range args {
		if !v.IsValid() {
			parts[i] = "poison"
			continue
		}
		parts[i] = p.valueName(u, v)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) valueName(u *UnitData, v Value) string {
	if !p.withIds {
		if name, ok := u.dfg.ValueName(v); ok {
			return "%" + escapeName(name)
		}
	}
	return fmt.Sprintf("%%%d", v)
}

func (p *Printer) argName(u *UnitData, a Arg) string {
	v, ok := u.dfg.ArgValue(a)
	if !ok {
		return fmt.Sprintf("%%arg%d", a)
	}
	return p.valueName(u, v)
}

func (p *Printer) blockLabel(u *UnitData, b Block) string {
	if !p.withIds {
		if name, ok := u.dfg.BlockName(b); ok {
			return escapeName(name)
		}
	}
	return fmt.Sprintf("bb%d", b)
}

// escapeName escapes any non-identifier byte as \<hex>, per §6.
func escapeName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && i > 0) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "\\%02x", c)
	}
	return b.String()
}
