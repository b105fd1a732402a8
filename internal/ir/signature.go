package ir

import "strings"

// SigArg is one formal argument of a Signature: a fixed Arg id paired with
// its type. The id is fixed at signature-construction time and never
// renumbered, so a DFG's Arg->Value map (see dfg.go) stays valid across
// edits that do not touch the signature itself.
type SigArg struct {
	Arg  Arg
	Type *Type
}

// Signature describes a unit's calling convention: ordered input
// arguments, ordered output arguments (used by process/entity units), and
// an optional return type (used by function units).
type Signature struct {
	Inputs  []SigArg
	Outputs []SigArg
	Return  *Type // nil for process/entity units
}

func (s *Signature) key() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, a := range s.Inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Type.key())
	}
	b.WriteString(")->(")
	for i, a := range s.Outputs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Type.key())
	}
	b.WriteByte(')')
	if s.Return != nil {
		b.WriteString(s.Return.key())
	}
	return b.String()
}

func (s *Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, a := range s.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Type.String())
	}
	b.WriteByte(')')
	if len(s.Outputs) > 0 {
		b.WriteString(" -> (")
		for i, a := range s.Outputs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Type.String())
		}
		b.WriteByte(')')
	}
	if s.Return != nil {
		b.WriteString(" ")
		b.WriteString(s.Return.String())
	}
	return b.String()
}

// Equal reports whether two signatures describe the same calling
// convention (used by Module.link to check that a declaration and its
// resolved definition match exactly).
func (s *Signature) Equal(o *Signature) bool {
	return s.key() == o.key()
}

// NewSignature builds a Signature and assigns each argument a fixed Arg id,
// inputs first (0..n-1) then outputs (n..n+m-1).
func NewSignature(inputTypes, outputTypes []*Type, ret *Type) *Signature {
	sig := &Signature{Return: ret}
	next := Arg(0)
	for _, t := range inputTypes {
		sig.Inputs = append(sig.Inputs, SigArg{Arg: next, Type: t})
		next++
	}
	for _, t := range outputTypes {
		sig.Outputs = append(sig.Outputs, SigArg{Arg: next, Type: t})
		next++
	}
	return sig
}
