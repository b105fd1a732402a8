// Command llhd-sim is the minimal event-driven simulator front-end
// described by §6: it loads a module, verifies it, picks the last
// process or entity as root, allocates signals for its inputs/outputs,
// and drives a time-ordered event queue while printing a VCD-like trace
// of every signal update. Grounded on the teacher's cmd/kanso-cli/main.go
// for the read/parse/report shell; the event loop itself has no teacher
// analogue (the teacher repo has no simulator) and is grounded instead on
// spec.md §6's own description of the front-end's responsibilities.
package main

import (
	"fmt"
	"os"

	"llhd/internal/asm"
	"llhd/internal/diag"
	"llhd/internal/ir"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: llhd-sim <file.ll>")
		os.Exit(1)
	}

	path := os.Args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %s\n", path, err)
		os.Exit(1)
	}

	f, err := asm.Parse(path, string(source))
	if err != nil {
		fmt.Fprint(os.Stderr, asm.ReportParseError(path, string(source), err))
		os.Exit(1)
	}

	m, err := asm.Lower(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lowering %s: %s\n", path, err)
		os.Exit(1)
	}

	report := &diag.Report{}
	for _, id := range m.Units() {
		for _, verr := range ir.Verify(id, m.Unit(id)) {
			report.Findings = append(report.Findings, diag.FromVerifierErrors([]error{verr}).Findings...)
		}
	}
	if linkErrs := m.Link(); len(linkErrs) > 0 {
		report.Findings = append(report.Findings, diag.FromLinkErrors(linkErrs).Findings...)
	}
	if len(report.Findings) > 0 {
		fmt.Fprint(os.Stderr, report.Render())
		if report.HasErrors() {
			os.Exit(1)
		}
	}

	root := pickRoot(m)
	if root == nil {
		fmt.Fprintln(os.Stderr, "no process or entity found")
		os.Exit(1)
	}

	s := newSim(m, root, os.Stdout)
	if err := s.run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %s\n", err)
		os.Exit(1)
	}
}

// pickRoot selects the last process or entity defined in the module, per
// §6's explicit rule for a front-end with no separate top-module
// declaration.
func pickRoot(m *ir.Module) *ir.UnitData {
	var root *ir.UnitData
	for _, id := range m.Units() {
		u := m.Unit(id)
		if u.Kind == ir.ProcessKind || u.Kind == ir.EntityKind {
			root = u
		}
	}
	return root
}
