// Package diag renders verifier and linker failures from internal/ir as
// formatted, colorized reports, the way the teacher's internal/errors
// package renders compiler diagnostics.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a reported finding.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
)

// Finding is one structured diagnostic: a severity, an optional code, a
// unit/object reference, and a message. Grounded on the teacher's
// CompilerError, stripped of source-position fields since the IR's
// verifier and linker errors are object-identified (unit/instruction),
// not text-position-identified — §7's error taxonomy has no lexical
// position for structural/type/dominance/linker errors.
type Finding struct {
	Level   Level
	Code    string
	Unit    string
	Object  string // instruction id, block name, or external reference name
	Message string
}

// Report accumulates Findings the way the spec's §7 "propagation policy"
// requires: the verifier gathers every error before reporting, never
// stopping at the first.
type Report struct {
	Findings []Finding
}

func (r *Report) Add(f Finding) { r.Findings = append(r.Findings, f) }

func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Level == Error {
			return true
		}
	}
	return false
}

// Render formats the report the way the teacher's ErrorReporter.FormatError
// does: a colorized "level[code]: message" header line, a location line,
// one finding at a time, terminated by a blank line each.
func (r *Report) Render() string {
	var out strings.Builder
	for _, f := range r.Findings {
		out.WriteString(renderFinding(f))
	}
	return out.String()
}

func renderFinding(f Finding) string {
	var out strings.Builder
	levelColor := colorFor(f.Level)
	dim := color.New(color.Faint).SprintFunc()

	if f.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(f.Level)), f.Code, f.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(f.Level)), f.Message)
	}

	loc := f.Unit
	if f.Object != "" {
		loc = fmt.Sprintf("%s: %s", f.Unit, f.Object)
	}
	if loc != "" {
		fmt.Fprintf(&out, "  %s %s\n", dim("-->"), loc)
	}
	out.WriteString("\n")
	return out.String()
}

func colorFor(l Level) func(...interface{}) string {
	switch l {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
