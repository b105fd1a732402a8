package asm

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var parser = participle.MustBuild[File](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

// Parse parses source assembly text into a File AST. Grounded on the
// teacher's grammar.ParseFile: build once at package init, parse by
// name for error messages, wrap participle's own parse error with a
// caret-style report via ReportParseError.
func Parse(filename, source string) (*File, error) {
	f, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", filename)
	}
	return f, nil
}

// ReportParseError renders a participle parse error the way the
// teacher's grammar.reportParseError does: a caret under the offending
// column, in red.
func ReportParseError(filename, source string, err error) string {
	pe, ok := errors.Cause(err).(participle.Error)
	if !ok {
		return color.RedString("unexpected error: %s", err)
	}
	pos := pe.Position()
	lines := strings.Split(source, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		return color.RedString("syntax error at unknown location in %s: %s", filename, err)
	}
	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(0, pos.Column-1)) + "^"
	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", color.RedString("syntax error in %s at line %d, column %d:", filename, pos.Line, pos.Column))
	out.WriteString(line + "\n")
	out.WriteString(color.HiRedString(caret) + "\n")
	fmt.Fprintf(&out, "-> %s\n", pe.Message())
	return out.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
