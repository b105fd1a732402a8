// Command llhd is the driver for the §6 textual assembly format: parse,
// verify, optionally optimize, and print. Grounded on the teacher's
// cmd/kanso-cli/main.go (read file, parse, report or print result,
// color.Green success line), extended with the optimize/verify steps
// this IR's pipeline adds.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"llhd/internal/asm"
	"llhd/internal/diag"
	"llhd/internal/ir"
	"llhd/internal/mlir"
)

func main() {
	optimize := flag.Bool("opt", false, "run the default optimization pipeline before printing")
	emitMLIR := flag.Bool("mlir", false, "print the CIRCT llhd-dialect form instead of the assembly form")
	raw := flag.Bool("raw", false, "print every value/block by its underlying %id instead of its declared name, for pass debugging")
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: llhd [-opt] [-mlir] [-raw] <file.ll>")
		os.Exit(1)
	}

	path := args[0]
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

	if *optimize {
		ctx := ir.DefaultPassContext()
		if err := ir.RunToFixedPoint(ctx, ir.DefaultPipeline(), m, 32); err != nil {
			fmt.Fprintf(os.Stderr, "optimizing %s: %s\n", path, err)
			os.Exit(1)
		}
	}

	switch {
	case *raw:
		for _, id := range m.Units() {
			fmt.Print(m.Unit(id).Format(true))
			fmt.Println()
		}
	case *emitMLIR:
		fmt.Print(mlir.Write(m))
	default:
		fmt.Print(asm.Write(m))
	}
	color.Green("processed %s", path)
}
