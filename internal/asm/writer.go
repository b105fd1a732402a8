package asm

import "llhd/internal/ir"

// Write renders a module back to the §6 textual form, the inverse of
// Parse+Lower for any module that stays within this reader's supported
// opcode subset. Thin wrapper: all the rendering logic lives in
// ir.Printer.
func Write(m *ir.Module) string {
	return ir.Print(m)
}
