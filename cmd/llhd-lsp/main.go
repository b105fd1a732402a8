// Command llhd-lsp is a language server for the §6 textual assembly
// format: parses on open/change, runs the verifier, and publishes
// diagnostics over stdio. Grounded on the teacher's cmd/kanso-lsp/main.go
// (commonlog.Configure at debug level, one protocol.Handler wired to a
// handler struct's methods, server.NewServer(...).RunStdio()).
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"llhd/internal/lsp"
)

const lsName = "llhd"

func main() {
	commonlog.Configure(1, nil)

	h := lsp.NewHandler()
	handler := protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		SetTrace:              h.SetTrace,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidChange: h.TextDocumentDidChange,
		TextDocumentDidClose:  h.TextDocumentDidClose,
	}

	s := server.NewServer(&handler, lsName, false)
	log.Println("starting llhd LSP server")
	if err := s.RunStdio(); err != nil {
		log.Println("llhd LSP server error:", err)
		os.Exit(1)
	}
}
