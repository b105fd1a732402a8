// Package lsp implements a language server for the §6 textual assembly
// format: parse on every open/change, run the verifier, publish
// diagnostics. Grounded on the teacher's internal/lsp.KansoHandler
// (glsp-based handler struct, content cache keyed by file path,
// updateAST-on-change plumbing), with semantic tokens and completion
// dropped since this format has no highlighting/completion surface the
// spec calls for — only diagnostics are in scope.
package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"llhd/internal/asm"
	"llhd/internal/diag"
	"llhd/internal/ir"
)

var log = commonlog.GetLogger("llhd-lsp")

// Handler implements the LSP server handlers for the assembly format.
type Handler struct {
	mu      sync.RWMutex
	content map[string]string
}

func NewHandler() *Handler {
	return &Handler{content: make(map[string]string)}
}

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	return h.analyzeAndPublish(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-reads the file from disk rather than decoding
// params.ContentChanges, the same shortcut the teacher's handler takes
// (its own TextDocumentDidChange ignores the event payload and calls
// updateAST(uri), which reads the file fresh) — both servers advertise
// full-document sync, so the client always has the latest text on disk
// by the time this notification arrives.
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", params.TextDocument.URI, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return h.analyzeAndPublish(ctx, params.TextDocument.URI, string(content))
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.content, path)
	h.mu.Unlock()
	return nil
}

func (h *Handler) analyzeAndPublish(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	session := ksuid.New().String()
	path, err := uriToPath(uri)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}

	h.mu.Lock()
	h.content[path] = text
	h.mu.Unlock()

	report := h.analyze(path, text)
	log.Infof("[%s] analyzed %s: %d finding(s)", session, path, len(report.Findings))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(report),
	})
	return nil
}

// analyze parses, lowers, and verifies the document text, returning every
// finding collected along the way. A parse failure short-circuits with a
// single-finding report; a successful parse runs the verifier over every
// unit the file defines.
func (h *Handler) analyze(path, text string) *diag.Report {
	f, err := asm.Parse(path, text)
	if err != nil {
		return &diag.Report{Findings: []diag.Finding{{
			Level:   diag.Error,
			Code:    "E-PARSE",
			Message: asm.ReportParseError(path, text, err),
		}}}
	}

	m, err := asm.Lower(f)
	if err != nil {
		return &diag.Report{Findings: []diag.Finding{{
			Level:   diag.Error,
			Code:    "E-LOWER",
			Message: err.Error(),
		}}}
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
	return report
}

// toProtocolDiagnostics renders every Finding at the document's first
// line, since Finding is object-identified (unit/instruction) rather
// than source-position-identified — the assembly's own verifier has no
// text-offset tracking once lowering has run. Grounded on the teacher's
// ConvertParseErrors shape (one protocol.Diagnostic per error, colorless
// Message carrying the structured detail).
func toProtocolDiagnostics(r *diag.Report) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(r.Findings))
	for _, f := range r.Findings {
		msg := f.Message
		if f.Code != "" {
			msg = fmt.Sprintf("[%s] %s", f.Code, msg)
		}
		if f.Unit != "" {
			msg = fmt.Sprintf("%s: %s", f.Unit, msg)
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Severity: ptrSeverity(severityFor(f.Level)),
			Source:   ptrString("llhd"),
			Message:  msg,
		})
	}
	return out
}

func severityFor(l diag.Level) protocol.DiagnosticSeverity {
	switch l {
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(string(rawURI))
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 2 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool                                        { return &b }
func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity     { return &s }
func ptrString(s string) *string                                  { return &s }
