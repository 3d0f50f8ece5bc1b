package server

import (
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "lox-lsp"

// LspServer provides editor features for Lox documents. Everything is
// computed from the scanner, parser and resolver; documents are never run.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*docIndex // URI → index of the latest content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]*docIndex),
		version: "0.1.0",
		log:     commonlog.GetLogger("lox.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("Lox LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	idx := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, idx)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			idx := s.update(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, idx)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) update(uri protocol.DocumentUri, text string) *docIndex {
	idx := indexDocument(text)

	s.mu.Lock()
	s.docs[string(uri)] = idx
	s.mu.Unlock()

	s.log.Debugf("indexed %s: %d declarations, %d diagnostics", uri, len(idx.decls), len(idx.diags))
	return idx
}

func (s *LspServer) document(uri protocol.DocumentUri) (*docIndex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.docs[string(uri)]
	return idx, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	idx, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix, member := extractPrefix(idx.text, params.Position)
	if prefix == "" && !member {
		return nil, nil
	}
	return idx.complete(prefix, member), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	idx, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(idx.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return idx.hover(word, offsetAt(idx.text, params.Position)), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	idx, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(idx.text, params.Position)
	if word == "" {
		return nil, nil
	}

	d, ok := idx.lookup(word, offsetAt(idx.text, params.Position))
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: uri, Range: idx.tokenRange(d.name)}}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	idx, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(idx.text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, tok := range idx.occurrences(word) {
		locations = append(locations, protocol.Location{URI: uri, Range: idx.tokenRange(tok)})
	}
	return locations, nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	idx, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return idx.symbols(), nil
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, idx *docIndex) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: idx.diagnostics(),
	})
}

// --- Text extraction helpers ---

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// currentLine returns the line at pos and the cursor's byte column in it.
func currentLine(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	return line, byteColumn(line, pos.Character), true
}

// extractPrefix returns the identifier fragment before the cursor for
// completion, and whether it follows a dot.
func extractPrefix(text string, pos protocol.Position) (string, bool) {
	line, col, ok := currentLine(text, pos)
	if !ok {
		return "", false
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}

	member := start > 0 && line[start-1] == '.'
	return line[start:col], member
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := currentLine(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}

	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
