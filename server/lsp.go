package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/babellang/babel/interp"
	"github.com/babellang/babel/lang"
	"github.com/babellang/babel/store"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "babel-lsp"

// LspServer bridges LSP editor features (completion, hover,
// diagnostics) to the babel toolchain. Each open document remembers
// which language table it's checked against, inferred from the
// client's LanguageID or its URI, defaulting to english.
type LspServer struct {
	worker *StoreWorker

	mu   sync.Mutex
	docs map[string]docState

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

type docState struct {
	text string
	lang string
}

// NewLSP creates a new LSP server. worker may be nil, in which case
// diagnostics runs are not recorded to history.
func NewLSP(worker *StoreWorker) *LspServer {
	s := &LspServer{
		worker:  worker,
		docs:    make(map[string]docState),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
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
	commonlog.NewInfoMessage(0, "babel LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

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
	if s.worker != nil {
		s.worker.Stop()
	}
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text
	code := languageCodeFor(string(uri), params.TextDocument.LanguageID)

	s.mu.Lock()
	s.docs[string(uri)] = docState{text: text, lang: code}
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text, code)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			state := s.docs[string(uri)]
			state.text = whole.Text
			s.docs[string(uri)] = state
			code := state.lang
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text, code)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	state, ok := s.docs[string(uri)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	language, ok := lang.Lookup(state.lang)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(state.text, pos)
	return keywordCompletions(language, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	state, ok := s.docs[string(uri)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(state.text, pos)
	if word == "" {
		return nil, nil
	}

	language, ok := lang.Lookup(state.lang)
	if !ok {
		return nil, nil
	}

	role, found := keywordRole(language, word)
	if !found {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("**%s** — %s keyword for `%s`", word, language.Name, role),
		},
	}, nil
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text, code string) {
	_, diag, hasErr := interp.Compile(text, code)

	var diagnostics []protocol.Diagnostic
	if hasErr {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		line := max0(diag.Line - 1)
		col := max0(diag.Column - 1)
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
				End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + 1)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  diag.Error(),
		})
	}

	if s.worker != nil {
		s.worker.Do(func(h *store.History) interface{} {
			h.Record(context.Background(), code, text, !hasErr)
			return nil
		})
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// --- Keyword lookups ---

func keywordCompletions(language lang.Language, prefix string) []protocol.CompletionItem {
	keywordKind := protocol.CompletionItemKindKeyword
	funcKind := protocol.CompletionItemKindFunction

	entries := []struct {
		word string
		kind *protocol.CompletionItemKind
		desc string
	}{
		{language.IfKeyword, &keywordKind, "if"},
		{language.ElseKeyword, &keywordKind, "else"},
		{language.WhileKeyword, &keywordKind, "while"},
		{language.ForKeyword, &keywordKind, "for"},
		{language.FunctionKeyword, &keywordKind, "function"},
		{language.ReturnKeyword, &keywordKind, "return"},
		{language.VarKeyword, &keywordKind, "var"},
		{language.TrueLiteral, &keywordKind, "true"},
		{language.FalseLiteral, &keywordKind, "false"},
		{language.NullLiteral, &keywordKind, "null"},
		{language.PrintName, &funcKind, "print"},
		{language.InputName, &funcKind, "input"},
	}

	lowerPrefix := strings.ToLower(prefix)
	var items []protocol.CompletionItem
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(e.word), lowerPrefix) {
			continue
		}
		detail := e.desc
		word := e.word
		items = append(items, protocol.CompletionItem{
			Label:      e.word,
			Kind:       e.kind,
			Detail:     &detail,
			InsertText: &word,
		})
	}
	return items
}

// keywordRole reports which grammar role word plays in language, if any.
func keywordRole(language lang.Language, word string) (string, bool) {
	switch word {
	case language.IfKeyword:
		return "if", true
	case language.ElseKeyword:
		return "else", true
	case language.WhileKeyword:
		return "while", true
	case language.ForKeyword:
		return "for", true
	case language.FunctionKeyword:
		return "function", true
	case language.ReturnKeyword:
		return "return", true
	case language.VarKeyword:
		return "var", true
	case language.TrueLiteral:
		return "true", true
	case language.FalseLiteral:
		return "false", true
	case language.NullLiteral:
		return "null", true
	case language.PrintName:
		return "print", true
	case language.InputName:
		return "input", true
	}
	return "", false
}

// languageCodeFor picks the language table a document should be
// checked against. Editors set LanguageID from a client-side
// association (e.g. "babel-hindi"); fall back to english.
func languageCodeFor(uri, languageID string) string {
	for _, l := range interp.ListLanguages() {
		if strings.HasSuffix(languageID, l.Name) || strings.Contains(uri, "."+l.Name+".babel") {
			return l.Name
		}
	}
	return "english"
}

// --- Text extraction helpers ---

func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}
	if start == col {
		return ""
	}
	return line[start:col]
}

func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}
	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
