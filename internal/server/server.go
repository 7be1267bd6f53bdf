// Package server adapts the core engine to the Language Server Protocol:
// JSON-RPC over stdio, request translation, and diagnostic publishing. The
// wire protocol stays here; the engine never sees protocol types.
package server

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/f1r3fly-io/rholang-language-server/internal/config"
	"github.com/f1r3fly-io/rholang-language-server/internal/core"
	"github.com/f1r3fly-io/rholang-language-server/internal/indexing"
	"github.com/f1r3fly-io/rholang-language-server/internal/version"
)

// server implements protocol.Server over the engine. Methods the engine
// does not support live in nyi.go and are never advertised in the server
// capabilities.
type server struct {
	cfg    *config.Config
	logger *zap.Logger
	client protocol.Client

	engine *core.Engine
}

// stdrwc is the stdio stream the LSP speaks over.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdrwc) Close() error                { return os.Stdout.Close() }

// RunStdio serves LSP over stdin/stdout until the client disconnects.
func RunStdio(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	return run(ctx, cfg, stdrwc{}, logger)
}

func run(ctx context.Context, cfg *config.Config, rwc io.ReadWriteCloser, logger *zap.Logger) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	client := protocol.ClientDispatcher(conn, logger.Named("client"))

	srv := &server{cfg: cfg, logger: logger, client: client}
	conn.Go(ctx, protocol.ServerHandler(srv, nil))
	<-conn.Done()

	if err := conn.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Initialize builds the engine for the client's workspace and performs the
// warm or cold start before any query is served.
func (s *server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	root := s.cfg.Project.Root
	if params.RootURI != "" {
		root = params.RootURI.Filename()
	} else if len(params.WorkspaceFolders) > 0 {
		root = protocol.DocumentURI(params.WorkspaceFolders[0].URI).Filename()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	s.cfg.Project.Root = root

	s.engine = core.NewEngine(s.cfg, s.publishDiagnostics)
	if err := s.engine.Initialize(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("initialized workspace", zap.String("root", root))

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
			},
			DefinitionProvider: true,
			ReferencesProvider: true,
			HoverProvider:      true,
			RenameProvider:     true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"!", "@", "("},
			},
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "rholang-language-server",
			Version: version.Version,
		},
	}, nil
}

// Initialized is the client's post-handshake signal; nothing to do.
func (s *server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return nil
}

// Shutdown flushes and persists everything.
func (s *server) Shutdown(ctx context.Context) error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Shutdown(ctx)
}

// Exit terminates the process loop; the connection closes from the client
// side.
func (s *server) Exit(ctx context.Context) error {
	return nil
}

func (s *server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.engine.Open(string(params.TextDocument.URI), params.TextDocument.Text, int32(params.TextDocument.Version))
	return nil
}

func (s *server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	changes := make([]core.TextChange, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		change := core.TextChange{NewText: c.Text}
		if c.Range != (protocol.Range{}) {
			change.HasRange = true
			change.Range = fromProtocolRange(c.Range)
		}
		changes = append(changes, change)
	}
	return s.engine.Change(string(params.TextDocument.URI), changes, int32(params.TextDocument.Version))
}

func (s *server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.engine.Close(string(params.TextDocument.URI))
	return nil
}

func (s *server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.engine.Save(string(params.TextDocument.URI))
	return nil
}

func (s *server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		uri := string(change.URI)
		switch change.Type {
		case protocol.FileChangeTypeDeleted:
			s.engine.FileWatcherEvent(uri, indexing.FileDeleted)
		case protocol.FileChangeTypeCreated:
			s.engine.FileWatcherEvent(uri, indexing.FileCreated)
		default:
			s.engine.FileWatcherEvent(uri, indexing.FileChanged)
		}
	}
	return nil
}

func (s *server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	locs := s.engine.GotoDefinition(
		string(params.TextDocument.URI),
		int(params.Position.Line),
		int(params.Position.Character),
	)
	return toProtocolLocations(locs), nil
}

func (s *server) References(ctx context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	locs := s.engine.References(
		string(params.TextDocument.URI),
		int(params.Position.Line),
		int(params.Position.Character),
		params.Context.IncludeDeclaration,
	)
	return toProtocolLocations(locs), nil
}

func (s *server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	markdown, rng, ok := s.engine.Hover(
		string(params.TextDocument.URI),
		int(params.Position.Line),
		int(params.Position.Character),
	)
	if !ok {
		return nil, nil
	}
	protoRange := toProtocolRange(rng)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: markdown},
		Range:    &protoRange,
	}, nil
}

func (s *server) Rename(ctx context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	edit := s.engine.Rename(
		string(params.TextDocument.URI),
		int(params.Position.Line),
		int(params.Position.Character),
		params.NewName,
	)
	if len(edit.Changes) == 0 {
		return nil, nil
	}
	out := &protocol.WorkspaceEdit{Changes: make(map[protocol.DocumentURI][]protocol.TextEdit, len(edit.Changes))}
	for uri, edits := range edit.Changes {
		converted := make([]protocol.TextEdit, 0, len(edits))
		for _, te := range edits {
			converted = append(converted, protocol.TextEdit{Range: toProtocolRange(te.Range), NewText: te.NewText})
		}
		out.Changes[protocol.DocumentURI(uri)] = converted
	}
	return out, nil
}

func (s *server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	items := s.engine.Completion(
		string(params.TextDocument.URI),
		int(params.Position.Line),
		int(params.Position.Character),
	)
	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		out = append(out, protocol.CompletionItem{
			Label:  item.Label,
			Kind:   completionKind(item.Kind),
			Detail: item.Detail,
		})
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: out}, nil
}

func (s *server) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]interface{}, error) {
	tree := s.engine.DocumentSymbols(string(params.TextDocument.URI))
	out := make([]interface{}, 0, len(tree))
	for _, sym := range tree {
		out = append(out, toDocumentSymbol(sym))
	}
	return out, nil
}

func (s *server) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	results := s.engine.WorkspaceSymbols(params.Query)
	out := make([]protocol.SymbolInformation, 0, len(results))
	for _, r := range results {
		out = append(out, protocol.SymbolInformation{
			Name: r.Name,
			Kind: symbolKind(r.Kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(r.Location.URI),
				Range: toProtocolRange(r.Location.Range),
			},
		})
	}
	return out, nil
}

// publishDiagnostics forwards engine diagnostics to the client.
func (s *server) publishDiagnostics(uriStr string, version int32, diags []core.Diagnostic) {
	if s.client == nil {
		return
	}
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    toProtocolRange(d.Range),
			Severity: protocol.DiagnosticSeverity(d.Severity),
			Message:  d.Message,
			Source:   d.Source,
		})
	}
	params := &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uriStr),
		Version:     uint32(version),
		Diagnostics: out,
	}
	if err := s.client.PublishDiagnostics(context.Background(), params); err != nil {
		s.logger.Warn("failed to publish diagnostics", zap.String("uri", uriStr), zap.Error(err))
	}
}
