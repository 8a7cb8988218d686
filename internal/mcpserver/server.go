// Package mcpserver implements the request server: length-prefixed
// JSON-shaped records carrying Search, FindSymbol, Calls, Callers,
// Dependencies, IndexFile, and Reindex operations. It is built on the
// github.com/modelcontextprotocol/go-sdk transport, with every operation
// backed directly by internal/engine.
package mcpserver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codanna-go/codanna/internal/engine"
	"github.com/codanna-go/codanna/internal/search"
	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/pkg/version"
)

// Server bridges the engine to MCP clients, one process per index
// directory.
type Server struct {
	mcp    *mcp.Server
	eng    *engine.Engine
	logger *slog.Logger

	mu sync.RWMutex
}

// New creates a Server wrapping eng. Tools are registered immediately so
// Serve only has to pick a transport.
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{eng: eng, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "codanna",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server, for tests that want to
// drive tool calls in-process without a transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid BM25+vector search over the indexed codebase. Returns symbols ranked by fused relevance.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_symbol",
		Description: "Resolve a symbol by exact or fuzzy name, optionally filtered by kind.",
	}, s.handleFindSymbol)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "calls",
		Description: "List the symbols a given symbol calls.",
	}, s.handleCalls)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "callers",
		Description: "List the symbols that call a given symbol.",
	}, s.handleCallers)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "dependencies",
		Description: "List a symbol's transitive uses-closure.",
	}, s.handleDependencies)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_file",
		Description: "Index one file or directory tree, skipping unchanged content unless force is set.",
	}, s.handleIndexFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex",
		Description: "Force a full re-index of one file or directory tree.",
	}, s.handleReindex)

	s.logger.Debug("registered mcpserver tools", slog.Int("count", 7))
}

func (s *Server) envelope(start time.Time, partial bool) Envelope {
	return Envelope{
		Generation: s.eng.Generation(),
		ElapsedMS:  time.Since(start).Milliseconds(),
		Partial:    partial,
	}
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if in.Query == "" {
		return nil, SearchOutput{}, MapError(ErrEmptyQuery)
	}
	k := in.K
	if k <= 0 {
		k = 10
	}

	result, err := s.eng.Search(ctx, in.Query, k, search.Filters{
		Language:   in.Language,
		Kind:       in.Kind,
		FilePrefix: in.FilePrefix,
	})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{
		Envelope: s.envelope(start, result.Partial),
		Symbols:  make([]ScoredSymbolOutput, 0, len(result.Symbols)),
	}
	for _, sym := range result.Symbols {
		out.Symbols = append(out.Symbols, ScoredSymbolOutput{
			SymbolID:    uint32(sym.SymbolID),
			Name:        sym.Name,
			FilePath:    sym.FilePath,
			Language:    sym.Language,
			Kind:        sym.Kind,
			Score:       sym.Score,
			BM25Score:   sym.BM25Score,
			VecScore:    sym.VecScore,
			InBothLists: sym.InBothLists,
		})
	}
	return nil, out, nil
}

func (s *Server) handleFindSymbol(ctx context.Context, _ *mcp.CallToolRequest, in FindSymbolInput) (*mcp.CallToolResult, FindSymbolOutput, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if in.Name == "" {
		return nil, FindSymbolOutput{}, MapError(ErrEmptyQuery)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.eng.FindSymbol(ctx, in.Name, in.Kind, limit)
	if err != nil {
		return nil, FindSymbolOutput{}, MapError(err)
	}

	out := FindSymbolOutput{
		Envelope: s.envelope(start, false),
		Symbols:  hitsToOutput(hits),
	}
	return nil, out, nil
}

func (s *Server) handleCalls(ctx context.Context, _ *mcp.CallToolRequest, in GraphQueryInput) (*mcp.CallToolResult, GraphQueryOutput, error) {
	return s.handleGraphQuery(ctx, in, s.eng.Calls)
}

func (s *Server) handleCallers(ctx context.Context, _ *mcp.CallToolRequest, in GraphQueryInput) (*mcp.CallToolResult, GraphQueryOutput, error) {
	return s.handleGraphQuery(ctx, in, s.eng.Callers)
}

func (s *Server) handleDependencies(ctx context.Context, _ *mcp.CallToolRequest, in GraphQueryInput) (*mcp.CallToolResult, GraphQueryOutput, error) {
	return s.handleGraphQuery(ctx, in, s.eng.Dependencies)
}

// handleGraphQuery resolves in's target symbol and runs traverse against
// it, sharing the same name-resolution step across Calls/Callers/
// Dependencies since their request and response shapes are identical.
func (s *Server) handleGraphQuery(ctx context.Context, in GraphQueryInput, traverse func(context.Context, symbol.ID) ([]textindex.Hit, error)) (*mcp.CallToolResult, GraphQueryOutput, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, err := s.resolveSymbolID(ctx, in)
	if err != nil {
		return nil, GraphQueryOutput{}, MapError(err)
	}

	hits, err := traverse(ctx, id)
	if err != nil {
		return nil, GraphQueryOutput{}, MapError(err)
	}

	out := GraphQueryOutput{
		Envelope: s.envelope(start, false),
		Symbols:  hitsToOutput(hits),
	}
	return nil, out, nil
}

func (s *Server) resolveSymbolID(ctx context.Context, in GraphQueryInput) (symbol.ID, error) {
	if in.SymbolID != 0 {
		return symbol.ID(in.SymbolID), nil
	}
	if in.Symbol == "" {
		return 0, ErrEmptyQuery
	}
	hits, err := s.eng.FindSymbol(ctx, in.Symbol, "", 1)
	if err != nil {
		return 0, err
	}
	if len(hits) == 0 {
		return 0, ErrSymbolNotFound
	}
	return hits[0].SymbolID, nil
}

func (s *Server) handleIndexFile(ctx context.Context, _ *mcp.CallToolRequest, in IndexFileInput) (*mcp.CallToolResult, IndexOutput, error) {
	return s.runIndex(ctx, in.Path, engine.IndexOptions{Force: in.Force, Language: in.Language})
}

func (s *Server) handleReindex(ctx context.Context, _ *mcp.CallToolRequest, in ReindexInput) (*mcp.CallToolResult, IndexOutput, error) {
	return s.runIndex(ctx, in.Path, engine.IndexOptions{Force: true, Language: in.Language})
}

func (s *Server) runIndex(ctx context.Context, path string, opts engine.IndexOptions) (*mcp.CallToolResult, IndexOutput, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, gen, err := s.eng.Index(ctx, path, opts)
	if err != nil {
		return nil, IndexOutput{}, MapError(err)
	}

	out := IndexOutput{
		Envelope: Envelope{
			Generation: gen.Number,
			ElapsedMS:  time.Since(start).Milliseconds(),
		},
		FilesWalked:    stats.FilesWalked,
		FilesIndexed:   stats.FilesIndexed,
		FilesSkipped:   stats.FilesSkipped,
		FilesUnchanged: stats.FilesUnchanged,
		SymbolsTotal:   stats.SymbolsTotal,
	}
	for _, e := range stats.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	return nil, out, nil
}

func hitsToOutput(hits []textindex.Hit) []SymbolHitOutput {
	out := make([]SymbolHitOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, SymbolHitOutput{
			SymbolID:  uint32(h.SymbolID),
			Name:      h.Name,
			FilePath:  h.FilePath,
			Language:  h.Language,
			Kind:      h.Kind,
			ClusterID: h.ClusterID,
		})
	}
	return out
}

// Serve starts the server on the given transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting mcpserver", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcpserver stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcpserver stopped gracefully")
		return nil
	default:
		return MapError(ErrUnsupportedTransport(transport))
	}
}

// Close releases server resources, including the underlying engine.
func (s *Server) Close() error {
	return s.eng.Close()
}
