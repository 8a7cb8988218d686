// Package search implements the hybrid search engine: it runs the text
// index and vector store concurrently, fuses their candidate lists, and
// re-materializes the final ranking against the text index.
package search

import (
	"context"
	"time"

	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

// Strategy selects the fusion algorithm. It is fixed at index-creation
// and recorded in index metadata; a running Engine never
// switches strategies mid-query.
type Strategy string

const (
	// StrategyRRF is Reciprocal Rank Fusion, the default.
	StrategyRRF Strategy = "rrf"
	// StrategyLinearBlend is the weighted-sum alternative.
	StrategyLinearBlend Strategy = "linear_blend"
)

// Config configures an Engine.
type Config struct {
	Strategy Strategy

	// RRFConstant is k_rrf in score(d) = Σ 1/(k_rrf+rank_i) (default 60).
	RRFConstant int

	// LinearBM25Weight and LinearVecWeight apply when Strategy is
	// StrategyLinearBlend (defaults 0.7 and 0.3).
	LinearBM25Weight float64
	LinearVecWeight  float64

	// CandidateMultiplier controls how many candidates each source
	// returns relative to k (default 2: up to 2·k candidates per side).
	CandidateMultiplier int

	// Budget is the soft per-query latency budget (default 25ms); a query
	// that exceeds it returns whatever has been fused so far with
	// Result.Partial set.
	Budget time.Duration
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyRRF,
		RRFConstant:         60,
		LinearBM25Weight:    0.7,
		LinearVecWeight:     0.3,
		CandidateMultiplier: 2,
		Budget:              25 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyRRF
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = 60
	}
	if c.LinearBM25Weight == 0 && c.LinearVecWeight == 0 {
		c.LinearBM25Weight, c.LinearVecWeight = 0.7, 0.3
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = 2
	}
	if c.Budget <= 0 {
		c.Budget = 25 * time.Millisecond
	}
	return c
}

// Filters restricts a search. Language, Kind and FilePrefix are applied
// pre-fusion on the text side and, during re-materialization, to every
// candidate regardless of origin — which is how a vector-only candidate
// picks up a post-fusion filter via the symbol_id → file_id mapping the
// text index supplies at lookup time.
type Filters struct {
	Language   string
	Kind       string
	FilePrefix string
}

func (f Filters) textFilters() textindex.Filters {
	return textindex.Filters{Language: f.Language, Kind: f.Kind, FilePrefix: f.FilePrefix}
}

func (f Filters) matches(h textindex.Hit) bool {
	if f.Language != "" && h.Language != f.Language {
		return false
	}
	if f.Kind != "" && h.Kind != f.Kind {
		return false
	}
	if f.FilePrefix != "" && !hasPathPrefix(h.FilePath, f.FilePrefix) {
		return false
	}
	return true
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

// ScoredSymbol is one ranked, fully materialized hit.
type ScoredSymbol struct {
	SymbolID    symbol.ID
	Name        string
	FilePath    string
	Language    string
	Kind        string
	Score       float64
	BM25Score   float64
	VecScore    float64
	BM25Rank    int
	VecRank     int
	InBothLists bool
}

// Result is the outcome of one Search call.
type Result struct {
	Symbols []ScoredSymbol
	// Partial is set when the latency budget was exceeded before every
	// candidate could be re-materialized.
	Partial bool
}

// TextSearcher is the subset of internal/textindex.Reader the engine
// drives. *textindex.Reader satisfies it directly.
type TextSearcher interface {
	Search(ctx context.Context, q string, limit int, f textindex.Filters) ([]textindex.Hit, error)
	ByID(ctx context.Context, id symbol.ID) (textindex.Hit, bool, error)
}

// VectorSearcher is the subset of internal/vectorindex.Store the engine
// drives. *vectorindex.Store satisfies it directly.
type VectorSearcher interface {
	Query(ctx context.Context, query []float32, topN int) ([]vectorindex.ScoredVector, error)
}

// Embedder computes a vector for a query string. nil disables the
// vector side of a search, matching internal/coordinator.Embedder's shape.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
