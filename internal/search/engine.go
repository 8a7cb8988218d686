package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

// ErrNilDependency is returned by New when a required dependency is nil.
var ErrNilDependency = errors.New("search: nil dependency")

// Engine is the hybrid search engine. A
// single Engine is safe for concurrent Search calls.
type Engine struct {
	text     TextSearcher
	vector   VectorSearcher
	embedder Embedder
	cfg      Config
}

// New creates an Engine. vector and embedder may both be nil to run
// text-only, since vectors are an optional subsystem.
func New(text TextSearcher, vector VectorSearcher, embedder Embedder, cfg Config) (*Engine, error) {
	if text == nil {
		return nil, fmt.Errorf("%w: text searcher is required", ErrNilDependency)
	}
	return &Engine{text: text, vector: vector, embedder: embedder, cfg: cfg.withDefaults()}, nil
}

// Search executes one hybrid query: text and vector
// candidates are gathered concurrently, up to 2·k each, fused by the
// engine's configured Strategy, then re-materialized against the text
// index. The call is bounded by cfg.Budget; candidates not yet
// materialized when the budget expires are dropped and Result.Partial
// is set rather than blocking indefinitely.
func (e *Engine) Search(ctx context.Context, query string, k int, filters Filters) (Result, error) {
	if k <= 0 {
		k = 10
	}
	candidates := k * e.cfg.CandidateMultiplier

	budgetCtx, cancel := context.WithTimeout(ctx, e.cfg.Budget)
	defer cancel()

	bm25Hits, vecHits, searchErr := e.parallelSearch(budgetCtx, query, candidates, filters)
	if searchErr != nil && len(bm25Hits) == 0 && len(vecHits) == 0 {
		return Result{}, searchErr
	}

	var fusedList []*fused
	switch e.cfg.Strategy {
	case StrategyLinearBlend:
		fusedList = fuseLinearBlend(bm25Hits, vecHits, e.cfg.LinearBM25Weight, e.cfg.LinearVecWeight)
	default:
		fusedList = fuseRRF(bm25Hits, vecHits, e.cfg.RRFConstant)
	}

	symbols, partial := e.materialize(budgetCtx, fusedList, k, filters)
	if errors.Is(budgetCtx.Err(), context.DeadlineExceeded) {
		partial = true
	}
	return Result{Symbols: symbols, Partial: partial}, nil
}

// parallelSearch runs the text and vector searches concurrently. A failure in
// one source degrades gracefully to the other rather than failing the
// whole query.
func (e *Engine) parallelSearch(ctx context.Context, query string, candidates int, filters Filters) ([]textindex.Hit, []vectorindex.ScoredVector, error) {
	g, gctx := errgroup.WithContext(ctx)

	var bm25Hits []textindex.Hit
	var vecHits []vectorindex.ScoredVector
	var bm25Err, vecErr error

	g.Go(func() error {
		hits, err := e.text.Search(gctx, query, candidates, filters.textFilters())
		if err != nil {
			bm25Err = err
			return nil
		}
		bm25Hits = hits
		return nil
	})

	g.Go(func() error {
		if e.vector == nil || e.embedder == nil {
			return nil
		}
		vec, err := e.embedder.Embed(gctx, query)
		if err != nil {
			vecErr = err
			return nil
		}
		hits, err := e.vector.Query(gctx, vec, candidates)
		if err != nil {
			vecErr = err
			return nil
		}
		vecHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return bm25Hits, vecHits, err
	}

	if bm25Err != nil && vecErr != nil {
		return nil, nil, errors.Join(bm25Err, vecErr)
	}
	if bm25Err != nil {
		return bm25Hits, vecHits, bm25Err
	}
	return bm25Hits, vecHits, vecErr
}

// materialize resolves up to k fused candidates into full ScoredSymbol
// records via text-index point lookups, applying filters a second time so a
// vector-only candidate that doesn't match Language/Kind/FilePrefix is
// dropped even though it never passed through the text-side pre-filter.
// A symbol_id with no live text-index document (a stale vector left over
// from a symbol that was since removed) is skipped rather than erroring.
func (e *Engine) materialize(ctx context.Context, fusedList []*fused, k int, filters Filters) ([]ScoredSymbol, bool) {
	out := make([]ScoredSymbol, 0, k)
	for _, f := range fusedList {
		if len(out) >= k {
			break
		}
		if ctx.Err() != nil {
			return out, true
		}
		hit, ok, err := e.text.ByID(ctx, f.SymbolID)
		if err != nil || !ok {
			continue
		}
		if !filters.matches(hit) {
			continue
		}
		out = append(out, ScoredSymbol{
			SymbolID:    f.SymbolID,
			Name:        hit.Name,
			FilePath:    hit.FilePath,
			Language:    hit.Language,
			Kind:        hit.Kind,
			Score:       f.Score,
			BM25Score:   f.BM25Score,
			VecScore:    f.VecScore,
			BM25Rank:    f.BM25Rank,
			VecRank:     f.VecRank,
			InBothLists: f.InBothLists,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].BM25Score != out[j].BM25Score {
			return out[i].BM25Score > out[j].BM25Score
		}
		return out[i].SymbolID < out[j].SymbolID
	})
	return out, false
}
