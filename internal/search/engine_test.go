package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

type fakeTextSearcher struct {
	hits []textindex.Hit
	byID map[symbol.ID]textindex.Hit
}

func (f *fakeTextSearcher) Search(_ context.Context, _ string, limit int, filters textindex.Filters) ([]textindex.Hit, error) {
	out := make([]textindex.Hit, 0, len(f.hits))
	for _, h := range f.hits {
		if filters.Language != "" && h.Language != filters.Language {
			continue
		}
		out = append(out, h)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTextSearcher) ByID(_ context.Context, id symbol.ID) (textindex.Hit, bool, error) {
	h, ok := f.byID[id]
	return h, ok, nil
}

type fakeVectorSearcher struct {
	results []vectorindex.ScoredVector
}

func (f *fakeVectorSearcher) Query(_ context.Context, _ []float32, topN int) ([]vectorindex.ScoredVector, error) {
	out := f.results
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, nil }

func byIDFromHits(hits []textindex.Hit) map[symbol.ID]textindex.Hit {
	m := make(map[symbol.ID]textindex.Hit, len(hits))
	for _, h := range hits {
		m[h.SymbolID] = h
	}
	return m
}

func TestEngineSearchFusesTextAndVectorResults(t *testing.T) {
	hits := []textindex.Hit{
		{SymbolID: symbol.ID(1), Name: "ParseJSON", FilePath: "json.go", Language: "go", Kind: "function", Score: 5.0},
		{SymbolID: symbol.ID(2), Name: "DecodeJSON", FilePath: "decode.go", Language: "go", Kind: "function", Score: 3.0},
	}
	text := &fakeTextSearcher{hits: hits, byID: byIDFromHits(hits)}
	vector := &fakeVectorSearcher{results: []vectorindex.ScoredVector{
		{SymbolID: symbol.ID(1), Score: 0.95},
		{SymbolID: symbol.ID(2), Score: 0.8},
	}}

	e, err := New(text, vector, fakeEmbedder{vec: []float32{1, 0}}, DefaultConfig())
	require.NoError(t, err)

	result, err := e.Search(context.Background(), "parse json", 5, Filters{})
	require.NoError(t, err)
	require.False(t, result.Partial)
	require.Len(t, result.Symbols, 2)
	require.Equal(t, symbol.ID(1), result.Symbols[0].SymbolID)
	require.True(t, result.Symbols[0].InBothLists)
}

func TestEngineSearchFiltersAppliedPostFusionToVectorOnlyCandidate(t *testing.T) {
	hits := []textindex.Hit{
		{SymbolID: symbol.ID(1), Name: "Handler", FilePath: "api/handler.go", Language: "go", Kind: "function", Score: 2.0},
		{SymbolID: symbol.ID(2), Name: "handlePy", FilePath: "api/handler.py", Language: "python", Kind: "function", Score: 2.0},
	}
	text := &fakeTextSearcher{byID: byIDFromHits(hits)} // Search returns nothing; vector-only path
	vector := &fakeVectorSearcher{results: []vectorindex.ScoredVector{
		{SymbolID: symbol.ID(1), Score: 0.9},
		{SymbolID: symbol.ID(2), Score: 0.85},
	}}

	e, err := New(text, vector, fakeEmbedder{vec: []float32{1, 0}}, DefaultConfig())
	require.NoError(t, err)

	result, err := e.Search(context.Background(), "handler", 5, Filters{Language: "go"})
	require.NoError(t, err)
	require.Len(t, result.Symbols, 1)
	require.Equal(t, symbol.ID(1), result.Symbols[0].SymbolID)
}

func TestEngineSearchRunsTextOnlyWhenVectorSearcherIsNil(t *testing.T) {
	hits := []textindex.Hit{{SymbolID: symbol.ID(1), Name: "Foo", FilePath: "foo.go", Language: "go", Kind: "function", Score: 1.0}}
	text := &fakeTextSearcher{hits: hits, byID: byIDFromHits(hits)}

	e, err := New(text, nil, nil, DefaultConfig())
	require.NoError(t, err)

	result, err := e.Search(context.Background(), "foo", 5, Filters{})
	require.NoError(t, err)
	require.Len(t, result.Symbols, 1)
}

func TestEngineSearchHonorsLatencyBudget(t *testing.T) {
	hits := []textindex.Hit{{SymbolID: symbol.ID(1), Name: "Slow", FilePath: "slow.go", Language: "go", Kind: "function", Score: 1.0}}
	text := &fakeTextSearcher{hits: hits, byID: byIDFromHits(hits)}

	cfg := DefaultConfig()
	cfg.Budget = time.Nanosecond

	e, err := New(text, nil, nil, cfg)
	require.NoError(t, err)

	result, _ := e.Search(context.Background(), "slow", 5, Filters{})
	require.True(t, result.Partial)
}

func TestNewRejectsNilTextSearcher(t *testing.T) {
	_, err := New(nil, nil, nil, DefaultConfig())
	require.Error(t, err)
}
