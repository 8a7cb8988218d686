package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

func TestFuseRRFRanksDocumentInBothListsAboveEitherAlone(t *testing.T) {
	bm25 := []textindex.Hit{
		{SymbolID: symbol.ID(1), Score: 5.0}, // only in bm25
		{SymbolID: symbol.ID(2), Score: 4.0}, // in both
	}
	vec := []vectorindex.ScoredVector{
		{SymbolID: symbol.ID(2), Score: 0.9}, // in both
		{SymbolID: symbol.ID(3), Score: 0.8}, // only in vec
	}

	out := fuseRRF(bm25, vec, 60)
	require.Len(t, out, 3)
	require.Equal(t, symbol.ID(2), out[0].SymbolID, "document in both lists should rank first")
	require.True(t, out[0].InBothLists)
}

func TestFuseRRFTieBreaksBySymbolIDAscending(t *testing.T) {
	bm25 := []textindex.Hit{
		{SymbolID: symbol.ID(9), Score: 1.0},
		{SymbolID: symbol.ID(5), Score: 1.0},
	}
	// Swapped ranks give both ids the same RRF score, both lists and the
	// same BM25 score, so only the SymbolID tie-break separates them.
	vec := []vectorindex.ScoredVector{
		{SymbolID: symbol.ID(5), Score: 0.9},
		{SymbolID: symbol.ID(9), Score: 0.9},
	}
	out := fuseRRF(bm25, vec, 60)
	require.Len(t, out, 2)
	require.Equal(t, symbol.ID(5), out[0].SymbolID)
	require.Equal(t, symbol.ID(9), out[1].SymbolID)
}

func TestFuseRRFNormalizesTopScoreToOne(t *testing.T) {
	bm25 := []textindex.Hit{{SymbolID: symbol.ID(1), Score: 3.0}}
	vec := []vectorindex.ScoredVector{{SymbolID: symbol.ID(2), Score: 0.5}}

	out := fuseRRF(bm25, vec, 60)
	require.Equal(t, 1.0, out[0].Score)
}

func TestFuseRRFEmptyInputsReturnsNil(t *testing.T) {
	require.Nil(t, fuseRRF(nil, nil, 60))
}

func TestFuseLinearBlendWeightsBM25AndVectorContributions(t *testing.T) {
	bm25 := []textindex.Hit{{SymbolID: symbol.ID(1), Score: 10.0}}
	vec := []vectorindex.ScoredVector{{SymbolID: symbol.ID(1), Score: 1.0}}

	out := fuseLinearBlend(bm25, vec, 0.7, 0.3)
	require.Len(t, out, 1)
	require.InDelta(t, 1.0, out[0].Score, 1e-9, "normalized bm25 (1.0) * 0.7 + vec (1.0) * 0.3 == 1.0")
}
