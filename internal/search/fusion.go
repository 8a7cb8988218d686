package search

import (
	"sort"

	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
	"github.com/codanna-go/codanna/internal/vectorindex"
)

// fused accumulates one symbol's per-source scores before
// re-materialization. It is the unexported analogue of ScoredSymbol
// during fusion, before file path / language / kind are filled in from
// a text-index point lookup.
type fused struct {
	SymbolID    symbol.ID
	Score       float64
	BM25Score   float64
	BM25Rank    int
	VecScore    float64
	VecRank     int
	InBothLists bool
}

func getOrCreate(m map[symbol.ID]*fused, id symbol.ID) *fused {
	f, ok := m[id]
	if !ok {
		f = &fused{SymbolID: id}
		m[id] = f
	}
	return f
}

// fuseRRF combines bm25 and vec candidate lists with unweighted
// Reciprocal Rank Fusion: score(d) = Σ 1/(k+rank_i(d)) over the sources
// where d appears. Documents in only one list receive the
// missing source's contribution at rank max(len(bm25),len(vec))+1.
func fuseRRF(bm25 []textindex.Hit, vec []vectorindex.ScoredVector, k int) []*fused {
	if len(bm25) == 0 && len(vec) == 0 {
		return nil
	}

	scores := make(map[symbol.ID]*fused, len(bm25)+len(vec))

	for rank, h := range bm25 {
		f := getOrCreate(scores, h.SymbolID)
		f.BM25Score = h.Score
		f.BM25Rank = rank + 1
		f.Score += 1 / float64(k+rank+1)
	}

	for rank, v := range vec {
		f := getOrCreate(scores, v.SymbolID)
		f.VecScore = float64(v.Score)
		f.VecRank = rank + 1
		f.Score += 1 / float64(k+rank+1)
		if f.BM25Rank > 0 {
			f.InBothLists = true
		}
	}

	missingRank := len(bm25)
	if len(vec) > missingRank {
		missingRank = len(vec)
	}
	missingRank++

	for _, f := range scores {
		if f.BM25Rank == 0 && f.VecRank > 0 {
			f.Score += 1 / float64(k+missingRank)
		}
		if f.VecRank == 0 && f.BM25Rank > 0 {
			f.Score += 1 / float64(k+missingRank)
		}
	}

	out := toSortedSlice(scores)
	normalizeFused(out)
	return out
}

// fuseLinearBlend combines bm25 and vec candidate lists as
// bm25Weight·BM25_norm + vecWeight·cos_sim. BM25 scores are normalized by the
// maximum score in the candidate set; cosine similarity is already in
// a bounded range and is used as-is.
func fuseLinearBlend(bm25 []textindex.Hit, vec []vectorindex.ScoredVector, bm25Weight, vecWeight float64) []*fused {
	if len(bm25) == 0 && len(vec) == 0 {
		return nil
	}

	var maxBM25 float64
	for _, h := range bm25 {
		if h.Score > maxBM25 {
			maxBM25 = h.Score
		}
	}

	scores := make(map[symbol.ID]*fused, len(bm25)+len(vec))

	for rank, h := range bm25 {
		f := getOrCreate(scores, h.SymbolID)
		f.BM25Score = h.Score
		f.BM25Rank = rank + 1
		norm := h.Score
		if maxBM25 > 0 {
			norm = h.Score / maxBM25
		}
		f.Score += bm25Weight * norm
	}

	for rank, v := range vec {
		f := getOrCreate(scores, v.SymbolID)
		f.VecScore = float64(v.Score)
		f.VecRank = rank + 1
		f.Score += vecWeight * float64(v.Score)
		if f.BM25Rank > 0 {
			f.InBothLists = true
		}
	}

	out := toSortedSlice(scores)
	normalizeFused(out)
	return out
}

func toSortedSlice(m map[symbol.ID]*fused) []*fused {
	out := make([]*fused, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return compareFused(out[i], out[j]) })
	return out
}

// compareFused orders fused results: higher combined score first, then
// documents present in both lists, then higher BM25 score, then
// SymbolId ascending for determinism.
func compareFused(a, b *fused) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}
	return a.SymbolID < b.SymbolID
}

// normalizeFused scales every score to [0,1] using the top result
// (already sorted first) as the reference.
func normalizeFused(results []*fused) {
	if len(results) == 0 {
		return
	}
	max := results[0].Score
	if max == 0 {
		return
	}
	for _, f := range results {
		f.Score /= max
	}
}
