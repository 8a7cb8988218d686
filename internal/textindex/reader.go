package textindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/codanna-go/codanna/internal/symbol"
)

// Hit is one scored match from the text index, enough for the search fusion
// stage to join against the symbol table without a second lookup for
// the fields it fuses on.
type Hit struct {
	SymbolID  symbol.ID
	Score     float64
	Name      string
	FilePath  string
	Language  string
	Kind      string
	ClusterID uint64
}

// Filters narrows a Query to a subset of the corpus before scoring.
type Filters struct {
	Language   string
	Kind       string
	FilePrefix string
}

// Reader is the read side of the text index: BM25-scored search plus
// point lookups by symbol id, both used by internal/search.
type Reader struct {
	index bleve.Index
}

// NewReader wraps an already-open bleve.Index (typically Writer.index,
// shared so a single process sees its own writes without reopening).
func NewReader(index bleve.Index) *Reader {
	return &Reader{index: index}
}

// Search runs a BM25 match query against name/doc_comment/signature,
// applying any non-empty Filters as required term/range clauses.
func (r *Reader) Search(ctx context.Context, q string, limit int, f Filters) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}

	must := []query.Query{bleve.NewMatchQuery(q)}
	if f.Language != "" {
		tq := bleve.NewTermQuery(f.Language)
		tq.SetField("language")
		must = append(must, tq)
	}
	if f.Kind != "" {
		tq := bleve.NewTermQuery(f.Kind)
		tq.SetField("kind")
		must = append(must, tq)
	}
	if f.FilePrefix != "" {
		pq := bleve.NewPrefixQuery(f.FilePrefix)
		pq.SetField("file_path")
		must = append(must, pq)
	}

	var bq query.Query
	if len(must) == 1 {
		bq = must[0]
	} else {
		cq := bleve.NewConjunctionQuery(must...)
		bq = cq
	}

	req := bleve.NewSearchRequest(bq)
	req.Size = limit
	req.Fields = []string{"name", "file_path", "language", "kind", "symbol_id", "cluster_id"}

	result, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}
	return hits, nil
}

// ByClusterID returns every document whose cluster_id matches cluster,
// the fast-field-style access that lets the vector index restrict
// candidate symbols to one IVF-Flat cluster before exact scoring.
// bleve v2 has no dedicated fast-field store, so this runs a numeric
// range query (min==max==cluster) over the stored cluster_id field — the
// closest equivalent available in the pack's search library.
func (r *Reader) ByClusterID(ctx context.Context, cluster uint64) ([]Hit, error) {
	c := float64(cluster)
	nq := bleve.NewNumericRangeInclusiveQuery(&c, &c, boolPtr(true), boolPtr(true))
	nq.SetField("cluster_id")

	req := bleve.NewSearchRequest(nq)
	req.Size = 10_000
	req.Fields = []string{"name", "file_path", "language", "kind", "symbol_id", "cluster_id"}

	result, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cluster lookup: %w", err)
	}
	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, hitFromMatch(h))
	}
	return hits, nil
}

// ByID looks up a single symbol's document by its id.
func (r *Reader) ByID(ctx context.Context, id symbol.ID) (Hit, bool, error) {
	tq := bleve.NewDocIDQuery([]string{docID(id)})
	req := bleve.NewSearchRequest(tq)
	req.Size = 1
	req.Fields = []string{"name", "file_path", "language", "kind", "symbol_id", "cluster_id"}

	result, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return Hit{}, false, fmt.Errorf("id lookup: %w", err)
	}
	if len(result.Hits) == 0 {
		return Hit{}, false, nil
	}
	return hitFromMatch(result.Hits[0]), true, nil
}

func hitFromMatch(h *search.DocumentMatch) Hit {
	hit := Hit{Score: h.Score}
	if v, ok := h.Fields["name"].(string); ok {
		hit.Name = v
	}
	if v, ok := h.Fields["file_path"].(string); ok {
		hit.FilePath = v
	}
	if v, ok := h.Fields["language"].(string); ok {
		hit.Language = v
	}
	if v, ok := h.Fields["kind"].(string); ok {
		hit.Kind = v
	}
	if v, ok := h.Fields["cluster_id"].(float64); ok {
		hit.ClusterID = uint64(v)
	}
	if id, err := strconv.ParseUint(h.ID, 10, 32); err == nil {
		hit.SymbolID = symbol.ID(id)
	}
	return hit
}

func boolPtr(b bool) *bool { return &b }
