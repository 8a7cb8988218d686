package textindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// document is the bleve document shape for one Symbol: name, doc_comment,
// signature, file_path, language, symbol_id, kind, cluster_id.
// symbol_id/kind/cluster_id are
// stored-but-not-analyzed so Reader can do exact point lookups and
// numeric-range filtering alongside BM25 search on the text fields.
type document struct {
	Name       string `json:"name"`
	DocComment string `json:"doc_comment"`
	Signature  string `json:"signature"`
	FilePath   string `json:"file_path"`
	Language   string `json:"language"`
	SymbolID   uint64 `json:"symbol_id"`
	Kind       string `json:"kind"`
	ClusterID  uint64 `json:"cluster_id"`
}

// buildIndexMapping assembles the index mapping: the code analyzer
// drives name/doc_comment/signature, file_path and language are
// keyword-mapped (exact match, no splitting), and symbol_id/cluster_id
// are numeric fields usable in range queries (bleve v2 has no distinct
// "fast field" concept the way Tantivy does — a stored+indexed numeric
// field plus NumericRangeQuery is the closest equivalent, and is what
// Reader.ByClusterID relies on).
func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	if err := addCodeAnalyzer(im); err != nil {
		return nil, err
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = CodeAnalyzerName

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true
	numeric.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", text)
	docMapping.AddFieldMappingsAt("doc_comment", text)
	docMapping.AddFieldMappingsAt("signature", text)
	docMapping.AddFieldMappingsAt("file_path", keyword)
	docMapping.AddFieldMappingsAt("language", keyword)
	docMapping.AddFieldMappingsAt("kind", keyword)
	docMapping.AddFieldMappingsAt("symbol_id", numeric)
	docMapping.AddFieldMappingsAt("cluster_id", numeric)

	im.DefaultMapping = docMapping
	return im, nil
}
