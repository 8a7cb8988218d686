package mcpserver

// Envelope is embedded in every successful response: generation,
// elapsed_ms, and a partial flag, regardless of which operation
// produced it.
type Envelope struct {
	Generation uint64 `json:"generation"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Partial    bool   `json:"partial"`
}

// SearchInput is the Search operation's request shape, mirroring the
// CLI's `search <query> [--k N] [--filter <expr>]`.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the hybrid search query"`
	K          int    `json:"k,omitempty" jsonschema:"maximum number of results, default 10"`
	Language   string `json:"language,omitempty" jsonschema:"restrict results to one language id"`
	Kind       string `json:"kind,omitempty" jsonschema:"restrict results to one symbol kind"`
	FilePrefix string `json:"file_prefix,omitempty" jsonschema:"restrict results to files under this path prefix"`
}

// ScoredSymbolOutput is one ranked, fused result.
type ScoredSymbolOutput struct {
	SymbolID    uint32  `json:"symbol_id"`
	Name        string  `json:"name"`
	FilePath    string  `json:"file_path"`
	Language    string  `json:"language"`
	Kind        string  `json:"kind"`
	Score       float64 `json:"score"`
	BM25Score   float64 `json:"bm25_score"`
	VecScore    float64 `json:"vec_score"`
	InBothLists bool    `json:"in_both_lists"`
}

// SearchOutput is the Search operation's response.
type SearchOutput struct {
	Envelope
	Symbols []ScoredSymbolOutput `json:"symbols"`
}

// FindSymbolInput is the FindSymbol operation's request shape, mirroring
// the CLI's `retrieve symbol <name> [--kind <k>] [--limit N]`.
type FindSymbolInput struct {
	Name  string `json:"name" jsonschema:"exact or fuzzy symbol name to resolve"`
	Kind  string `json:"kind,omitempty" jsonschema:"restrict matches to one symbol kind"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of matches, default 10"`
}

// SymbolHitOutput is one resolved symbol.
type SymbolHitOutput struct {
	SymbolID  uint32 `json:"symbol_id"`
	Name      string `json:"name"`
	FilePath  string `json:"file_path"`
	Language  string `json:"language"`
	Kind      string `json:"kind"`
	ClusterID uint64 `json:"cluster_id"`
}

// FindSymbolOutput is the FindSymbol operation's response.
type FindSymbolOutput struct {
	Envelope
	Symbols []SymbolHitOutput `json:"symbols"`
}

// GraphQueryInput is shared by Calls, Callers, and Dependencies, mirroring
// the CLI's `retrieve calls|callers|dependencies <symbol>`: the target
// can be named either by its resolved numeric id or, more commonly over the
// wire, by name — resolved through the same exact/fuzzy lookup
// FindSymbol uses when SymbolID is zero.
type GraphQueryInput struct {
	SymbolID uint32 `json:"symbol_id,omitempty" jsonschema:"resolved symbol id, if already known"`
	Symbol   string `json:"symbol,omitempty" jsonschema:"symbol name to resolve, if symbol_id is not known"`
}

// GraphQueryOutput is the response shape for Calls, Callers, and
// Dependencies.
type GraphQueryOutput struct {
	Envelope
	Symbols []SymbolHitOutput `json:"symbols"`
}

// IndexFileInput is the IndexFile operation's request shape, mirroring
// the CLI's `index <path> [--force] [--language <id>]` applied to a
// single path.
type IndexFileInput struct {
	Path     string `json:"path" jsonschema:"file or directory to index"`
	Force    bool   `json:"force,omitempty" jsonschema:"re-index even if the content hash is unchanged"`
	Language string `json:"language,omitempty" jsonschema:"restrict to one language id"`
}

// ReindexInput is the Reindex operation's request shape: a full,
// forced re-index of path regardless of prior generation state.
type ReindexInput struct {
	Path     string `json:"path" jsonschema:"file or directory to re-index"`
	Language string `json:"language,omitempty" jsonschema:"restrict to one language id"`
}

// IndexOutput is shared by IndexFile and Reindex.
type IndexOutput struct {
	Envelope
	FilesWalked    int      `json:"files_walked"`
	FilesIndexed   int      `json:"files_indexed"`
	FilesSkipped   int      `json:"files_skipped"`
	FilesUnchanged int      `json:"files_unchanged"`
	SymbolsTotal   int      `json:"symbols_total"`
	Errors         []string `json:"errors,omitempty"`
}
