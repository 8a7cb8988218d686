// Package indexer drives the file-level indexing pipeline: it walks a workspace, hashes file content, dispatches
// to internal/parsing and internal/lang, and produces FileDeltas for
// the update coordinator (internal/coordinator).
package indexer

import (
	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/symbol"
)

// ContentHash is a SHA-256 digest of a file's raw bytes, used only to
// decide whether a file needs reparsing. This is distinct from
// symbol.Fingerprint (xxhash, per-symbol change detection): one protects
// "did the file change at all", the other "did this symbol change".
type ContentHash [32]byte

// FileRecord is the indexer's durable view of one workspace file.
type FileRecord struct {
	ID          symbol.FileID
	Path        string
	ContentHash ContentHash
	LanguageID  parsing.LanguageID
	ModulePath  string
	Degraded    bool
}

// FileDelta is the unit of work handed to the update coordinator: the symbols and relationships added, modified, or
// removed by reindexing one file.
type FileDelta struct {
	File     FileRecord
	Added    []symbol.Symbol
	Modified []symbol.Symbol
	Removed  []symbol.ID
	// Unchanged holds symbols whose fingerprint matched the prior
	// generation exactly: same identity, same signature. They carry
	// their stable id forward but need no text/vector re-staging, so
	// only SymbolTable.Commit consumes this field — the coordinator
	// never sees it.
	Unchanged     []symbol.Symbol
	Relationships []symbol.Relationship
	Imports       []symbol.Import
}

// Empty reports whether the delta carries no changes at all — the case
// where a file was touched but only whitespace or comments changed.
func (d FileDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// FileError is a non-fatal per-file failure collected during a run
//.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// Stats summarizes one indexing run.
type Stats struct {
	FilesWalked    int
	FilesSkipped   int
	FilesIndexed   int
	FilesUnchanged int
	SymbolsTotal   int
	Errors         []FileError
}
