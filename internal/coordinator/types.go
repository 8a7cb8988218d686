// Package coordinator implements the two-phase-commit update coordinator:
// it takes a batch of internal/indexer FileDeltas and publishes them
// atomically across the text index and vector store, with an undo log
// for crash recovery.
package coordinator

import (
	"context"

	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/symbol"
)

// TextWriter is the subset of internal/textindex's writer the
// coordinator drives during Phase 1/2.
type TextWriter interface {
	AddDocument(ctx context.Context, sym symbol.Symbol, file indexer.FileRecord) error
	DeleteTerm(ctx context.Context, id symbol.ID) error
	Commit(ctx context.Context) (Opstamp, error)
}

// VectorAppend is one staged (not yet visible) vector record destined
// for a segment's .vec file.
type VectorAppend struct {
	Segment  uint32
	SymbolID symbol.ID
	Vector   []float32
}

// VectorStore is the subset of internal/vectorindex the coordinator
// drives: staged appends are invisible until their
// segment's header length is advanced in Phase 2.
type VectorStore interface {
	// StageAppend writes payload bytes for appends but does not advance
	// any segment's committed header length.
	StageAppend(ctx context.Context, appends []VectorAppend) error
	// Tombstone marks ids as removed; actual reclamation happens at
	// segment merge.
	Tombstone(ctx context.Context, ids []symbol.ID) error
	// PublishStaged fsyncs staged bytes and CASes each touched segment's
	// header length to make them visible.
	PublishStaged(ctx context.Context) error
	// DiscardStaged truncates any not-yet-published staged bytes back to
	// their pre-staging length (used by Recover).
	DiscardStaged(ctx context.Context) error
}

// RelationshipStore is the subset of internal/graph the coordinator
// drives: relationships extracted alongside a generation's
// symbols are staged and published atomically with the text and vector
// indexes.
type RelationshipStore interface {
	StageRelationships(ctx context.Context, rels []symbol.Relationship, removed []symbol.ID) error
	PublishStaged(ctx context.Context) error
	DiscardStaged(ctx context.Context) error
}

// Embedder computes a vector for vector-eligible symbols. internal/embed's
// Embedder interface satisfies this; nil means vectors are disabled.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Opstamp is the monotonically increasing commit counter a text-index
// writer hands back from Commit.
type Opstamp uint64

// Generation identifies one published, queryable snapshot").
type Generation struct {
	Opstamp Opstamp
	Number  uint64
}
