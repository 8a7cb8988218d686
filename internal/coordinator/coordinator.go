package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/symbol"
)

// Config wires a Coordinator to its dependencies.
type Config struct {
	IndexDir string
	Text     TextWriter
	Vectors  VectorStore
	Graph    RelationshipStore // nil disables relationship-graph persistence
	Embedder Embedder // nil disables the vector path
	Interner *symbol.Interner
	// VectorSourceIncludesDocComment controls whether doc-comment-only
	// changes require re-embedding: when false, editing only a doc
	// comment never triggers a fresh embed. Default true for
	// docstring-rich languages is decided by the caller (internal/config).
	VectorSourceIncludesDocComment bool
}

// Coordinator drives a two-phase commit over a batch of file deltas. A
// single writer goroutine is expected to call Commit; concurrent parser
// workers (internal/indexer.Pipeline) may run ahead of it and simply
// hand their FileDeltas to the next Commit call, matching the
// model in which one writer holds the text-index writer and drives Phase 2.
type Coordinator struct {
	cfg        Config
	undo       *undoLog
	mu         sync.Mutex // serializes Commit calls; only one generation stages at a time
	generation atomic.Uint64
}

// New creates a Coordinator. Callers should call Recover once at
// startup before the first Commit.
func New(cfg Config) *Coordinator {
	return &Coordinator{cfg: cfg, undo: newUndoLog(cfg.IndexDir)}
}

// Recover rolls back any commit that was interrupted mid-flight: staged
// vector appends are truncated and the undo log is cleared. The text
// index is the source of truth for symbol existence, so nothing needs
// undoing there — an uncommitted text-index
// transaction is simply discarded by the process exiting.
func (c *Coordinator) Recover(ctx context.Context) error {
	rec, pending, err := c.undo.Read()
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}
	slog.Warn("recovering from interrupted commit",
		slog.Int("segments", len(rec.Segments)),
		slog.Int("staged_symbols", len(rec.StagedSymbols)))

	if err := c.cfg.Vectors.DiscardStaged(ctx); err != nil {
		return fmt.Errorf("discard staged vectors during recovery: %w", err)
	}
	if c.cfg.Graph != nil {
		if err := c.cfg.Graph.DiscardStaged(ctx); err != nil {
			return fmt.Errorf("discard staged relationships during recovery: %w", err)
		}
	}
	return c.undo.Truncate()
}

// Commit executes the two-phase commit for a batch of deltas. It returns the newly published Generation.
func (c *Coordinator) Commit(ctx context.Context, deltas []indexer.FileDelta) (Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(deltas) == 0 {
		return Generation{Number: c.generation.Load()}, nil
	}

	rec, vectorAppends, err := c.stage(ctx, deltas)
	if err != nil {
		return Generation{}, fmt.Errorf("stage phase: %w", err)
	}
	if err := c.undo.Write(rec); err != nil {
		return Generation{}, fmt.Errorf("write undo log: %w", err)
	}

	opstamp, err := c.commitPhase(ctx, vectorAppends)
	if err != nil {
		// Staged bytes remain on disk; the undo log still names them, so
		// a restart (or an explicit Recover call) will clean them up.
		return Generation{}, fmt.Errorf("commit phase: %w", err)
	}

	if err := c.undo.Truncate(); err != nil {
		return Generation{}, fmt.Errorf("truncate undo log: %w", err)
	}

	number := c.generation.Add(1)
	return Generation{Opstamp: opstamp, Number: number}, nil
}

// stage executes Phase 1: delete terms for
// removed/modified symbols, add documents for added/modified symbols,
// and stage vector appends for vector-eligible ones.
func (c *Coordinator) stage(ctx context.Context, deltas []indexer.FileDelta) (undoRecord, []VectorAppend, error) {
	var rec undoRecord
	var appends []VectorAppend
	segmentsSeen := map[uint32]bool{}

	for _, d := range deltas {
		if c.cfg.Graph != nil && (len(d.Relationships) > 0 || len(d.Removed) > 0) {
			if err := c.cfg.Graph.StageRelationships(ctx, d.Relationships, d.Removed); err != nil {
				return rec, nil, fmt.Errorf("stage relationships: %w", err)
			}
		}
		for _, id := range d.Removed {
			if err := c.cfg.Text.DeleteTerm(ctx, id); err != nil {
				return rec, nil, err
			}
			rec.TombstonedIDs = append(rec.TombstonedIDs, id)
		}
		for _, s := range d.Modified {
			if err := c.cfg.Text.DeleteTerm(ctx, s.ID); err != nil {
				return rec, nil, err
			}
			// The symbol keeps its id, but its prior vector record (if
			// any) no longer matches the re-embedded text; tombstone it
			// before the replacement is staged below, the same way a
			// removed symbol's vector id is tombstoned above.
			rec.TombstonedIDs = append(rec.TombstonedIDs, s.ID)
		}

		for _, s := range append(append([]symbol.Symbol{}, d.Added...), d.Modified...) {
			if err := c.cfg.Text.AddDocument(ctx, s, d.File); err != nil {
				return rec, nil, err
			}
			rec.StagedSymbols = append(rec.StagedSymbols, s.ID)

			if !s.VectorEligible || c.cfg.Embedder == nil {
				continue
			}
			vec, err := c.cfg.Embedder.Embed(ctx, c.embeddingSourceFor(s))
			if err != nil {
				return rec, nil, fmt.Errorf("embed symbol %d: %w", s.ID, err)
			}
			segment := segmentFor(s.FileID)
			segmentsSeen[segment] = true
			appends = append(appends, VectorAppend{Segment: segment, SymbolID: s.ID, Vector: vec})
		}
	}

	if err := c.cfg.Vectors.StageAppend(ctx, appends); err != nil {
		return rec, nil, err
	}
	if err := c.cfg.Vectors.Tombstone(ctx, rec.TombstonedIDs); err != nil {
		return rec, nil, err
	}

	for seg := range segmentsSeen {
		rec.Segments = append(rec.Segments, seg)
	}
	return rec, appends, nil
}

// commitPhase executes Phase 2: fsync and publish
// staged vectors, then commit the text-index writer.
func (c *Coordinator) commitPhase(ctx context.Context, appends []VectorAppend) (Opstamp, error) {
	if len(appends) > 0 {
		if err := c.cfg.Vectors.PublishStaged(ctx); err != nil {
			return 0, err
		}
	}
	if c.cfg.Graph != nil {
		if err := c.cfg.Graph.PublishStaged(ctx); err != nil {
			return 0, fmt.Errorf("publish relationships: %w", err)
		}
	}
	return c.cfg.Text.Commit(ctx)
}

// embeddingSourceFor builds the text fed to the embedder for symbol s:
// name and signature always, plus the doc comment when the policy flag
// is set and the symbol has one.
func (c *Coordinator) embeddingSourceFor(s symbol.Symbol) string {
	name, _ := c.cfg.Interner.Resolve(s.Name)
	sig, _ := c.cfg.Interner.Resolve(s.Signature)

	text := name
	if sig != "" {
		text += " " + sig
	}
	if c.cfg.VectorSourceIncludesDocComment {
		if doc, ok := c.cfg.Interner.Resolve(s.DocComment); ok && doc != "" {
			text += "\n" + doc
		}
	}
	return text
}

// segmentFor maps a FileID to the text-index segment ordinal its
// symbols belong to. Segment assignment is owned by internal/textindex;
// this placeholder keeps vector appends grouped per file until that
// package's real mapping is wired in.
func segmentFor(fileID symbol.FileID) uint32 {
	return uint32(fileID)
}
