package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/symbol"
)

type fakeText struct {
	added   []symbol.Symbol
	deleted []symbol.ID
	commits int
}

func (f *fakeText) AddDocument(_ context.Context, s symbol.Symbol, _ indexer.FileRecord) error {
	f.added = append(f.added, s)
	return nil
}
func (f *fakeText) DeleteTerm(_ context.Context, id symbol.ID) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeText) Commit(context.Context) (Opstamp, error) {
	f.commits++
	return Opstamp(f.commits), nil
}

type fakeVectors struct {
	staged      []VectorAppend
	tombstoned  []symbol.ID
	published   int
	discarded   int
}

func (f *fakeVectors) StageAppend(_ context.Context, appends []VectorAppend) error {
	f.staged = append(f.staged, appends...)
	return nil
}
func (f *fakeVectors) Tombstone(_ context.Context, ids []symbol.ID) error {
	f.tombstoned = append(f.tombstoned, ids...)
	return nil
}
func (f *fakeVectors) PublishStaged(context.Context) error { f.published++; return nil }
func (f *fakeVectors) DiscardStaged(context.Context) error { f.discarded++; return nil }

type fakeGraph struct {
	staged    []symbol.Relationship
	removed   []symbol.ID
	published int
	discarded int
}

func (f *fakeGraph) StageRelationships(_ context.Context, rels []symbol.Relationship, removed []symbol.ID) error {
	f.staged = append(f.staged, rels...)
	f.removed = append(f.removed, removed...)
	return nil
}
func (f *fakeGraph) PublishStaged(context.Context) error { f.published++; return nil }
func (f *fakeGraph) DiscardStaged(context.Context) error { f.discarded++; return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func newHarness(t *testing.T) (*Coordinator, *fakeText, *fakeVectors, *symbol.Interner) {
	t.Helper()
	interner := symbol.NewInterner()
	text := &fakeText{}
	vectors := &fakeVectors{}
	c := New(Config{
		IndexDir: t.TempDir(),
		Text:     text,
		Vectors:  vectors,
		Embedder: fakeEmbedder{},
		Interner: interner,
		VectorSourceIncludesDocComment: true,
	})
	return c, text, vectors, interner
}

func TestCommitPublishesGenerationAndTruncatesUndoLog(t *testing.T) {
	c, text, vectors, interner := newHarness(t)
	name, _ := interner.Intern("add")

	delta := indexer.FileDelta{
		File:  indexer.FileRecord{ID: symbol.FileID(1), Path: "main.go"},
		Added: []symbol.Symbol{{ID: symbol.ID(1), Name: name, Kind: symbol.KindFunction, FileID: symbol.FileID(1), VectorEligible: true}},
	}

	gen, err := c.Commit(context.Background(), []indexer.FileDelta{delta})
	require.NoError(t, err)
	require.Equal(t, uint64(1), gen.Number)
	require.Len(t, text.added, 1)
	require.Equal(t, 1, vectors.published)
	require.Len(t, vectors.staged, 1)

	_, pending, err := c.undo.Read()
	require.NoError(t, err)
	require.False(t, pending)
}

func TestCommitWithNoDeltasIsNoop(t *testing.T) {
	c, text, vectors, _ := newHarness(t)
	gen, err := c.Commit(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), gen.Number)
	require.Empty(t, text.added)
	require.Equal(t, 0, vectors.published)
}

// TestRecoverDiscardsStagedVectorsAfterSimulatedCrash covers a commit
// that wrote its undo log but never truncated it (simulating a crash
// between Phase 1 and the successful end of Phase 2): its staged
// vectors must be discarded on the next Recover.
func TestRecoverDiscardsStagedVectorsAfterSimulatedCrash(t *testing.T) {
	c, _, vectors, _ := newHarness(t)

	require.NoError(t, c.undo.Write(undoRecord{
		Segments:      []uint32{1},
		StagedSymbols: []symbol.ID{1, 2},
	}))

	require.NoError(t, c.Recover(context.Background()))
	require.Equal(t, 1, vectors.discarded)

	_, pending, err := c.undo.Read()
	require.NoError(t, err)
	require.False(t, pending)
}

func TestRecoverIsNoopWhenNothingWasStaged(t *testing.T) {
	c, _, vectors, _ := newHarness(t)
	require.NoError(t, c.Recover(context.Background()))
	require.Equal(t, 0, vectors.discarded)
}

func TestCommitStagesAndPublishesRelationships(t *testing.T) {
	interner := symbol.NewInterner()
	name, _ := interner.Intern("add")
	text, vectors, g := &fakeText{}, &fakeVectors{}, &fakeGraph{}
	c := New(Config{
		IndexDir: t.TempDir(),
		Text:     text,
		Vectors:  vectors,
		Graph:    g,
		Embedder: fakeEmbedder{},
		Interner: interner,
	})

	delta := indexer.FileDelta{
		File:  indexer.FileRecord{ID: symbol.FileID(1), Path: "main.go"},
		Added: []symbol.Symbol{{ID: symbol.ID(1), Name: name, Kind: symbol.KindFunction, FileID: symbol.FileID(1)}},
		Relationships: []symbol.Relationship{
			{From: symbol.ID(2), To: symbol.ID(1), Kind: symbol.RelCalls},
		},
	}

	_, err := c.Commit(context.Background(), []indexer.FileDelta{delta})
	require.NoError(t, err)
	require.Len(t, g.staged, 1)
	require.Equal(t, 1, g.published)
}

func TestRecoverDiscardsStagedRelationshipsAfterSimulatedCrash(t *testing.T) {
	interner := symbol.NewInterner()
	text, vectors, g := &fakeText{}, &fakeVectors{}, &fakeGraph{}
	c := New(Config{
		IndexDir: t.TempDir(),
		Text:     text,
		Vectors:  vectors,
		Graph:    g,
		Embedder: fakeEmbedder{},
		Interner: interner,
	})

	require.NoError(t, c.undo.Write(undoRecord{Segments: []uint32{1}}))
	require.NoError(t, c.Recover(context.Background()))
	require.Equal(t, 1, g.discarded)
}

func TestRemovedSymbolsAreTombstonedAndTermDeleted(t *testing.T) {
	c, text, vectors, _ := newHarness(t)

	delta := indexer.FileDelta{
		File:    indexer.FileRecord{ID: symbol.FileID(1), Path: "main.go"},
		Removed: []symbol.ID{7},
	}

	_, err := c.Commit(context.Background(), []indexer.FileDelta{delta})
	require.NoError(t, err)
	require.Equal(t, []symbol.ID{7}, text.deleted)
	require.Equal(t, []symbol.ID{7}, vectors.tombstoned)
}

// TestModifiedSymbolsTombstoneStaleVectorBeforeReembedding covers a
// re-embedded symbol: its prior vector record must be tombstoned the
// same way a removed symbol's is, so a stale and a fresh record never
// both score in the same query.
func TestModifiedSymbolsTombstoneStaleVectorBeforeReembedding(t *testing.T) {
	c, text, vectors, interner := newHarness(t)
	name, _ := interner.Intern("add")

	delta := indexer.FileDelta{
		File:     indexer.FileRecord{ID: symbol.FileID(1), Path: "main.go"},
		Modified: []symbol.Symbol{{ID: symbol.ID(9), Name: name, Kind: symbol.KindFunction, FileID: symbol.FileID(1), VectorEligible: true}},
	}

	_, err := c.Commit(context.Background(), []indexer.FileDelta{delta})
	require.NoError(t, err)
	require.Equal(t, []symbol.ID{9}, text.deleted)
	require.Contains(t, text.added, delta.Modified[0])
	require.Equal(t, []symbol.ID{9}, vectors.tombstoned)
	require.Len(t, vectors.staged, 1)
	require.Equal(t, symbol.ID(9), vectors.staged[0].SymbolID)
}
