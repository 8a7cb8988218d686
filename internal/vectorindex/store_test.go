package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/coordinator"
	"github.com/codanna-go/codanna/internal/symbol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Dir: t.TempDir(), Dimensions: 4, MinVectorsForClustering: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStagedAppendsInvisibleUntilPublish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StageAppend(ctx, []coordinator.VectorAppend{
		{Segment: 1, SymbolID: symbol.ID(1), Vector: []float32{1, 0, 0, 0}},
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results, "staged vectors must not be visible before Publish")

	require.NoError(t, s.PublishStaged(ctx))

	results, err = s.Query(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, symbol.ID(1), results[0].SymbolID)
}

func TestDiscardStagedRevertsUncommittedAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StageAppend(ctx, []coordinator.VectorAppend{
		{Segment: 1, SymbolID: symbol.ID(1), Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.DiscardStaged(ctx))
	require.NoError(t, s.PublishStaged(ctx))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestTombstonedVectorsExcludedFromQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StageAppend(ctx, []coordinator.VectorAppend{
		{Segment: 1, SymbolID: symbol.ID(1), Vector: []float32{1, 0, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(2), Vector: []float32{0, 1, 0, 0}},
	}))
	require.NoError(t, s.PublishStaged(ctx))
	require.NoError(t, s.Tombstone(ctx, []symbol.ID{1}))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, symbol.ID(2), results[0].SymbolID)
}

func TestQueryRanksByCosineSimilarityDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StageAppend(ctx, []coordinator.VectorAppend{
		{Segment: 1, SymbolID: symbol.ID(1), Vector: []float32{1, 0, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(2), Vector: []float32{0.9, 0.1, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(3), Vector: []float32{0, 0, 1, 0}},
	}))
	require.NoError(t, s.PublishStaged(ctx))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, symbol.ID(1), results[0].SymbolID)
	require.Equal(t, symbol.ID(2), results[1].SymbolID)
	require.Equal(t, symbol.ID(3), results[2].SymbolID)
}

func TestClusteringTriggersAfterThresholdAndScopesQuery(t *testing.T) {
	s := newTestStore(t) // MinVectorsForClustering: 4
	ctx := context.Background()

	appends := []coordinator.VectorAppend{
		{Segment: 1, SymbolID: symbol.ID(1), Vector: []float32{1, 0, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(2), Vector: []float32{0.95, 0.05, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(3), Vector: []float32{0, 1, 0, 0}},
		{Segment: 1, SymbolID: symbol.ID(4), Vector: []float32{0, 0.95, 0.05, 0}},
	}
	require.NoError(t, s.StageAppend(ctx, appends))
	require.NoError(t, s.PublishStaged(ctx))

	cs, ok, err := loadCentroids(s.cfg.Dir, 1)
	require.NoError(t, err)
	require.True(t, ok, "expected centroids to be written once the threshold is crossed")
	require.Equal(t, 4, cs.VectorCount)

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, symbol.ID(1), results[0].SymbolID)
}
