package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
)

// rel builds a resolved Relationship for test brevity.
func rel(from, to symbol.ID, kind symbol.RelationKind) symbol.Relationship {
	return symbol.Relationship{From: from, To: to, Kind: kind}
}

func TestCallsAndCallersResolveDirectEdge(t *testing.T) {
	// main calls add; retrieve callers add -> [main].
	s, err := Open("")
	require.NoError(t, err)

	add, main := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(main, add, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.Equal(t, []symbol.ID{add}, s.Calls(main))
	require.Equal(t, []symbol.ID{main}, s.Callers(add))
	require.Empty(t, s.Callers(main))
}

func TestImplementationsResolveScenarioS2(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	iReader, fileReader := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(fileReader, iReader, symbol.RelImplements),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.Equal(t, []symbol.ID{fileReader}, s.Implementations(iReader))
}

func TestDependenciesTransitiveClosureIsCycleSafe(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	a, b, c := symbol.ID(1), symbol.ID(2), symbol.ID(3)
	// a uses b, b uses c, c uses a (cycle back to the start).
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(a, b, symbol.RelUses),
		rel(b, c, symbol.RelUses),
		rel(c, a, symbol.RelUses),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	deps := s.Dependencies(a)
	require.ElementsMatch(t, []symbol.ID{b, c}, deps)
}

func TestDependenciesIgnoresNonUsesImportsKinds(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	a, b := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(a, b, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.Empty(t, s.Dependencies(a))
}

func TestUnresolvedRelationshipIsNotAnError(t *testing.T) {
	// an edge whose target name never resolves to a symbol stays an
	// UnresolvedName in the relationship store; it is not an error.
	s, err := Open("")
	require.NoError(t, err)

	from := symbol.ID(1)
	unresolved := symbol.Relationship{From: from, To: symbol.NoSymbol, ToName: "someUndefinedFn", Kind: symbol.RelCalls}
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{unresolved}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.Empty(t, s.Calls(from))
	got := s.Unresolved(from)
	require.Len(t, got, 1)
	require.Equal(t, "someUndefinedFn", got[0].ToName)

	edges, unresolvedCount := s.Stats()
	require.Equal(t, 0, edges)
	require.Equal(t, 1, unresolvedCount)
}

func TestRemovedSymbolPrunesEdgesOnBothEndpoints(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	main, add := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(main, add, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))
	require.Equal(t, []symbol.ID{add}, s.Calls(main))

	// add is removed by a later generation: the edge must disappear even
	// though no new relationship touching main was staged.
	require.NoError(t, s.StageRelationships(context.Background(), nil, []symbol.ID{add}))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.Empty(t, s.Calls(main))
	require.Empty(t, s.Callers(add))
}

func TestDiscardStagedLeavesPublishedGraphUntouched(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	main, add := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(main, add, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(add, main, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.DiscardStaged(context.Background()))

	require.Equal(t, []symbol.ID{add}, s.Calls(main))
	require.Empty(t, s.Calls(add))
}

func TestOpenPersistsAndReloadsAcrossGenerations(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	main, add := symbol.ID(1), symbol.ID(2)
	require.NoError(t, s.StageRelationships(context.Background(), []symbol.Relationship{
		rel(main, add, symbol.RelCalls),
	}, nil))
	require.NoError(t, s.PublishStaged(context.Background()))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, []symbol.ID{add}, reopened.Calls(main))
	require.Equal(t, []symbol.ID{main}, reopened.Callers(add))

	require.FileExists(t, filepath.Join(dir, "graph.bin"))
}

func TestOpenOnMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, s.Calls(symbol.ID(1)))
}
