package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
)

func TestApplyRankingHeuristicsPenalizesTestFiles(t *testing.T) {
	symbols := []ScoredSymbol{
		{SymbolID: symbol.ID(1), FilePath: "engine_test.go", Score: 1.0},
		{SymbolID: symbol.ID(2), FilePath: "engine.go", Score: 0.9},
	}
	out := ApplyRankingHeuristics(symbols)
	require.Equal(t, symbol.ID(2), out[0].SymbolID, "production file should outrank test file after penalty")
}

func TestApplyRankingHeuristicsBoostsInternalOverCmd(t *testing.T) {
	symbols := []ScoredSymbol{
		{SymbolID: symbol.ID(1), FilePath: "cmd/codanna/root.go", Score: 1.0},
		{SymbolID: symbol.ID(2), FilePath: "internal/search/engine.go", Score: 1.0},
	}
	out := ApplyRankingHeuristics(symbols)
	require.Equal(t, symbol.ID(2), out[0].SymbolID)
}

func TestIsTestFileRecognizesGoJSAndPythonConventions(t *testing.T) {
	require.True(t, IsTestFile("internal/search/engine_test.go"))
	require.True(t, IsTestFile("src/util.test.ts"))
	require.True(t, IsTestFile("tests/test_util.py"))
	require.False(t, IsTestFile("internal/search/engine.go"))
}
