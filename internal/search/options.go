package search

import (
	"sort"
	"strings"
)

// Score adjustment constants for post-fusion ranking heuristics. These
// run after materialize and before a Result is returned, so they see
// file paths the fused candidates didn't carry during fusion itself.
const (
	// testFilePenalty deprioritizes test files, which often duplicate a
	// production symbol's name in a mock or fixture.
	testFilePenalty = 0.5

	// internalPathBoost favors implementation code over CLI wrappers
	// that merely call into it.
	internalPathBoost = 1.3
	// cmdPathPenalty is the matching penalty for wrapper code.
	cmdPathPenalty = 0.6
)

// ApplyRankingHeuristics re-scores and re-sorts a materialized result
// set using path-shape heuristics: test files are penalized, cmd/
// wrapper paths are penalized, and internal/ implementation paths are
// boosted. It is opt-in — callers that want pure fusion scores skip it.
func ApplyRankingHeuristics(symbols []ScoredSymbol) []ScoredSymbol {
	if len(symbols) == 0 {
		return symbols
	}
	for i := range symbols {
		path := symbols[i].FilePath
		if IsTestFile(path) {
			symbols[i].Score *= testFilePenalty
		}
		if isImplementationPath(path) {
			symbols[i].Score *= internalPathBoost
		}
		if isWrapperPath(path) {
			symbols[i].Score *= cmdPathPenalty
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].Score > symbols[j].Score
	})
	return symbols
}

// IsTestFile reports whether filePath looks like a test file across the
// languages this module indexes (Go, JS/TS, Python).
func IsTestFile(filePath string) bool {
	if strings.HasSuffix(filePath, "_test.go") {
		return true
	}
	if strings.Contains(filePath, ".test.") || strings.Contains(filePath, ".spec.") {
		return true
	}

	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}
	if strings.HasPrefix(fileName, "test_") && strings.HasSuffix(fileName, ".py") {
		return true
	}
	if strings.HasSuffix(fileName, "_test.py") {
		return true
	}

	if strings.Contains(filePath, "/test/") || strings.Contains(filePath, "/tests/") {
		return true
	}
	if strings.HasPrefix(filePath, "test/") || strings.HasPrefix(filePath, "tests/") {
		return true
	}
	return false
}

func isImplementationPath(filePath string) bool {
	return strings.HasPrefix(filePath, "internal/") || strings.Contains(filePath, "/internal/")
}

func isWrapperPath(filePath string) bool {
	return strings.HasPrefix(filePath, "cmd/") || strings.Contains(filePath, "/cmd/")
}
