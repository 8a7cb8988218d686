package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
)

func writeTempWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

// TestPipelineAddMainScenario exercises the indexer on two functions
// with one resolved Calls edge, surfaced as a single FileDelta.
func TestPipelineAddMainScenario(t *testing.T) {
	dir := writeTempWorkspace(t, map[string]string{
		"main.go": "package main\n\nfunc add(a int, b int) int {\n\treturn a + b\n}\n\nfunc main() {\n\tx := add(1, 2)\n\t_ = x\n}\n",
	})

	table := NewSymbolTable()
	p := New(table, symbol.NewInterner(), symbol.NewCounter())

	deltas, stats, err := p.Run(context.Background(), Options{RootDir: dir, Workers: 2})
	require.NoError(t, err)
	require.Empty(t, stats.Errors)
	require.Len(t, deltas, 1)

	d := deltas[0]
	require.Len(t, d.Added, 2)

	names := map[string]symbol.ID{}
	for _, s := range d.Added {
		n, _ := p.interner.Resolve(s.Name)
		names[n] = s.ID
	}
	require.Contains(t, names, "add")
	require.Contains(t, names, "main")

	var resolvedCalls int
	for _, rel := range d.Relationships {
		if rel.Kind == symbol.RelCalls && rel.Resolved() {
			resolvedCalls++
			require.Equal(t, names["add"], rel.To)
		}
	}
	require.Equal(t, 1, resolvedCalls)
}

// TestPipelineSkipsUnchangedFile checks that reindexing a file whose
// content hash has not changed produces no delta.
func TestPipelineSkipsUnchangedFile(t *testing.T) {
	dir := writeTempWorkspace(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	table := NewSymbolTable()
	p := New(table, symbol.NewInterner(), symbol.NewCounter())

	deltas, _, err := p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Len(t, deltas, 1)

	// Simulate the coordinator committing the delta into the prior-state
	// table, as internal/coordinator would after a successful commit.
	commitDelta(t, p, table, deltas[0])

	deltas, stats, err := p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Empty(t, deltas)
	require.Equal(t, 1, stats.FilesUnchanged)
}

// TestPipelineWhitespaceOnlyChangeKeepsSymbolIDStable covers a
// whitespace-only edit: it changes the content hash but no symbol
// fingerprint, so the prior SymbolId is reused, the symbol lands in
// Unchanged rather than Modified, and Added/Modified/Removed all stay
// empty — no delta represents a meaningful change.
func TestPipelineWhitespaceOnlyChangeKeepsSymbolIDStable(t *testing.T) {
	dir := writeTempWorkspace(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	table := NewSymbolTable()
	p := New(table, symbol.NewInterner(), symbol.NewCounter())

	deltas, _, err := p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	originalID := deltas[0].Added[0].ID
	fileID := deltas[0].File.ID
	commitDelta(t, p, table, deltas[0])

	// Whitespace-only change: same tokens, different formatting.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\n\nfunc main()   {}\n"), 0o644))

	deltas, _, err = p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	require.True(t, deltas[0].Empty())
	require.Empty(t, deltas[0].Added)
	require.Empty(t, deltas[0].Modified)
	require.Empty(t, deltas[0].Removed)
	require.Len(t, deltas[0].Unchanged, 1)
	require.Equal(t, originalID, deltas[0].Unchanged[0].ID)

	// The id survives the table replacement in SymbolTable.Commit even
	// though it arrived via Unchanged, not Added/Modified.
	commitDelta(t, p, table, deltas[0])
	require.Len(t, table.SymbolsForFile(fileID), 1)
	require.Equal(t, originalID, table.SymbolsForFile(fileID)[0].ID)
}

// TestPipelineSignatureChangeIsModified covers a genuine edit: the
// symbol's identity (name+kind+module_path) is unchanged but its
// signature differs, so it must land in Modified (not Unchanged) and
// reuse its prior id.
func TestPipelineSignatureChangeIsModified(t *testing.T) {
	dir := writeTempWorkspace(t, map[string]string{
		"main.go": "package main\n\nfunc add(a int, b int) int {\n\treturn a + b\n}\n",
	})

	table := NewSymbolTable()
	p := New(table, symbol.NewInterner(), symbol.NewCounter())

	deltas, _, err := p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	originalID := deltas[0].Added[0].ID
	commitDelta(t, p, table, deltas[0])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc add(a int, b int, c int) int {\n\treturn a + b + c\n}\n"), 0o644))

	deltas, _, err = p.Run(context.Background(), Options{RootDir: dir, Workers: 1})
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	require.False(t, deltas[0].Empty())
	require.Empty(t, deltas[0].Added)
	require.Empty(t, deltas[0].Unchanged)
	require.Len(t, deltas[0].Modified, 1)
	require.Equal(t, originalID, deltas[0].Modified[0].ID)
}

// commitDelta mimics the subset of internal/coordinator's job this
// package depends on: folding a FileDelta's symbols back into the
// prior-generation SymbolTable so later runs diff against them.
func commitDelta(t *testing.T, p *Pipeline, table *SymbolTable, d FileDelta) {
	t.Helper()
	table.Commit(p.interner, d)
}
