package textindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/indexer"
	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/symbol"
)

func newTestWriter(t *testing.T) (*Writer, *symbol.Interner) {
	t.Helper()
	interner := symbol.NewInterner()
	w, err := Open("", interner)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, interner
}

func TestWriterAddDocumentThenSearchFindsSplitIdentifier(t *testing.T) {
	w, interner := newTestWriter(t)
	reader := NewReader(w.index)

	name, _ := interner.Intern("ResolveSymbolId")
	sig, _ := interner.Intern("func ResolveSymbolId(name string) (ID, bool)")

	sym := symbol.Symbol{
		ID:        symbol.ID(1),
		Name:      name,
		Signature: sig,
		Kind:      symbol.KindFunction,
		FileID:    symbol.FileID(1),
	}
	file := indexer.FileRecord{ID: symbol.FileID(1), Path: "resolve.go", LanguageID: parsing.LangGo}

	require.NoError(t, w.AddDocument(context.Background(), sym, file))
	_, err := w.Commit(context.Background())
	require.NoError(t, err)

	hits, err := reader.Search(context.Background(), "symbol", 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, symbol.ID(1), hits[0].SymbolID)
}

func TestWriterDeleteTermRemovesDocumentAfterCommit(t *testing.T) {
	w, interner := newTestWriter(t)
	reader := NewReader(w.index)

	name, _ := interner.Intern("Widget")
	sym := symbol.Symbol{ID: symbol.ID(9), Name: name, Kind: symbol.KindStruct, FileID: symbol.FileID(1)}
	file := indexer.FileRecord{ID: symbol.FileID(1), Path: "widget.go", LanguageID: parsing.LangGo}

	require.NoError(t, w.AddDocument(context.Background(), sym, file))
	_, err := w.Commit(context.Background())
	require.NoError(t, err)

	hit, found, err := reader.ByID(context.Background(), symbol.ID(9))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Widget", hit.Name)

	require.NoError(t, w.DeleteTerm(context.Background(), symbol.ID(9)))
	_, err = w.Commit(context.Background())
	require.NoError(t, err)

	_, found, err = reader.ByID(context.Background(), symbol.ID(9))
	require.NoError(t, err)
	require.False(t, found)
}

func TestReaderFiltersByLanguageAndKind(t *testing.T) {
	w, interner := newTestWriter(t)
	reader := NewReader(w.index)

	goName, _ := interner.Intern("ParseConfig")
	pyName, _ := interner.Intern("parse_config")

	require.NoError(t, w.AddDocument(context.Background(),
		symbol.Symbol{ID: symbol.ID(1), Name: goName, Kind: symbol.KindFunction, FileID: symbol.FileID(1)},
		indexer.FileRecord{ID: symbol.FileID(1), Path: "a.go", LanguageID: parsing.LangGo}))
	require.NoError(t, w.AddDocument(context.Background(),
		symbol.Symbol{ID: symbol.ID(2), Name: pyName, Kind: symbol.KindFunction, FileID: symbol.FileID(2)},
		indexer.FileRecord{ID: symbol.FileID(2), Path: "b.py", LanguageID: parsing.LangPython}))
	_, err := w.Commit(context.Background())
	require.NoError(t, err)

	hits, err := reader.Search(context.Background(), "parse", 10, Filters{Language: "go"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, symbol.ID(1), hits[0].SymbolID)
}

func TestReaderByClusterIDReturnsOnlyMatchingCluster(t *testing.T) {
	w, interner := newTestWriter(t)
	reader := NewReader(w.index)

	n1, _ := interner.Intern("A")
	n2, _ := interner.Intern("B")

	require.NoError(t, w.AddDocument(context.Background(),
		symbol.Symbol{ID: symbol.ID(1), Name: n1, Kind: symbol.KindFunction, FileID: symbol.FileID(1), ClusterID: 3},
		indexer.FileRecord{ID: symbol.FileID(1), Path: "a.go", LanguageID: parsing.LangGo}))
	require.NoError(t, w.AddDocument(context.Background(),
		symbol.Symbol{ID: symbol.ID(2), Name: n2, Kind: symbol.KindFunction, FileID: symbol.FileID(1), ClusterID: 7},
		indexer.FileRecord{ID: symbol.FileID(1), Path: "a.go", LanguageID: parsing.LangGo}))
	_, err := w.Commit(context.Background())
	require.NoError(t, err)

	hits, err := reader.ByClusterID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, symbol.ID(1), hits[0].SymbolID)
}
