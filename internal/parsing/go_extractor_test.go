package parsing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/symbol"
)

// TestGoExtractorAddMainScenario covers two functions with one
// resolved Calls edge.
func TestGoExtractorAddMainScenario(t *testing.T) {
	src := []byte(`package main

func add(a int, b int) int {
	return a + b
}

func main() {
	x := add(1, 2)
	_ = x
}
`)

	reg := NewRegistry()
	p := NewParser(reg)
	defer p.Close()

	tree, err := p.ParseSource(context.Background(), "main.go", src, LangGo)
	require.NoError(t, err)

	ex, ok := ExtractorFor(LangGo)
	require.True(t, ok)

	interner := symbol.NewInterner()
	counter := symbol.NewCounter()
	res, err := counter.Reserve()
	require.NoError(t, err)

	symbols, err := ex.Parse(tree, symbol.FileID(1), res, interner)
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	names := map[string]bool{}
	for _, s := range symbols {
		n, _ := interner.Resolve(s.Name)
		names[n] = true
		require.Equal(t, symbol.KindFunction, s.Kind)
	}
	require.True(t, names["add"])
	require.True(t, names["main"])

	calls := ex.FindCalls(tree)
	require.Len(t, calls, 1)
	require.Equal(t, "main", calls[0].Caller)
	require.Equal(t, "add", calls[0].Callee)
}

func TestGoExtractorVisibilityFromCase(t *testing.T) {
	src := []byte(`package p

func Public() {}
func private() {}
`)
	reg := NewRegistry()
	p := NewParser(reg)
	defer p.Close()

	tree, err := p.ParseSource(context.Background(), "x.go", src, LangGo)
	require.NoError(t, err)

	ex, _ := ExtractorFor(LangGo)
	interner := symbol.NewInterner()
	counter := symbol.NewCounter()
	res, _ := counter.Reserve()

	symbols, err := ex.Parse(tree, symbol.FileID(1), res, interner)
	require.NoError(t, err)

	for _, s := range symbols {
		name, _ := interner.Resolve(s.Name)
		switch name {
		case "Public":
			require.Equal(t, symbol.VisibilityPublic, s.Visibility)
		case "private":
			require.Equal(t, symbol.VisibilityPrivate, s.Visibility)
		}
	}
}
