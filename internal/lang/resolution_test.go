package lang

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codanna-go/codanna/internal/parsing"
	"github.com/codanna-go/codanna/internal/symbol"
)

type fakeLookup struct {
	byName       map[string][]symbol.ID
	byModulePath map[string]symbol.ID
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{byName: map[string][]symbol.ID{}, byModulePath: map[string]symbol.ID{}}
}

func (f *fakeLookup) LookupByName(name string) []symbol.ID { return f.byName[name] }
func (f *fakeLookup) LookupByModulePath(qualified string) (symbol.ID, bool) {
	id, ok := f.byModulePath[qualified]
	return id, ok
}

func TestResolveLocalShadowsEnclosing(t *testing.T) {
	reg := NewRegistry()
	goBehavior, ok := reg.For(parsing.LangGo)
	require.True(t, ok)

	global := newFakeLookup()
	rc := NewResolutionContext(goBehavior, global)

	rc.EnterScope(symbol.ScopeModule)
	rc.AddSymbol("x", symbol.ID(1), -1)

	rc.EnterScope(symbol.ScopeFunction)
	rc.AddSymbol("x", symbol.ID(2), -1)

	id, ok := rc.Resolve("x")
	require.True(t, ok)
	require.Equal(t, symbol.ID(2), id)

	rc.ExitScope()
	id, ok = rc.Resolve("x")
	require.True(t, ok)
	require.Equal(t, symbol.ID(1), id)
}

func TestResolveFallsThroughToImportThenGlobal(t *testing.T) {
	reg := NewRegistry()
	goBehavior, _ := reg.For(parsing.LangGo)

	global := newFakeLookup()
	global.byName["Helper"] = []symbol.ID{symbol.ID(42)}

	rc := NewResolutionContext(goBehavior, global)
	rc.AddImport(ImportBinding{LocalName: "Imported", ImportedPath: "pkg/imported", ResolvedSymbolID: symbol.ID(7)})

	id, ok := rc.Resolve("Imported")
	require.True(t, ok)
	require.Equal(t, symbol.ID(7), id)

	id, ok = rc.Resolve("Helper")
	require.True(t, ok)
	require.Equal(t, symbol.ID(42), id)

	_, ok = rc.Resolve("NoSuchSymbol")
	require.False(t, ok)
}

func TestResolveAmbiguousGlobalNameStaysUnresolved(t *testing.T) {
	reg := NewRegistry()
	goBehavior, _ := reg.For(parsing.LangGo)

	global := newFakeLookup()
	global.byName["Run"] = []symbol.ID{symbol.ID(1), symbol.ID(2)}

	rc := NewResolutionContext(goBehavior, global)
	_, ok := rc.Resolve("Run")
	require.False(t, ok)
}

func TestResolveQualifiedNameShortCircuits(t *testing.T) {
	reg := NewRegistry()
	goBehavior, _ := reg.For(parsing.LangGo)

	global := newFakeLookup()
	global.byModulePath["internal/store/Reader"] = symbol.ID(99)
	// Also present by simple name, to prove the qualified lookup wins
	// over plain local/global resolution.
	global.byName["internal/store/Reader"] = []symbol.ID{symbol.ID(1)}

	rc := NewResolutionContext(goBehavior, global)
	id, ok := rc.Resolve("internal/store/Reader")
	require.True(t, ok)
	require.Equal(t, symbol.ID(99), id)
}

func TestResolveGlobImportResolvesUnambiguousName(t *testing.T) {
	reg := NewRegistry()
	pyBehavior, ok := reg.For(parsing.LangPython)
	require.True(t, ok)

	global := newFakeLookup()
	global.byName["helper"] = []symbol.ID{symbol.ID(5)}

	rc := NewResolutionContext(pyBehavior, global)
	rc.AddImport(ImportBinding{LocalName: "*", ImportedPath: "pkg.utils", IsGlob: true})

	id, ok := rc.Resolve("helper")
	require.True(t, ok)
	require.Equal(t, symbol.ID(5), id)
}

func TestResolveRelationshipLeavesUnresolvedTargetAsData(t *testing.T) {
	reg := NewRegistry()
	goBehavior, _ := reg.For(parsing.LangGo)
	global := newFakeLookup()

	rc := NewResolutionContext(goBehavior, global)
	rel := rc.ResolveRelationship(symbol.ID(1), "Missing", symbol.RelCalls, symbol.FileID(1), symbol.Range{})
	require.False(t, rel.Resolved())
	require.Equal(t, "Missing", rel.ToName)
}

func TestExitScopeNeverPopsGlobalFrame(t *testing.T) {
	reg := NewRegistry()
	goBehavior, _ := reg.For(parsing.LangGo)
	global := newFakeLookup()

	rc := NewResolutionContext(goBehavior, global)
	require.Equal(t, 1, rc.Depth())
	rc.ExitScope()
	require.Equal(t, 1, rc.Depth())
}
