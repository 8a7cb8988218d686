package lang

import (
	"strings"

	"github.com/codanna-go/codanna/internal/symbol"
)

// ImportBinding is a materialized import binding in a resolution context
//: `local_name` is what code refers to, `imported_path` is
// the module path it came from, and ResolvedSymbolID is filled in once
// cross-file resolution locates the target (which may never happen, in
// which case the binding stays a named reference).
type ImportBinding struct {
	LocalName        string
	ImportedPath      string
	Origin            symbol.FileID
	ResolvedSymbolID  symbol.ID
	IsGlob            bool
}

type scopeFrame struct {
	kind    symbol.ScopeContext
	symbols map[string]symbol.ID
}

// ResolutionContext implements a scope-stack name resolver. One
// ResolutionContext is built per file during indexing and
// discarded after intra-file resolution; cross-file resolution reuses the
// same resolve/resolveRelationship logic against a SymbolTable that spans
// the whole workspace (internal/indexer wires this up).
type ResolutionContext struct {
	behavior Behavior
	stack    []*scopeFrame
	imports  []ImportBinding
	globImport *ImportBinding

	// global is consulted last in the local->enclosing->module->imports->
	// global precedence chain; it is shared across files in
	// the same generation (the workspace-wide symbol table).
	global SymbolLookup
}

// SymbolLookup is the minimal read interface a cross-file symbol table
// must provide for relationship resolution. internal/indexer's in-memory
// symbol table and internal/textindex's point-lookup reader both satisfy
// it.
type SymbolLookup interface {
	// LookupByName returns every symbol whose simple name equals name.
	LookupByName(name string) []symbol.ID
	// LookupByModulePath returns the symbol defined at a fully qualified
	// module path (used for the qualified-name short-circuit).
	LookupByModulePath(qualified string) (symbol.ID, bool)
}

// NewResolutionContext creates a resolver for one file in behavior's
// language, backed by global for cross-file/global lookups.
func NewResolutionContext(behavior Behavior, global SymbolLookup) *ResolutionContext {
	rc := &ResolutionContext{behavior: behavior, global: global}
	rc.EnterScope(symbol.ScopeGlobal)
	return rc
}

// EnterScope pushes a new scope frame of the given kind.
func (rc *ResolutionContext) EnterScope(kind symbol.ScopeContext) {
	rc.stack = append(rc.stack, &scopeFrame{kind: kind, symbols: make(map[string]symbol.ID)})
}

// ExitScope pops the innermost scope frame. Popping the last (Global)
// frame is a no-op to keep the context always resolvable.
func (rc *ResolutionContext) ExitScope() {
	if len(rc.stack) > 1 {
		rc.stack = rc.stack[:len(rc.stack)-1]
	}
}

// AddSymbol binds name to id in the current (innermost) scope.
// scopeLevel, when non-negative, overrides the target frame instead of
// the innermost one — used when a symbol belongs to an outer scope than
// the resolver currently sits in (e.g. hoisted declarations).
func (rc *ResolutionContext) AddSymbol(name string, id symbol.ID, scopeLevel int) {
	idx := len(rc.stack) - 1
	if scopeLevel >= 0 && scopeLevel < len(rc.stack) {
		idx = scopeLevel
	}
	rc.stack[idx].symbols[name] = id
}

// AddImport registers an import binding. A glob/wildcard import is stored
// separately and consulted last, by convention.
func (rc *ResolutionContext) AddImport(b ImportBinding) {
	if b.IsGlob {
		glob := b
		rc.globImport = &glob
		return
	}
	rc.imports = append(rc.imports, b)
}

// Depth returns the number of scope frames currently pushed (for tests
// and AddSymbol's scopeLevel addressing).
func (rc *ResolutionContext) Depth() int { return len(rc.stack) }

// Resolve looks up name following the local -> enclosing -> module ->
// imports -> global precedence order. Languages with
// qualified names (behavior.HasQualifiedNames()) short-circuit straight
// to a qualified lookup when name contains the module separator.
func (rc *ResolutionContext) Resolve(name string) (symbol.ID, bool) {
	if rc.behavior.HasQualifiedNames() {
		sep := rc.behavior.ModuleSeparator()
		if sep != "" && strings.Contains(name, sep) {
			if id, ok := rc.global.LookupByModulePath(name); ok {
				return id, true
			}
		}
	}

	// local -> enclosing: walk the scope stack innermost-first.
	for i := len(rc.stack) - 1; i >= 0; i-- {
		if id, ok := rc.stack[i].symbols[name]; ok {
			return id, true
		}
	}

	// module: the outermost non-global frame represents the module scope.
	for i := len(rc.stack) - 1; i >= 0; i-- {
		if rc.stack[i].kind == symbol.ScopeModule {
			if id, ok := rc.stack[i].symbols[name]; ok {
				return id, true
			}
			break
		}
	}

	// imports, explicit bindings first, then the glob import last.
	for _, imp := range rc.imports {
		if imp.LocalName == name && imp.ResolvedSymbolID.Valid() {
			return imp.ResolvedSymbolID, true
		}
	}
	if rc.globImport != nil {
		if candidates := rc.global.LookupByName(name); len(candidates) == 1 {
			return candidates[0], true
		}
	}

	// global: last resort, workspace-wide lookup by simple name. Ambiguous
	// names (more than one candidate) are left unresolved: an unresolved
	// name is data, not an error.
	if candidates := rc.global.LookupByName(name); len(candidates) == 1 {
		return candidates[0], true
	}

	return symbol.NoSymbol, false
}

// ResolveRelationship resolves target, producing a fully resolved
// Relationship when possible or an unresolved one (To=NoSymbol,
// ToName=target) otherwise — never an error.
func (rc *ResolutionContext) ResolveRelationship(from symbol.ID, target string, kind symbol.RelationKind, fileID symbol.FileID, r symbol.Range) symbol.Relationship {
	rel := symbol.Relationship{From: from, ToName: target, Kind: kind, FileID: fileID, Range: r}
	if id, ok := rc.Resolve(target); ok {
		rel.To = id
	}
	return rel
}
