package parsing

import "github.com/codanna-go/codanna/internal/symbol"

// CallEdge is one `caller calls callee` occurrence found by
// Extractor.FindCalls.
type CallEdge struct {
	Caller string
	Callee string
	Range  symbol.Range
}

// ImplEdge is one `implementer implements/extends interface` occurrence
// found by Extractor.FindImplementations.
type ImplEdge struct {
	Implementer string
	Interface   string
	Range       symbol.Range
}

// UseEdge is one `user uses used` occurrence found by Extractor.FindUses.
type UseEdge struct {
	User  string
	Used  string
	Range symbol.Range
}

// DefineEdge is one `container defines defined` occurrence found by
// Extractor.FindDefines.
type DefineEdge struct {
	Container string
	Defined   string
	Range     symbol.Range
}

// MethodCall is a call with receiver/dispatch information.
type MethodCall struct {
	Caller   string
	Method   string
	Receiver string // empty means none recorded
	IsStatic bool
	Range    symbol.Range
}

// Extractor is the per-language contract consumed by the indexer. Implementations must be pure with respect to code:
// no I/O, no shared mutable state between calls.
type Extractor interface {
	// Parse extracts every Symbol defined in tree, assigning ids from the
	// reservation, tagging them with fileID, and interning their
	// name/signature/doc-comment strings via interner.
	Parse(tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) ([]symbol.Symbol, error)

	FindCalls(tree *Tree) []CallEdge
	FindImplementations(tree *Tree) []ImplEdge
	FindUses(tree *Tree) []UseEdge
	FindDefines(tree *Tree) []DefineEdge
	FindImports(tree *Tree, fileID symbol.FileID) []symbol.Import

	// FindMethodCalls reports calls made through a receiver; the
	// degraded regex extractor returns nil.
	FindMethodCalls(tree *Tree) []MethodCall

	ExtractDocComment(node *Node, source []byte) (string, bool)

	Language() LanguageID
}
