// Package symbol defines the compact, interned symbol and relationship
// model shared by every other package in codanna: the parser extractors
// (internal/parsing), the per-language resolver (internal/lang), the
// indexing pipeline (internal/indexer), and both search indexes
// (internal/textindex, internal/vectorindex) all read and write these
// types.
package symbol

import "fmt"

// ID is a dense, non-zero handle for a Symbol. It is unique within a
// single index generation; zero is reserved to mean "no symbol".
type ID uint32

// NoSymbol is the zero value meaning "none".
const NoSymbol ID = 0

// Valid reports whether id refers to a real symbol.
func (id ID) Valid() bool { return id != NoSymbol }

func (id ID) String() string { return fmt.Sprintf("sym:%d", uint32(id)) }

// FileID is a dense, non-zero handle for an indexed file. It stays
// stable across reindexing of the same path as long as the file keeps
// being seen by the walker.
type FileID uint32

// NoFile is the zero value meaning "no file".
const NoFile FileID = 0

func (id FileID) String() string { return fmt.Sprintf("file:%d", uint32(id)) }

// Kind is the closed set of symbol kinds every language's extractor maps
// its productions onto.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFunction
	KindMethod
	KindClass
	KindStruct
	KindInterface
	KindTrait
	KindEnum
	KindEnumVariant
	KindModule
	KindNamespace
	KindVariable
	KindConstant
	KindField
	KindMacro
	KindParameter
	KindTypeAlias
	KindImport
)

var kindNames = [...]string{
	"unknown", "function", "method", "class", "struct", "interface", "trait",
	"enum", "enum_variant", "module", "namespace", "variable", "constant",
	"field", "macro", "parameter", "type_alias", "import",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Visibility is the closed set of visibility modifiers a language can
// produce. Not every language produces every value.
type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityPrivate
	VisibilityModule
	VisibilityPackage
	VisibilityProtected
)

var visibilityNames = [...]string{
	"unknown", "public", "private", "module", "package", "protected",
}

func (v Visibility) String() string {
	if int(v) < len(visibilityNames) {
		return visibilityNames[v]
	}
	return "unknown"
}

// ScopeContext records the enclosing scope kind a symbol was defined in,
// e.g. a method's ScopeContext is ScopeClass. It is optional: zero value
// ScopeNone means the extractor did not record one.
type ScopeContext uint8

const (
	ScopeNone ScopeContext = iota
	ScopeGlobal
	ScopeModule
	ScopeClass
	ScopeFunction
	ScopeBlock
	// ScopeDegraded marks a symbol produced by the regex fallback
	// extractor (internal/parsing's degraded path) rather than a real
	// tree-sitter grammar.
	ScopeDegraded
)

// Range is a packed source location: byte offsets plus line/column pairs,
// both 0-indexed, end-exclusive on bytes.
type Range struct {
	StartByte uint32
	EndByte   uint32
	StartLine uint32
	StartCol  uint32
	EndLine   uint32
	EndCol    uint32
}

// Contains reports whether byte offset b falls within the range.
func (r Range) Contains(b uint32) bool {
	return b >= r.StartByte && b < r.EndByte
}
