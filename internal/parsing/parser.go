package parsing

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser drives tree-sitter for one worker. Parsers are never shared
// across goroutines — internal/indexer allocates one per file.
type Parser struct {
	ts       *sitter.Parser
	registry *Registry
}

// NewParser creates a Parser bound to registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{ts: sitter.NewParser(), registry: registry}
}

// Close releases the underlying tree-sitter resources.
func (p *Parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

// ParseSource parses source as lang and returns the detached AST. It
// returns an *UnparseableError (never a bare error) for degraded
// languages with no bundled grammar, so callers can route to the regex
// fallback extractor instead of failing the file outright.
func (p *Parser) ParseSource(ctx context.Context, path string, source []byte, lang LanguageID) (*Tree, error) {
	if p.registry.Degraded(lang) {
		return nil, &UnparseableError{Path: path, Reason: fmt.Sprintf("no bundled tree-sitter grammar for %s", lang)}
	}

	tsLang, ok := p.registry.TreeSitterLanguage(lang)
	if !ok {
		return nil, &UnparseableError{Path: path, Reason: fmt.Sprintf("unsupported language: %s", lang)}
	}

	p.ts.SetLanguage(tsLang)
	tsTree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &UnparseableError{Path: path, Reason: err.Error()}
	}
	if tsTree == nil {
		return nil, &UnparseableError{Path: path, Reason: "tree-sitter returned a nil tree"}
	}
	root := tsTree.RootNode()
	if root == nil {
		return nil, &UnparseableError{Path: path, Reason: "tree-sitter returned an empty root node"}
	}

	tree := &Tree{
		Root:     convert(root, nil, 0),
		Source:   source,
		Language: string(lang),
	}
	if tree.Root.HasError {
		line, col := int(root.StartPoint().Row)+1, int(root.StartPoint().Column)+1
		return tree, &UnparseableError{Path: path, Line: line, Col: col, Reason: "syntax error or max recursion depth exceeded"}
	}
	return tree, nil
}

// ExtractorFor returns the per-language Extractor implementation, or
// false if lang has no real or degraded extractor registered.
func ExtractorFor(lang LanguageID) (Extractor, bool) {
	switch lang {
	case LangGo:
		return &goExtractor{}, true
	case LangPython:
		return &pythonExtractor{}, true
	case LangJavaScript:
		return &javascriptExtractor{lang: LangJavaScript}, true
	case LangTypeScript:
		return &javascriptExtractor{lang: LangTypeScript}, true
	case LangTSX:
		return &javascriptExtractor{lang: LangTSX}, true
	case LangRust, LangJava, LangCSharp, LangPHP:
		return newRegexExtractor(lang), true
	default:
		return nil, false
	}
}
