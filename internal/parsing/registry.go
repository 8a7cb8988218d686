package parsing

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageID names a supported language. It doubles as the Behavior tag
// referenced by internal/lang.
type LanguageID string

const (
	LangGo         LanguageID = "go"
	LangPython     LanguageID = "python"
	LangJavaScript LanguageID = "javascript"
	LangTypeScript LanguageID = "typescript"
	LangTSX        LanguageID = "tsx"
	// Degraded-grammar languages: no bundled tree-sitter grammar is
	// vendored by smacker/go-tree-sitter, so these fall back to the
	// regex extractor.
	LangRust   LanguageID = "rust"
	LangJava   LanguageID = "java"
	LangCSharp LanguageID = "csharp"
	LangPHP    LanguageID = "php"
)

// Registry maps file extensions and language ids to tree-sitter grammars.
// It is the language-name/extension half of the Behavior; the
// scoping/visibility/resolution half lives in internal/lang.
type Registry struct {
	mu          sync.RWMutex
	extToLang   map[string]LanguageID
	tsLanguages map[LanguageID]*sitter.Language
	degraded    map[LanguageID]bool
}

// NewRegistry builds a Registry with every language codanna knows about.
func NewRegistry() *Registry {
	r := &Registry{
		extToLang:   make(map[string]LanguageID),
		tsLanguages: make(map[LanguageID]*sitter.Language),
		degraded:    make(map[LanguageID]bool),
	}
	r.register(LangGo, golang.GetLanguage(), ".go")
	r.register(LangPython, python.GetLanguage(), ".py")
	r.register(LangJavaScript, javascript.GetLanguage(), ".js", ".mjs", ".jsx")
	r.register(LangTypeScript, typescript.GetLanguage(), ".ts")
	r.register(LangTSX, tsx.GetLanguage(), ".tsx")

	r.registerDegraded(LangRust, ".rs")
	r.registerDegraded(LangJava, ".java")
	r.registerDegraded(LangCSharp, ".cs")
	r.registerDegraded(LangPHP, ".php")
	return r
}

func (r *Registry) register(lang LanguageID, tsLang *sitter.Language, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tsLanguages[lang] = tsLang
	for _, ext := range exts {
		r.extToLang[ext] = lang
	}
}

func (r *Registry) registerDegraded(lang LanguageID, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded[lang] = true
	for _, ext := range exts {
		r.extToLang[ext] = lang
	}
}

// ByExtension returns the language for a file extension (with or without
// the leading dot).
func (r *Registry) ByExtension(ext string) (LanguageID, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.extToLang[ext]
	return lang, ok
}

// TreeSitterLanguage returns the grammar for lang, if one is bundled.
func (r *Registry) TreeSitterLanguage(lang LanguageID) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tsLanguages[lang]
	return l, ok
}

// Degraded reports whether lang has no bundled grammar and must use the
// regex fallback extractor.
func (r *Registry) Degraded(lang LanguageID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded[lang]
}

// SupportedExtensions lists every extension the registry recognizes.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}
