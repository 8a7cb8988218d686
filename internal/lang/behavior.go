// Package lang implements per-language behavior and name resolution
//: module-path derivation, visibility
// interpretation, and the scope-stack resolver that turns the parser's
// unresolved relationship targets into SymbolIds.
package lang

import (
	"path/filepath"
	"strings"

	"github.com/codanna-go/codanna/internal/parsing"
)

// Behavior describes one language's module/scoping conventions. It is deliberately small: the heavy lifting (symbol extraction)
// lives in internal/parsing; Behavior only decides how paths and
// resolution order work for that language.
type Behavior interface {
	Language() parsing.LanguageID
	// ModuleSeparator is the language's path-joining token, e.g. "." for
	// Python, "::" for Rust, "/" for Go.
	ModuleSeparator() string
	// FilePathToModulePath converts a file path (relative to the
	// workspace root) into the language's module path convention.
	FilePathToModulePath(relPath string) string
	// SupportsInterfaces reports whether the language has a first-class
	// interface/trait/protocol construct distinct from a class.
	SupportsInterfaces() bool
	// HasQualifiedNames reports whether this language's relationship
	// targets can contain the module separator, which lets the resolver
	// short-circuit straight to a qualified lookup.
	HasQualifiedNames() bool
}

type goBehavior struct{}

func (goBehavior) Language() parsing.LanguageID { return parsing.LangGo }
func (goBehavior) ModuleSeparator() string      { return "/" }
func (goBehavior) SupportsInterfaces() bool     { return true }
func (goBehavior) HasQualifiedNames() bool      { return true }
func (goBehavior) FilePathToModulePath(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return ""
	}
	return filepath.ToSlash(dir)
}

type pythonBehavior struct{}

func (pythonBehavior) Language() parsing.LanguageID { return parsing.LangPython }
func (pythonBehavior) ModuleSeparator() string      { return "." }
func (pythonBehavior) SupportsInterfaces() bool     { return false }
func (pythonBehavior) HasQualifiedNames() bool      { return true }
func (pythonBehavior) FilePathToModulePath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	trimmed = strings.TrimSuffix(trimmed, "/__init__")
	return strings.ReplaceAll(filepath.ToSlash(trimmed), "/", ".")
}

type jsBehavior struct{ lang parsing.LanguageID }

func (j jsBehavior) Language() parsing.LanguageID { return j.lang }
func (jsBehavior) ModuleSeparator() string        { return "/" }
func (j jsBehavior) SupportsInterfaces() bool      { return j.lang == parsing.LangTypeScript || j.lang == parsing.LangTSX }
func (jsBehavior) HasQualifiedNames() bool          { return false }
func (jsBehavior) FilePathToModulePath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return filepath.ToSlash(trimmed)
}

// degradedBehavior covers the regex-fallback languages: module paths
// fall back to the file's directory, and no qualified-name
// short-circuit is attempted since the extractor never produces
// dotted/scoped names.
type degradedBehavior struct {
	lang parsing.LanguageID
	sep  string
}

func (d degradedBehavior) Language() parsing.LanguageID { return d.lang }
func (d degradedBehavior) ModuleSeparator() string      { return d.sep }
func (degradedBehavior) SupportsInterfaces() bool       { return true }
func (degradedBehavior) HasQualifiedNames() bool        { return false }
func (d degradedBehavior) FilePathToModulePath(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return ""
	}
	return strings.ReplaceAll(filepath.ToSlash(dir), "/", d.sep)
}

// Registry maps a LanguageID to its Behavior.
type Registry struct {
	behaviors map[parsing.LanguageID]Behavior
}

// NewRegistry builds the Behavior registry for every language codanna
// supports (mirrors internal/parsing.Registry's language set).
func NewRegistry() *Registry {
	r := &Registry{behaviors: make(map[parsing.LanguageID]Behavior)}
	r.add(goBehavior{})
	r.add(pythonBehavior{})
	r.add(jsBehavior{lang: parsing.LangJavaScript})
	r.add(jsBehavior{lang: parsing.LangTypeScript})
	r.add(jsBehavior{lang: parsing.LangTSX})
	r.add(degradedBehavior{lang: parsing.LangRust, sep: "::"})
	r.add(degradedBehavior{lang: parsing.LangJava, sep: "."})
	r.add(degradedBehavior{lang: parsing.LangCSharp, sep: "."})
	r.add(degradedBehavior{lang: parsing.LangPHP, sep: "\\"})
	return r
}

func (r *Registry) add(b Behavior) { r.behaviors[b.Language()] = b }

// For returns the Behavior for lang.
func (r *Registry) For(l parsing.LanguageID) (Behavior, bool) {
	b, ok := r.behaviors[l]
	return b, ok
}
