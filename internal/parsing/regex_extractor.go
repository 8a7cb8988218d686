package parsing

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/codanna-go/codanna/internal/symbol"
)

// regexExtractor is the degraded-grammar fallback: languages with no
// bundled tree-sitter grammar (Rust, Java, C#, PHP in this pack) still
// produce best-effort Function/Class symbols via line-oriented regular
// expressions instead of being silently unindexed. Symbols it produces
// are tagged symbol.ScopeDegraded so callers can tell them apart from
// grammar-backed
// extraction. Languages with a bundled grammar always use the precise
// AST extractors above instead.
type regexExtractor struct {
	lang     LanguageID
	funcRe   *regexp.Regexp
	classRe  *regexp.Regexp
	commentP string
}

func newRegexExtractor(lang LanguageID) *regexExtractor {
	switch lang {
	case LangRust:
		return &regexExtractor{
			lang:     lang,
			funcRe:   regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)`),
			classRe:  regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`),
			commentP: "//",
		}
	case LangJava:
		return &regexExtractor{
			lang:     lang,
			funcRe:   regexp.MustCompile(`^\s*(?:public|private|protected|static|final|\s)+[\w<>\[\],\s]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\([^;{]*\)\s*\{?\s*$`),
			classRe:  regexp.MustCompile(`^\s*(?:public|private|protected|abstract|final|\s)*(?:class|interface|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`),
			commentP: "//",
		}
	case LangCSharp:
		return &regexExtractor{
			lang:     lang,
			funcRe:   regexp.MustCompile(`^\s*(?:public|private|protected|internal|static|async|override|virtual|\s)+[\w<>\[\],\s?]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\([^;{]*\)\s*\{?\s*$`),
			classRe:  regexp.MustCompile(`^\s*(?:public|private|protected|internal|abstract|sealed|static|\s)*(?:class|interface|struct|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`),
			commentP: "//",
		}
	case LangPHP:
		return &regexExtractor{
			lang:     lang,
			funcRe:   regexp.MustCompile(`^\s*(?:public|private|protected|static|\s)*function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`),
			classRe:  regexp.MustCompile(`^\s*(?:abstract|final|\s)*(?:class|interface|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`),
			commentP: "//",
		}
	default:
		return &regexExtractor{lang: lang}
	}
}

func (r *regexExtractor) Language() LanguageID { return r.lang }

// Parse scans source line by line (no tree is available for degraded
// languages — tree may be nil) looking for function/type definitions.
func (r *regexExtractor) Parse(tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) ([]symbol.Symbol, error) {
	source := tree.Source
	var out []symbol.Symbol
	var pendingDoc []string

	scanner := bufio.NewScanner(strings.NewReader(string(source)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := uint32(0)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if r.commentP != "" && strings.HasPrefix(trimmed, r.commentP) {
			pendingDoc = append(pendingDoc, strings.TrimSpace(strings.TrimPrefix(trimmed, r.commentP)))
			lineNo++
			continue
		}

		var name string
		var kind symbol.Kind
		if m := r.funcRe.FindStringSubmatch(line); m != nil {
			name, kind = m[1], symbol.KindFunction
		} else if m := r.classRe.FindStringSubmatch(line); m != nil {
			name, kind = m[1], symbol.KindClass
		}

		if name != "" {
			id, err := ids.Next()
			if err == nil {
				nameID, _ := interner.Intern(name)
				sigID, _ := interner.Intern(trimmed)
				var docID symbol.InternedID
				if len(pendingDoc) > 0 {
					docID, _ = interner.Intern(strings.Join(pendingDoc, "\n"))
				}
				out = append(out, symbol.Symbol{
					ID:             id,
					Name:           nameID,
					Kind:           kind,
					FileID:         fileID,
					Signature:      sigID,
					DocComment:     docID,
					Visibility:     symbol.VisibilityUnknown,
					ScopeContext:   symbol.ScopeDegraded,
					Range:          symbol.Range{StartLine: lineNo, EndLine: lineNo},
					VectorEligible: kind == symbol.KindFunction || kind == symbol.KindClass,
				})
			}
		}
		pendingDoc = nil
		lineNo++
	}
	return out, nil
}

// FindCalls, FindImplementations, FindUses, FindDefines, and
// FindMethodCalls are intentionally unimplemented for degraded languages:
// relationship extraction needs real AST structure that line-oriented
// regex matching cannot reliably provide.
func (r *regexExtractor) FindCalls(tree *Tree) []CallEdge                { return nil }
func (r *regexExtractor) FindImplementations(tree *Tree) []ImplEdge      { return nil }
func (r *regexExtractor) FindUses(tree *Tree) []UseEdge                  { return nil }
func (r *regexExtractor) FindDefines(tree *Tree) []DefineEdge            { return nil }
func (r *regexExtractor) FindMethodCalls(tree *Tree) []MethodCall        { return nil }
func (r *regexExtractor) FindImports(tree *Tree, fileID symbol.FileID) []symbol.Import {
	return nil
}
func (r *regexExtractor) ExtractDocComment(n *Node, source []byte) (string, bool) { return "", false }
