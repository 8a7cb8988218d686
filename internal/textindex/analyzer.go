package textindex

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// Names registered with bleve's analyzer registry. Mirrors the
// internal/store/bm25.go tokenizer/analyzer trio, generalized from a
// single "content" field BM25 index into the multi-field symbol schema
// of schema.go.
const (
	CodeTokenizerName  = "codanna_code_tokenizer"
	CodeStopFilterName = "codanna_code_stop"
	CodeAnalyzerName   = "codanna_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(CodeStopFilterName, codeStopFilterConstructor)
}

// addCodeAnalyzer registers the code analyzer on m and sets it as the
// default analyzer for the index mapping.
func addCodeAnalyzer(m *mapping.IndexMappingImpl) error {
	err := m.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": CodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			CodeStopFilterName,
		},
	})
	if err != nil {
		return err
	}
	m.DefaultAnalyzer = CodeAnalyzerName
	return nil
}

func codeTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

// codeTokenizer splits identifier-shaped runs of input on whitespace and
// punctuation first, then expands each run's camelCase/snake_case/
// kebab-case parts, the same two-stage split internal/store/tokenizer.go
// performs by hand (TokenizeCode -> SplitCodeToken -> SplitCamelCase)
// before handing text to its BM25 index. Ported here as a bleve
// analysis.Tokenizer so the split happens
// inside the index's analyzer chain for every field, not just a
// hand-rolled "content" field.
type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	var stream analysis.TokenStream
	pos := 1

	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
		if isWord {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			stream = appendSplit(stream, text[start:i], start, &pos)
			start = -1
		}
	}
	if start != -1 {
		stream = appendSplit(stream, text[start:], start, &pos)
	}
	return stream
}

func appendSplit(stream analysis.TokenStream, run string, byteStart int, pos *int) analysis.TokenStream {
	parts := splitCodeToken(run)
	if len(parts) == 0 {
		return stream
	}
	offset := byteStart
	for _, part := range parts {
		idx := strings.Index(run[offset-byteStart:], part)
		if idx == -1 {
			idx = 0
		}
		partStart := offset + idx
		partEnd := partStart + len(part)
		stream = append(stream, &analysis.Token{
			Term:     []byte(part),
			Start:    partStart,
			End:      partEnd,
			Position: *pos,
			Type:     analysis.AlphaNumeric,
		})
		*pos++
		offset = partEnd
	}
	return stream
}

func codeStopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: buildStopWordSet(defaultCodeStopWords)}, nil
}

type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// defaultCodeStopWords are generic-noise identifier fragments common to
// many languages' naming conventions (get/set prefixes, single-letter
// loop variables). Kept deliberately small: over-stopping hides real
// symbol names from search, which is worse than a little noise.
var defaultCodeStopWords = []string{
	"get", "set", "is", "has", "the", "a", "an", "of", "to", "in",
}

func buildStopWordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// splitCodeToken splits camelCase, snake_case, and kebab-case
// identifiers into their constituent words.
func splitCodeToken(token string) []string {
	if strings.ContainsAny(token, "_-") {
		var parts []string
		for _, piece := range strings.FieldsFunc(token, func(r rune) bool { return r == '_' || r == '-' }) {
			parts = append(parts, splitCamelCase(piece)...)
		}
		return parts
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
