package textindex

import "testing"

func TestSplitCodeTokenCamelCase(t *testing.T) {
	cases := map[string][]string{
		"getUserById":  {"get", "User", "By", "Id"},
		"HTTPHandler":  {"HTTP", "Handler"},
		"parseJSON":    {"parse", "JSON"},
		"user_id":      {"user", "id"},
		"kebab-case":   {"kebab", "case"},
		"already":      {"already"},
	}
	for input, want := range cases {
		got := splitCodeToken(input)
		if len(got) != len(want) {
			t.Fatalf("splitCodeToken(%q) = %v, want %v", input, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("splitCodeToken(%q) = %v, want %v", input, got, want)
			}
		}
	}
}

func TestCodeTokenizerSplitsIdentifierRun(t *testing.T) {
	tok := &codeTokenizer{}
	stream := tok.Tokenize([]byte("func ResolveSymbolId(ctx context.Context)"))

	var terms []string
	for _, tk := range stream {
		terms = append(terms, string(tk.Term))
	}

	want := []string{"func", "Resolve", "Symbol", "Id", "ctx", "context", "Context"}
	if len(terms) != len(want) {
		t.Fatalf("got terms %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("got terms %v, want %v", terms, want)
		}
	}
}

func TestCodeStopFilterDropsStopWords(t *testing.T) {
	f := &codeStopFilter{stopWords: buildStopWordSet(defaultCodeStopWords)}
	tok := &codeTokenizer{}
	stream := tok.Tokenize([]byte("get the user"))
	filtered := f.Filter(stream)

	for _, tk := range filtered {
		term := string(tk.Term)
		if term == "get" || term == "the" {
			t.Fatalf("expected stop word %q to be filtered out, stream=%v", term, filtered)
		}
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 surviving token, got %d", len(filtered))
	}
}
