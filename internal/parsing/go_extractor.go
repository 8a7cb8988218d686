package parsing

import (
	"strings"
	"unicode"

	"github.com/codanna-go/codanna/internal/symbol"
)

// goExtractor implements Extractor for Go source, grounded on the
// tree-sitter-go grammar's node kinds (function_declaration,
// method_declaration, type_declaration/type_spec, const_declaration,
// var_declaration, import_declaration).
type goExtractor struct{}

func (goExtractor) Language() LanguageID { return LangGo }

func (g goExtractor) Parse(tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) ([]symbol.Symbol, error) {
	var out []symbol.Symbol
	if tree == nil || tree.Root == nil {
		return out, nil
	}

	tree.Root.Walk(func(n *Node) bool {
		var kind symbol.Kind
		var name string

		switch n.Type {
		case "function_declaration":
			kind = symbol.KindFunction
			name = firstChildContent(n, tree.Source, "identifier")
		case "method_declaration":
			kind = symbol.KindMethod
			name = firstChildContent(n, tree.Source, "field_identifier")
		case "type_spec":
			name = firstChildContent(n, tree.Source, "type_identifier")
			if def := n.ChildByFieldType("struct_type"); def != nil {
				kind = symbol.KindStruct
			} else if def := n.ChildByFieldType("interface_type"); def != nil {
				kind = symbol.KindInterface
			} else {
				kind = symbol.KindTypeAlias
			}
		case "const_spec":
			kind = symbol.KindConstant
			name = firstChildContent(n, tree.Source, "identifier")
		case "var_spec":
			kind = symbol.KindVariable
			name = firstChildContent(n, tree.Source, "identifier")
		default:
			return true
		}

		if name == "" {
			return true
		}

		sym, err := g.buildSymbol(n, name, kind, tree, fileID, ids, interner)
		if err == nil {
			out = append(out, sym)
		}
		return true
	})

	return out, nil
}

func (g goExtractor) buildSymbol(n *Node, name string, kind symbol.Kind, tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) (symbol.Symbol, error) {
	id, err := ids.Next()
	if err != nil {
		return symbol.Symbol{}, err
	}
	nameID, err := interner.Intern(name)
	if err != nil {
		return symbol.Symbol{}, err
	}

	var sigID symbol.InternedID
	if sig := g.signature(n, tree.Source, kind); sig != "" {
		if id, err := interner.Intern(sig); err == nil {
			sigID = id
		}
	}
	var docID symbol.InternedID
	if doc, ok := g.ExtractDocComment(n, tree.Source); ok {
		if id, err := interner.Intern(doc); err == nil {
			docID = id
		}
	}

	vis := symbol.VisibilityPrivate
	if name != "" && unicode.IsUpper(rune(name[0])) {
		vis = symbol.VisibilityPublic
	}

	scope := symbol.ScopeGlobal
	if n.Type == "method_declaration" {
		scope = symbol.ScopeClass
	}

	return symbol.Symbol{
		ID:             id,
		Name:           nameID,
		Kind:           kind,
		FileID:         fileID,
		Range:          nodeRange(n),
		Signature:      sigID,
		DocComment:     docID,
		Visibility:     vis,
		ScopeContext:   scope,
		VectorEligible: kind == symbol.KindFunction || kind == symbol.KindMethod || kind == symbol.KindStruct || kind == symbol.KindInterface,
	}, nil
}

func (goExtractor) signature(n *Node, source []byte, kind symbol.Kind) string {
	content := n.Content(source)
	if content == "" {
		return ""
	}
	firstLine := strings.SplitN(content, "\n", 2)[0]
	firstLine = strings.TrimSpace(firstLine)
	if i := strings.Index(firstLine, "{"); i >= 0 {
		firstLine = strings.TrimSpace(firstLine[:i])
	}
	_ = kind
	return firstLine
}

func (goExtractor) ExtractDocComment(n *Node, source []byte) (string, bool) {
	return leadingLineComments(n, source, "//")
}

func (g goExtractor) FindCalls(tree *Tree) []CallEdge {
	var out []CallEdge
	enclosing := func(n *Node) string {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Type == "function_declaration" {
				return firstChildContent(p, tree.Source, "identifier")
			}
			if p.Type == "method_declaration" {
				return firstChildContent(p, tree.Source, "field_identifier")
			}
		}
		return ""
	}

	for _, n := range tree.Root.FindAllByType("call_expression") {
		callee := n.Children
		if len(callee) == 0 {
			continue
		}
		fn := callee[0]
		var calleeName string
		switch fn.Type {
		case "identifier":
			calleeName = fn.Content(tree.Source)
		case "selector_expression":
			if field := fn.ChildByFieldType("field_identifier"); field != nil {
				calleeName = field.Content(tree.Source)
			}
		}
		if calleeName == "" {
			continue
		}
		caller := enclosing(n)
		if caller == "" {
			continue
		}
		out = append(out, CallEdge{Caller: caller, Callee: calleeName, Range: nodeRange(n)})
	}
	return out
}

// FindImplementations is a no-op for Go: interface satisfaction is
// structural, not declared, so there is no syntactic "implements" edge to
// extract at this layer. internal/lang's resolver does not compute
// structural satisfaction either, so Go types get no Implements edges.
func (goExtractor) FindImplementations(tree *Tree) []ImplEdge { return nil }

func (g goExtractor) FindUses(tree *Tree) []UseEdge {
	var out []UseEdge
	for _, n := range tree.Root.FindAllByType("type_spec") {
		name := firstChildContent(n, tree.Source, "type_identifier")
		if name == "" {
			continue
		}
		structType := n.ChildByFieldType("struct_type")
		if structType == nil {
			continue
		}
		for _, field := range structType.FindAllByType("field_declaration") {
			if tid := field.ChildByFieldType("type_identifier"); tid != nil {
				out = append(out, UseEdge{User: name, Used: tid.Content(tree.Source), Range: nodeRange(field)})
			}
		}
	}
	return out
}

func (g goExtractor) FindDefines(tree *Tree) []DefineEdge {
	var out []DefineEdge
	for _, n := range tree.Root.FindAllByType("type_spec") {
		container := firstChildContent(n, tree.Source, "type_identifier")
		structType := n.ChildByFieldType("struct_type")
		if structType == nil || container == "" {
			continue
		}
		for _, field := range structType.FindAllByType("field_declaration") {
			if fid := field.ChildByFieldType("field_identifier"); fid != nil {
				out = append(out, DefineEdge{Container: container, Defined: fid.Content(tree.Source), Range: nodeRange(field)})
			}
		}
	}
	return out
}

func (g goExtractor) FindImports(tree *Tree, fileID symbol.FileID) []symbol.Import {
	var out []symbol.Import
	for _, n := range tree.Root.FindAllByType("import_spec") {
		var path, alias string
		for _, c := range n.Children {
			switch c.Type {
			case "interpreted_string_literal":
				path = strings.Trim(c.Content(tree.Source), `"`)
			case "identifier", "dot", "blank_identifier":
				alias = c.Content(tree.Source)
			}
		}
		if path == "" {
			continue
		}
		out = append(out, symbol.Import{Path: path, Alias: alias, FileID: fileID, IsGlob: alias == "."})
	}
	return out
}

// FindMethodCalls scans call expressions whose callee is a selector
// expression and records the selector's receiver text.
func (g goExtractor) FindMethodCalls(tree *Tree) []MethodCall {
	var out []MethodCall
	for _, n := range tree.Root.FindAllByType("call_expression") {
		if len(n.Children) == 0 {
			continue
		}
		fn := n.Children[0]
		if fn.Type != "selector_expression" {
			continue
		}
		receiver := ""
		method := ""
		if len(fn.Children) > 0 {
			receiver = fn.Children[0].Content(tree.Source)
		}
		if field := fn.ChildByFieldType("field_identifier"); field != nil {
			method = field.Content(tree.Source)
		}
		if method == "" {
			continue
		}
		isStatic := receiver != "" && unicode.IsUpper(rune(receiver[0]))
		out = append(out, MethodCall{
			Method:   method,
			Receiver: receiver,
			IsStatic: isStatic,
			Range:    nodeRange(n),
		})
	}
	return out
}
