package parsing

import (
	"strings"

	"github.com/codanna-go/codanna/internal/symbol"
)

// javascriptExtractor implements Extractor for JavaScript, TypeScript,
// and TSX, which share almost all node kinds in the tree-sitter grammars
// smacker/go-tree-sitter bundles (function_declaration, class_declaration,
// method_definition, interface_declaration (TS only), import/export
// statements, call_expression).
type javascriptExtractor struct {
	lang LanguageID
}

func (j javascriptExtractor) Language() LanguageID { return j.lang }

func (j javascriptExtractor) Parse(tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) ([]symbol.Symbol, error) {
	var out []symbol.Symbol
	if tree == nil || tree.Root == nil {
		return out, nil
	}

	tree.Root.Walk(func(n *Node) bool {
		var kind symbol.Kind
		var name string
		scope := symbol.ScopeModule

		switch n.Type {
		case "function_declaration":
			kind = symbol.KindFunction
			name = firstChildContent(n, tree.Source, "identifier")
		case "class_declaration":
			kind = symbol.KindClass
			name = firstChildContent(n, tree.Source, "identifier")
		case "method_definition":
			kind = symbol.KindMethod
			name = firstChildContent(n, tree.Source, "property_identifier")
			scope = symbol.ScopeClass
		case "interface_declaration":
			kind = symbol.KindInterface
			name = firstChildContent(n, tree.Source, "type_identifier")
		case "type_alias_declaration":
			kind = symbol.KindTypeAlias
			name = firstChildContent(n, tree.Source, "type_identifier")
		default:
			return true
		}
		if name == "" {
			return true
		}

		sym, err := j.buildSymbol(n, name, kind, scope, tree, fileID, ids, interner)
		if err == nil {
			out = append(out, sym)
		}
		return true
	})
	return out, nil
}

func (j javascriptExtractor) buildSymbol(n *Node, name string, kind symbol.Kind, scope symbol.ScopeContext, tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) (symbol.Symbol, error) {
	id, err := ids.Next()
	if err != nil {
		return symbol.Symbol{}, err
	}
	nameID, err := interner.Intern(name)
	if err != nil {
		return symbol.Symbol{}, err
	}

	var sigID symbol.InternedID
	if sig := j.signature(n, tree.Source); sig != "" {
		if id, err := interner.Intern(sig); err == nil {
			sigID = id
		}
	}
	var docID symbol.InternedID
	if doc, ok := j.ExtractDocComment(n, tree.Source); ok {
		if id, err := interner.Intern(doc); err == nil {
			docID = id
		}
	}

	vis := symbol.VisibilityPublic
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
		vis = symbol.VisibilityPrivate
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
		VectorEligible: true,
	}, nil
}

func (javascriptExtractor) signature(n *Node, source []byte) string {
	content := n.Content(source)
	firstLine := strings.SplitN(content, "\n", 2)[0]
	if i := strings.Index(firstLine, "{"); i >= 0 {
		firstLine = firstLine[:i]
	}
	return strings.TrimSpace(firstLine)
}

// ExtractDocComment returns a JSDoc-style /** */ block immediately above
// n, falling back to a run of // line comments.
func (javascriptExtractor) ExtractDocComment(n *Node, source []byte) (string, bool) {
	return leadingBlockOrLineComment(n, source, "//", "/**", "*/")
}

func (j javascriptExtractor) FindCalls(tree *Tree) []CallEdge {
	var out []CallEdge
	enclosing := func(n *Node) string {
		for parent := n.Parent(); parent != nil; parent = parent.Parent() {
			if parent.Type == "function_declaration" {
				return firstChildContent(parent, tree.Source, "identifier")
			}
			if parent.Type == "method_definition" {
				return firstChildContent(parent, tree.Source, "property_identifier")
			}
		}
		return ""
	}
	for _, n := range tree.Root.FindAllByType("call_expression") {
		if len(n.Children) == 0 {
			continue
		}
		fn := n.Children[0]
		var calleeName string
		switch fn.Type {
		case "identifier":
			calleeName = fn.Content(tree.Source)
		case "member_expression":
			if prop := fn.ChildByFieldType("property_identifier"); prop != nil {
				calleeName = prop.Content(tree.Source)
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

// FindImplementations maps `class Foo extends Bar` and TypeScript's
// `class Foo implements IBar` onto Extends/Implements respectively.
func (j javascriptExtractor) FindImplementations(tree *Tree) []ImplEdge {
	var out []ImplEdge
	for _, n := range tree.Root.FindAllByType("class_declaration") {
		name := firstChildContent(n, tree.Source, "identifier")
		if name == "" {
			continue
		}
		for _, clause := range n.FindAllByType("class_heritage") {
			for _, id := range clause.FindAllByType("identifier") {
				out = append(out, ImplEdge{Implementer: name, Interface: id.Content(tree.Source), Range: nodeRange(clause)})
			}
			for _, id := range clause.FindAllByType("type_identifier") {
				out = append(out, ImplEdge{Implementer: name, Interface: id.Content(tree.Source), Range: nodeRange(clause)})
			}
		}
	}
	return out
}

func (j javascriptExtractor) FindUses(tree *Tree) []UseEdge {
	var out []UseEdge
	for _, n := range tree.Root.FindAllByType("class_declaration") {
		name := firstChildContent(n, tree.Source, "identifier")
		body := n.ChildByFieldType("class_body")
		if name == "" || body == nil {
			continue
		}
		for _, newExpr := range body.FindAllByType("new_expression") {
			if id := newExpr.ChildByFieldType("identifier"); id != nil {
				out = append(out, UseEdge{User: name, Used: id.Content(tree.Source), Range: nodeRange(newExpr)})
			}
		}
	}
	return out
}

func (j javascriptExtractor) FindDefines(tree *Tree) []DefineEdge {
	var out []DefineEdge
	for _, n := range tree.Root.FindAllByType("class_declaration") {
		container := firstChildContent(n, tree.Source, "identifier")
		body := n.ChildByFieldType("class_body")
		if container == "" || body == nil {
			continue
		}
		for _, member := range body.ChildrenByType("method_definition") {
			if name := firstChildContent(member, tree.Source, "property_identifier"); name != "" {
				out = append(out, DefineEdge{Container: container, Defined: name, Range: nodeRange(member)})
			}
		}
	}
	return out
}

func (j javascriptExtractor) FindImports(tree *Tree, fileID symbol.FileID) []symbol.Import {
	var out []symbol.Import
	for _, n := range tree.Root.FindAllByType("import_statement") {
		var path string
		isTypeOnly := false
		for _, c := range n.Children {
			if c.Type == "string" {
				path = strings.Trim(c.Content(tree.Source), `"'`)
			}
		}
		if len(n.ChildrenByType("type")) > 0 {
			isTypeOnly = true
		}
		isGlob := len(n.FindAllByType("namespace_import")) > 0
		if path != "" {
			out = append(out, symbol.Import{Path: path, FileID: fileID, IsGlob: isGlob, IsTypeOnly: isTypeOnly})
		}
	}
	return out
}

func (j javascriptExtractor) FindMethodCalls(tree *Tree) []MethodCall {
	var out []MethodCall
	for _, n := range tree.Root.FindAllByType("call_expression") {
		if len(n.Children) == 0 {
			continue
		}
		fn := n.Children[0]
		if fn.Type != "member_expression" {
			continue
		}
		receiver := ""
		if len(fn.Children) > 0 {
			receiver = fn.Children[0].Content(tree.Source)
		}
		method := ""
		if prop := fn.ChildByFieldType("property_identifier"); prop != nil {
			method = prop.Content(tree.Source)
		}
		if method == "" {
			continue
		}
		isStatic := receiver != "" && receiver != "this"
		out = append(out, MethodCall{Method: method, Receiver: receiver, IsStatic: isStatic, Range: nodeRange(n)})
	}
	return out
}
