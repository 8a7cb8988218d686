package parsing

import (
	"strings"
	"unicode"

	"github.com/codanna-go/codanna/internal/symbol"
)

// pythonExtractor implements Extractor for Python, grounded on
// tree-sitter-python's node kinds (function_definition, class_definition,
// import_statement/import_from_statement, call, assignment).
type pythonExtractor struct{}

func (pythonExtractor) Language() LanguageID { return LangPython }

func (p pythonExtractor) Parse(tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) ([]symbol.Symbol, error) {
	var out []symbol.Symbol
	if tree == nil || tree.Root == nil {
		return out, nil
	}

	tree.Root.Walk(func(n *Node) bool {
		var kind symbol.Kind
		var name string
		var scope symbol.ScopeContext = symbol.ScopeModule

		switch n.Type {
		case "function_definition":
			kind = symbol.KindFunction
			name = firstChildContent(n, tree.Source, "identifier")
			if isInsideClass(n) {
				kind = symbol.KindMethod
				scope = symbol.ScopeClass
			}
		case "class_definition":
			kind = symbol.KindClass
			name = firstChildContent(n, tree.Source, "identifier")
		default:
			return true
		}
		if name == "" {
			return true
		}

		sym, err := p.buildSymbol(n, name, kind, scope, tree, fileID, ids, interner)
		if err == nil {
			out = append(out, sym)
		}
		return true
	})
	return out, nil
}

func isInsideClass(n *Node) bool {
	for parent := n.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type == "class_definition" {
			return true
		}
		if parent.Type == "function_definition" {
			return false
		}
	}
	return false
}

func (p pythonExtractor) buildSymbol(n *Node, name string, kind symbol.Kind, scope symbol.ScopeContext, tree *Tree, fileID symbol.FileID, ids *symbol.Reservation, interner *symbol.Interner) (symbol.Symbol, error) {
	id, err := ids.Next()
	if err != nil {
		return symbol.Symbol{}, err
	}
	nameID, err := interner.Intern(name)
	if err != nil {
		return symbol.Symbol{}, err
	}

	var sigID symbol.InternedID
	if sig := p.signature(n, tree.Source); sig != "" {
		if id, err := interner.Intern(sig); err == nil {
			sigID = id
		}
	}
	var docID symbol.InternedID
	if doc, ok := p.ExtractDocComment(n, tree.Source); ok {
		if id, err := interner.Intern(doc); err == nil {
			docID = id
		}
	}

	vis := symbol.VisibilityPublic
	if strings.HasPrefix(name, "_") {
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

func (pythonExtractor) signature(n *Node, source []byte) string {
	content := n.Content(source)
	firstLine := strings.SplitN(content, "\n", 2)[0]
	return strings.TrimSuffix(strings.TrimSpace(firstLine), ":")
}

// ExtractDocComment returns a Python docstring: the first statement in
// the definition's body, if it is a bare string literal.
func (pythonExtractor) ExtractDocComment(n *Node, source []byte) (string, bool) {
	body := n.ChildByFieldType("block")
	if body == nil {
		return "", false
	}
	for _, stmt := range body.Children {
		if stmt.Type != "expression_statement" {
			continue
		}
		for _, c := range stmt.Children {
			if c.Type == "string" {
				text := c.Content(source)
				text = strings.Trim(text, `"'`)
				return strings.TrimSpace(text), true
			}
		}
		break
	}
	return "", false
}

func (p pythonExtractor) FindCalls(tree *Tree) []CallEdge {
	var out []CallEdge
	enclosing := func(n *Node) string {
		for parent := n.Parent(); parent != nil; parent = parent.Parent() {
			if parent.Type == "function_definition" {
				return firstChildContent(parent, tree.Source, "identifier")
			}
		}
		return ""
	}
	for _, n := range tree.Root.FindAllByType("call") {
		if len(n.Children) == 0 {
			continue
		}
		fn := n.Children[0]
		var calleeName string
		switch fn.Type {
		case "identifier":
			calleeName = fn.Content(tree.Source)
		case "attribute":
			if attr := fn.ChildByFieldType("identifier"); attr != nil {
				calleeName = attr.Content(tree.Source)
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

// FindImplementations maps Python's class-inheritance syntax
// (class Foo(Base):) onto the uniform Extends relation.
func (p pythonExtractor) FindImplementations(tree *Tree) []ImplEdge {
	var out []ImplEdge
	for _, n := range tree.Root.FindAllByType("class_definition") {
		name := firstChildContent(n, tree.Source, "identifier")
		bases := n.ChildByFieldType("argument_list")
		if name == "" || bases == nil {
			continue
		}
		for _, base := range bases.ChildrenByType("identifier") {
			out = append(out, ImplEdge{Implementer: name, Interface: base.Content(tree.Source), Range: nodeRange(n)})
		}
	}
	return out
}

func (p pythonExtractor) FindUses(tree *Tree) []UseEdge {
	var out []UseEdge
	for _, n := range tree.Root.FindAllByType("class_definition") {
		name := firstChildContent(n, tree.Source, "identifier")
		body := n.ChildByFieldType("block")
		if name == "" || body == nil {
			continue
		}
		for _, call := range body.FindAllByType("call") {
			if len(call.Children) == 0 {
				continue
			}
			id := call.Children[0]
			if id.Type != "identifier" {
				continue
			}
			text := id.Content(tree.Source)
			if text != "" && unicode.IsUpper(rune(text[0])) {
				out = append(out, UseEdge{User: name, Used: text, Range: nodeRange(call)})
			}
		}
	}
	return out
}

func (p pythonExtractor) FindDefines(tree *Tree) []DefineEdge {
	var out []DefineEdge
	for _, n := range tree.Root.FindAllByType("class_definition") {
		container := firstChildContent(n, tree.Source, "identifier")
		body := n.ChildByFieldType("block")
		if container == "" || body == nil {
			continue
		}
		for _, member := range body.ChildrenByType("function_definition") {
			if name := firstChildContent(member, tree.Source, "identifier"); name != "" {
				out = append(out, DefineEdge{Container: container, Defined: name, Range: nodeRange(member)})
			}
		}
	}
	return out
}

func (p pythonExtractor) FindImports(tree *Tree, fileID symbol.FileID) []symbol.Import {
	var out []symbol.Import
	for _, n := range tree.Root.FindAllByType("import_statement") {
		for _, c := range n.ChildrenByType("dotted_name") {
			out = append(out, symbol.Import{Path: c.Content(tree.Source), FileID: fileID})
		}
	}
	for _, n := range tree.Root.FindAllByType("import_from_statement") {
		var modulePath string
		if module := n.ChildByFieldType("dotted_name"); module != nil {
			modulePath = module.Content(tree.Source)
		}
		isGlob := false
		names := n.ChildrenByType("dotted_name")
		if len(names) <= 1 {
			for _, c := range n.Children {
				if c.Type == "wildcard_import" {
					isGlob = true
				}
			}
		}
		out = append(out, symbol.Import{Path: modulePath, FileID: fileID, IsGlob: isGlob})
	}
	return out
}

func (p pythonExtractor) FindMethodCalls(tree *Tree) []MethodCall {
	var out []MethodCall
	for _, n := range tree.Root.FindAllByType("call") {
		if len(n.Children) == 0 {
			continue
		}
		fn := n.Children[0]
		if fn.Type != "attribute" {
			continue
		}
		receiver := ""
		if len(fn.Children) > 0 {
			receiver = fn.Children[0].Content(tree.Source)
		}
		method := ""
		if id := fn.ChildByFieldType("identifier"); id != nil {
			method = id.Content(tree.Source)
		}
		if method == "" {
			continue
		}
		out = append(out, MethodCall{Method: method, Receiver: receiver, IsStatic: receiver != "" && receiver != "self", Range: nodeRange(n)})
	}
	return out
}
