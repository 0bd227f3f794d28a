package parser

import (
	"context"
	"fmt"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"semdex/pkg/types"
)

// Parser extracts filtered focus-node trees from source files
type Parser struct{}

// New creates a parser
func New() *Parser {
	return &Parser{}
}

// Result is the outcome of parsing one source file. Nodes holds the
// top-level focus declarations; nested declarations hang off their
// Children. ErrorCount is the number of syntax error nodes observed.
type Result struct {
	Language   types.Language
	Nodes      []*types.FocusNode
	ErrorCount int
}

// grammarFor maps a language to its tree-sitter grammar
func grammarFor(lang types.Language) (*sitter.Language, error) {
	switch lang {
	case types.LangGo:
		return golang.GetLanguage(), nil
	case types.LangPython:
		return python.GetLanguage(), nil
	case types.LangJavaScript:
		return javascript.GetLanguage(), nil
	case types.LangTypeScript:
		return typescript.GetLanguage(), nil
	case types.LangJava:
		return java.GetLanguage(), nil
	case types.LangCSharp:
		return csharp.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language %q", string(lang))
	}
}

// Parse parses source content and returns its filtered focus-node tree.
// Files with syntax errors still yield the declarations that parsed;
// the error node count is reported alongside.
func (p *Parser) Parse(ctx context.Context, content []byte, lang types.Language) (*Result, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	root := tree.RootNode()
	result := &Result{
		Language:   lang,
		Nodes:      collect(root, content, lang, ""),
		ErrorCount: countErrors(root),
	}
	return result, nil
}

// collect walks the subtree under n and returns the focus declarations it
// contains, in source order. prefix is the dotted tree position of the
// enclosing focus node ("" at module level); collected nodes get positions
// like "2" or "2.0".
func collect(n *sitter.Node, src []byte, lang types.Language, prefix string) []*types.FocusNode {
	nodes := make([]*types.FocusNode, 0)

	var walk func(cur *sitter.Node, moduleLevel bool)
	walk = func(cur *sitter.Node, moduleLevel bool) {
		count := int(cur.NamedChildCount())
		for i := 0; i < count; i++ {
			child := cur.NamedChild(i)

			if isFocus(lang, child.Type()) {
				fn, body := newFocusNode(child, src, lang)
				fn.Path = childPath(prefix, len(nodes))
				fn.Children = collect(body, src, lang, fn.Path)
				nodes = append(nodes, fn)
				continue
			}

			if lang == types.LangPython && moduleLevel && isEntryGuard(child, src) {
				fn := &types.FocusNode{
					Type:    EntryPointType,
					Symbol:  "__main__",
					Span:    spanOf(child),
					Snippet: child.Content(src),
				}
				fn.Path = childPath(prefix, len(nodes))
				nodes = append(nodes, fn)
				continue
			}

			walk(child, false)
		}
	}
	walk(n, prefix == "")

	return nodes
}

// newFocusNode builds the focus node for a kept declaration. Wrapper nodes
// (decorated definitions, export statements) resolve to the declaration
// inside: the node type and symbol come from the inner declaration while
// the span and snippet cover the whole wrapper. The returned body node is
// where child collection continues, so the inner declaration is not
// reported twice.
func newFocusNode(outer *sitter.Node, src []byte, lang types.Language) (*types.FocusNode, *sitter.Node) {
	inner := resolveDeclaration(outer)
	fn := &types.FocusNode{
		Type:    inner.Type(),
		Symbol:  symbolForNode(inner, src, lang),
		Span:    spanOf(outer),
		Snippet: outer.Content(src),
	}
	return fn, inner
}

// resolveDeclaration unwraps decorator and export wrappers
func resolveDeclaration(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return decl
		}
	}
	return n
}

func spanOf(n *sitter.Node) types.Span {
	start := n.StartPoint()
	end := n.EndPoint()
	return types.Span{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}

func childPath(prefix string, index int) string {
	if prefix == "" {
		return strconv.Itoa(index)
	}
	return prefix + "." + strconv.Itoa(index)
}

// countErrors counts syntax error nodes in the whole tree
func countErrors(n *sitter.Node) int {
	count := 0
	if n.IsError() {
		count++
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		count += countErrors(n.NamedChild(i))
	}
	return count
}
