package parser

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"semdex/pkg/types"
)

// First-line fallbacks for declarations whose grammar exposes no name field.
var (
	reGoSymbol     = regexp.MustCompile(`^\s*(?:func|type|const|var)\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`)
	rePySymbol     = regexp.MustCompile(`^\s*(?:async\s+)?(?:def|class)\s+([A-Za-z_]\w*)`)
	reJsSymbol     = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?(?:async\s+)?(?:function\s*\*?|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][\w$]*)`)
	reJavaSymbol   = regexp.MustCompile(`\b(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`)
	reCSharpSymbol = regexp.MustCompile(`\b(?:namespace|class|interface|struct|enum|record)\s+([A-Za-z_][\w.]*)`)
)

var symbolFallbacks = map[types.Language]*regexp.Regexp{
	types.LangGo:         reGoSymbol,
	types.LangPython:     rePySymbol,
	types.LangJavaScript: reJsSymbol,
	types.LangTypeScript: reJsSymbol,
	types.LangJava:       reJavaSymbol,
	types.LangCSharp:     reCSharpSymbol,
}

// symbolForNode infers the declared name of a focus node. The name field of
// the grammar wins; grouped declarations fall back to their first spec, and
// anything still unnamed is matched against the declaration's first line.
// Returns "" when no name can be inferred.
func symbolForNode(n *sitter.Node, src []byte, lang types.Language) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}

	if sym := symbolFromSpec(n, src); sym != "" {
		return sym
	}

	if re, ok := symbolFallbacks[lang]; ok {
		line := firstLine(n.Content(src))
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// symbolFromSpec handles grouped declarations where the name lives on the
// first spec child: Go type/const/var blocks and JS/TS variable statements.
func symbolFromSpec(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "type_declaration", "const_declaration", "var_declaration", "lexical_declaration", "variable_declaration":
	default:
		return ""
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "type_spec", "const_spec", "var_spec", "variable_declarator":
			if name := child.ChildByFieldName("name"); name != nil {
				return name.Content(src)
			}
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
