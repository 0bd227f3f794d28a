package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"semdex/pkg/types"
)

// focusTypes lists the declaration node types kept per language. Everything
// outside these sets is dropped from the filtered tree, though the walk still
// descends through dropped nodes so nested declarations surface.
var focusTypes = map[types.Language]map[string]bool{
	types.LangGo: {
		"function_declaration": true,
		"method_declaration":   true,
		"type_declaration":     true,
		"const_declaration":    true,
		"var_declaration":      true,
	},
	types.LangPython: {
		"function_definition":  true,
		"class_definition":     true,
		"decorated_definition": true,
	},
	types.LangJavaScript: {
		"function_declaration":           true,
		"generator_function_declaration": true,
		"class_declaration":              true,
		"method_definition":              true,
		"lexical_declaration":            true,
		"variable_declaration":           true,
		"export_statement":               true,
	},
	types.LangTypeScript: {
		"function_declaration":           true,
		"generator_function_declaration": true,
		"class_declaration":              true,
		"abstract_class_declaration":     true,
		"method_definition":              true,
		"lexical_declaration":            true,
		"variable_declaration":           true,
		"export_statement":               true,
		"interface_declaration":          true,
		"type_alias_declaration":         true,
		"enum_declaration":               true,
	},
	types.LangJava: {
		"class_declaration":       true,
		"interface_declaration":   true,
		"enum_declaration":        true,
		"record_declaration":      true,
		"method_declaration":      true,
		"constructor_declaration": true,
	},
	types.LangCSharp: {
		"namespace_declaration":            true,
		"file_scoped_namespace_declaration": true,
		"class_declaration":                true,
		"interface_declaration":            true,
		"struct_declaration":               true,
		"enum_declaration":                 true,
		"record_declaration":               true,
		"method_declaration":               true,
		"constructor_declaration":          true,
	},
}

func isFocus(lang types.Language, nodeType string) bool {
	return focusTypes[lang][nodeType]
}

// EntryPointType is the synthetic node type assigned to a module-level
// Python __main__ guard.
const EntryPointType = "entry_point"

// isEntryGuard reports whether a module-level statement is the Python
// `if __name__ == "__main__":` idiom.
func isEntryGuard(n *sitter.Node, src []byte) bool {
	if n.Type() != "if_statement" {
		return false
	}
	cond := n.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	text := cond.Content(src)
	return strings.Contains(text, "__name__") && strings.Contains(text, "__main__")
}
