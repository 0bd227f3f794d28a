// Package parser extracts filtered focus-node trees from source files using
// tree-sitter grammars.
//
// Six languages are supported: Go, Python, JavaScript, TypeScript, Java, and
// C#. Each language has a fixed set of focus declaration types (functions,
// classes, types, and their peers); everything outside the set is dropped,
// but the walk descends through dropped constructs so a class inside a
// namespace still surfaces.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.Parse(ctx, content, types.LangPython)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, node := range result.Nodes {
//	    fmt.Printf("%s %s at line %d\n", node.Type, node.Symbol, node.Span.StartLine)
//	}
//
// # Filtered Trees
//
// Result.Nodes holds the top-level declarations in source order. Nested
// declarations (methods of a class, inner classes) appear under Children.
// Each node carries a dotted tree position ("2", "2.0") so rows persisted
// from the tree stay addressable across rebuilds of the same content.
//
// Decorator and export wrappers are unwrapped: the node reports the inner
// declaration's type and symbol while the span and snippet cover the whole
// wrapper, so a decorated Python function keeps its decorators in the
// snippet. A module-level `if __name__ == "__main__":` guard is reported as
// a synthetic entry_point node.
//
// # Symbol Inference
//
// Names are resolved in three steps: the grammar's name field, the first
// spec child of grouped declarations (Go const blocks, JS variable
// statements), then a per-language first-line pattern. Nodes the grammar
// cannot name stay symbol-less rather than failing the parse.
//
// # Error Handling
//
// Files with syntax errors still yield the declarations that parsed:
//
//	result, err := p.Parse(ctx, broken, types.LangPython)
//	// err is nil for syntax errors
//
//	if result.ErrorCount > 0 {
//	    // partial tree, error node count recorded with the snapshot
//	}
//
// This allows indexing to continue even when some files have syntax errors.
package parser
