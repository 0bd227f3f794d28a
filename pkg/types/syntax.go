package types

// Span locates a syntax node in its source file. Lines and columns are
// zero-based, matching tree-sitter points.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// FocusNode is one syntactically significant declaration kept by the
// parser's per-language filter. Nested focus declarations (methods inside a
// class, for example) appear as children; everything else is dropped from
// the filtered tree.
//
// Snippet carries the node's source text for row persistence and is
// excluded from the serialized tree to keep snapshots compact.
type FocusNode struct {
	Type     string       `json:"type"`
	Symbol   string       `json:"symbol,omitempty"`
	Path     string       `json:"path"`
	Span     Span         `json:"span"`
	Snippet  string       `json:"-"`
	Children []*FocusNode `json:"children,omitempty"`
}
