package types

// DocumentKind identifies the snapshot source of an embeddable document
type DocumentKind string

const (
	DocumentASTNode   DocumentKind = "ast-node"
	DocumentTextChunk DocumentKind = "text-chunk"
)

// Document is one embeddable unit produced by the collector. Content is the
// formatted text handed to the embedding (or summarization) model; the
// remaining fields link the document back to its snapshot rows.
type Document struct {
	Kind     DocumentKind
	Folder   string
	FilePath string
	Label    string
	Content  string

	// Provenance
	FileID     int64 // ast_files row, ast-node documents only
	SourceID   int64 // ast_nodes or text_chunks row
	Span       Span  // ast-node documents only
	ChunkIndex int   // text-chunk documents only
}

// Validate checks the document carries enough to be embedded and traced.
func (d *Document) Validate() error {
	if d.Content == "" {
		return ErrEmptyContent
	}
	if d.Folder == "" {
		return ErrEmptyFolder
	}
	return nil
}
