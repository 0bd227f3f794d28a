// Package chunker splits markdown and plain-text content into overlapping
// windows sized for embedding models.
//
// Windows are measured in estimated tokens (TokensPerChar heuristic) and
// cut on rune boundaries, so multi-byte characters are never torn. Piece
// offsets are byte positions into the original content. A window that
// would end mid-line is shortened to the last line break in its final
// quarter, which keeps most chunks aligned with the document's own
// structure without a markdown parser.
//
// Usage:
//
//	c := chunker.New(512, 64)
//	for _, piece := range c.Split(content) {
//		fmt.Printf("%d: bytes %d-%d, ~%d tokens\n",
//			piece.Index, piece.StartOffset, piece.EndOffset, piece.TokenCount)
//	}
package chunker
