package chunker

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxTokens is the target maximum token count per chunk
	DefaultMaxTokens = 512

	// DefaultOverlapTokens is how many tokens consecutive chunks share
	DefaultOverlapTokens = 64

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// Piece is one window over a text file. Offsets are byte positions into
// the original content; boundaries always fall on rune boundaries.
type Piece struct {
	Index       int
	StartOffset int
	EndOffset   int
	Content     string
	TokenCount  int
}

// Chunker splits text content into overlapping token-bounded windows
type Chunker struct {
	maxChars     int
	overlapChars int
}

// New creates a Chunker with the given token bounds. Non-positive max
// falls back to DefaultMaxTokens; overlap is clamped below max.
func New(maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 4
	}
	return &Chunker{
		maxChars:     maxTokens * TokensPerChar,
		overlapChars: overlapTokens * TokensPerChar,
	}
}

// Split cuts content into pieces of at most maxChars runes, consecutive
// pieces overlapping by overlapChars runes. A window that would end
// mid-line is shortened to the last line break in its final quarter.
func (c *Chunker) Split(content string) []Piece {
	if content == "" {
		return nil
	}

	// Byte offset of every rune start, plus one past the end, so window
	// arithmetic runs on rune indexes while offsets stay bytes.
	bounds := make([]int, 0, len(content)+1)
	for i := range content {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(content))
	total := len(bounds) - 1

	step := c.maxChars - c.overlapChars
	if step < 1 {
		step = 1
	}

	pieces := make([]Piece, 0, total/c.maxChars+1)
	for start := 0; start < total; {
		end := start + c.maxChars
		if end >= total {
			end = total
		} else if cut := lastLineBreak(content, bounds, start, end); cut > start {
			end = cut
		}

		startByte, endByte := bounds[start], bounds[end]
		text := content[startByte:endByte]
		pieces = append(pieces, Piece{
			Index:       len(pieces),
			StartOffset: startByte,
			EndOffset:   endByte,
			Content:     text,
			TokenCount:  EstimateTokens(text),
		})

		if end == total {
			break
		}
		next := end - c.overlapChars
		if next <= start {
			next = start + step
		}
		start = next
	}
	return pieces
}

// lastLineBreak returns the rune index just past the last '\n' in the
// final quarter of the window, or -1 when that region has none.
func lastLineBreak(content string, bounds []int, start, end int) int {
	floor := end - (end-start)/4
	if floor <= start {
		return -1
	}
	i := strings.LastIndexByte(content[bounds[floor]:bounds[end]], '\n')
	if i < 0 {
		return -1
	}
	// '\n' is a single-byte rune, so the byte after it is a rune start
	return sort.SearchInts(bounds, bounds[floor]+i+1)
}

// EstimateTokens estimates the number of tokens in a string, rounding up
func EstimateTokens(text string) int {
	return (len(text) + TokensPerChar - 1) / TokensPerChar
}
