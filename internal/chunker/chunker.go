// Package chunker splits extracted document text into overlapping, bounded-size chunks.
package chunker

import (
	"strings"

	"github.com/kotae-ai/kotae/internal/models"
)

// Chunker splits text into chunks of at most Size characters with Overlap
// characters of shared context between adjacent chunks. Splitting prefers
// paragraph boundaries; a paragraph longer than Size is hard-split at word
// boundaries. Output is deterministic for a given input.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Size and overlap are in characters; overlap must be
// smaller than size or progress could stall, so it is clamped to size/2.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into chunk strings. Empty or whitespace-only input
// yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var current string

	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
		}
	}

	for _, para := range paragraphs {
		switch {
		case len(para) > c.size:
			// Oversize paragraph: flush whatever is pending, then hard-split.
			flush()
			current = ""
			chunks = append(chunks, c.hardSplit(para)...)
		case current != "" && len(current)+len(para)+2 > c.size:
			flush()
			if c.overlap > 0 {
				tail := current[len(current)-min(c.overlap, len(current)):]
				current = tail + "\n\n" + para
			} else {
				current = para
			}
		case current == "":
			current = para
		default:
			current = current + "\n\n" + para
		}
	}
	flush()
	return chunks
}

// ChunkDocument chunks text and wraps each piece as a models.Chunk with its
// ordinal, counts, and source filename.
func (c *Chunker) ChunkDocument(docID, source, text string) []models.Chunk {
	pieces := c.Chunk(text)
	chunks := make([]models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = models.Chunk{
			DocumentID: docID,
			Ordinal:    i,
			Text:       p,
			CharCount:  len(p),
			WordCount:  len(strings.Fields(p)),
			Source:     source,
		}
	}
	return chunks
}

// hardSplit cuts text into windows of at most size characters, breaking at the
// last space before the limit when one exists. Consecutive windows share
// exactly overlap characters: the next window starts overlap characters
// before the previous cut.
func (c *Chunker) hardSplit(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}
	var out []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		cut := end
		for cut > start && text[cut] != ' ' {
			cut--
		}
		if cut == start {
			cut = end
		}
		out = append(out, text[start:cut])
		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return out
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
