// Package chunking splits extracted document text into overlapping,
// size-bounded chunks for embedding and retrieval.
package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docinsight/internal/domain"
)

// separators are tried in order, coarsest first. The empty separator is the
// character-level fallback and must stay last.
var separators = []string{
	"\n\n",
	"\n",
	". ",
	"! ",
	"? ",
	"; ",
	", ",
	" ",
	"",
}

// Chunker is a recursive character splitter. It is safe for concurrent use.
type Chunker struct {
	cfg          Config
	maxChars     int
	overlapChars int
}

// New creates a Chunker. Invalid settings are normalized rather than rejected.
func New(cfg Config) *Chunker {
	cfg = cfg.normalize()
	return &Chunker{
		cfg:          cfg,
		maxChars:     cfg.MaxChars(),
		overlapChars: cfg.OverlapChars(),
	}
}

// Config returns the effective configuration after normalization.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text into ordered chunks tagged with the document and page
// range. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(text, pageRange, documentID string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.split(text, separators)

	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text: piece,
			Metadata: domain.ChunkMetadata{
				DocumentID: documentID,
				PageRange:  pageRange,
				ChunkIndex: len(chunks),
			},
		})
	}

	return chunks
}

// EstimateUnits approximates the token count of text.
func (c *Chunker) EstimateUnits(text string) int {
	return utf8.RuneCountInString(text) / c.cfg.CharsPerUnit
}

// split returns text as chunks no longer than maxChars, trying seps in order.
func (c *Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.maxChars {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	for i, sep := range seps {
		if sep == "" {
			return c.splitByCharacters(text)
		}
		if strings.Contains(text, sep) {
			return c.merge(strings.Split(text, sep), sep, seps[i+1:])
		}
	}

	return c.splitByCharacters(text)
}

// merge packs pieces into chunks, re-attaching sep to every piece but the
// last. Each new chunk starts with the tail of the one before it. A buffer
// that overflows on its own is split again with the finer separators.
func (c *Chunker) merge(pieces []string, sep string, finer []string) []string {
	var chunks []string
	current := ""
	currentLen := 0

	for i, piece := range pieces {
		if i < len(pieces)-1 {
			piece += sep
		}
		pieceLen := utf8.RuneCountInString(piece)

		if currentLen+pieceLen <= c.maxChars {
			current += piece
			currentLen += pieceLen
			continue
		}

		if closed := strings.TrimSpace(current); closed != "" {
			chunks = append(chunks, closed)
		}

		current = c.overlapTail(chunks) + piece
		currentLen = utf8.RuneCountInString(current)

		if currentLen > c.maxChars {
			sub := c.split(current, finer)
			if len(sub) == 0 {
				current, currentLen = "", 0
				continue
			}
			chunks = append(chunks, sub[:len(sub)-1]...)
			current = sub[len(sub)-1]
			currentLen = utf8.RuneCountInString(current)
		}
	}

	if closed := strings.TrimSpace(current); closed != "" {
		chunks = append(chunks, closed)
	}

	return chunks
}

// overlapTail returns the last overlapChars characters of the most recent
// chunk. It cuts on raw character count and may split a word.
func (c *Chunker) overlapTail(chunks []string) string {
	if c.overlapChars <= 0 || len(chunks) == 0 {
		return ""
	}
	prev := []rune(chunks[len(chunks)-1])
	if len(prev) <= c.overlapChars {
		return string(prev)
	}
	return string(prev[len(prev)-c.overlapChars:])
}

// splitByCharacters cuts fixed-width windows, stepping back by the overlap.
func (c *Chunker) splitByCharacters(text string) []string {
	runes := []rune(text)
	step := c.maxChars - c.overlapChars
	if step <= 0 {
		step = c.maxChars
	}

	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
