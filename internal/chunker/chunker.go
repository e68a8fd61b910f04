// Package chunker splits course text into overlapping, sentence-aware
// windows sized for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// Default configuration values.
const (
	// DefaultBudget is the character budget per chunk.
	DefaultBudget = 800

	// DefaultOverlap is the character overlap carried between
	// consecutive chunks.
	DefaultOverlap = 100
)

// Option configures a Chunker.
type Option func(*Chunker)

// WithBudget sets the character budget per chunk.
func WithBudget(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.budget = n
		}
	}
}

// WithOverlap sets the character overlap between consecutive chunks.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// Chunker accumulates whole sentences into windows up to a character
// budget, then restarts each window a configured overlap back into the
// previous one. Sentences are never split: a single sentence longer than
// the budget is emitted whole rather than truncated.
type Chunker struct {
	budget  int
	overlap int
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		budget:  DefaultBudget,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// An overlap at or beyond the budget would stall the window.
	if c.overlap >= c.budget {
		c.overlap = c.budget / 4
	}

	return c
}

// Split breaks text into overlapping windows of whole sentences.
// Deterministic: the same text always yields the same windows.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		// Accumulate sentences until the budget would be exceeded.
		// The first sentence is always taken, oversized or not.
		length := 0
		j := i
		for j < len(sentences) {
			cost := utf8.RuneCountInString(sentences[j])
			if j > i {
				cost++ // joining space
			}
			if length+cost > c.budget && j > i {
				break
			}
			length += cost
			j++
		}

		chunks = append(chunks, strings.Join(sentences[i:j], " "))

		if j >= len(sentences) {
			break
		}

		// Walk back whole sentences worth up to the overlap budget so
		// the next window preserves cross-boundary context.
		k := j
		carried := 0
		for k > i {
			cost := utf8.RuneCountInString(sentences[k-1])
			if carried > 0 {
				cost++
			}
			if carried+cost > c.overlap {
				break
			}
			carried += cost
			k--
		}
		if k <= i {
			k = i + 1 // always make progress
		}
		i = k
	}

	return chunks
}

// ChunkCourse windows each content block and assigns sequential indices
// across the whole course, starting at zero with no gaps. Blocks are
// windowed independently, so overlap never carries across a lesson
// boundary.
func (c *Chunker) ChunkCourse(title string, blocks []domain.ContentBlock) []domain.CourseChunk {
	var chunks []domain.CourseChunk
	index := 0

	for _, block := range blocks {
		for _, window := range c.Split(block.Text) {
			chunks = append(chunks, domain.CourseChunk{
				CourseTitle:  title,
				LessonNumber: block.LessonNumber,
				LessonLink:   block.LessonLink,
				Index:        index,
				Content:      window,
			})
			index++
		}
	}

	return chunks
}

// splitSentences breaks text into sentence-like units: runs ending in
// '.', '!' or '?' followed by whitespace. Whitespace (including newlines)
// is collapsed to single spaces first, so windowing is insensitive to the
// source line layout.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		// Consume a run of terminators ("?!", "...").
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && runes[j+1] == ' ' {
			sentences = append(sentences, string(runes[start:j+1]))
			start = j + 2
		}
		i = j
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
