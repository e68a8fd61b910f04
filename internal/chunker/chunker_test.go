package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// sentence builds a sentence of exactly n runes including the final period.
func sentence(n int) string {
	return strings.Repeat("a", n-1) + "."
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.budget != DefaultBudget {
			t.Errorf("expected budget %d, got %d", DefaultBudget, c.budget)
		}
		if c.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, c.overlap)
		}
	})

	t.Run("custom budget", func(t *testing.T) {
		c := New(WithBudget(500))
		if c.budget != 500 {
			t.Errorf("expected budget 500, got %d", c.budget)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		c := New(WithOverlap(50))
		if c.overlap != 50 {
			t.Errorf("expected overlap 50, got %d", c.overlap)
		}
	})

	t.Run("overlap at or beyond budget reduced", func(t *testing.T) {
		c := New(WithBudget(100), WithOverlap(150))
		if c.overlap >= c.budget {
			t.Error("overlap should be reduced when it reaches the budget")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		c := New(WithBudget(0), WithOverlap(-1))
		if c.budget != DefaultBudget {
			t.Errorf("expected default budget, got %d", c.budget)
		}
		if c.overlap != DefaultOverlap {
			t.Errorf("expected default overlap, got %d", c.overlap)
		}
	})
}

func TestSplit_Empty(t *testing.T) {
	c := New()
	if got := c.Split(""); len(got) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(got))
	}
	if got := c.Split("   \n\t  "); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace text, got %d", len(got))
	}
}

func TestSplit_ShortDocument(t *testing.T) {
	c := New()
	text := "This course covers retrieval. It has two ideas. Both are simple."

	chunks := c.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a document under budget, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("expected chunk to equal the whole document, got %q", chunks[0])
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(WithBudget(120), WithOverlap(30))
	text := strings.Repeat("Sentences repeat here with modest length. ", 40)

	first := c.Split(text)
	second := c.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_NeverSplitsSentences(t *testing.T) {
	c := New(WithBudget(100), WithOverlap(20))
	oversized := sentence(250)
	text := "Short leading sentence. " + oversized + " Short trailing sentence."

	chunks := c.Split(text)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, oversized) {
			found = true
		}
	}
	if !found {
		t.Error("oversized sentence should be emitted whole in some chunk")
	}
}

func TestSplit_BudgetRespected(t *testing.T) {
	c := New(WithBudget(200), WithOverlap(40))
	var parts []string
	for i := 0; i < 30; i++ {
		parts = append(parts, sentence(60))
	}
	text := strings.Join(parts, " ")

	for i, chunk := range c.Split(text) {
		if n := utf8.RuneCountInString(chunk); n > 200 {
			t.Errorf("chunk %d exceeds budget: %d runes", i, n)
		}
	}
}

func TestSplit_CollapsesWhitespace(t *testing.T) {
	c := New()
	chunks := c.Split("First line ends here.\nSecond   line\tfollows.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "First line ends here. Second line follows." {
		t.Errorf("unexpected normalised text: %q", chunks[0])
	}
}

func TestSplit_DecimalNumbersNotSplit(t *testing.T) {
	c := New()
	chunks := c.Split("The value of pi is 3.14 in this lesson. Next sentence.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "3.14 in this lesson.") {
		t.Errorf("decimal point treated as sentence boundary: %q", chunks[0])
	}
}

// TestSplit_TwoThousandCharLesson walks a 2000-rune lesson through the
// default 800/100 configuration: three chunks, with the trailing 100 runes
// of each chunk repeated at the start of the next.
func TestSplit_TwoThousandCharLesson(t *testing.T) {
	parts := []string{
		sentence(699),
		sentence(100),
		sentence(598),
		sentence(100),
		sentence(503),
	}
	total := 0
	for _, p := range parts {
		total += utf8.RuneCountInString(p)
	}
	if total != 2000 {
		t.Fatalf("test document should total 2000 runes, got %d", total)
	}

	c := New() // 800/100 defaults
	chunks := c.Split(strings.Join(parts, " "))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > DefaultBudget {
			t.Errorf("chunk %d exceeds budget: %d runes", i, n)
		}
	}
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-DefaultOverlap:]
		if !strings.HasPrefix(chunks[i+1], tail) {
			t.Errorf("chunk %d should start with the last %d runes of chunk %d", i+1, DefaultOverlap, i)
		}
	}
}

func TestChunkCourse_IndicesContiguous(t *testing.T) {
	c := New(WithBudget(120), WithOverlap(20))
	one, two := 1, 2
	blocks := []domain.ContentBlock{
		{LessonNumber: nil, Text: strings.Repeat(sentence(50)+" ", 6)},
		{LessonNumber: &one, LessonLink: "https://example.com/l1", Text: strings.Repeat(sentence(50)+" ", 8)},
		{LessonNumber: &two, Text: strings.Repeat(sentence(50)+" ", 4)},
	}

	chunks := c.ChunkCourse("Intro to X", blocks)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("expected index %d, got %d", i, chunk.Index)
		}
		if chunk.CourseTitle != "Intro to X" {
			t.Errorf("chunk %d has wrong course title %q", i, chunk.CourseTitle)
		}
	}
}

func TestChunkCourse_LessonBoundaryBreaksWindow(t *testing.T) {
	c := New(WithBudget(500), WithOverlap(100))
	one, two := 1, 2
	lessonOne := "Lesson one content stays small."
	lessonTwo := "Lesson two content also stays small."
	blocks := []domain.ContentBlock{
		{LessonNumber: &one, Text: lessonOne},
		{LessonNumber: &two, Text: lessonTwo},
	}

	chunks := c.ChunkCourse("Course", blocks)
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per lesson, got %d", len(chunks))
	}

	// Both lessons fit one window each; a boundary-less chunker would
	// have merged them.
	if chunks[0].Content != lessonOne || chunks[1].Content != lessonTwo {
		t.Error("lesson content leaked across the boundary")
	}
	if chunks[0].LessonNumber == nil || *chunks[0].LessonNumber != 1 {
		t.Error("first chunk should belong to lesson 1")
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 2 {
		t.Error("second chunk should belong to lesson 2")
	}
}

func TestChunkCourse_CourseLevelBlock(t *testing.T) {
	c := New()
	blocks := []domain.ContentBlock{
		{Text: "Overview text before any lesson marker."},
	}

	chunks := c.ChunkCourse("Course", blocks)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Error("course-level chunk should have no lesson number")
	}
}
