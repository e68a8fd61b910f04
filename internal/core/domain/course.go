package domain

import (
	"fmt"
	"strings"
	"time"
)

// Course represents an ingested course with its lesson structure.
// The title is the identity: titles are unique, matched case-sensitively,
// and re-ingesting a title replaces the prior record.
type Course struct {
	// Title is the unique, case-sensitive identity of the course.
	Title string

	// Instructor is the course instructor, when the document names one.
	Instructor string

	// Link is the course homepage, when known.
	Link string

	// Lessons is the ordered lesson structure.
	Lessons []Lesson

	// IngestedAt is when the course was (last) ingested.
	IngestedAt time.Time
}

// Lesson is one entry in a course outline.
type Lesson struct {
	// Number is the lesson number as it appears in the source document.
	Number int

	// Title is the lesson title.
	Title string

	// Link is the lesson page, when known.
	Link string
}

// CourseChunk is a contiguous slice of a course's content, stored as one
// retrievable unit. Chunks are immutable after creation.
type CourseChunk struct {
	// CourseTitle references the owning Course by title. The reference is
	// resolved at ingestion time only; at query time a dangling reference
	// degrades to an unknown-course citation rather than an error.
	CourseTitle string

	// LessonNumber is the lesson this chunk belongs to. Nil for
	// course-level content that precedes any lesson marker.
	LessonNumber *int

	// LessonLink is carried alongside the chunk so citations can link
	// back to the lesson without a catalog lookup.
	LessonLink string

	// Index is the zero-based position of the chunk within its course.
	// Indices are sequential with no gaps and identify the chunk together
	// with the course title.
	Index int

	// Content is the chunk text.
	Content string
}

// ID derives the deterministic chunk identifier from (course title, index),
// so re-ingestion overwrites rather than duplicates.
func (c CourseChunk) ID() string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(c.CourseTitle, " ", "_"), c.Index)
}

// ContentBlock is a parsed run of course text destined for chunking:
// either one lesson's content or the course-level content preceding any
// lesson marker. Blocks never merge, so lesson content cannot bleed
// across a lesson boundary.
type ContentBlock struct {
	// LessonNumber is nil for course-level content.
	LessonNumber *int

	// LessonLink is the lesson page, when the document declares one.
	LessonLink string

	// Text is the block's raw content.
	Text string
}

// CourseCount pairs a course title with its indexed chunk count.
type CourseCount struct {
	Title  string
	Chunks int
}
