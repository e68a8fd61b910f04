package driving

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// IngestReport summarises one folder ingestion run.
type IngestReport struct {
	// FilesSeen counts candidate documents considered.
	FilesSeen int

	// CoursesAdded counts courses (re)indexed during the run.
	CoursesAdded int

	// CoursesSkipped counts documents skipped because their course title
	// was already indexed.
	CoursesSkipped int

	// ChunksAdded counts content chunks written.
	ChunksAdded int
}

// LibraryService manages the course corpus: ingestion into the dual
// collections, catalog listings, and the direct (model-free) retrieval
// operations the tools and the MCP surface share.
type LibraryService interface {
	// IngestText parses, chunks, and indexes one course document. The
	// fallback title is used when the document carries no title marker.
	// Re-ingesting an existing title replaces the prior course.
	IngestText(ctx context.Context, text, fallbackTitle string) (domain.Course, []domain.CourseChunk, error)

	// IngestFile ingests one document from disk.
	IngestFile(ctx context.Context, path string) (domain.Course, []domain.CourseChunk, error)

	// IngestDir ingests every candidate document in dir in lexical
	// order, skipping titles that are already indexed. With clear set,
	// both collections are dropped first.
	IngestDir(ctx context.Context, dir string, clear bool) (IngestReport, error)

	// Courses lists ingested courses in title order with chunk counts.
	Courses(ctx context.Context) ([]domain.CourseCount, error)

	// SearchContent runs the content search tool directly: fuzzy filter
	// resolution, retrieval, and result formatting, returning the
	// formatted text plus citation sources.
	SearchContent(ctx context.Context, query, courseTitle string, lessonNumber *int) (string, []domain.Source, error)

	// Outline returns the formatted course outline for a (fuzzy) title.
	Outline(ctx context.Context, courseTitle string) (string, error)
}
