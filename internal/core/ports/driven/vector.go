package driven

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// VectorIndex is the dual-collection semantic index: a course catalog
// (one embedded record per course, used for title resolution and outline
// retrieval) and a content collection (one embedded record per chunk, with
// course title and lesson number as filterable attributes). Both collections
// share one embedding function and survive process restarts.
//
// Reads are safe to run concurrently. Writes for one course must complete
// before queries can observe any of it; callers serialize ingestion against
// queries (ingest-before-serve at startup, a write lock afterwards).
type VectorIndex interface {
	// UpsertCourse adds or replaces a catalog record, keyed by title.
	UpsertCourse(ctx context.Context, course domain.Course) error

	// UpsertChunks adds or replaces content records, keyed by their
	// deterministic chunk ids.
	UpsertChunks(ctx context.Context, chunks []domain.CourseChunk) error

	// Search embeds the query and runs nearest-neighbour retrieval over
	// the content collection, restricted by the filter. Results are
	// ordered by ascending distance, ties broken by chunk index, at most
	// limit entries. An empty result is valid, not an error.
	Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) (domain.SearchResult, error)

	// ResolveCourseTitle resolves fuzzy input to the best-matching known
	// title via a single nearest-neighbour lookup against the catalog.
	// The top match is accepted unconditionally; callers treat it as
	// best-effort, not validated identity. Returns
	// domain.ErrNoMatchingCourse when the catalog is empty or the input
	// is blank.
	ResolveCourseTitle(ctx context.Context, name string) (string, error)

	// Course returns the catalog record for an exact title,
	// domain.ErrCourseNotFound otherwise.
	Course(ctx context.Context, title string) (domain.Course, error)

	// CourseCounts lists ingested courses in title order with their
	// chunk counts.
	CourseCounts(ctx context.Context) ([]domain.CourseCount, error)

	// DeleteCourse removes a course and all its chunks. Removing an
	// unknown title is a no-op.
	DeleteCourse(ctx context.Context, title string) error

	// Clear drops both collections.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
