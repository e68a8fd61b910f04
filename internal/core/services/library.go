package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
	"github.com/lectern-ai/lectern/internal/core/tools"
	"github.com/lectern-ai/lectern/internal/coursedoc"
	"github.com/lectern-ai/lectern/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService manages the course corpus: parsing, chunking, and
// indexing documents, plus the direct retrieval operations shared by the
// model tools, the MCP surface, and the CLI.
type LibraryService struct {
	index   driven.VectorIndex
	chunker *chunker.Chunker
	search  *tools.ContentSearch
	outline *tools.Outline
}

// NewLibraryService creates the library over a vector index. A nil
// chunker gets the default window configuration.
func NewLibraryService(index driven.VectorIndex, ck *chunker.Chunker) *LibraryService {
	if ck == nil {
		ck = chunker.New()
	}
	return &LibraryService{
		index:   index,
		chunker: ck,
		search:  tools.NewContentSearch(index, 0),
		outline: tools.NewOutline(index),
	}
}

// IngestText parses, chunks, and indexes one course document.
// Re-ingesting an existing title replaces the prior course entirely.
func (s *LibraryService) IngestText(ctx context.Context, text, fallbackTitle string) (domain.Course, []domain.CourseChunk, error) {
	course, blocks, err := coursedoc.Parse(text, fallbackTitle)
	if err != nil {
		return domain.Course{}, nil, fmt.Errorf("parsing document: %w", err)
	}

	chunks, err := s.ingestParsed(ctx, course, blocks)
	if err != nil {
		return domain.Course{}, nil, err
	}
	return course, chunks, nil
}

// IngestFile ingests one document from disk, using the file name (without
// extension) as the fallback course title.
func (s *LibraryService) IngestFile(ctx context.Context, path string) (domain.Course, []domain.CourseChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Course{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	base := filepath.Base(path)
	fallback := strings.TrimSuffix(base, filepath.Ext(base))
	return s.IngestText(ctx, string(data), fallback)
}

// IngestDir ingests every candidate document in dir in lexical order,
// skipping documents whose course title is already indexed so repeated
// startup runs stay cheap. With clear set, both collections are dropped
// first and everything re-indexes.
func (s *LibraryService) IngestDir(ctx context.Context, dir string, clear bool) (driving.IngestReport, error) {
	var report driving.IngestReport

	if clear {
		logger.Info("Clearing existing course index")
		if err := s.index.Clear(ctx); err != nil {
			return report, fmt.Errorf("clearing index: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", dir, err)
	}

	existing, err := s.existingTitles(ctx)
	if err != nil {
		return report, err
	}

	logger.Section("Folder Ingestion")
	logger.Debug("Directory: %s (%d entries, clear=%t)", dir, len(entries), clear)

	for _, entry := range entries {
		if entry.IsDir() || !candidateDocument(entry.Name()) {
			continue
		}
		report.FilesSeen++

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}

		fallback := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		course, blocks, err := coursedoc.Parse(string(data), fallback)
		if err != nil {
			logger.Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}

		if existing[course.Title] {
			logger.Debug("Course %q already indexed, skipping %s", course.Title, entry.Name())
			report.CoursesSkipped++
			continue
		}

		chunks, err := s.ingestParsed(ctx, course, blocks)
		if err != nil {
			return report, fmt.Errorf("ingesting %s: %w", entry.Name(), err)
		}

		existing[course.Title] = true
		report.CoursesAdded++
		report.ChunksAdded += len(chunks)
		logger.Info("Indexed %q: %d chunks from %s", course.Title, len(chunks), entry.Name())
	}

	return report, nil
}

// Courses lists ingested courses in title order with chunk counts.
func (s *LibraryService) Courses(ctx context.Context) ([]domain.CourseCount, error) {
	return s.index.CourseCounts(ctx)
}

// SearchContent runs the content search directly, without the model loop.
func (s *LibraryService) SearchContent(ctx context.Context, query, courseTitle string, lessonNumber *int) (string, []domain.Source, error) {
	return s.search.Run(ctx, query, courseTitle, lessonNumber)
}

// Outline returns the formatted course outline for a (fuzzy) title.
func (s *LibraryService) Outline(ctx context.Context, courseTitle string) (string, error) {
	return s.outline.Run(ctx, courseTitle)
}

// ingestParsed chunks and indexes one parsed course. The delete ensures a
// re-ingested course keeps none of its stale chunk ids: a shorter rewrite
// must not leave orphaned high-index chunks behind.
func (s *LibraryService) ingestParsed(ctx context.Context, course domain.Course, blocks []domain.ContentBlock) ([]domain.CourseChunk, error) {
	chunks := s.chunker.ChunkCourse(course.Title, blocks)

	if err := s.index.DeleteCourse(ctx, course.Title); err != nil {
		return nil, fmt.Errorf("replacing course %q: %w", course.Title, err)
	}
	if err := s.index.UpsertCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("indexing course %q: %w", course.Title, err)
	}
	if err := s.index.UpsertChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("indexing chunks for %q: %w", course.Title, err)
	}

	return chunks, nil
}

// existingTitles returns the set of already-indexed course titles.
func (s *LibraryService) existingTitles(ctx context.Context) (map[string]bool, error) {
	counts, err := s.index.CourseCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	titles := make(map[string]bool, len(counts))
	for _, count := range counts {
		titles[count.Title] = true
	}
	return titles, nil
}

// candidateDocument reports whether a file name looks like a course
// transcript.
func candidateDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}
