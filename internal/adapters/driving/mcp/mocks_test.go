package mcp

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
)

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	counts     []domain.CourseCount
	countsErr  error
	content    string
	sources    []domain.Source
	searchErr  error
	outline    string
	outlineErr error

	lastQuery  string
	lastTitle  string
	lastLesson *int
}

var _ driving.LibraryService = (*mockLibraryService)(nil)

func (m *mockLibraryService) IngestText(_ context.Context, _, _ string) (domain.Course, []domain.CourseChunk, error) {
	return domain.Course{}, nil, nil
}

func (m *mockLibraryService) IngestFile(_ context.Context, _ string) (domain.Course, []domain.CourseChunk, error) {
	return domain.Course{}, nil, nil
}

func (m *mockLibraryService) IngestDir(_ context.Context, _ string, _ bool) (driving.IngestReport, error) {
	return driving.IngestReport{}, nil
}

func (m *mockLibraryService) Courses(_ context.Context) ([]domain.CourseCount, error) {
	return m.counts, m.countsErr
}

func (m *mockLibraryService) SearchContent(
	_ context.Context, query, courseTitle string, lessonNumber *int,
) (string, []domain.Source, error) {
	m.lastQuery = query
	m.lastTitle = courseTitle
	m.lastLesson = lessonNumber
	return m.content, m.sources, m.searchErr
}

func (m *mockLibraryService) Outline(_ context.Context, courseTitle string) (string, error) {
	m.lastTitle = courseTitle
	return m.outline, m.outlineErr
}
