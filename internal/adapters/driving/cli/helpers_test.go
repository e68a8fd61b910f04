package cli

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
)

// mockLibraryService implements driving.LibraryService for command tests.
type mockLibraryService struct {
	IngestTextFunc func(ctx context.Context, text, fallbackTitle string) (domain.Course, []domain.CourseChunk, error)
	IngestFileFunc func(ctx context.Context, path string) (domain.Course, []domain.CourseChunk, error)
	IngestDirFunc  func(ctx context.Context, dir string, clear bool) (driving.IngestReport, error)
	CoursesFunc    func(ctx context.Context) ([]domain.CourseCount, error)
	SearchFunc     func(ctx context.Context, query, courseTitle string, lessonNumber *int) (string, []domain.Source, error)
	OutlineFunc    func(ctx context.Context, courseTitle string) (string, error)
}

var _ driving.LibraryService = (*mockLibraryService)(nil)

func (m *mockLibraryService) IngestText(
	ctx context.Context, text, fallbackTitle string,
) (domain.Course, []domain.CourseChunk, error) {
	if m.IngestTextFunc != nil {
		return m.IngestTextFunc(ctx, text, fallbackTitle)
	}
	return domain.Course{}, nil, nil
}

func (m *mockLibraryService) IngestFile(
	ctx context.Context, path string,
) (domain.Course, []domain.CourseChunk, error) {
	if m.IngestFileFunc != nil {
		return m.IngestFileFunc(ctx, path)
	}
	return domain.Course{}, nil, nil
}

func (m *mockLibraryService) IngestDir(
	ctx context.Context, dir string, clear bool,
) (driving.IngestReport, error) {
	if m.IngestDirFunc != nil {
		return m.IngestDirFunc(ctx, dir, clear)
	}
	return driving.IngestReport{}, nil
}

func (m *mockLibraryService) Courses(ctx context.Context) ([]domain.CourseCount, error) {
	if m.CoursesFunc != nil {
		return m.CoursesFunc(ctx)
	}
	return nil, nil
}

func (m *mockLibraryService) SearchContent(
	ctx context.Context, query, courseTitle string, lessonNumber *int,
) (string, []domain.Source, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, courseTitle, lessonNumber)
	}
	return "", nil, nil
}

func (m *mockLibraryService) Outline(ctx context.Context, courseTitle string) (string, error) {
	if m.OutlineFunc != nil {
		return m.OutlineFunc(ctx, courseTitle)
	}
	return "", nil
}

// mockAssistantService implements driving.AssistantService for command tests.
type mockAssistantService struct {
	QueryFunc      func(ctx context.Context, sessionID, question string) (domain.Answer, error)
	NewSessionFunc func() string
}

var _ driving.AssistantService = (*mockAssistantService)(nil)

func (m *mockAssistantService) Query(
	ctx context.Context, sessionID, question string,
) (domain.Answer, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sessionID, question)
	}
	return domain.Answer{}, nil
}

func (m *mockAssistantService) NewSession() string {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc()
	}
	return "session-test"
}

// setupTestServices swaps mock services in and returns a cleanup that
// restores the previous state.
func setupTestServices() func() {
	oldLibrary := libraryService
	oldAssistant := assistantService
	oldConfig := appConfig

	libraryService = &mockLibraryService{
		CoursesFunc: func(_ context.Context) ([]domain.CourseCount, error) {
			return []domain.CourseCount{
				{Title: "Intro to RAG", Chunks: 12},
				{Title: "MCP in Practice", Chunks: 8},
			}, nil
		},
	}
	assistantService = &mockAssistantService{
		QueryFunc: func(_ context.Context, _, _ string) (domain.Answer, error) {
			return domain.Answer{
				Text:    "Lesson 5 covers chunking strategies.",
				Sources: []domain.Source{{Text: "Intro to RAG - Lesson 5"}},
			}, nil
		},
	}

	return func() {
		libraryService = oldLibrary
		assistantService = oldAssistant
		appConfig = oldConfig
	}
}
