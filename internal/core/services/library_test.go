package services

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// --- Mock implementations ---

// fakeIndex implements driven.VectorIndex over plain maps so ingestion
// flows can be asserted without a real store.
type fakeIndex struct {
	courses map[string]domain.Course
	chunks  map[string][]domain.CourseChunk

	deleted    []string
	clearCalls int

	resolved     string
	resolveErr   error
	searchResult domain.SearchResult
	searchErr    error
	lastQuery    string
	lastFilter   domain.SearchFilter
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		courses: make(map[string]domain.Course),
		chunks:  make(map[string][]domain.CourseChunk),
	}
}

func (f *fakeIndex) UpsertCourse(_ context.Context, course domain.Course) error {
	f.courses[course.Title] = course
	return nil
}

func (f *fakeIndex) UpsertChunks(_ context.Context, chunks []domain.CourseChunk) error {
	for _, chunk := range chunks {
		f.chunks[chunk.CourseTitle] = append(f.chunks[chunk.CourseTitle], chunk)
	}
	return nil
}

func (f *fakeIndex) Search(_ context.Context, query string, filter domain.SearchFilter, _ int) (domain.SearchResult, error) {
	f.lastQuery = query
	f.lastFilter = filter
	return f.searchResult, f.searchErr
}

func (f *fakeIndex) ResolveCourseTitle(_ context.Context, name string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if f.resolved != "" {
		return f.resolved, nil
	}
	return name, nil
}

func (f *fakeIndex) Course(_ context.Context, title string) (domain.Course, error) {
	course, ok := f.courses[title]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

func (f *fakeIndex) CourseCounts(_ context.Context) ([]domain.CourseCount, error) {
	titles := make([]string, 0, len(f.courses))
	for title := range f.courses {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	counts := make([]domain.CourseCount, 0, len(titles))
	for _, title := range titles {
		counts = append(counts, domain.CourseCount{Title: title, Chunks: len(f.chunks[title])})
	}
	return counts, nil
}

func (f *fakeIndex) DeleteCourse(_ context.Context, title string) error {
	f.deleted = append(f.deleted, title)
	delete(f.courses, title)
	delete(f.chunks, title)
	return nil
}

func (f *fakeIndex) Clear(_ context.Context) error {
	f.clearCalls++
	f.courses = make(map[string]domain.Course)
	f.chunks = make(map[string][]domain.CourseChunk)
	return nil
}

func (f *fakeIndex) Close() error { return nil }

// --- Test helpers ---

const alphaDocument = `Course Title: Alpha Retrieval
Course Link: https://example.com/alpha
Course Instructor: Ada

Lesson 0: Introduction
Lesson Link: https://example.com/alpha/0
Welcome to the course. This lesson explains what retrieval systems do.

Lesson 1: Indexing
We build the index and embed every chunk before serving queries.
`

const betaDocument = `Course Title: Beta Prompting
Course Link: https://example.com/beta

Lesson 1: Prompts
A prompt frames the task for the model.
`

func writeTestDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// --- Tests ---

func TestNewLibraryService(t *testing.T) {
	service := NewLibraryService(newFakeIndex(), nil)

	require.NotNil(t, service)
	assert.NotNil(t, service.chunker)
	assert.NotNil(t, service.search)
	assert.NotNil(t, service.outline)
}

func TestLibraryService_IngestText(t *testing.T) {
	index := newFakeIndex()
	service := NewLibraryService(index, nil)

	course, chunks, err := service.IngestText(context.Background(), alphaDocument, "fallback")

	require.NoError(t, err)
	assert.Equal(t, "Alpha Retrieval", course.Title)
	assert.Equal(t, "https://example.com/alpha", course.Link)
	assert.Equal(t, "Ada", course.Instructor)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, "Introduction", course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/alpha/0", course.Lessons[0].Link)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.Equal(t, "Alpha Retrieval", chunk.CourseTitle)
	}

	// Both collections were written.
	_, ok := index.courses["Alpha Retrieval"]
	assert.True(t, ok)
	assert.Len(t, index.chunks["Alpha Retrieval"], len(chunks))
}

func TestLibraryService_IngestText_FallbackTitle(t *testing.T) {
	index := newFakeIndex()
	service := NewLibraryService(index, nil)

	course, _, err := service.IngestText(context.Background(), "Just some untitled notes about search.", "My Notes")

	require.NoError(t, err)
	assert.Equal(t, "My Notes", course.Title)
}

func TestLibraryService_IngestText_EmptyDocument(t *testing.T) {
	service := NewLibraryService(newFakeIndex(), nil)

	_, _, err := service.IngestText(context.Background(), "   \n\t  ", "empty")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestLibraryService_IngestText_ReplacesExisting(t *testing.T) {
	index := newFakeIndex()
	service := NewLibraryService(index, nil)
	ctx := context.Background()

	_, first, err := service.IngestText(ctx, alphaDocument, "")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	rewrite := "Course Title: Alpha Retrieval\n\nLesson 0: Rewritten\nA much shorter course now.\n"
	_, second, err := service.IngestText(ctx, rewrite, "")
	require.NoError(t, err)

	assert.Contains(t, index.deleted, "Alpha Retrieval")
	assert.Len(t, index.chunks["Alpha Retrieval"], len(second), "stale chunks must not survive a re-ingest")
}

func TestLibraryService_IngestFile(t *testing.T) {
	dir := t.TempDir()
	writeTestDoc(t, dir, "Intro to RAG.txt", "Untitled content about retrieval.")
	service := NewLibraryService(newFakeIndex(), nil)

	course, chunks, err := service.IngestFile(context.Background(), filepath.Join(dir, "Intro to RAG.txt"))

	require.NoError(t, err)
	assert.Equal(t, "Intro to RAG", course.Title, "file name without extension is the fallback title")
	assert.NotEmpty(t, chunks)
}

func TestLibraryService_IngestFile_Missing(t *testing.T) {
	service := NewLibraryService(newFakeIndex(), nil)

	_, _, err := service.IngestFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))

	require.Error(t, err)
}

func TestLibraryService_IngestDir(t *testing.T) {
	dir := t.TempDir()
	writeTestDoc(t, dir, "a_course.txt", alphaDocument)
	writeTestDoc(t, dir, "b_course.md", betaDocument)
	writeTestDoc(t, dir, "broken.txt", "")
	writeTestDoc(t, dir, "notes.pdf", "not a transcript")
	writeTestDoc(t, dir, ".hidden.txt", alphaDocument)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	index := newFakeIndex()
	service := NewLibraryService(index, nil)

	report, err := service.IngestDir(context.Background(), dir, false)

	require.NoError(t, err)
	assert.Equal(t, 3, report.FilesSeen, "only .txt and .md files without a leading dot are candidates")
	assert.Equal(t, 2, report.CoursesAdded)
	assert.Equal(t, 0, report.CoursesSkipped)
	assert.Equal(t, len(index.chunks["Alpha Retrieval"])+len(index.chunks["Beta Prompting"]), report.ChunksAdded)

	counts, err := service.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "Alpha Retrieval", counts[0].Title)
	assert.Equal(t, "Beta Prompting", counts[1].Title)
}

func TestLibraryService_IngestDir_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	writeTestDoc(t, dir, "a_course.txt", alphaDocument)
	writeTestDoc(t, dir, "b_course.md", betaDocument)

	index := newFakeIndex()
	service := NewLibraryService(index, nil)
	ctx := context.Background()

	_, _, err := service.IngestText(ctx, alphaDocument, "")
	require.NoError(t, err)
	alphaChunks := len(index.chunks["Alpha Retrieval"])
	deletes := len(index.deleted)

	report, err := service.IngestDir(ctx, dir, false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.CoursesSkipped)
	assert.Equal(t, 1, report.CoursesAdded)
	assert.Len(t, index.chunks["Alpha Retrieval"], alphaChunks, "existing course must stay untouched")
	assert.Len(t, index.deleted, deletes+1, "only the new course goes through the replace cycle")
}

func TestLibraryService_IngestDir_Clear(t *testing.T) {
	dir := t.TempDir()
	writeTestDoc(t, dir, "a_course.txt", alphaDocument)
	writeTestDoc(t, dir, "b_course.md", betaDocument)

	index := newFakeIndex()
	service := NewLibraryService(index, nil)
	ctx := context.Background()

	_, _, err := service.IngestText(ctx, alphaDocument, "")
	require.NoError(t, err)

	report, err := service.IngestDir(ctx, dir, true)

	require.NoError(t, err)
	assert.Equal(t, 1, index.clearCalls)
	assert.Equal(t, 2, report.CoursesAdded)
	assert.Equal(t, 0, report.CoursesSkipped)
}

func TestLibraryService_IngestDir_MissingDir(t *testing.T) {
	service := NewLibraryService(newFakeIndex(), nil)

	_, err := service.IngestDir(context.Background(), filepath.Join(t.TempDir(), "absent"), false)

	require.Error(t, err)
}

func TestLibraryService_SearchContent(t *testing.T) {
	lesson := 1
	index := newFakeIndex()
	index.resolved = "Alpha Retrieval"
	index.searchResult = domain.SearchResult{Hits: []domain.ScoredChunk{{
		Chunk: domain.CourseChunk{
			CourseTitle:  "Alpha Retrieval",
			LessonNumber: &lesson,
			LessonLink:   "https://example.com/alpha/1",
			Index:        0,
			Content:      "We build the index and embed every chunk.",
		},
		Distance: 0.1,
	}}}
	service := NewLibraryService(index, nil)

	text, sources, err := service.SearchContent(context.Background(), "indexing", "alpha", nil)

	require.NoError(t, err)
	assert.Equal(t, "[Alpha Retrieval - Lesson 1]\nWe build the index and embed every chunk.", text)
	require.Len(t, sources, 1)
	assert.Equal(t, "Alpha Retrieval - Lesson 1", sources[0].Text)
	assert.Equal(t, "Alpha Retrieval", index.lastFilter.CourseTitle, "fuzzy input resolves before filtering")
	assert.Equal(t, "indexing", index.lastQuery)
}

func TestLibraryService_Outline(t *testing.T) {
	index := newFakeIndex()
	service := NewLibraryService(index, nil)
	ctx := context.Background()

	_, _, err := service.IngestText(ctx, alphaDocument, "")
	require.NoError(t, err)

	outline, err := service.Outline(ctx, "Alpha Retrieval")

	require.NoError(t, err)
	want := "Course: Alpha Retrieval\n" +
		"Course Link: https://example.com/alpha\n\n" +
		"Lessons (2 total):\n" +
		"  Lesson 0: Introduction\n" +
		"  Lesson 1: Indexing"
	assert.Equal(t, want, outline)
}
