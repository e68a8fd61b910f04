package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

const defaultSearchLimit = 5

// ContentSearch answers content questions from the chunk collection.
// A partial or misspelled course title is resolved against the catalog
// before filtering, so the model can pass whatever the user typed.
type ContentSearch struct {
	index driven.VectorIndex
	limit int
}

var _ Tool = (*ContentSearch)(nil)

// NewContentSearch builds the search tool over the given index. A
// non-positive limit falls back to the default result count.
func NewContentSearch(index driven.VectorIndex, limit int) *ContentSearch {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return &ContentSearch{index: index, limit: limit}
}

// Definition implements Tool.
func (t *ContentSearch) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_title": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute implements Tool by decoding the model's arguments into a Run
// call.
func (t *ContentSearch) Execute(ctx context.Context, args map[string]any) (string, []domain.Source, error) {
	query, _ := stringArg(args, "query")
	courseTitle, _ := stringArg(args, "course_title")
	lessonNumber, err := intArg(args, "lesson_number")
	if err != nil {
		return "", nil, err
	}
	return t.Run(ctx, query, courseTitle, lessonNumber)
}

// Run performs the search with typed parameters. Failures the model can
// act on (no matching course, nothing relevant) come back as result text;
// only backend failures surface as errors.
func (t *ContentSearch) Run(ctx context.Context, query, courseTitle string, lessonNumber *int) (string, []domain.Source, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	var filter domain.SearchFilter
	if courseTitle != "" {
		resolved, err := t.index.ResolveCourseTitle(ctx, courseTitle)
		if err != nil {
			if errors.Is(err, domain.ErrNoMatchingCourse) {
				return fmt.Sprintf("No course found matching '%s'", courseTitle), nil, nil
			}
			return "", nil, fmt.Errorf("resolve course title: %w", err)
		}
		filter.CourseTitle = resolved
	}
	filter.LessonNumber = lessonNumber

	result, err := t.index.Search(ctx, query, filter, t.limit)
	if err != nil {
		return "", nil, fmt.Errorf("search content: %w", err)
	}
	if result.IsEmpty() {
		return emptyResultMessage(courseTitle, lessonNumber), nil, nil
	}

	return formatHits(result.Hits), collectSources(result.Hits), nil
}

// emptyResultMessage echoes the caller's own filter terms, not the
// resolved ones, so the model can relay them back verbatim.
func emptyResultMessage(courseTitle string, lessonNumber *int) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if courseTitle != "" {
		fmt.Fprintf(&b, " in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *lessonNumber)
	}
	b.WriteString(".")
	return b.String()
}

func formatHits(hits []domain.ScoredChunk) string {
	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		header := hit.Chunk.CourseTitle
		if hit.Chunk.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", header, *hit.Chunk.LessonNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, hit.Chunk.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// collectSources builds one citation per distinct course and lesson,
// keeping first-hit order.
func collectSources(hits []domain.ScoredChunk) []domain.Source {
	seen := make(map[string]bool, len(hits))
	sources := make([]domain.Source, 0, len(hits))
	for _, hit := range hits {
		text := hit.Chunk.CourseTitle
		if hit.Chunk.LessonNumber != nil {
			text = fmt.Sprintf("%s - Lesson %d", text, *hit.Chunk.LessonNumber)
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		sources = append(sources, domain.Source{Text: text, Link: hit.Chunk.LessonLink})
	}
	return sources
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// intArg reads an optional integer argument. JSON decoding hands numbers
// over as float64, so both forms are accepted.
func intArg(args map[string]any, key string) (*int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		n := int(v)
		return &n, nil
	case int:
		n := v
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a number, got %T", domain.ErrInvalidInput, key, raw)
	}
}
