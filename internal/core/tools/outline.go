package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// Outline returns a course's lesson structure from the catalog. It cites
// nothing; the outline itself names every lesson it covers.
type Outline struct {
	index driven.VectorIndex
}

var _ Tool = (*Outline)(nil)

// NewOutline builds the outline tool over the given index.
func NewOutline(index driven.VectorIndex) *Outline {
	return &Outline{index: index}
}

// Definition implements Tool.
func (t *Outline) Definition() driven.ToolDefinition {
	return driven.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get complete course outline with lesson structure for a specific course",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_title": map[string]any{
					"type":        "string",
					"description": "Course title or partial course name to get outline for",
				},
			},
			"required": []string{"course_title"},
		},
	}
}

// Execute implements Tool by decoding the model's arguments into a Run
// call.
func (t *Outline) Execute(ctx context.Context, args map[string]any) (string, []domain.Source, error) {
	courseTitle, _ := stringArg(args, "course_title")
	text, err := t.Run(ctx, courseTitle)
	return text, nil, err
}

// Run builds the outline for a (possibly partial) course title.
func (t *Outline) Run(ctx context.Context, courseTitle string) (string, error) {
	if strings.TrimSpace(courseTitle) == "" {
		return "", fmt.Errorf("%w: course_title is required", domain.ErrInvalidInput)
	}

	resolved, err := t.index.ResolveCourseTitle(ctx, courseTitle)
	if err != nil {
		if errors.Is(err, domain.ErrNoMatchingCourse) {
			return fmt.Sprintf("No course found matching '%s'", courseTitle), nil
		}
		return "", fmt.Errorf("resolve course title: %w", err)
	}

	course, err := t.index.Course(ctx, resolved)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return fmt.Sprintf("No course metadata found for '%s'", resolved), nil
		}
		return "", fmt.Errorf("load course: %w", err)
	}

	return formatOutline(course), nil
}

func formatOutline(course domain.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	fmt.Fprintf(&b, "Course Link: %s\n", course.Link)

	if len(course.Lessons) == 0 {
		b.WriteString("\nNo lessons found for this course.")
		return b.String()
	}

	lessons := make([]domain.Lesson, len(course.Lessons))
	copy(lessons, course.Lessons)
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Number < lessons[j].Number })

	fmt.Fprintf(&b, "\nLessons (%d total):\n", len(lessons))
	for _, lesson := range lessons {
		fmt.Fprintf(&b, "  Lesson %d: %s\n", lesson.Number, lesson.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}
