// Package coursedoc parses the course transcript format into a Course
// record and its content blocks.
//
// The format carries optional header lines, then lesson sections:
//
//	Course Title: Building Toward Computer Use
//	Course Link: https://example.com/course
//	Course Instructor: Jane Doe
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson/0
//	<lesson content...>
//
//	Lesson 1: Getting Started
//	<lesson content...>
//
// Content before the first lesson marker is treated as course-level. A
// document with no markers at all is one course-level block.
package coursedoc

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// Header and section markers. Matching is line-anchored and
// case-sensitive, following the transcript format.
const (
	titleMarker      = "Course Title:"
	linkMarker       = "Course Link:"
	instructorMarker = "Course Instructor:"
	lessonLinkMarker = "Lesson Link:"
)

var lessonPattern = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parse reads one course transcript. The fallback title is used when the
// document has no Course Title header (typically the source file name).
// Returns domain.ErrEmptyDocument for blank input.
func Parse(text, fallbackTitle string) (domain.Course, []domain.ContentBlock, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return domain.Course{}, nil, domain.ErrEmptyDocument
	}

	course := domain.Course{
		Title:      strings.TrimSpace(fallbackTitle),
		IngestedAt: time.Now().UTC(),
	}

	lines := strings.Split(text, "\n")

	// Header lines may appear in any order before the first content or
	// lesson line.
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, titleMarker):
			if v := strings.TrimSpace(strings.TrimPrefix(line, titleMarker)); v != "" {
				course.Title = v
			}
			continue
		case strings.HasPrefix(line, linkMarker):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, linkMarker))
			continue
		case strings.HasPrefix(line, instructorMarker):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorMarker))
			continue
		}
		break
	}

	var blocks []domain.ContentBlock
	var current *domain.ContentBlock
	var content []string

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(content, "\n"))
		if current.Text != "" {
			blocks = append(blocks, *current)
		}
		current = nil
		content = nil
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				// Unparseable lesson numbers would need a format change;
				// the pattern only admits digits.
				continue
			}
			course.Lessons = append(course.Lessons, domain.Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			})
			n := number
			current = &domain.ContentBlock{LessonNumber: &n}
			continue
		}

		if trimmed == "" && len(content) == 0 {
			// Leading blanks inside a block keep Lesson Link adjacent
			// to its marker.
			continue
		}

		if strings.HasPrefix(trimmed, lessonLinkMarker) && current != nil && len(content) == 0 {
			link := strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkMarker))
			current.LessonLink = link
			if n := len(course.Lessons); n > 0 {
				course.Lessons[n-1].Link = link
			}
			continue
		}

		if current == nil {
			// Course-level content before the first lesson marker.
			current = &domain.ContentBlock{}
		}
		content = append(content, line)
	}
	flush()

	return course, blocks, nil
}
