package domain

// SearchFilter constrains a content search with optional equality filters.
// The zero value matches everything.
type SearchFilter struct {
	// CourseTitle restricts results to one course. The value must be an
	// exact known title; fuzzy input is resolved before the filter is built.
	CourseTitle string

	// LessonNumber restricts results to one lesson. Nil means no
	// lesson restriction.
	LessonNumber *int
}

// IsZero reports whether the filter carries no constraints.
func (f SearchFilter) IsZero() bool {
	return f.CourseTitle == "" && f.LessonNumber == nil
}

// ScoredChunk is one content search hit: a chunk and its similarity
// distance to the query (smaller is closer).
type ScoredChunk struct {
	Chunk    CourseChunk
	Distance float64
}

// SearchResult is an ordered sequence of hits, closest first, bounded by
// the caller's limit. An empty result is a valid outcome, not an error.
type SearchResult struct {
	Hits []ScoredChunk
}

// IsEmpty reports whether the search matched nothing.
func (r SearchResult) IsEmpty() bool {
	return len(r.Hits) == 0
}

// Source is a citation unit produced alongside retrieved content.
type Source struct {
	// Text is the display label: course title plus lesson, when known.
	Text string `json:"text"`

	// Link resolves to the lesson page, when known.
	Link string `json:"link,omitempty"`
}

// Answer is the terminal product of one query: the model's answer text and
// the citations staged by any tool executions that informed it.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}
