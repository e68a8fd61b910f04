package domain

import "strings"

// Exchange is one completed question/answer turn in a session.
type Exchange struct {
	Question string
	Answer   string
}

// FormatHistory renders prior exchanges for inclusion in a model prompt:
//
//	User: <question>
//	Assistant: <answer>
//
// Returns "" for an empty history.
func FormatHistory(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ex := range exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(ex.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(ex.Answer)
	}
	return b.String()
}
