package github

import (
	"fmt"
	"strings"
)

// Locator identifies a directory inside a GitHub repository.
type Locator struct {
	Owner string
	Repo  string
	Path  string // directory inside the repository, "" for the root
	Ref   string // branch, tag or commit SHA, "" for the default branch
}

// ParseLocator parses a locator of the form "owner/repo[/path][@ref]".
//
//	deeplearning-ai/course-transcripts
//	deeplearning-ai/course-transcripts/docs
//	deeplearning-ai/course-transcripts/docs@main
func ParseLocator(s string) (Locator, error) {
	raw := strings.TrimSpace(s)

	var ref string
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		ref = raw[at+1:]
		raw = raw[:at]
	}

	parts := strings.SplitN(strings.Trim(raw, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Locator{}, fmt.Errorf("invalid repository locator %q: want owner/repo[/path][@ref]", s)
	}

	loc := Locator{Owner: parts[0], Repo: parts[1], Ref: ref}
	if len(parts) == 3 {
		loc.Path = strings.Trim(parts[2], "/")
	}
	return loc, nil
}

// String renders the locator in canonical owner/repo[/path][@ref] form.
func (l Locator) String() string {
	s := l.Owner + "/" + l.Repo
	if l.Path != "" {
		s += "/" + l.Path
	}
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}
