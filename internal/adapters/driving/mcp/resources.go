package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for course library resources.
const uriScheme = "lectern://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the course catalog.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "courses",
		Name:        "courses",
		Description: "Catalog of ingested courses with chunk counts",
		MIMEType:    "application/json",
	}, s.handleCoursesResource)

	// Template for per-course outlines.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "courses/{title}/outline",
		Name:        "course-outline",
		Description: "Lesson structure for one course",
		MIMEType:    "text/plain",
	}, s.handleOutlineResource)
}

// handleCoursesResource returns the course catalog.
func (s *Server) handleCoursesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	counts, err := s.ports.Library.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	// Build simplified catalog entries.
	type courseInfo struct {
		Title  string `json:"title"`
		Chunks int    `json:"chunks"`
	}

	infos := make([]courseInfo, len(counts))
	for i, c := range counts {
		infos[i] = courseInfo{Title: c.Title, Chunks: c.Chunks}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling courses: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleOutlineResource returns the outline for one course. Unknown
// titles come back as the same explanatory text the outline tool
// produces, since title matching is fuzzy by contract.
func (s *Server) handleOutlineResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	title := extractCourseTitle(req.Params.URI)
	if title == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	outline, err := s.ports.Library.Outline(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("getting outline: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     outline,
		}},
	}, nil
}

// extractCourseTitle extracts the course title from a URI like
// lectern://courses/{title}/outline.
func extractCourseTitle(uri string) string {
	const prefix = uriScheme + "courses/"
	const suffix = "/outline"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	title := strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(title, suffix) {
		return ""
	}
	title = strings.TrimSuffix(title, suffix)

	decoded, err := url.PathUnescape(title)
	if err != nil {
		return ""
	}
	return decoded
}
