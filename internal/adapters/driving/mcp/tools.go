package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// SearchInput is the input schema for the content search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"what to search for in the course content"`
	CourseTitle  string `json:"course_title,omitempty" jsonschema:"course title to filter by (partial matches work)"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"specific lesson number to search within"`
}

// SearchOutput is the output schema for the content search tool.
type SearchOutput struct {
	Content string          `json:"content"`
	Sources []domain.Source `json:"sources,omitempty"`
}

// OutlineInput is the input schema for the course outline tool.
type OutlineInput struct {
	CourseTitle string `json:"course_title" jsonschema:"course title or partial course name to get outline for"`
}

// OutlineOutput is the output schema for the course outline tool.
type OutlineOutput struct {
	Outline string `json:"outline"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_course_outline",
		Description: "Get complete course outline with lesson structure for a specific course",
	}, s.handleOutline)
}

// handleSearch handles the search tool invocation. Empty result sets
// come back as explanatory text rather than errors, matching the tool
// contract the assistant loop uses.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	content, sources, err := s.ports.Library.SearchContent(ctx, input.Query, input.CourseTitle, input.LessonNumber)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{Content: content, Sources: sources}, nil
}

// handleOutline handles the outline tool invocation.
func (s *Server) handleOutline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OutlineInput,
) (*mcp.CallToolResult, OutlineOutput, error) {
	outline, err := s.ports.Library.Outline(ctx, input.CourseTitle)
	if err != nil {
		return nil, OutlineOutput{}, err
	}

	return nil, OutlineOutput{Outline: outline}, nil
}
