package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/adapters/driving/mcp"
)

var mcpHTTP string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the course library
to AI assistants.

The server provides the search_course_content and get_course_outline
tools plus course catalog resources. By default it communicates over
stdio using JSON-RPC; use --http to serve Streamable HTTP instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  lectern mcp

  # HTTP mode (for MCP Inspector, remote access)
  lectern mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "lectern": {
        "command": "/path/to/lectern",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "HTTP listen address (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{Library: libraryService})
	if err != nil {
		return err
	}

	if mcpHTTP != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on %s\n", mcpHTTP)
		return server.RunHTTP(cmd.Context(), mcpHTTP)
	}

	return server.Run(cmd.Context())
}
