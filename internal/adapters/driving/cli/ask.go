package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a question",
	Long: `Asks the course assistant a single question and prints the answer
with its sources.

Each invocation starts a fresh session unless --session is given, which
lets consecutive invocations share conversation history.

Examples:
  lectern ask "What does lesson 5 of the MCP course cover?"
  lectern ask --json "Which courses mention embeddings?"
  lectern ask --session review "And what about lesson 6?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to continue a conversation")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	session := askSession
	if session == "" {
		session = assistantService.NewSession()
	}

	answer, err := assistantService.Query(cmd.Context(), session, args[0])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

func outputAnswerJSON(cmd *cobra.Command, answer domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer domain.Answer) error {
	cmd.Println(answer.Text)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, s := range answer.Sources {
			if s.Link != "" {
				cmd.Printf("  - %s (%s)\n", s.Text, s.Link)
				continue
			}
			cmd.Printf("  - %s\n", s.Text)
		}
	}
	return nil
}
