package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Starts an interactive chat session with the course assistant.

One session is kept for the whole run, so follow-up questions can refer
back to earlier answers.

Controls:
  Enter      - Send question
  ↑/↓, PgUp  - Scroll the transcript
  Ctrl+C/Esc - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Recover with a stack trace so a rendering panic does not leave the
	// terminal in the alternate screen with no explanation.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic in chat TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "stack trace:\n%s\n", debug.Stack())
		}
	}()

	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	app, err := tui.NewApp(tui.NewPorts(assistantService))
	if err != nil {
		return fmt.Errorf("creating chat TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	return app.Run()
}
