// Package cli implements the lectern command line interface. Commands call
// core services through the driving ports; main injects the built services
// via an initialiser so the global flags are parsed first.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/adapters/driven/config/file"
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
	"github.com/lectern-ai/lectern/internal/logger"
)

// version is stamped by main at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Course materials assistant",
	Long: `Lectern ingests course transcripts into a searchable library and
answers questions about them with a tool-calling assistant.

Run without a subcommand to start the interactive chat.`,
	Args:          cobra.NoArgs,
	RunE:          runChat,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// PersistentPreRunE is assigned in init rather than in the literal above:
// its closure mentions rootCmd, which the compiler rejects as an
// initialization cycle when written inline.
func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())

		if !commandNeedsServices(cmd) {
			return nil
		}
		if libraryService == nil && initServices != nil {
			name := cmd.Name()
			if cmd == rootCmd {
				// Bare invocation runs the chat view.
				name = "chat"
			}
			return initServices(name, configPath)
		}
		return nil
	}
}

// commandNeedsServices reports whether cmd touches the service graph.
// Version, help, completion, and the auth tree only read flags and the
// config file, so they run without credentials being configured.
func commandNeedsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", "auth":
			return false
		}
	}
	return true
}

var (
	verbose    bool
	configPath string
)

// Injected services and configuration.
var (
	libraryService   driving.LibraryService
	assistantService driving.AssistantService
	appConfig        file.Config

	// initServices builds the real service graph after flag parsing so
	// --config is honoured. It receives the invoked command's name so
	// long-running surfaces can get a connectivity pre-flight. Tests
	// inject services directly instead.
	initServices func(command, configPath string) error
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "", "config file path (default ~/.lectern/config.toml)")
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion stamps the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Services holds the core service implementations the commands call.
type Services struct {
	Library   driving.LibraryService
	Assistant driving.AssistantService
}

// SetServices injects service implementations directly.
func SetServices(s Services) {
	libraryService = s.Library
	assistantService = s.Assistant
}

// SetConfig injects the loaded configuration used by connector commands.
func SetConfig(cfg file.Config) {
	appConfig = cfg
}

// SetInitializer registers the deferred service constructor invoked once
// after flag parsing, for commands that use services.
func SetInitializer(fn func(command, configPath string) error) {
	initServices = fn
}
