package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lectern-ai/lectern/internal/adapters/driven/config/file"
)

var authCredentialsFile string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
	Long: `Store and inspect the API credentials lectern uses.

Credentials are written to the config file with restricted permissions.
Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, GITHUB_TOKEN,
GOOGLE_API_KEY) override the file at runtime without being persisted.

Examples:
  # Prompt for a key (hidden input)
  lectern auth set anthropic

  # Point Drive ingestion at a service account
  lectern auth set google --credentials-file ~/.lectern/service-account.json

  # Show what is configured
  lectern auth show`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [provider]",
	Short: "Store a credential for a provider",
	Long: `Stores a credential for one of: anthropic, openai, github, google.

The value is read from the terminal without echo. For google, pass
--credentials-file instead to configure service account access.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configured credentials (masked)",
	RunE:  runAuthShow,
}

func init() {
	authSetCmd.Flags().StringVar(&authCredentialsFile, "credentials-file", "",
		"path to a Google service account file (google provider only)")

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(args[0])
	switch provider {
	case "anthropic", "openai", "github", "google":
	default:
		return fmt.Errorf("unknown provider %q: want anthropic, openai, github or google", provider)
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	// Edit the file layer only so environment overrides are not written back.
	cfg, err := file.LoadFile(path)
	if err != nil {
		return err
	}

	if provider == "google" && authCredentialsFile != "" {
		cfg.Google.CredentialsFile = authCredentialsFile
		if err := cfg.Save(path); err != nil {
			return err
		}
		cmd.Printf("Saved google credentials file to %s\n", path)
		return nil
	}

	label := "API key"
	if provider == "github" {
		label = "token"
	}

	cmd.Printf("Enter %s %s: ", provider, label)
	secret := readSecret(cmd)
	cmd.Println()

	if secret == "" {
		return fmt.Errorf("no value entered")
	}

	switch provider {
	case "anthropic":
		cfg.Anthropic.APIKey = secret
	case "openai":
		cfg.OpenAI.APIKey = secret
	case "github":
		cfg.GitHub.Token = secret
	case "google":
		cfg.Google.APIKey = secret
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	cmd.Printf("Saved %s %s to %s\n", provider, label, path)
	return nil
}

func runAuthShow(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := file.LoadFile(path)
	if err != nil {
		return err
	}

	cmd.Printf("Config file: %s\n\n", path)
	cmd.Printf("  anthropic api key:        %s\n", maskAPIKey(cfg.Anthropic.APIKey))
	cmd.Printf("  openai api key:           %s\n", maskAPIKey(cfg.OpenAI.APIKey))
	cmd.Printf("  github token:             %s\n", maskAPIKey(cfg.GitHub.Token))
	cmd.Printf("  google api key:           %s\n", maskAPIKey(cfg.Google.APIKey))
	cmd.Printf("  google credentials file:  %s\n", orNotSet(cfg.Google.CredentialsFile))
	return nil
}

// resolveConfigPath honours --config and falls back to the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return file.DefaultPath()
}

// readSecret reads a line without echo when stdin is a terminal, falling
// back to plain buffered input otherwise.
func readSecret(cmd *cobra.Command) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orNotSet(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
