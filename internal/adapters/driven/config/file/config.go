package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file values.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGitHubToken     = "GITHUB_TOKEN"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
)

// Config is the full lectern configuration tree.
type Config struct {
	Assistant AssistantConfig `toml:"assistant"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Embedding EmbeddingConfig `toml:"embedding"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Library   LibraryConfig   `toml:"library"`
	GitHub    GitHubConfig    `toml:"github"`
	Google    GoogleConfig    `toml:"google"`
}

// AssistantConfig selects the chat model and session behaviour.
type AssistantConfig struct {
	// Provider is "anthropic", "openai" or "ollama".
	Provider string `toml:"provider"`

	// MaxHistory bounds remembered exchanges per session.
	MaxHistory int `toml:"max_history"`
}

// AnthropicConfig configures the Anthropic chat adapter. An empty model
// uses the adapter default.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`
}

// OpenAIConfig configures the OpenAI adapters. One key serves both the
// embedding adapter and the chat adapter when openai is the assistant
// provider.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	EmbeddingModel string `toml:"embedding_model"`
	ChatModel      string `toml:"chat_model"`
}

// OllamaConfig configures the local Ollama adapters.
type OllamaConfig struct {
	BaseURL        string `toml:"base_url"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// LibraryConfig configures ingestion and retrieval.
type LibraryConfig struct {
	// DocsDir is the course transcript folder ingested at startup and
	// watched by `lectern watch`.
	DocsDir string `toml:"docs_dir"`

	// DataDir holds the index database. Empty means ~/.lectern/data.
	DataDir string `toml:"data_dir"`

	// MaxResults bounds content search hits.
	MaxResults int `toml:"max_results"`

	// ChunkSize is the chunk budget in characters.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the chunk overlap in characters.
	ChunkOverlap int `toml:"chunk_overlap"`
}

// GitHubConfig configures repository ingestion.
type GitHubConfig struct {
	Token string `toml:"token"`
}

// GoogleConfig configures Drive folder ingestion. An API key serves public
// folders; a credentials file serves private ones.
type GoogleConfig struct {
	APIKey          string `toml:"api_key"`
	CredentialsFile string `toml:"credentials_file"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Assistant: AssistantConfig{
			Provider:   "anthropic",
			MaxHistory: 2,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
		},
		Library: LibraryConfig{
			DocsDir:      "docs",
			MaxResults:   5,
			ChunkSize:    800,
			ChunkOverlap: 100,
		},
	}
}

// DefaultPath returns ~/.lectern/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".lectern", "config.toml"), nil
}

// Load reads the configuration at path, layering the file over defaults
// and the environment over the file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the configuration at path without the environment layer.
// Commands that edit and re-save the file use it so environment values are
// never persisted.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file yet; defaults apply.
	case err != nil:
		return Config{}, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Save writes the configuration to path with restricted permissions,
// creating the directory when needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// applyEnv lets environment credentials override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(EnvGoogleAPIKey); v != "" {
		c.Google.APIKey = v
	}
}
