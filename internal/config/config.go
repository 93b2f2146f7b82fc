package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName              = "chatly"
	defaultDataDirectory = ".chatly"
)

// DefaultSystemPrompt is the assistant persona sent with every live
// request unless a conversation overrides it.
const DefaultSystemPrompt = "You are Chatly, a helpful AI assistant. You are friendly, " +
	"knowledgeable, and always ready to help users with their questions, problems, or " +
	"creative tasks. Keep your responses concise but comprehensive."

// OpenAIConfig configures the OpenAI-compatible chat provider.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseURL"`
	Model   string `json:"model"`
}

// GeminiConfig configures the Gemini SDK provider.
type GeminiConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// AIConfig groups provider selection and generation parameters.
type AIConfig struct {
	// Provider picks the collaborator: "openai", "gemini" or "auto".
	// Auto prefers whichever provider has a key configured and falls
	// back to the deterministic mock when none does.
	Provider    string       `json:"provider"`
	OpenAI      OpenAIConfig `json:"openai"`
	Gemini      GeminiConfig `json:"gemini"`
	MaxTokens   int          `json:"maxTokens"`
	Temperature float64      `json:"temperature"`
	TopK        int          `json:"topK"`
	TopP        float64      `json:"topP"`
	Streaming   bool         `json:"streaming"`
}

// ChatConfig groups conversation store and window settings. The
// retention limit and the per-request window are independent knobs.
type ChatConfig struct {
	MessageLimit int    `json:"messageLimit"` // storage retention per conversation
	ContextLimit int    `json:"contextLimit"` // messages sent per live request
	SystemPrompt string `json:"systemPrompt"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `json:"port"`
}

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data   Data         `json:"data"`
	AI     AIConfig     `json:"ai"`
	Chat   ChatConfig   `json:"chat"`
	Server ServerConfig `json:"server"`
	Debug  bool         `json:"debug,omitempty"`
}

// Load initializes configuration from the config file and environment
// variables.
func Load(debug bool) (*Config, error) {
	cfg := &Config{}

	configureViper()
	setDefaults(debug)

	if err := readConfig(viper.ReadInConfig()); err != nil {
		return nil, err
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	loadProvidersFromEnv(cfg)

	if cfg.Data.Directory == "" {
		cfg.Data.Directory = defaultDataDirectory
	}
	return cfg, nil
}

// DatabasePath returns the location of the local blob database,
// creating the data directory if needed.
func (c *Config) DatabasePath() (string, error) {
	dir := c.Data.Directory
	if !filepath.IsAbs(dir) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "chatly.db"), nil
}

// configureViper sets up viper's configuration paths and environment
// variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)

	viper.SetDefault("ai.provider", "auto")
	viper.SetDefault("ai.openai.baseURL", "https://api.openai.com/v1")
	viper.SetDefault("ai.openai.model", "gpt-3.5-turbo")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.maxTokens", 1024)
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.topK", 40)
	viper.SetDefault("ai.topP", 0.95)
	viper.SetDefault("ai.streaming", true)

	viper.SetDefault("chat.messageLimit", 50)
	viper.SetDefault("chat.contextLimit", 10)
	viper.SetDefault("chat.systemPrompt", DefaultSystemPrompt)

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("debug", debug)
}

// readConfig reads configuration from file; a missing file is fine.
func readConfig(err error) error {
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// loadProvidersFromEnv picks up the conventional provider key variables
// so a config file is not required to go live.
func loadProvidersFromEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		cfg.AI.OpenAI.BaseURL = url
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.AI.Gemini.APIKey == "" {
		cfg.AI.Gemini.APIKey = key
	}
}
