package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/securemem"
)

const appName = "aichat"

// Supported provider names. The llm package maps each to its wire variant.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// apiKeyEnv lists the environment variables consulted per provider, in order.
var apiKeyEnv = map[string][]string{
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderGroq:      {"GROQ_API_KEY"},
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGroq:      "llama-3.3-70b-versatile",
	ProviderAnthropic: "claude-sonnet-4-5",
	ProviderGemini:    "gemini-2.5-flash",
}

// ProviderConfig holds per-provider connection settings
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
	Model   string `json:"model,omitempty" mapstructure:"model"`
}

// Config represents application configuration
type Config struct {
	Provider          string                    `json:"provider" mapstructure:"provider"`
	Model             string                    `json:"model" mapstructure:"model"`
	Temperature       float64                   `json:"temperature" mapstructure:"temperature"`
	MaxTokens         int                       `json:"max_tokens" mapstructure:"max_tokens"`
	HistoryLimit      int                       `json:"history_limit" mapstructure:"history_limit"`
	MaxToolIterations int                       `json:"max_tool_iterations" mapstructure:"max_tool_iterations"`
	MaxContinuations  int                       `json:"max_continuations" mapstructure:"max_continuations"`
	ToolsEnabled      bool                      `json:"tools_enabled" mapstructure:"tools_enabled"`
	DisabledTools     []string                  `json:"disabled_tools" mapstructure:"disabled_tools"`
	RedactSecrets     bool                      `json:"redact_secrets" mapstructure:"redact_secrets"`
	WorkingDir        string                    `json:"working_dir" mapstructure:"working_dir"`
	ContextFiles      []string                  `json:"context_files" mapstructure:"context_files"`
	LogLevel          string                    `json:"log_level" mapstructure:"log_level"` // debug, info, warn, error, none
	LogPath           string                    `json:"log_path" mapstructure:"log_path"`
	SettingsPath      string                    `json:"settings_path" mapstructure:"settings_path"`
	ServerAddr        string                    `json:"server_addr" mapstructure:"server_addr"`
	Providers         map[string]ProviderConfig `json:"providers" mapstructure:"providers"`
}

// Snapshot is the subset of configuration read once at the start of a turn.
type Snapshot struct {
	Provider          string
	Model             string
	Temperature       float64
	MaxTokens         int
	HistoryLimit      int
	MaxToolIterations int
	MaxContinuations  int
	// ToolsEnabled is the session toggle captured when the turn starts.
	ToolsEnabled bool
}

func defaultConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
	}
	if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
		return filepath.Join(configHome, appName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", appName)
}

func defaultStateDir() string {
	if runtime.GOOS == "windows" {
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
	}
	if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
		return filepath.Join(stateHome, appName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "state", appName)
}

// ConfigDir returns the directory searched for config.{yaml,json}.
func ConfigDir() string {
	return defaultConfigDir()
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		Provider:          ProviderOpenAI,
		Temperature:       consts.DefaultTemperature,
		MaxTokens:         consts.DefaultMaxTokens,
		HistoryLimit:      consts.DefaultHistoryLimit,
		MaxToolIterations: consts.DefaultMaxToolIterations,
		MaxContinuations:  consts.DefaultMaxContinuations,
		ToolsEnabled:      true,
		RedactSecrets:     true,
		WorkingDir:        ".",
		ContextFiles:      []string{"AGENTS.md", "PROJECT.md", filepath.Join(".aichat", "context.md")},
		LogLevel:          "info",
		LogPath:           filepath.Join(stateDir, appName+".log"),
		SettingsPath:      filepath.Join(stateDir, "settings.db"),
		ServerAddr:        "127.0.0.1:8765",
		Providers:         make(map[string]ProviderConfig),
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("max_tool_iterations", d.MaxToolIterations)
	v.SetDefault("max_continuations", d.MaxContinuations)
	v.SetDefault("tools_enabled", d.ToolsEnabled)
	v.SetDefault("disabled_tools", d.DisabledTools)
	v.SetDefault("redact_secrets", d.RedactSecrets)
	v.SetDefault("working_dir", d.WorkingDir)
	v.SetDefault("context_files", d.ContextFiles)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("settings_path", d.SettingsPath)
	v.SetDefault("server_addr", d.ServerAddr)
}

// Load reads configuration. An explicit path must exist; with an empty path
// config.yaml or config.json is looked up in ConfigDir and the working
// directory, and a missing file yields the defaults. AICHAT_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the provider name.
func (c *Config) Validate() error {
	if _, ok := apiKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q (want one of openai, groq, anthropic, gemini)", c.Provider)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1, got %d", c.HistoryLimit)
	}
	if c.MaxToolIterations < 1 {
		return fmt.Errorf("max_tool_iterations must be at least 1, got %d", c.MaxToolIterations)
	}
	if c.MaxContinuations < 0 {
		return fmt.Errorf("max_continuations must not be negative, got %d", c.MaxContinuations)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature)
	}
	return nil
}

// ResolvedModel returns the configured model, falling back to the provider
// section and then to the provider's default.
func (c *Config) ResolvedModel() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	if m := strings.TrimSpace(c.Providers[c.Provider].Model); m != "" {
		return m
	}
	return defaultModels[c.Provider]
}

// BaseURL returns the configured base URL override for the active provider.
func (c *Config) BaseURL() string {
	return strings.TrimSpace(c.Providers[c.Provider].BaseURL)
}

// Snapshot copies the per-turn settings.
func (c *Config) Snapshot() Snapshot {
	return Snapshot{
		Provider:          c.Provider,
		Model:             c.ResolvedModel(),
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		HistoryLimit:      c.HistoryLimit,
		MaxToolIterations: c.MaxToolIterations,
		MaxContinuations:  c.MaxContinuations,
		ToolsEnabled:      c.ToolsEnabled,
	}
}

// Keyring moves API keys from the config and the environment into guarded
// memory. Plaintext keys are dropped from the Config afterwards.
func (c *Config) Keyring() *securemem.Keyring {
	ring := securemem.NewKeyring()
	for provider, envNames := range apiKeyEnv {
		key := strings.TrimSpace(c.Providers[provider].APIKey)
		for _, name := range envNames {
			if key != "" {
				break
			}
			key = strings.TrimSpace(os.Getenv(name))
		}
		ring.Set(provider, key)

		if pc, ok := c.Providers[provider]; ok {
			pc.APIKey = ""
			c.Providers[provider] = pc
		}
	}
	return ring
}
