// Package config layers configuration from three sources: built-in
// defaults, a JSON file at $XDG_CONFIG_HOME/saathi/config.json, and
// SAATHI_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Search  SearchConfig
	Chat    ChatConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type ModelConfig struct {
	APIKey         string
	Name           string
	TimeoutSeconds int
}

type SearchConfig struct {
	APIKey string
}

type ChatConfig struct {
	BotName    string
	WindowSize int
	Onboarding string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Model: ModelConfig{
			Name:           "google/gemini-2.5-flash",
			TimeoutSeconds: 60,
		},
		Chat: ChatConfig{
			BotName:    "Saathi",
			WindowSize: 8,
			Onboarding: "off",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file and environment.
// Environment variables (SAATHI_*) override file values. The model API
// key is required; the search key is optional and merely disables live
// search when absent.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Model.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenRouter API key. " +
			"Set it via environment variable SAATHI_OPENROUTER_API_KEY")
	}

	switch cfg.Chat.Onboarding {
	case "off", "name", "full":
	default:
		return Config{}, fmt.Errorf("invalid chat.onboarding %q: must be off, name, or full", cfg.Chat.Onboarding)
	}

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "saathi-data"
		}
	}
	return filepath.Join(dir, "saathi")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "saathi", "config.json")
}
