package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SAATHI_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "model.openrouter_api_key", typ: kString, env: "SAATHI_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.APIKey },
	},
	{
		key: "model.name", typ: kString, env: "SAATHI_MODEL_NAME",
		apply:   func(cfg *Config, v any) { cfg.Model.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Name },
	},
	{
		key: "model.timeout_seconds", typ: kInt, env: "SAATHI_MODEL_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Model.TimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.TimeoutSeconds },
	},
	{
		key: "search.serper_api_key", typ: kString, env: "SAATHI_SERPER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Search.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.APIKey },
	},
	{
		key: "chat.bot_name", typ: kString, env: "SAATHI_CHAT_BOT_NAME",
		apply:   func(cfg *Config, v any) { cfg.Chat.BotName = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.BotName },
	},
	{
		key: "chat.window_size", typ: kInt, env: "SAATHI_CHAT_WINDOW_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Chat.WindowSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.WindowSize },
	},
	{
		key: "chat.onboarding", typ: kString, env: "SAATHI_CHAT_ONBOARDING",
		apply:   func(cfg *Config, v any) { cfg.Chat.Onboarding = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Onboarding },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SAATHI_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "SAATHI_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
