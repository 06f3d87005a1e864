package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend for loader tests.
type memBackend struct {
	data map[string]any
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, _ := v.(int)
	return i, true, nil
}

func (b *memBackend) SetString(key, val string) error { b.data[key] = val; return nil }

func (b *memBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }

func (b *memBackend) Delete(key string) error { delete(b.data, key); return nil }

func TestDefaults(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "test-key")

	cfg, err := loadWith(&memBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Model.Name != "google/gemini-2.5-flash" {
		t.Errorf("Model.Name = %q", cfg.Model.Name)
	}
	if cfg.Model.TimeoutSeconds != 60 {
		t.Errorf("Model.TimeoutSeconds = %d, want 60", cfg.Model.TimeoutSeconds)
	}
	if cfg.Chat.BotName != "Saathi" {
		t.Errorf("Chat.BotName = %q", cfg.Chat.BotName)
	}
	if cfg.Chat.WindowSize != 8 {
		t.Errorf("Chat.WindowSize = %d, want 8", cfg.Chat.WindowSize)
	}
	if cfg.Chat.Onboarding != "off" {
		t.Errorf("Chat.Onboarding = %q, want off", cfg.Chat.Onboarding)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendValuesApplied(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "test-key")

	b := &memBackend{data: map[string]any{
		"server.port":      5100,
		"chat.bot_name":    "Mira",
		"chat.window_size": 12,
		"model.name":       "openai/gpt-4o-mini",
	}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d, want 5100", cfg.Server.Port)
	}
	if cfg.Chat.BotName != "Mira" {
		t.Errorf("Chat.BotName = %q, want Mira", cfg.Chat.BotName)
	}
	if cfg.Chat.WindowSize != 12 {
		t.Errorf("Chat.WindowSize = %d, want 12", cfg.Chat.WindowSize)
	}
	if cfg.Model.Name != "openai/gpt-4o-mini" {
		t.Errorf("Model.Name = %q", cfg.Model.Name)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "test-key")
	t.Setenv("SAATHI_CHAT_BOT_NAME", "EnvName")

	b := &memBackend{data: map[string]any{"chat.bot_name": "FileName"}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chat.BotName != "EnvName" {
		t.Errorf("Chat.BotName = %q, want EnvName", cfg.Chat.BotName)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "")

	_, err := loadWith(&memBackend{data: map[string]any{}})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to mention missing required config", err)
	}
}

func TestInvalidOnboardingMode(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "test-key")
	t.Setenv("SAATHI_CHAT_ONBOARDING", "everything")

	if _, err := loadWith(&memBackend{data: map[string]any{}}); err == nil {
		t.Fatal("expected error for invalid onboarding mode")
	}
}

func TestSecretsNeverReadFromBackend(t *testing.T) {
	t.Setenv("SAATHI_OPENROUTER_API_KEY", "env-key")

	b := &memBackend{data: map[string]any{"model.openrouter_api_key": "file-key"}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.APIKey != "env-key" {
		t.Errorf("Model.APIKey = %q, want env-key", cfg.Model.APIKey)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	b := newFileBackend(path)
	if err := b.SetString("chat.bot_name", "Mira"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 5100); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// A fresh backend re-reads the persisted file.
	b2 := newFileBackend(path)
	s, ok, err := b2.GetString("chat.bot_name")
	if err != nil || !ok || s != "Mira" {
		t.Errorf("GetString = %q, %v, %v", s, ok, err)
	}
	i, ok, err := b2.GetInt("server.port")
	if err != nil || !ok || i != 5100 {
		t.Errorf("GetInt = %d, %v, %v", i, ok, err)
	}

	if err := b2.Delete("chat.bot_name"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newFileBackend(path).GetString("chat.bot_name"); ok {
		t.Error("deleted key still present after reload")
	}
}

func TestLoadOrCreateAPIToken(t *testing.T) {
	dir := t.TempDir()

	tok1, err := LoadOrCreateAPIToken(dir)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if tok1 == "" {
		t.Fatal("expected non-empty token")
	}

	tok2, err := LoadOrCreateAPIToken(dir)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if tok2 != tok1 {
		t.Errorf("token changed across calls: %q vs %q", tok1, tok2)
	}

	info, err := os.Stat(filepath.Join(dir, "api_token"))
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}
}
