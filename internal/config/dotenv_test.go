package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_ROUNDS", "3")
	t.Setenv("MAX_PLAYERS", "12")
	t.Setenv("STROKES_PER_SECOND", "nope")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.MaxRounds != 3 {
		t.Fatalf("expected 3 rounds, got %d", cfg.MaxRounds)
	}
	if cfg.MaxPlayers != 8 {
		t.Fatalf("expected player cap to stay at 8, got %d", cfg.MaxPlayers)
	}
	if cfg.StrokesPerSecond != Default().StrokesPerSecond {
		t.Fatalf("expected default stroke rate, got %d", cfg.StrokesPerSecond)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected model override, got %q", cfg.OpenAIModel)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHAOS_ROOM_DOTENV_TEST=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CHAOS_ROOM_DOTENV_TEST") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("CHAOS_ROOM_DOTENV_TEST"); got != "loaded" {
		t.Fatalf("expected loaded, got %q", got)
	}
}
