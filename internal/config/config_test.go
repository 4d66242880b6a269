package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected explicit port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Kafka.Topic != "quiz-scores" {
		t.Fatalf("expected default topic, got %q", cfg.Kafka.Topic)
	}
	if cfg.Leaderboard.DefaultLimit != 50 || cfg.Leaderboard.MaxLimit != 500 {
		t.Fatalf("unexpected leaderboard defaults: %+v", cfg.Leaderboard)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_ADMIN_KEY", "sekrit")
	path := writeConfig(t, "auth:\n  admin_api_key: ${TEST_ADMIN_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.AdminAPIKey != "sekrit" {
		t.Fatalf("expected expanded admin key, got %q", cfg.Auth.AdminAPIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "quiz",
		Password: "pw",
		Database: "quizleague",
	}
	want := "postgres://quiz:pw@db:5432/quizleague?sslmode=disable"
	if got := cfg.ConnectionString(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
