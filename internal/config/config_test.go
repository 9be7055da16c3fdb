package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.Analysis.MaxChars != 4000 {
			t.Errorf("Analysis.MaxChars = %d, want 4000", cfg.Analysis.MaxChars)
		}
		if cfg.Analysis.Temperature != 0.2 {
			t.Errorf("Analysis.Temperature = %v, want 0.2", cfg.Analysis.Temperature)
		}
		if cfg.Transcription.Temperature != 0 {
			t.Errorf("Transcription.Temperature = %v, want 0", cfg.Transcription.Temperature)
		}
		if cfg.Transcription.Prompt != "Business meeting discussion about strategy, innovation, decisions, market, clients, products and team organisation." {
			t.Errorf("Transcription.Prompt = %q", cfg.Transcription.Prompt)
		}
		if cfg.Diarization.PollInterval != 3*time.Second {
			t.Errorf("Diarization.PollInterval = %v, want 3s", cfg.Diarization.PollInterval)
		}
		if cfg.MaxConcurrentRuns != 1 {
			t.Errorf("MaxConcurrentRuns = %d, want 1", cfg.MaxConcurrentRuns)
		}
		if cfg.DemoPattern != "analysis_*.json" {
			t.Errorf("DemoPattern = %q", cfg.DemoPattern)
		}
		if cfg.DemoS3.Enabled() {
			t.Error("DemoS3 should be disabled by default")
		}
		if cfg.MQTT.Enabled() {
			t.Error("MQTT should be disabled by default")
		}
		if cfg.TempDir == "" {
			t.Error("TempDir should default to the OS temp dir")
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", ":7000")
		cfg, err := Load(Overrides{
			EnvFile:     "nonexistent.env",
			HTTPAddr:    ":9090",
			LogLevel:    "debug",
			SecretsFile: "/etc/meeting-intel/secrets.toml",
			DemoDir:     "/data/analysis",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.SecretsFile != "/etc/meeting-intel/secrets.toml" {
			t.Errorf("SecretsFile = %q", cfg.SecretsFile)
		}
		if cfg.DemoDir != "/data/analysis" {
			t.Errorf("DemoDir = %q", cfg.DemoDir)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		t.Setenv("LLM_MODEL", "gpt-4o")
		t.Setenv("ANALYSIS_MAX_CHARS", "3000")
		t.Setenv("DEMO_S3_BUCKET", "demo-bucket")
		t.Setenv("MAX_CONCURRENT_RUNS", "0")
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Analysis.Model != "gpt-4o" {
			t.Errorf("Analysis.Model = %q, want gpt-4o", cfg.Analysis.Model)
		}
		if cfg.Analysis.MaxChars != 3000 {
			t.Errorf("Analysis.MaxChars = %d, want 3000", cfg.Analysis.MaxChars)
		}
		if !cfg.DemoS3.Enabled() {
			t.Error("DemoS3 should be enabled")
		}
		if cfg.MaxConcurrentRuns != 1 {
			t.Errorf("MaxConcurrentRuns = %d, want clamp to 1", cfg.MaxConcurrentRuns)
		}
	})

	t.Run("env_file_loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		if err := os.WriteFile(path, []byte("LLM_MAX_TOKENS=1234\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Unsetenv("LLM_MAX_TOKENS") })
		cfg, err := Load(Overrides{EnvFile: path})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Analysis.MaxTokens != 1234 {
			t.Errorf("Analysis.MaxTokens = %d, want 1234", cfg.Analysis.MaxTokens)
		}
	})
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
		t.Error("expected error for invalid duration")
	}
}
