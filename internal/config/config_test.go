package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Analysis.RelevanceThreshold != 60 {
		t.Errorf("RelevanceThreshold = %v, want 60", cfg.Analysis.RelevanceThreshold)
	}
	if cfg.Analysis.MinExchangeDepth != 3 {
		t.Errorf("MinExchangeDepth = %d, want 3", cfg.Analysis.MinExchangeDepth)
	}
	if cfg.Analysis.MaxThreadDepth != 20 {
		t.Errorf("MaxThreadDepth = %d, want 20", cfg.Analysis.MaxThreadDepth)
	}
	want := []int{10, 20, 40, 80, 160, 240}
	if len(cfg.Scheduler.BackoffIntervalsMin) != len(want) {
		t.Fatalf("BackoffIntervalsMin = %v, want %v", cfg.Scheduler.BackoffIntervalsMin, want)
	}
	for i := range want {
		if cfg.Scheduler.BackoffIntervalsMin[i] != want[i] {
			t.Errorf("BackoffIntervalsMin[%d] = %d, want %d", i, cfg.Scheduler.BackoffIntervalsMin[i], want[i])
		}
	}
	if cfg.Scheduler.SilenceHours != 24 {
		t.Errorf("SilenceHours = %d, want 24", cfg.Scheduler.SilenceHours)
	}
	if len(cfg.Topics.Vocabulary) == 0 {
		t.Error("default vocabulary is empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
account:
  handle: bot.example.com
  did: did:plc:agent
  app_password: ${TEST_TW_PASSWORD}
topics:
  vocabulary: ["AI", "robotics"]
analysis:
  relevance_threshold: 70
scheduler:
  silence_hours: 48
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("TEST_TW_PASSWORD", "hunter2hunter2")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Account.Handle != "bot.example.com" {
		t.Errorf("Handle = %q, want bot.example.com", cfg.Account.Handle)
	}
	if cfg.Account.AppPassword != "hunter2hunter2" {
		t.Errorf("AppPassword = %q, want expanded env value", cfg.Account.AppPassword)
	}
	if cfg.Analysis.RelevanceThreshold != 70 {
		t.Errorf("RelevanceThreshold = %v, want 70", cfg.Analysis.RelevanceThreshold)
	}
	if cfg.Scheduler.SilenceHours != 48 {
		t.Errorf("SilenceHours = %d, want 48", cfg.Scheduler.SilenceHours)
	}
	if len(cfg.Topics.Vocabulary) != 2 || cfg.Topics.Vocabulary[0] != "AI" {
		t.Errorf("Vocabulary = %v, want override from file", cfg.Topics.Vocabulary)
	}
	// Unset sections keep defaults.
	if cfg.Analysis.MaxThreadDepth != 20 {
		t.Errorf("MaxThreadDepth = %d, want default 20", cfg.Analysis.MaxThreadDepth)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analysis.RelevanceThreshold != 60 {
		t.Errorf("RelevanceThreshold = %v, want default 60", cfg.Analysis.RelevanceThreshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("THREADWATCH_HANDLE", "env.example.com")
	t.Setenv("THREADWATCH_RELEVANCE_THRESHOLD", "55")
	t.Setenv("THREADWATCH_LOG_LEVEL", "trace")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Account.Handle != "env.example.com" {
		t.Errorf("Handle = %q, want env override", cfg.Account.Handle)
	}
	if cfg.Analysis.RelevanceThreshold != 55 {
		t.Errorf("RelevanceThreshold = %v, want 55", cfg.Analysis.RelevanceThreshold)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Level = %q, want trace", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"threshold too high", func(c *Config) { c.Analysis.RelevanceThreshold = 150 }, true},
		{"negative threshold", func(c *Config) { c.Analysis.RelevanceThreshold = -1 }, true},
		{"zero depth", func(c *Config) { c.Analysis.MaxThreadDepth = 0 }, true},
		{"empty intervals", func(c *Config) { c.Scheduler.BackoffIntervalsMin = nil }, true},
		{"non-ascending intervals", func(c *Config) { c.Scheduler.BackoffIntervalsMin = []int{10, 10, 20} }, true},
		{"zero silence", func(c *Config) { c.Scheduler.SilenceHours = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"negative timeout", func(c *Config) { c.Transport.Timeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedactedPassword(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"", ""},
		{"short", "(set)"},
		{"abcd-efgh-ijkl-mnop", "abcd...mnop"},
	}
	for _, tt := range tests {
		c := AccountConfig{AppPassword: tt.password}
		if got := c.RedactedPassword(); got != tt.want {
			t.Errorf("RedactedPassword(%q) = %q, want %q", tt.password, got, tt.want)
		}
	}
	// Stringer never leaks the raw password.
	c := AccountConfig{Handle: "bot.example.com", AppPassword: "abcd-efgh-ijkl-mnop"}
	if s := c.String(); strings.Contains(s, "abcd-efgh-ijkl-mnop") {
		t.Errorf("String() = %q, leaked credential", s)
	}
}
