package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/threadwatch/internal/config"
)

func TestNewInitCmd(t *testing.T) {
	cmd := newInitCmd()
	if cmd.Use != "init" {
		t.Errorf("Use = %q, want %q", cmd.Use, "init")
	}
}

func TestInitCmdCreatesStateDir(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newInitCmd())
	rootCmd.SetArgs([]string{"init", "--state-dir", stateDir})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		t.Error("state directory not created")
	}

	configPath := filepath.Join(stateDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config.yaml not created")
	}

	// The scaffold must load and validate as-is.
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("scaffold does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("scaffold does not validate: %v", err)
	}
	if len(cfg.Topics.Vocabulary) == 0 {
		t.Error("scaffold vocabulary is empty")
	}
	if cfg.Monitor.JobPrefix != "thread-monitor" {
		t.Errorf("JobPrefix = %q, want %q", cfg.Monitor.JobPrefix, "thread-monitor")
	}
	if len(cfg.Scheduler.BackoffIntervalsMin) != 6 {
		t.Errorf("backoff table has %d entries, want 6", len(cfg.Scheduler.BackoffIntervalsMin))
	}
}

func TestInitCmdKeepsExistingConfig(t *testing.T) {
	stateDir := t.TempDir()
	configPath := filepath.Join(stateDir, "config.yaml")
	custom := "logging:\n  level: debug\n"
	if err := os.WriteFile(configPath, []byte(custom), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newInitCmd())
	rootCmd.SetArgs([]string{"init", "--state-dir", stateDir})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(data) != custom {
		t.Error("existing config.yaml was overwritten")
	}
	if !strings.Contains(out.String(), "Keeping existing") {
		t.Errorf("expected 'Keeping existing' notice, got: %s", out.String())
	}
}
