// Package config provides unified configuration loading for threadwatch.
// It supports loading from YAML files, .env files, and environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contains all threadwatch configuration settings.
type Config struct {
	// Account identifies the Bluesky account the engine acts as.
	Account AccountConfig `json:"account" yaml:"account"`

	// Topics configures the relevance vocabulary.
	Topics TopicsConfig `json:"topics" yaml:"topics"`

	// Analysis contains thresholds for thread analysis and tracking.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Scheduler contains the polling backoff parameters.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// Monitor configures emitted monitoring jobs.
	Monitor MonitorConfig `json:"monitor" yaml:"monitor"`

	// Transport configures the Bluesky API client.
	Transport TransportConfig `json:"transport" yaml:"transport"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// AccountConfig identifies the agent's own account and credentials.
type AccountConfig struct {
	// Handle is the agent's Bluesky handle, e.g. "bot.example.com".
	Handle string `json:"handle" yaml:"handle"`

	// DID is the agent's decentralized identifier. Posts authored by
	// this DID anchor branches during tree walks.
	DID string `json:"did" yaml:"did"`

	// Host is the PDS base URL.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// AppPassword authenticates API calls. Supports ${VAR} syntax for
	// env vars.
	AppPassword string `json:"app_password,omitempty" yaml:"app_password,omitempty"`
}

// RedactedPassword returns the app password with most characters
// masked. Returns "" for empty passwords and "(set)" for short ones.
func (c AccountConfig) RedactedPassword() string {
	if c.AppPassword == "" {
		return ""
	}
	if len(c.AppPassword) < 12 {
		return "(set)"
	}
	return c.AppPassword[:4] + "..." + c.AppPassword[len(c.AppPassword)-4:]
}

// String implements fmt.Stringer to prevent accidental credential logging.
func (c AccountConfig) String() string {
	return fmt.Sprintf("AccountConfig{Handle:%s, DID:%s, Host:%s, AppPassword:%s}",
		c.Handle, c.DID, c.Host, c.RedactedPassword())
}

// TopicsConfig configures topic extraction.
type TopicsConfig struct {
	// Vocabulary lists the domain topics matched against post text,
	// in priority order. Matching is case-insensitive substring.
	Vocabulary []string `json:"vocabulary" yaml:"vocabulary"`
}

// AnalysisConfig contains thread analysis thresholds.
type AnalysisConfig struct {
	// RelevanceThreshold is the minimum overall thread score for a
	// thread to be registered for monitoring.
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold"`

	// BranchRespondThreshold is the minimum branch score for a branch
	// to be flagged as worth responding to in briefings.
	BranchRespondThreshold float64 `json:"branch_respond_threshold" yaml:"branch_respond_threshold"`

	// MinExchangeDepth is the minimum total branch message count
	// before a thread qualifies for monitoring.
	MinExchangeDepth int `json:"min_exchange_depth" yaml:"min_exchange_depth"`

	// MaxThreadDepth bounds reply-tree fetches.
	MaxThreadDepth int `json:"max_thread_depth" yaml:"max_thread_depth"`

	// RootExcerptRunes bounds the stored root-text excerpt.
	RootExcerptRunes int `json:"root_excerpt_runes" yaml:"root_excerpt_runes"`

	// OwnReplyHistory bounds the per-thread history of the agent's
	// own reply texts.
	OwnReplyHistory int `json:"own_reply_history" yaml:"own_reply_history"`

	// EvaluatedCap bounds the evaluated-notification log.
	EvaluatedCap int `json:"evaluated_cap" yaml:"evaluated_cap"`

	// NotificationLimit is how many notifications discovery fetches
	// per pass.
	NotificationLimit int `json:"notification_limit" yaml:"notification_limit"`
}

// SchedulerConfig contains the polling backoff parameters.
type SchedulerConfig struct {
	// BackoffIntervalsMin is the ascending wait table in minutes. The
	// backoff level indexes this table; one past the end means the
	// thread is in its final silence window.
	BackoffIntervalsMin []int `json:"backoff_intervals_min" yaml:"backoff_intervals_min"`

	// SilenceHours is the final window: a thread silent this long past
	// the whole table is retired from monitoring.
	SilenceHours int `json:"silence_hours" yaml:"silence_hours"`
}

// MonitorConfig configures the jobs emitted for tracked threads.
type MonitorConfig struct {
	// JobPrefix names emitted jobs: "<prefix>-<rkey>".
	JobPrefix string `json:"job_prefix" yaml:"job_prefix"`

	// Deliver, Channel and To route job results to the operator.
	Deliver string `json:"deliver,omitempty" yaml:"deliver,omitempty"`
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
}

// TransportConfig configures the Bluesky API client.
type TransportConfig struct {
	// Timeout bounds each API call.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRetries is how many times a failed call is retried with
	// backoff before being treated as "no data".
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay and RetryMaxDelay bound the retry backoff curve.
	RetryBaseDelay time.Duration `json:"retry_base_delay,omitempty" yaml:"retry_base_delay,omitempty"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay,omitempty" yaml:"retry_max_delay,omitempty"`
}

// LoggingConfig configures threadwatch's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to <root>/decisions.jsonl.
	// "trace" additionally includes full API payload content.
	Level string `json:"level" yaml:"level"`
}

// DefaultVocabulary is the relevance vocabulary used when none is
// configured.
var DefaultVocabulary = []string{
	"AI",
	"artificial intelligence",
	"machine learning",
	"language model",
	"LLM",
	"agent",
	"automation",
	"open source",
	"distributed systems",
	"protocol",
	"atproto",
	"bluesky",
	"decentralized",
	"federation",
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Host: "https://bsky.social",
		},
		Topics: TopicsConfig{
			Vocabulary: append([]string(nil), DefaultVocabulary...),
		},
		Analysis: AnalysisConfig{
			RelevanceThreshold:     60,
			BranchRespondThreshold: 40,
			MinExchangeDepth:       3,
			MaxThreadDepth:         20,
			RootExcerptRunes:       256,
			OwnReplyHistory:        5,
			EvaluatedCap:           500,
			NotificationLimit:      50,
		},
		Scheduler: SchedulerConfig{
			BackoffIntervalsMin: []int{10, 20, 40, 80, 160, 240},
			SilenceHours:        24,
		},
		Monitor: MonitorConfig{
			JobPrefix: "thread-monitor",
			Deliver:   "announce",
		},
		Transport: TransportConfig{
			Timeout:        10 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> <root>/config.yaml -> environment.
func Load(root string) (*Config, error) {
	config := Default()

	configPath := filepath.Join(root, "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in credentials
	config.Account.AppPassword = expandEnvVars(config.Account.AppPassword)

	return config, nil
}

// LoadEnvFiles loads local .env files into the process environment
// before config resolution. Missing files are skipped silently; broken
// ones are logged and skipped.
func LoadEnvFiles(logger *slog.Logger, files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.Warn("failed to load env file", "file", file, "error", err)
			}
			continue
		}
		if logger != nil {
			logger.Debug("loaded env file", "file", file)
		}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Analysis.RelevanceThreshold < 0 || c.Analysis.RelevanceThreshold > 100 {
		return fmt.Errorf("relevance_threshold must be between 0 and 100, got %v", c.Analysis.RelevanceThreshold)
	}

	if c.Analysis.BranchRespondThreshold < 0 || c.Analysis.BranchRespondThreshold > 100 {
		return fmt.Errorf("branch_respond_threshold must be between 0 and 100, got %v", c.Analysis.BranchRespondThreshold)
	}

	if c.Analysis.MaxThreadDepth <= 0 {
		return fmt.Errorf("max_thread_depth must be positive, got %d", c.Analysis.MaxThreadDepth)
	}

	if len(c.Scheduler.BackoffIntervalsMin) == 0 {
		return fmt.Errorf("backoff_intervals_min must not be empty")
	}
	prev := 0
	for i, interval := range c.Scheduler.BackoffIntervalsMin {
		if interval <= prev {
			return fmt.Errorf("backoff_intervals_min must be ascending and positive, got %v at index %d", interval, i)
		}
		prev = interval
	}

	if c.Scheduler.SilenceHours <= 0 {
		return fmt.Errorf("silence_hours must be positive, got %d", c.Scheduler.SilenceHours)
	}

	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport timeout must be non-negative, got %v", c.Transport.Timeout)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("THREADWATCH_HANDLE"); v != "" {
		config.Account.Handle = v
	}

	if v := os.Getenv("THREADWATCH_DID"); v != "" {
		config.Account.DID = v
	}

	if v := os.Getenv("THREADWATCH_HOST"); v != "" {
		config.Account.Host = v
	}

	if v := os.Getenv("THREADWATCH_APP_PASSWORD"); v != "" {
		config.Account.AppPassword = v
	}

	if v := os.Getenv("THREADWATCH_RELEVANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.RelevanceThreshold = f
		}
	}

	if v := os.Getenv("THREADWATCH_NOTIFICATION_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Analysis.NotificationLimit = n
		}
	}

	if v := os.Getenv("THREADWATCH_SILENCE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scheduler.SilenceHours = n
		}
	}

	if v := os.Getenv("THREADWATCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
