// Package config loads runtime configuration from the .fteconfig YAML
// file in the vault base path, falling back to complete defaults when the
// file is absent.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/digital-fte/fte/pkg/models"
	"github.com/spf13/viper"
)

// Loader defines the interface for loading and validating configuration.
type Loader interface {
	Load() (*models.Config, error)
	Validate(cfg *models.Config) error
}

// viperLoader implements Loader using Viper for reading the YAML file.
type viperLoader struct {
	// basePath is the directory where .fteconfig resides.
	basePath string
}

// NewLoader creates a Loader that reads .fteconfig from basePath.
func NewLoader(basePath string) Loader {
	return &viperLoader{basePath: basePath}
}

// Defaults returns a Config populated with the built-in defaults,
// including the full backend fallback chain.
func Defaults() *models.Config {
	return &models.Config{
		Policy: models.PolicyRules{
			AutoApproveMaxAmount: 100,
		},
		Loop: models.LoopConfig{
			MaxIterations:    10,
			PollInterval:     30 * time.Second,
			SLAThreshold:     24 * time.Hour,
			RetryDelay:       5 * time.Second,
			BackoffCap:       30 * time.Second,
			DigestHour:       20,
			StuckAfterSweeps: 3,
		},
		Backends: DefaultBackends(),
		Notifications: models.NotificationConfig{
			Enabled: false,
		},
	}
}

// DefaultBackends returns the built-in agent fallback chain in priority
// order.
func DefaultBackends() []models.BackendConfig {
	return []models.BackendConfig{
		{Name: "claude", Command: "claude", PromptFlag: "-p", Timeout: 5 * time.Minute, Enabled: true},
		{Name: "gemini", Command: "gemini", PromptFlag: "-p", Timeout: 5 * time.Minute, Enabled: true},
		{Name: "qwen", Command: "qwen", PromptFlag: "-p", Timeout: 5 * time.Minute, Enabled: true},
		{Name: "copilot", Command: "copilot", PromptFlag: "", Timeout: 5 * time.Minute, Enabled: true},
		{Name: "opencode", Command: "opencode", PromptFlag: "--message", Timeout: 5 * time.Minute, Enabled: true},
	}
}

// Load reads the .fteconfig file from the base path using Viper. If the
// file does not exist, the defaults are returned.
func (l *viperLoader) Load() (*models.Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigName(".fteconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("policy.auto_approve_max_amount", cfg.Policy.AutoApproveMaxAmount)
	v.SetDefault("loop.max_iterations", cfg.Loop.MaxIterations)
	v.SetDefault("loop.poll_interval_seconds", int(cfg.Loop.PollInterval.Seconds()))
	v.SetDefault("loop.sla_hours", int(cfg.Loop.SLAThreshold.Hours()))
	v.SetDefault("loop.retry_delay_seconds", int(cfg.Loop.RetryDelay.Seconds()))
	v.SetDefault("loop.backoff_cap_seconds", int(cfg.Loop.BackoffCap.Seconds()))
	v.SetDefault("loop.digest_hour", cfg.Loop.DigestHour)
	v.SetDefault("loop.stuck_after_sweeps", cfg.Loop.StuckAfterSweeps)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file found, return defaults.
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .fteconfig: %w", err)
	}

	cfg.Policy.AutoApproveMaxAmount = v.GetFloat64("policy.auto_approve_max_amount")
	cfg.Loop.MaxIterations = v.GetInt("loop.max_iterations")
	cfg.Loop.PollInterval = time.Duration(v.GetInt("loop.poll_interval_seconds")) * time.Second
	cfg.Loop.SLAThreshold = time.Duration(v.GetInt("loop.sla_hours")) * time.Hour
	cfg.Loop.RetryDelay = time.Duration(v.GetInt("loop.retry_delay_seconds")) * time.Second
	cfg.Loop.BackoffCap = time.Duration(v.GetInt("loop.backoff_cap_seconds")) * time.Second
	cfg.Loop.DigestHour = v.GetInt("loop.digest_hour")
	cfg.Loop.StuckAfterSweeps = v.GetInt("loop.stuck_after_sweeps")

	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Telegram.BotToken = v.GetString("notifications.telegram.bot_token")
	cfg.Notifications.Telegram.ChatID = v.GetString("notifications.telegram.chat_id")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	if backends := parseBackends(v.Get("backends")); len(backends) > 0 {
		cfg.Backends = backends
	}

	return cfg, nil
}

// parseBackends converts the raw backends list from the config file into
// typed BackendConfig entries, preserving list order.
func parseBackends(raw interface{}) []models.BackendConfig {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	var backends []models.BackendConfig
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		backend := models.BackendConfig{
			Timeout: 5 * time.Minute,
			Enabled: true,
		}
		if name, ok := m["name"].(string); ok {
			backend.Name = name
		}
		if cmd, ok := m["command"].(string); ok {
			backend.Command = cmd
		}
		if flag, ok := m["prompt_flag"].(string); ok {
			backend.PromptFlag = flag
		}
		if seconds, ok := m["timeout_seconds"].(int); ok && seconds > 0 {
			backend.Timeout = time.Duration(seconds) * time.Second
		}
		if enabled, ok := m["enabled"].(bool); ok {
			backend.Enabled = enabled
		}
		if backend.Command == "" {
			backend.Command = backend.Name
		}
		backends = append(backends, backend)
	}

	return backends
}

// Validate checks the configuration for invalid values and returns a clear
// error message identifying every problem.
func (l *viperLoader) Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Policy.AutoApproveMaxAmount < 0 {
		errs = append(errs, fmt.Sprintf(
			"policy.auto_approve_max_amount must be non-negative, got %.2f",
			cfg.Policy.AutoApproveMaxAmount,
		))
	}
	if cfg.Loop.MaxIterations <= 0 {
		errs = append(errs, fmt.Sprintf(
			"loop.max_iterations must be positive, got %d", cfg.Loop.MaxIterations,
		))
	}
	if cfg.Loop.PollInterval <= 0 {
		errs = append(errs, "loop.poll_interval_seconds must be positive")
	}
	if cfg.Loop.DigestHour < 0 || cfg.Loop.DigestHour > 23 {
		errs = append(errs, fmt.Sprintf(
			"loop.digest_hour %d is invalid, must be between 0 and 23", cfg.Loop.DigestHour,
		))
	}
	for i, backend := range cfg.Backends {
		if backend.Name == "" {
			errs = append(errs, fmt.Sprintf("backends[%d].name must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
