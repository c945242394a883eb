package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(t.TempDir())
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Policy.AutoApproveMaxAmount != 100 {
		t.Errorf("AutoApproveMaxAmount = %v, want 100", cfg.Policy.AutoApproveMaxAmount)
	}
	if cfg.Loop.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Loop.PollInterval)
	}
	if cfg.Loop.SLAThreshold != 24*time.Hour {
		t.Errorf("SLAThreshold = %v, want 24h", cfg.Loop.SLAThreshold)
	}
	if cfg.Loop.DigestHour != 20 {
		t.Errorf("DigestHour = %d, want 20", cfg.Loop.DigestHour)
	}
	if len(cfg.Backends) != 5 {
		t.Fatalf("expected 5 default backends, got %d", len(cfg.Backends))
	}
	if cfg.Backends[0].Name != "claude" || cfg.Backends[0].PromptFlag != "-p" {
		t.Errorf("unexpected first backend: %+v", cfg.Backends[0])
	}
	if cfg.Backends[3].Name != "copilot" || cfg.Backends[3].PromptFlag != "" {
		t.Errorf("unexpected copilot backend: %+v", cfg.Backends[3])
	}
	if cfg.Notifications.Enabled {
		t.Error("notifications should default to disabled")
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	base := t.TempDir()
	content := `policy:
  auto_approve_max_amount: 250
loop:
  max_iterations: 5
  poll_interval_seconds: 10
  sla_hours: 12
  digest_hour: 18
notifications:
  enabled: true
  telegram:
    bot_token: "tok"
    chat_id: "42"
  slack:
    webhook_url: "https://hooks.slack.com/services/x"
backends:
  - name: claude
    command: claude
    prompt_flag: "-p"
  - name: opencode
    command: opencode
    prompt_flag: "--message"
    enabled: false
`
	if err := os.WriteFile(filepath.Join(base, ".fteconfig"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := NewLoader(base).Load()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Policy.AutoApproveMaxAmount != 250 {
		t.Errorf("AutoApproveMaxAmount = %v, want 250", cfg.Policy.AutoApproveMaxAmount)
	}
	if cfg.Loop.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", cfg.Loop.PollInterval)
	}
	if cfg.Loop.SLAThreshold != 12*time.Hour {
		t.Errorf("SLAThreshold = %v, want 12h", cfg.Loop.SLAThreshold)
	}
	if cfg.Loop.DigestHour != 18 {
		t.Errorf("DigestHour = %d, want 18", cfg.Loop.DigestHour)
	}

	if !cfg.Notifications.Enabled {
		t.Error("expected notifications enabled")
	}
	if cfg.Notifications.Telegram.BotToken != "tok" || cfg.Notifications.Telegram.ChatID != "42" {
		t.Errorf("unexpected telegram config: %+v", cfg.Notifications.Telegram)
	}
	if cfg.Notifications.Slack.WebhookURL != "https://hooks.slack.com/services/x" {
		t.Errorf("unexpected slack config: %+v", cfg.Notifications.Slack)
	}

	if len(cfg.Backends) != 2 {
		t.Fatalf("expected 2 configured backends, got %d", len(cfg.Backends))
	}
	if cfg.Backends[0].Name != "claude" || !cfg.Backends[0].Enabled {
		t.Errorf("unexpected first backend: %+v", cfg.Backends[0])
	}
	if cfg.Backends[1].Name != "opencode" || cfg.Backends[1].Enabled {
		t.Errorf("unexpected second backend: %+v", cfg.Backends[1])
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, ".fteconfig"), []byte("loop:\n  max_iterations: 3\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := NewLoader(base).Load()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Loop.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want default 30s", cfg.Loop.PollInterval)
	}
	if len(cfg.Backends) != 5 {
		t.Errorf("expected default backend chain, got %d entries", len(cfg.Backends))
	}
}

func TestParseBackends_CommandDefaultsToName(t *testing.T) {
	backends := parseBackends([]interface{}{
		map[string]interface{}{"name": "claude"},
	})
	if len(backends) != 1 {
		t.Fatalf("expected 1 backend, got %d", len(backends))
	}
	if backends[0].Command != "claude" {
		t.Errorf("expected command to default to name, got %q", backends[0].Command)
	}
	if backends[0].Timeout != 5*time.Minute {
		t.Errorf("expected default timeout, got %v", backends[0].Timeout)
	}
	if !backends[0].Enabled {
		t.Error("expected backends to default to enabled")
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	loader := NewLoader(t.TempDir())
	cfg := Defaults()
	cfg.Policy.AutoApproveMaxAmount = -1
	cfg.Loop.MaxIterations = 0
	cfg.Loop.DigestHour = 25
	cfg.Backends[0].Name = ""

	err := loader.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"auto_approve_max_amount",
		"max_iterations",
		"digest_hour",
		"backends[0].name",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %s, got: %s", want, msg)
		}
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if err := loader.Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if err := loader.Validate(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
