package models

import "time"

// PolicyRules holds the handbook thresholds the risk scorer consults when
// deciding whether a task needs human approval.
type PolicyRules struct {
	// AutoApproveMaxAmount is the largest money amount that may proceed
	// without approval. Anything above it forces approval.
	AutoApproveMaxAmount float64 `yaml:"auto_approve_max_amount"`
}

// BackendConfig describes one external reasoning agent CLI in the fallback
// chain. Backends are tried in list order; the first that is installed and
// exits zero wins.
type BackendConfig struct {
	Name       string        `yaml:"name"`
	Command    string        `yaml:"command"`
	PromptFlag string        `yaml:"prompt_flag"`
	Timeout    time.Duration `yaml:"timeout"`
	Enabled    bool          `yaml:"enabled"`
}

// LoopConfig tunes the orchestration loop.
type LoopConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	SLAThreshold     time.Duration `yaml:"sla_threshold"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	BackoffCap       time.Duration `yaml:"backoff_cap"`
	DigestHour       int           `yaml:"digest_hour"`
	StuckAfterSweeps int           `yaml:"stuck_after_sweeps"`
}

// TelegramConfig holds Telegram bot credentials for push notifications.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// SlackConfig holds the Slack incoming-webhook URL for notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// NotificationConfig selects and configures notification channels.
type NotificationConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
}

// Config is the full runtime configuration loaded from .fteconfig.
type Config struct {
	Policy        PolicyRules        `yaml:"policy"`
	Loop          LoopConfig         `yaml:"loop"`
	Backends      []BackendConfig    `yaml:"backends"`
	Notifications NotificationConfig `yaml:"notifications"`
}
