// Package internal provides the App struct that wires all components of
// the Digital FTE system together and initializes the CLI layer.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/digital-fte/fte/internal/cli"
	"github.com/digital-fte/fte/internal/config"
	"github.com/digital-fte/fte/internal/intelligence"
	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/internal/orchestrator"
	"github.com/digital-fte/fte/internal/vault"
	"github.com/digital-fte/fte/pkg/models"
)

// App holds all service dependencies for the Digital FTE system.
type App struct {
	BasePath string

	// Configuration
	Config *models.Config

	// Storage layer
	Store vault.Store

	// Intelligence stack
	Analyzer intelligence.Analyzer
	Scorer   intelligence.Scorer
	Engine   intelligence.Engine

	// Orchestration
	Backends []orchestrator.ReasoningBackend

	// Observability
	AuditLog    observability.AuditLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	Logger *slog.Logger
}

// NewApp creates and wires all components of the Digital FTE system.
// basePath is the vault root directory (typically the directory containing
// .fteconfig, or FTE_HOME).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	loader := config.NewLoader(basePath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	app.Store, err = vault.NewStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}

	// --- Intelligence stack ---
	app.Analyzer = intelligence.NewAnalyzer()
	app.Scorer = intelligence.NewScorer(cfg.Policy)
	app.Engine = intelligence.NewEngine(app.Analyzer, app.Scorer)

	// --- Orchestration ---
	app.Backends = orchestrator.BackendsFromConfig(cfg.Backends)

	// --- Observability ---
	app.AuditLog, err = observability.NewAuditLog(filepath.Join(basePath, vault.LogsDir))
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	app.AlertEngine = observability.NewAlertEngine(app.AuditLog, app.Store.Counts, observability.DefaultAlertThresholds())
	app.MetricsCalc = observability.NewMetricsCalculator(app.AuditLog)
	app.Notifier = buildNotifier(cfg.Notifications)

	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Store = app.Store
	cli.AuditLog = app.AuditLog
	cli.Notifier = app.Notifier
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Engine = app.Engine
	cli.Backends = app.Backends
	cli.LoopConfig = cfg.Loop
	cli.Logger = app.Logger

	return app, nil
}

// buildNotifier constructs the notification fan-out from config. Disabled
// or unconfigured notifications degrade to a no-op.
func buildNotifier(cfg models.NotificationConfig) observability.Notifier {
	if !cfg.Enabled {
		return observability.NewNoopNotifier()
	}

	var notifiers []observability.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifiers = append(notifiers, observability.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, observability.NewSlackNotifier(cfg.Slack.WebhookURL))
	}

	switch len(notifiers) {
	case 0:
		return observability.NewNoopNotifier()
	case 1:
		return notifiers[0]
	default:
		return observability.NewMultiNotifier(notifiers...)
	}
}

// ResolveBasePath determines the vault base directory. It checks the
// FTE_HOME env var, then walks up from the current directory looking for a
// .fteconfig file, and finally falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("FTE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".fteconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
