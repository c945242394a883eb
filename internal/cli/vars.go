package cli

import (
	"log/slog"

	"github.com/digital-fte/fte/internal/intelligence"
	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/internal/orchestrator"
	"github.com/digital-fte/fte/internal/vault"
	"github.com/digital-fte/fte/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	// BasePath is the vault base directory.
	BasePath string

	Store    vault.Store
	AuditLog observability.AuditLog
	Notifier observability.Notifier

	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator

	Engine intelligence.Engine

	Backends   []orchestrator.ReasoningBackend
	LoopConfig models.LoopConfig

	Logger *slog.Logger
)
