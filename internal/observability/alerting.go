package observability

import (
	"fmt"
	"time"

	"github.com/digital-fte/fte/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	MaxPendingApprovals int `yaml:"max_pending_approvals" json:"max_pending_approvals"`
	MaxBacklogSize      int `yaml:"max_backlog_size" json:"max_backlog_size"`
	MaxAgentFailures    int `yaml:"max_agent_failures" json:"max_agent_failures"`
	FailureWindowHours  int `yaml:"failure_window_hours" json:"failure_window_hours"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MaxPendingApprovals: 5,
		MaxBacklogSize:      10,
		MaxAgentFailures:    10,
		FailureWindowHours:  24,
	}
}

// StateCounts reports the number of tasks per lifecycle state.
type StateCounts func() (map[models.TaskState]int, error)

// AlertEngine evaluates alert conditions against the vault and audit log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by checking vault counts and recent
// audit records against thresholds.
type alertEngine struct {
	audit      AuditLog
	counts     StateCounts
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine over the given audit log and state
// count provider.
func NewAlertEngine(audit AuditLog, counts StateCounts, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		audit:      audit,
		counts:     counts,
		thresholds: thresholds,
	}
}

// Evaluate checks all alert conditions, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := time.Now().UTC()
	var alerts []Alert

	counts, err := ae.counts()
	if err != nil {
		return nil, fmt.Errorf("counting vault tasks: %w", err)
	}

	if pending := counts[models.StatePendingApproval]; pending > ae.thresholds.MaxPendingApprovals {
		alerts = append(alerts, Alert{
			ID:          "pending-approvals",
			Condition:   "too_many_pending_approvals",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%d tasks are waiting for approval, exceeding the maximum of %d", pending, ae.thresholds.MaxPendingApprovals),
			TriggeredAt: now,
		})
	}

	if backlog := counts[models.StateNeedsAction]; backlog > ae.thresholds.MaxBacklogSize {
		alerts = append(alerts, Alert{
			ID:          "backlog-size",
			Condition:   "backlog_too_large",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("backlog has %d tasks, exceeding the maximum of %d", backlog, ae.thresholds.MaxBacklogSize),
			TriggeredAt: now,
		})
	}

	failureAlerts, err := ae.checkAgentFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking agent failures: %w", err)
	}
	alerts = append(alerts, failureAlerts...)

	return alerts, nil
}

// checkAgentFailures counts agent_failed records inside the failure window
// and alerts when the threshold is exceeded.
func (ae *alertEngine) checkAgentFailures(now time.Time) ([]Alert, error) {
	since := now.Add(-time.Duration(ae.thresholds.FailureWindowHours) * time.Hour)
	records, err := ae.audit.Read(AuditFilter{Since: &since, Action: ActionAgentFailed})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if len(records) > ae.thresholds.MaxAgentFailures {
		alerts = append(alerts, Alert{
			ID:          "agent-failures",
			Condition:   "repeated_agent_failures",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%d agent failures in the last %d hours, exceeding the maximum of %d", len(records), ae.thresholds.FailureWindowHours, ae.thresholds.MaxAgentFailures),
			TriggeredAt: now,
		})
	}

	return alerts, nil
}
