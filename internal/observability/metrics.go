package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the audit log.
type Metrics struct {
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	DecisionsByRoute  map[string]int `json:"decisions_by_route"`
	InvocationsByAgent map[string]int `json:"invocations_by_agent"`
	AgentFailures     int            `json:"agent_failures"`
	SLAWarnings       int            `json:"sla_warnings"`
	Escalations       int            `json:"escalations"`
	RecordCount       int            `json:"record_count"`
	OldestRecord      *time.Time     `json:"oldest_record,omitempty"`
	NewestRecord      *time.Time     `json:"newest_record,omitempty"`
}

// MetricsCalculator derives metrics from the audit log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an AuditLog.
type metricsCalculator struct {
	audit AuditLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from the given
// AuditLog.
func NewMetricsCalculator(audit AuditLog) MetricsCalculator {
	return &metricsCalculator{audit: audit}
}

// Calculate reads all records since the given time and aggregates them.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	records, err := mc.audit.Read(AuditFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading audit records for metrics: %w", err)
	}

	m := &Metrics{
		DecisionsByRoute:   make(map[string]int),
		InvocationsByAgent: make(map[string]int),
	}

	m.RecordCount = len(records)

	for i, record := range records {
		if i == 0 {
			t := record.Timestamp
			m.OldestRecord = &t
		}
		t := record.Timestamp
		m.NewestRecord = &t

		switch record.Action {
		case ActionTaskCreated:
			m.TasksCreated++
		case ActionTaskCompleted:
			m.TasksCompleted++
		case ActionDecisionMade:
			if approach := record.Details["approach"]; approach != "" {
				m.DecisionsByRoute[approach]++
			}
		case ActionAgentInvoked:
			if agent := record.Details["agent"]; agent != "" {
				m.InvocationsByAgent[agent]++
			}
		case ActionAgentFailed:
			m.AgentFailures++
		case ActionSLAWarning:
			m.SLAWarnings++
		case ActionEscalated:
			m.Escalations++
		}
	}

	return m, nil
}
