package orchestrator

import (
	"fmt"
	"time"

	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/internal/vault"
	"github.com/digital-fte/fte/pkg/models"
)

// defaultSLAThreshold is how long a task may sit in Needs_Action before a
// warning fires.
const defaultSLAThreshold = 24 * time.Hour

// slaMonitor raises at most one sla_warning per task ID per process
// lifetime. Age is measured against the file mtime, so a state move (which
// refreshes mtime) restarts the clock.
type slaMonitor struct {
	store     vault.Store
	audit     observability.AuditLog
	notifier  observability.Notifier
	threshold time.Duration
	warned    map[string]bool
	now       func() time.Time
}

func newSLAMonitor(store vault.Store, audit observability.AuditLog, notifier observability.Notifier, threshold time.Duration, now func() time.Time) *slaMonitor {
	if threshold <= 0 {
		threshold = defaultSLAThreshold
	}
	return &slaMonitor{
		store:     store,
		audit:     audit,
		notifier:  notifier,
		threshold: threshold,
		warned:    make(map[string]bool),
		now:       now,
	}
}

// check sweeps Needs_Action for overdue tasks and returns the IDs it
// warned about this call.
func (m *slaMonitor) check() ([]string, error) {
	tasks, _, err := m.store.List(models.StateNeedsAction)
	if err != nil {
		return nil, fmt.Errorf("checking SLA: %w", err)
	}

	now := m.now()
	var warned []string
	for _, task := range tasks {
		if m.warned[task.ID] {
			continue
		}
		age := now.Sub(task.Modified)
		if age <= m.threshold {
			continue
		}

		m.warned[task.ID] = true
		warned = append(warned, task.ID)

		ageHours := int(age.Hours())
		if err := m.audit.Append("orchestrator", observability.ActionSLAWarning, map[string]string{
			"task_id":   task.ID,
			"age_hours": fmt.Sprintf("%d", ageHours),
		}); err != nil {
			return warned, fmt.Errorf("recording SLA warning for %s: %w", task.ID, err)
		}

		// Notification failure is logged by the caller, never fatal.
		_ = m.notifier.Notify(observability.Notification{
			Event:   observability.EventSLAWarning,
			Title:   "SLA Warning",
			Message: fmt.Sprintf("Task %s has been pending for %d hours. Please review.", task.ID, ageHours),
			TaskID:  task.ID,
			Time:    now,
		})
	}

	return warned, nil
}
