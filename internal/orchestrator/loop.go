package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/internal/vault"
	"github.com/digital-fte/fte/pkg/models"
)

// Loop defaults, applied when the corresponding config value is unset.
const (
	defaultMaxIterations = 10
	defaultPollInterval  = 30 * time.Second
	defaultRetryDelay    = 5 * time.Second
	defaultBackoffCap    = 30 * time.Second
	defaultDigestHour    = 20
	defaultStuckSweeps   = 3
	reinjectDelay        = 2 * time.Second
)

// Loop is the orchestration loop. It owns the in-memory processed, SLA and
// escalation bookkeeping; none of that state is shared between instances.
type Loop struct {
	store    vault.Store
	audit    observability.AuditLog
	notifier observability.Notifier
	prompts  PromptBuilder
	backends []ReasoningBackend
	config   models.LoopConfig
	dryRun   bool
	logger   *slog.Logger

	sla       *slaMonitor
	processed map[string]bool
	stuck     map[string]*stuckState
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// stuckState tracks consecutive exhausted sweeps for one task. The counter
// resets when the task file's mtime changes.
type stuckState struct {
	count     int
	mtime     time.Time
	escalated bool
}

// LoopOptions configures a Loop. Store, Audit, Notifier and Prompts are
// required; zero config fields fall back to defaults. Now and Sleep are
// test hooks and default to the wall clock.
type LoopOptions struct {
	Store    vault.Store
	Audit    observability.AuditLog
	Notifier observability.Notifier
	Prompts  PromptBuilder
	Backends []ReasoningBackend
	Config   models.LoopConfig
	DryRun   bool
	Logger   *slog.Logger
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a Loop from options.
func NewLoop(opts LoopOptions) (*Loop, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("creating loop: store is required")
	}
	if opts.Audit == nil {
		return nil, fmt.Errorf("creating loop: audit log is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = observability.NewNoopNotifier()
	}
	if opts.Prompts == nil {
		opts.Prompts = NewPromptBuilder(opts.Store.BasePath())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = ctxSleep
	}

	cfg := opts.Config
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = defaultBackoffCap
	}
	if cfg.DigestHour <= 0 {
		cfg.DigestHour = defaultDigestHour
	}
	if cfg.StuckAfterSweeps <= 0 {
		cfg.StuckAfterSweeps = defaultStuckSweeps
	}

	return &Loop{
		store:     opts.Store,
		audit:     opts.Audit,
		notifier:  opts.Notifier,
		prompts:   opts.Prompts,
		backends:  opts.Backends,
		config:    cfg,
		dryRun:    opts.DryRun,
		logger:    opts.Logger,
		sla:       newSLAMonitor(opts.Store, opts.Audit, opts.Notifier, cfg.SLAThreshold, opts.Now),
		processed: make(map[string]bool),
		stuck:     make(map[string]*stuckState),
		now:       opts.Now,
		sleep:     opts.Sleep,
	}, nil
}

// Run executes sweeps until the context is cancelled, sleeping the poll
// interval between them. Sweep errors are logged, never fatal.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("orchestrator loop starting",
		"vault", l.store.BasePath(),
		"max_iterations", l.config.MaxIterations,
		"poll_interval", l.config.PollInterval,
		"dry_run", l.dryRun,
		"backends", backendNames(l.backends),
	)

	for {
		if err := l.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				l.logger.Info("orchestrator loop stopping")
				return ctx.Err()
			}
			l.logger.Error("sweep failed", "error", err)
		}

		if err := l.sleep(ctx, l.config.PollInterval); err != nil {
			l.logger.Info("orchestrator loop stopping")
			return err
		}
	}
}

// RunOnce executes a single sweep: SLA check, Needs_Action processing,
// Approved execution, and the daily digest check.
func (l *Loop) RunOnce(ctx context.Context) error {
	if warned, err := l.sla.check(); err != nil {
		l.logger.Warn("SLA check failed", "error", err)
	} else if len(warned) > 0 {
		l.logger.Warn("SLA warnings raised", "tasks", warned)
	}

	if err := l.sweepNeedsAction(ctx); err != nil {
		return err
	}
	if err := l.sweepApproved(ctx); err != nil {
		return err
	}

	l.checkDigest()
	return nil
}

func (l *Loop) sweepNeedsAction(ctx context.Context) error {
	tasks, skipped, err := l.store.List(models.StateNeedsAction)
	if err != nil {
		return fmt.Errorf("sweeping needs-action tasks: %w", err)
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed task files", "count", skipped)
	}
	l.logger.Info("found pending tasks", "count", len(tasks))

	for _, task := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if l.processed[task.ID] {
			continue
		}
		if l.isEscalated(task) {
			continue
		}
		if err := l.processTask(ctx, task); err != nil {
			if ctx.Err() != nil {
				return err
			}
			l.logger.Error("task processing failed", "task", task.ID, "error", err)
		}
	}

	return nil
}

// processTask drives a single task through the re-injection loop: invoke
// an agent, check whether the task left Needs_Action, and if not inject
// the prompt again, up to the iteration budget. Exhausting the budget
// leaves the task in place for the next sweep.
func (l *Loop) processTask(ctx context.Context, task models.Task) error {
	l.logger.Info("processing task", "task", task.ID, "title", task.Title)

	if l.dryRun {
		l.logger.Info("dry run: would invoke agent", "task", task.ID)
		return nil
	}

	prompt := l.prompts.TaskPrompt(task)

	for iteration := 1; iteration <= l.config.MaxIterations; iteration++ {
		l.logger.Info("iteration", "task", task.ID, "n", iteration, "max", l.config.MaxIterations)

		_, agent, err := InvokeWithFallback(ctx, prompt, l.backends)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("agent invocation failed", "task", task.ID, "error", err)
			if auditErr := l.audit.Append("orchestrator", observability.ActionAgentFailed, map[string]string{
				"task_id": task.ID,
				"error":   err.Error(),
			}); auditErr != nil {
				return auditErr
			}
			if sleepErr := l.sleep(ctx, l.retryDelay(iteration)); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if err := l.audit.Append("orchestrator", observability.ActionAgentInvoked, map[string]string{
			"task_id":   task.ID,
			"agent":     agent,
			"iteration": fmt.Sprintf("%d", iteration),
		}); err != nil {
			return err
		}

		settled, err := l.checkSettled(task, agent, iteration)
		if err != nil {
			return err
		}
		if settled {
			l.processed[task.ID] = true
			delete(l.stuck, task.ID)
			return nil
		}

		l.logger.Info("task not completed, re-injecting prompt", "task", task.ID)
		if err := l.sleep(ctx, reinjectDelay); err != nil {
			return err
		}
	}

	// Budget exhausted: fail open, the task stays where it is.
	l.logger.Warn("task not completed within iteration budget",
		"task", task.ID, "iterations", l.config.MaxIterations)
	return l.recordExhausted(task)
}

// checkSettled reports whether the task has left Needs_Action. A move to
// Pending_Approval counts as settled for this sweep; the human takes over.
func (l *Loop) checkSettled(task models.Task, agent string, iterations int) (bool, error) {
	current, err := l.store.Get(task.ID)
	if err != nil {
		// File is gone entirely; treat as completed.
		return true, nil
	}

	switch current.State {
	case models.StateDone:
		if err := l.audit.Append("orchestrator", observability.ActionTaskCompleted, map[string]string{
			"task_id":    task.ID,
			"agent":      agent,
			"iterations": fmt.Sprintf("%d", iterations),
		}); err != nil {
			return false, err
		}
		l.notify(observability.Notification{
			Event:   observability.EventTaskCompleted,
			Title:   "Task Completed",
			Message: fmt.Sprintf("Task %s completed by %s.", task.Title, agent),
			TaskID:  task.ID,
			Time:    l.now(),
		})
		return true, nil

	case models.StatePendingApproval:
		l.logger.Info("task moved to pending approval, waiting for human", "task", task.ID)
		if err := l.audit.Append("orchestrator", observability.ActionApprovalRequested, map[string]string{
			"task_id": task.ID,
			"agent":   agent,
		}); err != nil {
			return false, err
		}
		l.notify(observability.Notification{
			Event:   observability.EventApprovalRequested,
			Title:   "Approval Requested",
			Message: fmt.Sprintf("Task %s needs your approval.", task.Title),
			TaskID:  task.ID,
			Time:    l.now(),
		})
		return true, nil
	}

	return false, nil
}

// recordExhausted counts consecutive exhausted sweeps for a task and
// escalates once the threshold is crossed. The counter resets when the
// task file changes.
func (l *Loop) recordExhausted(task models.Task) error {
	state := l.stuck[task.ID]
	if state == nil || !state.mtime.Equal(task.Modified) {
		state = &stuckState{mtime: task.Modified}
		l.stuck[task.ID] = state
	}
	state.count++

	if err := l.audit.Append("orchestrator", observability.ActionAgentFailed, map[string]string{
		"task_id": task.ID,
		"reason":  "max_iterations_exceeded",
		"sweeps":  fmt.Sprintf("%d", state.count),
	}); err != nil {
		return err
	}

	if state.count < l.config.StuckAfterSweeps || state.escalated {
		return nil
	}

	state.escalated = true
	l.logger.Error("task stuck, escalating", "task", task.ID, "sweeps", state.count)
	if err := l.audit.Append("orchestrator", observability.ActionEscalated, map[string]string{
		"task_id": task.ID,
		"sweeps":  fmt.Sprintf("%d", state.count),
	}); err != nil {
		return err
	}
	l.notify(observability.Notification{
		Event:   observability.EventEscalated,
		Title:   "Task Escalated",
		Message: fmt.Sprintf("Task %s could not be completed after %d sweeps and needs attention.", task.Title, state.count),
		TaskID:  task.ID,
		Time:    l.now(),
	})
	return nil
}

// isEscalated reports whether a task is parked pending human attention.
// An mtime change (the file was edited or moved) clears the parking.
func (l *Loop) isEscalated(task models.Task) bool {
	state := l.stuck[task.ID]
	if state == nil || !state.escalated {
		return false
	}
	if !state.mtime.Equal(task.Modified) {
		delete(l.stuck, task.ID)
		return false
	}
	return true
}

// sweepApproved executes human-approved tasks and moves them to Done.
func (l *Loop) sweepApproved(ctx context.Context) error {
	tasks, _, err := l.store.List(models.StateApproved)
	if err != nil {
		return fmt.Errorf("sweeping approved tasks: %w", err)
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Info("processing approved task", "task", task.ID)

		if l.dryRun {
			l.logger.Info("dry run: would execute approved task", "task", task.ID)
			continue
		}

		agent := "orchestrator"
		if len(l.backends) > 0 {
			prompt := l.prompts.ApprovedPrompt(task)
			_, winner, err := InvokeWithFallback(ctx, prompt, l.backends)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.logger.Warn("approved task execution failed", "task", task.ID, "error", err)
				if auditErr := l.audit.Append("orchestrator", observability.ActionAgentFailed, map[string]string{
					"task_id": task.ID,
					"error":   err.Error(),
				}); auditErr != nil {
					return auditErr
				}
				continue
			}
			agent = winner
		}

		// The agent may have moved the file itself; only move what is
		// still in Approved.
		if current, err := l.store.Get(task.ID); err == nil && current.State == models.StateApproved {
			if err := l.store.Move(task.ID, models.StateApproved, models.StateDone); err != nil {
				l.logger.Error("moving approved task to done failed", "task", task.ID, "error", err)
				continue
			}
		}

		if err := l.audit.Append("orchestrator", observability.ActionTaskCompleted, map[string]string{
			"task_id": task.ID,
			"agent":   agent,
			"stage":   "approved",
		}); err != nil {
			return err
		}
		l.notify(observability.Notification{
			Event:   observability.EventTaskCompleted,
			Title:   "Task Completed",
			Message: fmt.Sprintf("Approved task %s has been executed.", task.Title),
			TaskID:  task.ID,
			Time:    l.now(),
		})
	}

	return nil
}

// checkDigest sends the daily digest once per day after the configured
// hour, using a marker file in the logs directory to survive restarts.
func (l *Loop) checkDigest() {
	now := l.now()
	if now.Hour() < l.config.DigestHour {
		return
	}

	marker := filepath.Join(l.store.BasePath(), vault.LogsDir, "digest_sent_"+now.Format("2006-01-02"))
	if _, err := os.Stat(marker); err == nil {
		return
	}

	if err := l.sendDigest(now); err != nil {
		l.logger.Warn("sending daily digest failed", "error", err)
		return
	}

	if err := os.WriteFile(marker, []byte(now.Format(time.RFC3339)), 0o644); err != nil {
		l.logger.Warn("writing digest marker failed", "error", err)
	}
}

func (l *Loop) sendDigest(now time.Time) error {
	counts, err := l.store.Counts()
	if err != nil {
		return fmt.Errorf("counting tasks for digest: %w", err)
	}

	doneTasks, _, err := l.store.List(models.StateDone)
	if err != nil {
		return fmt.Errorf("listing done tasks for digest: %w", err)
	}
	doneToday := 0
	for _, task := range doneTasks {
		if task.Modified.Format("2006-01-02") == now.Format("2006-01-02") {
			doneToday++
		}
	}

	pending := counts[models.StateNeedsAction]
	message := fmt.Sprintf(
		"Tasks completed today: %d\nPending items: %d\nAwaiting approval: %d",
		doneToday, pending, counts[models.StatePendingApproval],
	)

	l.notify(observability.Notification{
		Event:   observability.EventDigest,
		Title:   "Daily Digest",
		Message: message,
		Time:    now,
	})

	return l.audit.Append("orchestrator", observability.ActionDigestSent, map[string]string{
		"done_today": fmt.Sprintf("%d", doneToday),
		"pending":    fmt.Sprintf("%d", pending),
	})
}

// notify delivers a notification, logging and swallowing any failure.
func (l *Loop) notify(n observability.Notification) {
	if err := l.notifier.Notify(n); err != nil {
		l.logger.Warn("notification delivery failed", "event", n.Event, "error", err)
	}
}

// retryDelay grows linearly with the iteration number, capped at the
// configured maximum.
func (l *Loop) retryDelay(iteration int) time.Duration {
	delay := l.config.RetryDelay * time.Duration(iteration)
	if delay > l.config.BackoffCap {
		delay = l.config.BackoffCap
	}
	return delay
}

func backendNames(backends []ReasoningBackend) []string {
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	return names
}

// ctxSleep waits for the duration or until the context is cancelled.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
