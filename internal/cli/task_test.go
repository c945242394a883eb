package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/internal/vault"
	"github.com/digital-fte/fte/pkg/models"
)

// withTestServices wires a temporary store and audit log into the package
// vars, restoring the originals on cleanup.
func withTestServices(t *testing.T) (vault.Store, observability.AuditLog) {
	t.Helper()

	base := t.TempDir()
	store, err := vault.NewStore(base)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	audit, err := observability.NewAuditLog(filepath.Join(base, vault.LogsDir))
	if err != nil {
		t.Fatalf("creating audit log: %v", err)
	}

	origStore, origAudit, origBase := Store, AuditLog, BasePath
	Store, AuditLog, BasePath = store, audit, base
	t.Cleanup(func() {
		Store, AuditLog, BasePath = origStore, origAudit, origBase
	})

	return store, audit
}

func TestTaskAddCmd_NilStore(t *testing.T) {
	orig := Store
	defer func() { Store = orig }()
	Store = nil

	err := taskAddCmd.RunE(taskAddCmd, []string{"Some task"})
	if err == nil {
		t.Fatal("expected error when Store is nil")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTaskAddCmd_CreatesTaskAndAudits(t *testing.T) {
	store, audit := withTestServices(t)

	taskAddPriority = "high"
	taskAddBody = "Check the invoices."
	defer func() { taskAddPriority, taskAddBody = "medium", "" }()

	if err := taskAddCmd.RunE(taskAddCmd, []string{"Review invoices"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tasks, _, err := store.List(models.StateNeedsAction)
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "Review invoices" || tasks[0].Priority != models.PriorityHigh {
		t.Errorf("unexpected task: %+v", tasks[0])
	}

	records, err := audit.Read(observability.AuditFilter{Action: observability.ActionTaskCreated})
	if err != nil {
		t.Fatalf("reading audit: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 task_created record, got %d", len(records))
	}
}

func TestTaskAddCmd_InvalidPriority(t *testing.T) {
	withTestServices(t)

	taskAddPriority = "critical"
	defer func() { taskAddPriority = "medium" }()

	err := taskAddCmd.RunE(taskAddCmd, []string{"Some task"})
	if err == nil {
		t.Fatal("expected error for invalid priority")
	}
	if !strings.Contains(err.Error(), "invalid priority") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTaskListCmd_InvalidState(t *testing.T) {
	withTestServices(t)

	taskListState = "limbo"
	defer func() { taskListState = "" }()

	err := taskListCmd.RunE(taskListCmd, nil)
	if err == nil {
		t.Fatal("expected error for invalid state")
	}
	if !strings.Contains(err.Error(), "invalid state") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTaskListCmd_FilterByState(t *testing.T) {
	store, _ := withTestServices(t)

	task, err := store.Create("In progress", "body", models.PriorityMedium, "manual")
	if err != nil {
		t.Fatalf("creating task: %v", err)
	}
	if err := store.Move(task.ID, models.StateNeedsAction, models.StateDone); err != nil {
		t.Fatalf("moving task: %v", err)
	}

	taskListState = "done"
	defer func() { taskListState = "" }()

	if err := taskListCmd.RunE(taskListCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskShowCmd_MissingTask(t *testing.T) {
	withTestServices(t)

	if err := taskShowCmd.RunE(taskShowCmd, []string{"nope"}); err == nil {
		t.Fatal("expected error for missing task")
	}
}
