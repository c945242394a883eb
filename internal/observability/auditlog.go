package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Audit actions recorded by the system.
const (
	ActionTaskCreated       = "task_created"
	ActionDecisionMade      = "decision_made"
	ActionAgentInvoked      = "agent_invoked"
	ActionAgentFailed       = "agent_failed"
	ActionTaskCompleted     = "task_completed"
	ActionApprovalRequested = "approval_requested"
	ActionApproved          = "approved"
	ActionRejected          = "rejected"
	ActionSLAWarning        = "sla_warning"
	ActionEscalated         = "escalated"
	ActionDigestSent        = "digest_sent"
)

// AuditRecord is a single append-only audit entry.
type AuditRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditFilter specifies criteria for reading audit records.
type AuditFilter struct {
	Since  *time.Time
	Until  *time.Time
	Action string
	TaskID string
}

// AuditLog defines the interface for the append-only audit trail. Records
// are partitioned into one JSONL file per UTC day.
type AuditLog interface {
	Append(actor, action string, details map[string]string) error
	Read(filter AuditFilter) ([]AuditRecord, error)
}

// jsonlAuditLog implements AuditLog using date-partitioned JSONL files
// under a logs directory.
type jsonlAuditLog struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewAuditLog creates an AuditLog writing to the given directory.
func NewAuditLog(dir string) (AuditLog, error) {
	return NewAuditLogAt(dir, time.Now)
}

// NewAuditLogAt creates an AuditLog with an injected clock. Used by tests
// that assert on partition file names.
func NewAuditLogAt(dir string, now func() time.Time) (AuditLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	return &jsonlAuditLog{dir: dir, now: now}, nil
}

// Append writes a JSON-encoded record followed by a newline to the current
// day's partition file.
func (l *jsonlAuditLog) Append(actor, action string, details map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := AuditRecord{
		Timestamp: l.now().UTC(),
		Actor:     actor,
		Action:    action,
		Details:   details,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling audit record: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(l.dir, record.Timestamp.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log partition: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	return nil
}

// Read scans every partition file in date order, decodes each record, and
// returns those matching the filter. Malformed lines are skipped.
func (l *jsonlAuditLog) Read(filter AuditFilter) ([]AuditRecord, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading audit log directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	var records []AuditRecord
	for _, name := range files {
		fileRecords, err := l.readPartition(filepath.Join(l.dir, name), filter)
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}

	return records, nil
}

func (l *jsonlAuditLog) readPartition(path string, filter AuditFilter) ([]AuditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log partition for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []AuditRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue // skip malformed lines
		}

		if matchesAuditFilter(record, filter) {
			records = append(records, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log partition: %w", err)
	}

	return records, nil
}

// matchesAuditFilter checks whether a record satisfies all filter criteria.
func matchesAuditFilter(record AuditRecord, filter AuditFilter) bool {
	if filter.Since != nil && record.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && record.Timestamp.After(*filter.Until) {
		return false
	}
	if filter.Action != "" && record.Action != filter.Action {
		return false
	}
	if filter.TaskID != "" && record.Details["task_id"] != filter.TaskID {
		return false
	}
	return true
}
