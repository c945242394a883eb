package models

import "time"

// TaskState represents the current lifecycle state of a task. State is
// encoded as vault folder membership: a task lives in exactly one state
// folder at any time.
type TaskState string

const (
	StateNeedsAction     TaskState = "needs_action"
	StatePendingApproval TaskState = "pending_approval"
	StateApproved        TaskState = "approved"
	StateDone            TaskState = "done"
)

// Folder returns the vault directory name for the state.
func (s TaskState) Folder() string {
	switch s {
	case StateNeedsAction:
		return "Needs_Action"
	case StatePendingApproval:
		return "Pending_Approval"
	case StateApproved:
		return "Approved"
	case StateDone:
		return "Done"
	default:
		return string(s)
	}
}

// Terminal reports whether the state is a terminal state.
func (s TaskState) Terminal() bool {
	return s == StateDone
}

// AllStates lists every task state in lifecycle order.
func AllStates() []TaskState {
	return []TaskState{StateNeedsAction, StatePendingApproval, StateApproved, StateDone}
}

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is the unit of work the orchestration loop manages. It is persisted
// as a markdown file with a YAML frontmatter header; the file's vault folder
// is the authoritative state.
type Task struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Priority Priority  `yaml:"priority"`
	Source   string    `yaml:"source"`
	Created  time.Time `yaml:"created"`

	// Body is the markdown content below the frontmatter. Annotations
	// (e.g. rejection notes) are appended, never replacing prior content.
	Body string `yaml:"-"`

	// State mirrors the folder the task file was read from.
	State TaskState `yaml:"-"`

	// Modified is the file mtime at read time; SLA aging is measured
	// against it and it is refreshed on every state move.
	Modified time.Time `yaml:"-"`
}
