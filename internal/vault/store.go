// Package vault implements the folder-as-state task store. A task is a
// markdown file with YAML frontmatter, and the folder it sits in is the
// authoritative lifecycle state: moving the file is the state transition.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/digital-fte/fte/pkg/models"
	"gopkg.in/yaml.v3"
)

// LogsDir is the vault subdirectory holding audit log files.
const LogsDir = "Logs"

// Store manages the lifecycle of task files in a vault directory.
type Store interface {
	// Create writes a new task file into Needs_Action and returns it.
	Create(title, body string, priority models.Priority, source string) (*models.Task, error)
	// Get finds a task by ID in any state folder.
	Get(id string) (*models.Task, error)
	// List returns the tasks in a state folder ordered oldest mtime first,
	// plus the number of malformed files it skipped.
	List(state models.TaskState) ([]models.Task, int, error)
	// Move transitions a task between states with a single atomic rename
	// and refreshes the file mtime.
	Move(id string, from, to models.TaskState) error
	// Approve moves a task from Pending_Approval to Approved.
	Approve(id string) error
	// Reject appends a rejection note to the task body and moves it from
	// Pending_Approval back to Needs_Action. Prior content is never
	// replaced.
	Reject(id, note string) error
	// Counts returns the number of tasks per state.
	Counts() (map[models.TaskState]int, error)
	// BasePath returns the vault root directory.
	BasePath() string
}

type fileStore struct {
	basePath string
	now      func() time.Time
}

// NewStore creates a Store rooted at basePath and ensures the state
// folders and Logs directory exist.
func NewStore(basePath string) (Store, error) {
	return NewStoreAt(basePath, time.Now)
}

// NewStoreAt creates a Store with an injected clock. Used by tests that
// assert on generated IDs and timestamps.
func NewStoreAt(basePath string, now func() time.Time) (Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("creating vault store: base path is empty")
	}

	for _, state := range models.AllStates() {
		dir := filepath.Join(basePath, state.Folder())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating vault directory %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(basePath, LogsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating vault logs directory: %w", err)
	}

	return &fileStore{basePath: basePath, now: now}, nil
}

func (s *fileStore) BasePath() string {
	return s.basePath
}

// taskFrontmatter is the YAML frontmatter structure for task files.
type taskFrontmatter struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Priority string `yaml:"priority"`
	Source   string `yaml:"source,omitempty"`
	Created  string `yaml:"created"`
}

func (s *fileStore) Create(title, body string, priority models.Priority, source string) (*models.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("creating task: title is empty")
	}
	if !models.ValidPriority(priority) {
		priority = models.PriorityMedium
	}
	if source == "" {
		source = "manual"
	}

	created := s.now()
	id := s.uniqueID(created, source)

	task := &models.Task{
		ID:       id,
		Title:    strings.TrimSpace(title),
		Priority: priority,
		Source:   source,
		Created:  created,
		Body:     body,
		State:    models.StateNeedsAction,
		Modified: created,
	}

	content, err := renderTask(task)
	if err != nil {
		return nil, fmt.Errorf("rendering task file: %w", err)
	}

	path := s.taskPath(models.StateNeedsAction, id)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing task file: %w", err)
	}

	return task, nil
}

func (s *fileStore) Get(id string) (*models.Task, error) {
	for _, state := range models.AllStates() {
		path := s.taskPath(state, id)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		task, err := s.readTask(path, state)
		if err != nil {
			return nil, err
		}
		return task, nil
	}
	return nil, fmt.Errorf("task %q not found", id)
}

func (s *fileStore) List(state models.TaskState) ([]models.Task, int, error) {
	dir := filepath.Join(s.basePath, state.Folder())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("reading vault directory %s: %w", dir, err)
	}

	var tasks []models.Task
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		task, err := s.readTask(filepath.Join(dir, entry.Name()), state)
		if err != nil {
			// Malformed files never block a sweep.
			skipped++
			continue
		}
		tasks = append(tasks, *task)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Modified.Before(tasks[j].Modified)
	})

	return tasks, skipped, nil
}

func (s *fileStore) Move(id string, from, to models.TaskState) error {
	fromPath := s.taskPath(from, id)
	toPath := s.taskPath(to, id)

	if _, err := os.Stat(fromPath); err != nil {
		return fmt.Errorf("moving task %s: not in %s: %w", id, from.Folder(), err)
	}
	if err := os.Rename(fromPath, toPath); err != nil {
		return fmt.Errorf("moving task %s to %s: %w", id, to.Folder(), err)
	}

	// Refresh mtime so SLA aging restarts from the transition.
	now := s.now()
	if err := os.Chtimes(toPath, now, now); err != nil {
		return fmt.Errorf("refreshing mtime for task %s: %w", id, err)
	}

	return nil
}

func (s *fileStore) Approve(id string) error {
	return s.Move(id, models.StatePendingApproval, models.StateApproved)
}

func (s *fileStore) Reject(id, note string) error {
	path := s.taskPath(models.StatePendingApproval, id)
	task, err := s.readTask(path, models.StatePendingApproval)
	if err != nil {
		return fmt.Errorf("rejecting task %s: %w", id, err)
	}

	task.Body = strings.TrimRight(task.Body, "\n") +
		fmt.Sprintf("\n\n## Rejected (%s)\n\n%s\n", s.now().UTC().Format("2006-01-02 15:04"), note)

	content, err := renderTask(task)
	if err != nil {
		return fmt.Errorf("rejecting task %s: %w", id, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("rejecting task %s: %w", id, err)
	}

	return s.Move(id, models.StatePendingApproval, models.StateNeedsAction)
}

func (s *fileStore) Counts() (map[models.TaskState]int, error) {
	counts := make(map[models.TaskState]int, len(models.AllStates()))
	for _, state := range models.AllStates() {
		tasks, _, err := s.List(state)
		if err != nil {
			return nil, err
		}
		counts[state] = len(tasks)
	}
	return counts, nil
}

func (s *fileStore) taskPath(state models.TaskState, id string) string {
	return filepath.Join(s.basePath, state.Folder(), id+".md")
}

// uniqueID builds a task ID from the creation timestamp and a source slug,
// appending a numeric suffix on collision.
func (s *fileStore) uniqueID(created time.Time, source string) string {
	base := created.Format("20060102-150405") + "-" + slugify(source)
	id := base
	for n := 2; s.idExists(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (s *fileStore) idExists(id string) bool {
	for _, state := range models.AllStates() {
		if _, err := os.Stat(s.taskPath(state, id)); err == nil {
			return true
		}
	}
	return false
}

func (s *fileStore) readTask(path string, state models.TaskState) (*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stating task file %s: %w", path, err)
	}

	fm, body, err := parseFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing task file %s: %w", path, err)
	}

	created, err := time.Parse(time.RFC3339, fm.Created)
	if err != nil {
		created = info.ModTime()
	}

	task := &models.Task{
		ID:       fm.ID,
		Title:    fm.Title,
		Priority: models.Priority(fm.Priority),
		Source:   fm.Source,
		Created:  created,
		Body:     body,
		State:    state,
		Modified: info.ModTime(),
	}
	if task.ID == "" {
		task.ID = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	if !models.ValidPriority(task.Priority) {
		task.Priority = models.PriorityMedium
	}

	return task, nil
}

// renderTask produces the markdown file content for a task.
func renderTask(task *models.Task) (string, error) {
	fm := taskFrontmatter{
		ID:       task.ID,
		Title:    task.Title,
		Priority: string(task.Priority),
		Source:   task.Source,
		Created:  task.Created.UTC().Format(time.RFC3339),
	}

	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fmBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(task.Body)
	if !strings.HasSuffix(task.Body, "\n") {
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// parseFrontmatter splits a task file into its YAML frontmatter and body.
// The frontmatter is delimited by "---" lines.
func parseFrontmatter(content string) (taskFrontmatter, string, error) {
	var fm taskFrontmatter

	if !strings.HasPrefix(content, "---\n") {
		return fm, content, fmt.Errorf("no frontmatter delimiter found")
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n---") {
			idx = len(rest) - 4
		} else {
			return fm, content, fmt.Errorf("no closing frontmatter delimiter found")
		}
	}

	fmStr := rest[:idx]
	body := strings.TrimLeft(rest[idx+4:], "\n")

	if err := yaml.Unmarshal([]byte(fmStr), &fm); err != nil {
		return fm, body, fmt.Errorf("unmarshaling frontmatter: %w", err)
	}

	return fm, body, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s and collapses runs of non-alphanumerics to single
// hyphens.
func slugify(s string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "task"
	}
	return slug
}
