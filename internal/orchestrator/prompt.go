package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/digital-fte/fte/pkg/models"
)

// handbookFile is the vault file holding the company rules injected into
// every agent prompt.
const handbookFile = "Company_Handbook.md"

// maxHandbookChars caps how much of the handbook is injected into a
// prompt.
const maxHandbookChars = 3000

// PromptBuilder renders agent prompts from tasks and the company handbook.
type PromptBuilder interface {
	// TaskPrompt builds the full processing prompt for a Needs_Action
	// task.
	TaskPrompt(task models.Task) string
	// ApprovedPrompt builds the execution prompt for a human-approved
	// task.
	ApprovedPrompt(task models.Task) string
}

type promptBuilder struct {
	basePath string
}

// NewPromptBuilder creates a PromptBuilder reading the handbook from the
// vault at basePath.
func NewPromptBuilder(basePath string) PromptBuilder {
	return &promptBuilder{basePath: basePath}
}

// handbook loads the company handbook, returning an empty string when the
// file is absent. A missing handbook degrades the prompt, it never blocks
// processing.
func (p *promptBuilder) handbook() string {
	data, err := os.ReadFile(filepath.Join(p.basePath, handbookFile))
	if err != nil {
		return ""
	}
	text := string(data)
	if len(text) > maxHandbookChars {
		text = text[:maxHandbookChars]
	}
	return text
}

func (p *promptBuilder) TaskPrompt(task models.Task) string {
	var b strings.Builder

	b.WriteString("You are the digital employee assistant. Process the following task according to the Company Handbook rules.\n\n")
	b.WriteString("## Company Handbook (Rules & Guidelines)\n")
	b.WriteString(p.handbook())
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Current Task\n")
	fmt.Fprintf(&b, "**ID:** %s\n", task.ID)
	fmt.Fprintf(&b, "**Title:** %s\n", task.Title)
	fmt.Fprintf(&b, "**Priority:** %s\n\n", task.Priority)
	b.WriteString(task.Body)
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Instructions\n")
	b.WriteString("1. Analyze this task thoroughly\n")
	b.WriteString("2. Determine the appropriate action based on the handbook\n")
	fmt.Fprintf(&b, "3. If the action requires human approval (per handbook rules), move the task file to %s/\n", models.StatePendingApproval.Folder())
	fmt.Fprintf(&b, "4. If auto-approved, execute the action and move the file to %s/\n", models.StateDone.Folder())
	b.WriteString("5. Log all decisions and actions\n\n")
	b.WriteString("## Output\n")
	b.WriteString("Provide a clear summary of:\n")
	b.WriteString("- What you analyzed\n")
	b.WriteString("- What decision you made\n")
	b.WriteString("- What action you took\n")
	b.WriteString("- Where the file was moved\n\n")
	b.WriteString("Remember: Follow the handbook rules strictly. When in doubt, request human approval.\n")

	return b.String()
}

func (p *promptBuilder) ApprovedPrompt(task models.Task) string {
	var b strings.Builder

	b.WriteString("Execute this pre-approved task. The human has approved this action.\n\n")
	fmt.Fprintf(&b, "Task ID: %s\n", task.ID)
	fmt.Fprintf(&b, "Title: %s\n\n", task.Title)
	b.WriteString(task.Body)
	fmt.Fprintf(&b, "\n\nExecute the approved action and move the file to %s/ when complete.\n", models.StateDone.Folder())

	return b.String()
}
