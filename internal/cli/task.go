package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digital-fte/fte/internal/observability"
	"github.com/digital-fte/fte/pkg/models"
)

var (
	taskAddPriority string
	taskAddBody     string
	taskListState   string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage vault tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a new task in Needs_Action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}

		priority := models.Priority(taskAddPriority)
		if !models.ValidPriority(priority) {
			return fmt.Errorf("invalid priority %q, must be one of: low, medium, high, urgent", taskAddPriority)
		}

		task, err := Store.Create(args[0], taskAddBody, priority, "manual")
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		if AuditLog != nil {
			_ = AuditLog.Append("cli", observability.ActionTaskCreated, map[string]string{
				"task_id": task.ID,
				"source":  task.Source,
			})
		}

		fmt.Printf("Created task %s in %s/\n", task.ID, task.State.Folder())
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}

		states := models.AllStates()
		if taskListState != "" {
			state := models.TaskState(taskListState)
			found := false
			for _, s := range states {
				if s == state {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("invalid state %q, must be one of: needs_action, pending_approval, approved, done", taskListState)
			}
			states = []models.TaskState{state}
		}

		total := 0
		for _, state := range states {
			tasks, skipped, err := Store.List(state)
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}
			if len(tasks) == 0 && skipped == 0 {
				continue
			}

			fmt.Printf("%s:\n", state.Folder())
			for _, task := range tasks {
				fmt.Printf("  %-40s %-8s %s\n", task.ID, task.Priority, task.Title)
				total++
			}
			if skipped > 0 {
				fmt.Printf("  (%d malformed file(s) skipped)\n", skipped)
			}
		}

		if total == 0 {
			fmt.Println("No tasks found.")
		}
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task's metadata and body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}

		task, err := Store.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:       %s\n", task.ID)
		fmt.Printf("Title:    %s\n", task.Title)
		fmt.Printf("State:    %s\n", task.State)
		fmt.Printf("Priority: %s\n", task.Priority)
		fmt.Printf("Source:   %s\n", task.Source)
		fmt.Printf("Created:  %s\n", task.Created.Format("2006-01-02 15:04:05"))
		fmt.Printf("Modified: %s\n", task.Modified.Format("2006-01-02 15:04:05"))
		if task.Body != "" {
			fmt.Printf("\n%s\n", task.Body)
		}
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskAddPriority, "priority", "p", "medium", "task priority (low, medium, high, urgent)")
	taskAddCmd.Flags().StringVarP(&taskAddBody, "body", "b", "", "task body content")
	taskListCmd.Flags().StringVarP(&taskListState, "state", "s", "", "filter by state (needs_action, pending_approval, approved, done)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	rootCmd.AddCommand(taskCmd)
}
