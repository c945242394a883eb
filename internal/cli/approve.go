package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digital-fte/fte/internal/observability"
)

var rejectNote string

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a task waiting in Pending_Approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}

		id := args[0]
		if err := Store.Approve(id); err != nil {
			return err
		}

		if AuditLog != nil {
			_ = AuditLog.Append("human", observability.ActionApproved, map[string]string{
				"task_id": id,
			})
		}

		fmt.Printf("Approved task %s; it will be executed on the next sweep.\n", id)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a task waiting in Pending_Approval",
	Long: `Reject a task waiting in Pending_Approval. The rejection note is
appended to the task file and the task returns to Needs_Action for
rework; prior content is never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}
		if rejectNote == "" {
			return fmt.Errorf("a rejection note is required, pass it with --note")
		}

		id := args[0]
		if err := Store.Reject(id, rejectNote); err != nil {
			return err
		}

		if AuditLog != nil {
			_ = AuditLog.Append("human", observability.ActionRejected, map[string]string{
				"task_id": id,
				"note":    rejectNote,
			})
		}

		fmt.Printf("Rejected task %s; it is back in Needs_Action with your note.\n", id)
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVarP(&rejectNote, "note", "n", "", "reason for the rejection (required)")
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
}
