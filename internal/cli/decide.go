package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digital-fte/fte/internal/intelligence"
	"github.com/digital-fte/fte/internal/observability"
)

var decideCmd = &cobra.Command{
	Use:   "decide <request>",
	Short: "Analyze a request and explain the decided approach",
	Long: `Run the decision stack over a free-text request and print the full
verdict: detected domain and entities, complexity and risk scores, the
chosen approach, and the recommended next steps. No task is created and
no agent is invoked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Engine == nil {
			return fmt.Errorf("services not initialized")
		}

		decision := Engine.Decide(args[0])
		fmt.Print(intelligence.FormatDecision(decision))

		if AuditLog != nil {
			_ = AuditLog.Append("cli", observability.ActionDecisionMade, map[string]string{
				"request":  args[0],
				"approach": string(decision.Approach),
			})
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)
}
