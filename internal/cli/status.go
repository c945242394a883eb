package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/digital-fte/fte/pkg/models"
)

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	stateNeedsActionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statePendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	stateApprovedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	stateDoneStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of the vault and recent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("services not initialized")
		}

		counts, err := Store.Counts()
		if err != nil {
			return fmt.Errorf("counting tasks: %w", err)
		}

		fmt.Println(statusHeaderStyle.Render("Vault"))
		total := 0
		for _, state := range models.AllStates() {
			count := counts[state]
			total += count
			label := fmt.Sprintf("  %-18s %d", state.Folder(), count)
			fmt.Println(styleForState(state).Render(label))
		}
		fmt.Printf("  %-18s %d\n", "Total", total)

		if MetricsCalc != nil {
			since := time.Now().UTC().AddDate(0, 0, -7)
			metrics, err := MetricsCalc.Calculate(since)
			if err == nil {
				fmt.Println()
				fmt.Println(statusHeaderStyle.Render("Last 7 days"))
				fmt.Printf("  %-18s %d\n", "Created", metrics.TasksCreated)
				fmt.Printf("  %-18s %d\n", "Completed", metrics.TasksCompleted)
				fmt.Printf("  %-18s %d\n", "Agent failures", metrics.AgentFailures)
				fmt.Printf("  %-18s %d\n", "SLA warnings", metrics.SLAWarnings)
				fmt.Printf("  %-18s %d\n", "Escalations", metrics.Escalations)
			}
		}

		if AlertEngine != nil {
			alerts, err := AlertEngine.Evaluate()
			if err == nil && len(alerts) > 0 {
				fmt.Println()
				fmt.Println(statusHeaderStyle.Render("Alerts"))
				for _, alert := range alerts {
					fmt.Printf("  [%s] %s\n", strings.ToUpper(string(alert.Severity)), alert.Message)
				}
			}
		}

		return nil
	},
}

func styleForState(state models.TaskState) lipgloss.Style {
	switch state {
	case models.StateNeedsAction:
		return stateNeedsActionStyle
	case models.StatePendingApproval:
		return statePendingStyle
	case models.StateApproved:
		return stateApprovedStyle
	case models.StateDone:
		return stateDoneStyle
	default:
		return lipgloss.NewStyle()
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
