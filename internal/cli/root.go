// Package cli implements the fte command surface. Commands read their
// service dependencies from package-level variables wired by the app
// initializer.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "fte",
	Short: "Digital FTE - an autonomous digital employee for personal automation",
	Long: `Digital FTE (fte) runs a personal automation employee: it watches a
vault of task files, decides per task whether to execute directly, plan
first, or ask for clarification, drives external reasoning agents over
each task, and keeps an auditable trail of everything it does.

Tasks are markdown files; their folder is their state. Humans approve or
reject anything the policy flags, and the loop handles the rest.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fte %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
