package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/digital-fte/fte/internal/orchestrator"
)

var (
	runOnce          bool
	runDryRun        bool
	runMaxIterations int
	runPollInterval  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestration loop",
	Long: `Run the orchestration loop: sweep the vault for actionable tasks,
drive the configured reasoning agents over each one, execute approved
tasks, and raise SLA warnings for anything left waiting too long.

With --once a single sweep is performed and the command exits. With
--dry-run the loop logs what it would do without invoking any agent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil || AuditLog == nil {
			return fmt.Errorf("services not initialized")
		}

		cfg := LoopConfig
		if cmd.Flags().Changed("max-iterations") {
			cfg.MaxIterations = runMaxIterations
		}
		if cmd.Flags().Changed("poll-interval") {
			cfg.PollInterval = runPollInterval
		}

		loop, err := orchestrator.NewLoop(orchestrator.LoopOptions{
			Store:    Store,
			Audit:    AuditLog,
			Notifier: Notifier,
			Backends: Backends,
			Config:   cfg,
			DryRun:   runDryRun,
			Logger:   Logger,
		})
		if err != nil {
			return fmt.Errorf("building loop: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runOnce {
			return loop.RunOnce(ctx)
		}

		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "process tasks once and exit")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log intended actions without invoking agents")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 10, "maximum agent iterations per task")
	runCmd.Flags().DurationVar(&runPollInterval, "poll-interval", 30*time.Second, "time between sweeps")
	rootCmd.AddCommand(runCmd)
}
