package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/busalloc/app"
	"github.com/kilianp07/busalloc/config"
	"github.com/kilianp07/busalloc/core/optimize"
	"github.com/kilianp07/busalloc/infra/logger"
	"github.com/kilianp07/busalloc/internal/eventbus"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: optimize, simulate, persist and aggregate",
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("run-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	progress := svc.Bus().Subscribe()
	go func() {
		for ev := range progress {
			if st, ok := ev.(eventbus.StageEvent); ok && st.Done && st.Err == nil {
				logg.Infof("stage %s finished", st.Stage)
			}
		}
	}()

	out, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if out.Result.Status == optimize.StatusInfeasible {
		return out.Result.Infeasible
	}

	summary, err := app.MarshalSummary(out.Summary)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n%s\n", out.RunID, out.Result.Status, summary)
	return nil
}
