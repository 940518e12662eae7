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
	"github.com/kilianp07/busalloc/infra/logger"
)

var replayCmd = &cobra.Command{
	Use:   "replay [run-id]",
	Short: "Recompute KPIs from a persisted event log",
	Long: "Recompute the KPI summary of a past run from its stored event log. " +
		"Without a run ID, lists the stored runs.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
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
	logg := logger.New("replay-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	if len(args) == 0 {
		runs, err := svc.Runs(ctx)
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	summary, err := svc.Replay(ctx, args[0])
	if err != nil {
		return err
	}
	rendered, err := app.MarshalSummary(summary)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}
