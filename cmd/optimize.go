package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/busalloc/app"
	"github.com/kilianp07/busalloc/config"
	"github.com/kilianp07/busalloc/core/optimize"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Solve the allocation and print the plan without simulating",
	RunE:  runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
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
	defer func() { _ = svc.Close() }()

	out, err := svc.Plan(ctx)
	if err != nil {
		return err
	}
	if out.Result.Status == optimize.StatusInfeasible {
		return out.Result.Infeasible
	}

	b, err := json.MarshalIndent(out.Result.Plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n%s\n", out.RunID, out.Result.Status, b)
	return nil
}
