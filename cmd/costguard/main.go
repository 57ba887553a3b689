package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"costguard/internal/app"
	"costguard/internal/budget"
)

const shutdownTimeout = 15 * time.Second

var (
	cfgPath string
	dryRun  bool
)

func main() {
	root := &cobra.Command{
		Use:           "costguard",
		Short:         "Tag-driven AWS resource scheduler and cost guard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./costguard.yaml", "path to config file (yaml or json)")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "evaluate and report without touching resources")

	root.AddCommand(runCmd(), sweepCmd(), budgetCmd(), lifecycleCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() (*app.App, error) {
	a, err := app.New(cfgPath)
	if err != nil {
		return nil, err
	}
	if dryRun {
		a.SetDryRun(true)
	}
	return a, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon: periodic sweeps, config watch, metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				_ = a.Stop(context.Background())
				return err
			}

			<-a.Done()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := a.Stop(stopCtx); err != nil {
				return err
			}
			return a.Err()
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			sum := a.SweepOnce(ctx)
			printJSON(sum)
			if len(sum.Errors) > 0 {
				return fmt.Errorf("sweep finished with %d error(s)", len(sum.Errors))
			}
			return nil
		},
	}
}

func budgetCmd() *cobra.Command {
	var (
		name string
		pct  float64
		typ  string
	)
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Process one budget alert (warn / stop non-essential / stop all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			out, err := a.ProcessBudgetAlert(ctx, budget.Alert{
				BudgetName:   name,
				AlertType:    typ,
				ThresholdPct: pct,
			})
			if err != nil {
				return err
			}
			printJSON(out)
			if len(out.Errors) > 0 {
				return fmt.Errorf("budget handling finished with %d error(s)", len(out.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "budget name from the alert")
	cmd.Flags().Float64Var(&pct, "pct", 0, "threshold percentage reached (e.g. 80)")
	cmd.Flags().StringVar(&typ, "type", "ACTUAL", "alert type (ACTUAL or FORECASTED)")
	_ = cmd.MarkFlagRequired("pct")
	return cmd
}

func lifecycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lifecycle",
		Short: "Run one S3 lifecycle optimization pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			rep, err := a.OptimizeLifecycle(ctx)
			if err != nil {
				return err
			}
			printJSON(rep)
			if len(rep.Errors) > 0 {
				return fmt.Errorf("lifecycle pass finished with %d error(s)", len(rep.Errors))
			}
			return nil
		},
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(b))
}
