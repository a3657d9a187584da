package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pricewatch/internal/models"
	"pricewatch/internal/monitor"
)

// addWatchCommands adds monitoring and quote commands.
func addWatchCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newCheckCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

// newEvaluator builds an evaluator from the app's configuration.
func (app *App) newEvaluator() *monitor.Evaluator {
	return monitor.NewEvaluator(app.Store, app.Provider,
		monitor.WithCooldownWindow(app.Config.Monitor.CooldownWindow),
		monitor.WithQuoteTimeout(app.Config.Monitor.QuoteTimeout),
		monitor.WithLogger(app.Logger),
	)
}

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch prices and fire alerts continuously",
		Long: `Run the alert monitor in the foreground.

All enabled alerts are checked immediately and then on every interval.
A fired alert enters its cooldown window and will not fire again until
the window expires. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			interval := app.Config.Monitor.Interval
			if cmd.Flags().Changed("interval") {
				interval, _ = cmd.Flags().GetDuration("interval")
			}

			m := monitor.NewMonitor(scope, app.Store, app.newEvaluator(), app.Notifier,
				monitor.WithInterval(interval),
				monitor.WithHistory(app.History),
				monitor.WithMonitorLogger(app.Logger),
			)

			output.Info("Watching alerts in scope %q every %s (Ctrl-C to stop)", scope, m.Interval())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := m.Run(ctx)
			if ctx.Err() != nil {
				output.Println()
				output.Dim("Monitor stopped.")
				return nil
			}
			return err
		},
	}
	cmd.Flags().Duration("interval", 0, "check interval (default: from config)")
	return cmd
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single alert check pass",
		Long: `Check all enabled alerts once and dispatch any firings.

Useful from cron or for verifying alert configuration without running
the continuous watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			m := monitor.NewMonitor(scope, app.Store, app.newEvaluator(), app.Notifier,
				monitor.WithHistory(app.History),
				monitor.WithMonitorLogger(app.Logger),
			)

			firings, err := m.Tick(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if firings == nil {
					firings = []models.Firing{}
				}
				return output.JSON(firings)
			}

			if len(firings) == 0 {
				output.Dim("No alerts fired.")
				return nil
			}
			for _, f := range firings {
				output.Success("✓ %s is $%.2f (%s $%.2f)", f.Symbol, f.Price, f.Direction, f.Target)
			}
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent alert firings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.History == nil {
				return fmt.Errorf("alert history is unavailable, check storage configuration")
			}

			scope := app.scopeFor(cmd)
			limit, _ := cmd.Flags().GetInt("limit")

			firings, err := app.History.ListFirings(cmd.Context(), scope, limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if firings == nil {
					firings = []models.Firing{}
				}
				return output.JSON(firings)
			}

			if len(firings) == 0 {
				output.Dim("No alerts have fired yet.")
				return nil
			}

			table := NewTable(output, "WHEN", "SYMBOL", "PRICE", "CONDITION")
			for _, f := range firings {
				condition := fmt.Sprintf("%s $%.2f", f.Direction, f.Target)
				table.AddRow(formatAge(f.ObservedAt), f.Symbol, fmt.Sprintf("$%.2f", f.Price), condition)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of firings to show")
	return cmd
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol> [symbol...]",
		Short: "Fetch current prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			type quoteResult struct {
				Symbol string  `json:"symbol"`
				Price  float64 `json:"price,omitempty"`
				Error  string  `json:"error,omitempty"`
			}

			var results []quoteResult
			for _, symbol := range args {
				ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.Monitor.QuoteTimeout)
				price, err := app.Provider.Quote(ctx, symbol)
				cancel()

				r := quoteResult{Symbol: symbol}
				if err != nil {
					r.Error = err.Error()
				} else {
					r.Price = price
				}
				results = append(results, r)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}

			for _, r := range results {
				if r.Error != "" {
					output.Error("%-8s unavailable (%s)", r.Symbol, r.Error)
				} else {
					output.Printf("%-8s $%.2f\n", r.Symbol, r.Price)
				}
			}
			return nil
		},
	}
}
