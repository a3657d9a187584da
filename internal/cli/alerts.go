package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
	"pricewatch/internal/store"
)

// addAlertCommands adds alert rule management commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage price alert rules",
		Long: `Create, list, and modify price alert rules.

An alert rule watches one symbol against a target price. 'above' rules fire
when the price reaches or exceeds the target, 'below' rules when it reaches
or drops under it.`,
	}

	alertCmd.AddCommand(newAlertAddCmd(app))
	alertCmd.AddCommand(newAlertListCmd(app))
	alertCmd.AddCommand(newAlertRemoveCmd(app))
	alertCmd.AddCommand(newAlertEnableCmd(app, true))
	alertCmd.AddCommand(newAlertEnableCmd(app, false))
	alertCmd.AddCommand(newAlertSetCmd(app))

	rootCmd.AddCommand(alertCmd)
}

func newAlertAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol> <target> <above|below>",
		Short: "Add a price alert rule",
		Long: `Add a price alert rule for a symbol.

Examples:
  pricewatch alert add AAPL 230 above
  pricewatch alert add BTC 45000 below`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			target, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid target price %q: %w", args[1], err)
			}

			direction, err := models.ParseDirection(args[2])
			if err != nil {
				return err
			}

			rule, err := models.NewAlertRule(args[0], target, direction)
			if err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			ctx := cmd.Context()

			// The symbol has to resolve to a live quote before the rule is
			// persisted; a rule on a dead symbol would silently never fire.
			quoteCtx, cancel := context.WithTimeout(ctx, app.Config.Monitor.QuoteTimeout)
			price, quoteErr := app.Provider.Quote(quoteCtx, rule.Symbol)
			cancel()
			if quoteErr != nil {
				if apperrors.Is(quoteErr, apperrors.ErrSymbolNotFound) {
					return fmt.Errorf("symbol %s not found, alert not added", rule.Symbol)
				}
				// Transient failure; add the rule anyway and say so.
				output.Warning("Could not verify symbol %s: %v", rule.Symbol, quoteErr)
			}

			if err := app.Store.Add(ctx, scope, rule); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(rule)
			}

			output.Success("✓ Alert added: %s %s $%.2f", rule.Symbol, rule.Direction, rule.Target)
			output.Dim("ID: %s", rule.ID)
			if quoteErr == nil {
				output.Printf("Current price: $%.2f\n", price)
				if rule.Crossed(price) {
					output.Warning("Note: this alert would fire at the current price")
				}
			}
			return nil
		},
	}
	return cmd
}

func newAlertListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			rules, err := app.Store.List(cmd.Context(), scope)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if rules == nil {
					rules = []models.AlertRule{}
				}
				return output.JSON(rules)
			}

			if len(rules) == 0 {
				output.Dim("No alerts configured. Add one with 'pricewatch alert add'.")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "CONDITION", "STATUS", "LAST FIRED")
			for _, rule := range rules {
				status := output.Green("enabled")
				if !rule.Enabled {
					status = output.DimText("disabled")
				}
				lastFired := "never"
				if rule.LastFiredAt != nil {
					lastFired = rule.LastFiredAt.Local().Format("2006-01-02 15:04")
				}
				condition := fmt.Sprintf("%s $%.2f", rule.Direction, rule.Target)
				table.AddRow(shortID(rule.ID), rule.Symbol, condition, status, lastFired)
			}
			table.Render()
			output.Println()
			output.Dim("%d alert(s) in scope %q", len(rules), scope)
			return nil
		},
	}
}

func newAlertRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove an alert rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			rule, err := app.findRule(cmd.Context(), scope, args[0])
			if err != nil {
				return err
			}

			if err := app.Store.Remove(cmd.Context(), scope, rule.ID); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": rule.ID})
			}
			output.Success("✓ Removed alert %s (%s %s $%.2f)", shortID(rule.ID), rule.Symbol, rule.Direction, rule.Target)
			return nil
		},
	}
}

func newAlertEnableCmd(app *App, enable bool) *cobra.Command {
	use := "enable <id>"
	short := "Enable an alert rule"
	if !enable {
		use = "disable <id>"
		short = "Disable an alert rule without deleting it"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			rule, err := app.findRule(cmd.Context(), scope, args[0])
			if err != nil {
				return err
			}

			enabled := enable
			patch := store.RulePatch{Enabled: &enabled}
			if err := app.Store.UpdateFields(cmd.Context(), scope, rule.ID, patch); err != nil {
				return err
			}

			verb := "enabled"
			if !enable {
				verb = "disabled"
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": rule.ID, "enabled": enable})
			}
			output.Success("✓ Alert %s %s", shortID(rule.ID), verb)
			return nil
		},
	}
}

func newAlertSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update fields of an alert rule",
		Long: `Update the target price or direction of an existing rule.

Only the flags you pass are changed; everything else, including the
cooldown state, is left untouched.

Examples:
  pricewatch alert set a1b2c3d4 --target 250
  pricewatch alert set a1b2c3d4 --direction below`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireStore(); err != nil {
				return err
			}

			scope := app.scopeFor(cmd)
			rule, err := app.findRule(cmd.Context(), scope, args[0])
			if err != nil {
				return err
			}

			var patch store.RulePatch

			if cmd.Flags().Changed("target") {
				target, _ := cmd.Flags().GetFloat64("target")
				if target <= 0 {
					return fmt.Errorf("target must be greater than zero")
				}
				patch.Target = &target
			}
			if cmd.Flags().Changed("direction") {
				raw, _ := cmd.Flags().GetString("direction")
				direction, err := models.ParseDirection(raw)
				if err != nil {
					return err
				}
				patch.Direction = &direction
			}

			if patch.IsZero() {
				return fmt.Errorf("nothing to update, pass --target and/or --direction")
			}

			if err := app.Store.UpdateFields(cmd.Context(), scope, rule.ID, patch); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"updated": rule.ID})
			}
			output.Success("✓ Alert %s updated", shortID(rule.ID))
			return nil
		},
	}
	cmd.Flags().Float64("target", 0, "new target price")
	cmd.Flags().String("direction", "", "new direction (above or below)")
	return cmd
}

// findRule resolves a rule by full ID or unique prefix.
func (app *App) findRule(ctx context.Context, scope, idOrPrefix string) (models.AlertRule, error) {
	rules, err := app.Store.List(ctx, scope)
	if err != nil {
		return models.AlertRule{}, err
	}

	var matches []models.AlertRule
	for _, rule := range rules {
		if rule.ID == idOrPrefix {
			return rule, nil
		}
		if strings.HasPrefix(rule.ID, idOrPrefix) {
			matches = append(matches, rule)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.AlertRule{}, fmt.Errorf("no alert found with id %q", idOrPrefix)
	default:
		return models.AlertRule{}, fmt.Errorf("id prefix %q matches %d alerts, be more specific", idOrPrefix, len(matches))
	}
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatAge renders a duration since a timestamp in compact form.
func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
