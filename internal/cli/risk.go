package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"papertrade/internal/models"
)

func addRiskCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newModeCmd(app))
	rootCmd.AddCommand(newRiskCmd(app))
}

func newModeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [paper|live]",
		Short:     "Show or switch the trading mode",
		Long:      "Without an argument, print the current mode. In live mode orders are routed to the venue.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"paper", "live"},
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			if len(args) == 0 {
				mode := app.Engine.Mode()
				if output.IsJSON() {
					return output.JSON(map[string]string{"mode": string(mode)})
				}
				output.Printf("Trading mode: %s\n", output.BoldText(string(mode)))
				return nil
			}

			res, err := app.Engine.SetTradingMode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			if res.Mode == models.TradingModeLive && res.Changed {
				output.Warning("%s", res.Message)
			} else {
				output.Success("%s", res.Message)
			}
			return nil
		}),
	}
}

func newRiskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Risk profile and limits",
	}
	cmd.AddCommand(newRiskShowCmd(app))
	cmd.AddCommand(newRiskSetCmd(app))
	return cmd
}

func newRiskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the risk profile and today's limits",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			s := app.Engine.RiskSummary(cmd.Context())
			if output.IsJSON() {
				return output.JSON(s)
			}

			output.Bold("Risk profile (%s)", s.Mode)
			printProfile(output, s.Profile)

			output.Println()
			output.Bold("Today (%s)", s.DailyStats.Date)
			output.Printf("  Trades:             %d (%d W / %d L)\n", s.DailyStats.TotalTrades, s.DailyStats.WinningTrades, s.DailyStats.LosingTrades)
			output.Printf("  Daily P&L:          %s\n", output.FormatPnL(s.DailyStats.TotalPnL))
			output.Printf("  Loss budget left:   %s of %s\n", output.Money(s.RemainingLoss), output.Money(s.MaxDailyLoss))
			output.Printf("  Max position value: %s\n", output.Money(s.MaxPositionValue))
			output.Printf("  Position slots:     %d open, %d free\n", s.OpenPositions, s.RemainingSlots)
			if !s.TradingAllowed {
				output.Error("Daily loss limit reached. Trading paused.")
			}
			return nil
		}),
	}
}

func printProfile(output *Output, p models.RiskProfile) {
	output.Printf("  Max position size:    %g%%\n", p.MaxPositionSizePct)
	output.Printf("  Max daily loss:       %g%%\n", p.MaxDailyLossPct)
	output.Printf("  Stop loss:            %g%%\n", p.StopLossPct)
	output.Printf("  Take profit:          %g%%\n", p.TakeProfitPct)
	output.Printf("  Max open positions:   %d\n", p.MaxOpenPositions)
	output.Printf("  Require confirmation: %t\n", p.RequireConfirmation)
}

func newRiskSetCmd(app *App) *cobra.Command {
	var (
		maxPosition float64
		maxLoss     float64
		stopLoss    float64
		takeProfit  float64
		maxOpen     int
		confirm     bool
	)

	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Update risk limits",
		Long:    "Update the risk profile. Only the flags given are changed; the result is validated and persisted.",
		Example: "  papertrade risk set --max-position 15 --max-open 8",
		Args:    cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			var u models.RiskProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("max-position") {
				u.MaxPositionSizePct = &maxPosition
			}
			if flags.Changed("max-daily-loss") {
				u.MaxDailyLossPct = &maxLoss
			}
			if flags.Changed("stop-loss") {
				u.StopLossPct = &stopLoss
			}
			if flags.Changed("take-profit") {
				u.TakeProfitPct = &takeProfit
			}
			if flags.Changed("max-open") {
				u.MaxOpenPositions = &maxOpen
			}
			if flags.Changed("confirm") {
				u.RequireConfirmation = &confirm
			}
			if u == (models.RiskProfileUpdate{}) {
				return fmt.Errorf("nothing to update: pass at least one limit flag")
			}

			profile, err := app.Engine.UpdateRiskProfile(cmd.Context(), u)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(profile)
			}
			output.Success("Risk profile updated")
			printProfile(output, profile)
			return nil
		}),
	}

	cmd.Flags().Float64Var(&maxPosition, "max-position", 0, "maximum position size, percent of portfolio")
	cmd.Flags().Float64Var(&maxLoss, "max-daily-loss", 0, "maximum daily loss, percent of portfolio")
	cmd.Flags().Float64Var(&stopLoss, "stop-loss", 0, "stop-loss distance, percent")
	cmd.Flags().Float64Var(&takeProfit, "take-profit", 0, "take-profit distance, percent")
	cmd.Flags().IntVar(&maxOpen, "max-open", 0, "maximum number of open positions")
	cmd.Flags().BoolVar(&confirm, "confirm", true, "require --yes for orders with warnings")
	return cmd
}
