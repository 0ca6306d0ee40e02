package cli

import (
	"github.com/spf13/cobra"

	"papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/pkg/utils"
)

func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newResetCmd(app))
	rootCmd.AddCommand(newResetDailyCmd(app))
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf", "positions"},
		Short:   "Show cash, positions and P&L",
		Args:    cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			view := app.Engine.Portfolio(cmd.Context())
			if output.IsJSON() {
				return output.JSON(view)
			}
			printPortfolio(output, app.Engine.Mode(), view)
			return nil
		}),
	}
}

func printPortfolio(output *Output, mode models.TradingMode, view models.PortfolioView) {
	output.Bold("Portfolio %s (%s)", view.AccountID, mode)
	output.Println()

	if len(view.Positions) == 0 {
		output.Dim("No open positions")
	} else {
		table := NewTable(output, "SYMBOL", "QTY", "AVG COST", "PRICE", "VALUE", "UNREALIZED", "%")
		for _, p := range view.Positions {
			price := utils.FormatPrice(p.CurrentPrice)
			if p.PriceFallback {
				price += "*"
			}
			table.AddRow(
				p.Symbol,
				utils.FormatQuantity(p.Quantity),
				utils.FormatPrice(p.AverageCost),
				price,
				output.Money(p.MarketValue),
				output.FormatPnL(p.UnrealizedPnL),
				output.FormatPercent(p.UnrealizedPnLPct),
			)
		}
		table.Render()
		for _, p := range view.Positions {
			if p.PriceFallback {
				output.Dim("* no quote, valued at average cost")
				break
			}
		}
	}

	output.Println()
	output.Printf("  Cash:            %s\n", output.Money(view.Cash))
	output.Printf("  Positions:       %s\n", output.Money(view.PositionsValue))
	output.Printf("  Total value:     %s\n", output.Money(view.TotalValue))
	output.Printf("  Unrealized P&L:  %s\n", output.FormatPnL(view.UnrealizedPnL))
	output.Printf("  Realized P&L:    %s\n", output.FormatPnL(view.RealizedPnL))
	output.Printf("  Total P&L:       %s (%s)\n", output.FormatPnL(view.TotalPnL), output.FormatPercent(view.TotalPnLPct))
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	var live bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executed orders, most recent first",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			var fills []models.Fill
			if live {
				var err error
				fills, err = app.Engine.VenueHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
			} else {
				fills = app.Engine.TradeHistory(limit)
			}
			if fills == nil {
				fills = []models.Fill{}
			}

			if output.IsJSON() {
				return output.JSON(fills)
			}
			if len(fills) == 0 {
				output.Dim("No trades yet")
				return nil
			}

			table := NewTable(output, "TIME", "ORDER ID", "SIDE", "SYMBOL", "QTY", "PRICE", "NOTIONAL", "REALIZED")
			for _, f := range fills {
				realized := "-"
				if f.RealizedPnL != nil {
					realized = output.FormatPnL(*f.RealizedPnL)
				}
				table.AddRow(
					f.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
					f.OrderID,
					string(f.Side),
					f.Symbol,
					utils.FormatQuantity(f.Quantity),
					utils.FormatPrice(f.Price),
					output.Money(f.TotalNotional),
					realized,
				)
			}
			table.Render()
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of trades (0 for all)")
	cmd.Flags().BoolVar(&live, "live", false, "show journaled live fills instead of paper trades")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the paper account to its initial balance",
		Long: `Reset the paper account: cash returns to the initial balance and positions,
paper trade history and daily statistics are cleared. The trading mode and
risk profile are kept.`,
		Args: cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if !confirmed {
				output.Warning("This clears every paper trade. Re-run with --yes to reset.")
				return errors.Wrap(errors.ErrConfirmationRequired, "reset")
			}

			if err := app.Engine.Reset(cmd.Context()); err != nil {
				return err
			}
			cash := app.Engine.Account().Cash()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"reset": true,
					"cash":  cash,
				})
			}
			output.Success("Account reset. Cash: %s", output.Money(cash))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm the reset")
	return cmd
}

func newResetDailyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-daily",
		Short: "Start a new trading day for the daily loss limit",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Engine.ResetDailyStats(cmd.Context()); err != nil {
				return err
			}
			daily := app.Engine.Account().DailyStats()
			if output.IsJSON() {
				return output.JSON(daily)
			}
			output.Success("Daily statistics reset for %s", daily.Date)
			return nil
		}),
	}
}
