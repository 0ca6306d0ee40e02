package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/security"
	"papertrade/pkg/utils"
)

func addOrderCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newOrderCmd(app, models.OrderSideBuy))
	rootCmd.AddCommand(newOrderCmd(app, models.OrderSideSell))
	rootCmd.AddCommand(newValidateCmd(app))
	rootCmd.AddCommand(newSizeCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

func newOrderCmd(app *App, side models.OrderSide) *cobra.Command {
	var confirmed bool
	verb := strings.ToLower(string(side))

	cmd := &cobra.Command{
		Use:   verb + " SYMBOL QTY [PRICE]",
		Short: fmt.Sprintf("Place a %s order", side),
		Long: fmt.Sprintf(`Place a %s market order. Without PRICE the current quote is used.

Orders that trip a risk warning need --yes when confirmations are enabled.`, side),
		Example: fmt.Sprintf("  papertrade %s AAPL 10 150.25\n  papertrade %s AAPL 10 --price AAPL=150 --yes", verb, verb),
		Args:    cobra.RangeArgs(2, 3),
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			order, err := app.parseOrder(cmd, side, args)
			if err != nil {
				return err
			}
			order.Confirmed = confirmed

			fill, err := app.Engine.PlaceOrder(cmd.Context(), order)
			if err != nil {
				return orderFailure(output, err)
			}

			if output.IsJSON() {
				return output.JSON(fill)
			}
			printFill(output, fill)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm orders that raise risk warnings")
	return cmd
}

// parseOrder builds an order from SYMBOL QTY [PRICE], quoting the symbol
// when no price is given.
func (a *App) parseOrder(cmd *cobra.Command, side models.OrderSide, args []string) (models.Order, error) {
	if err := security.ValidateSymbol(args[0]); err != nil {
		return models.Order{}, err
	}
	symbol := models.NormalizeSymbol(args[0])
	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return models.Order{}, errors.NewValidationError(errors.ErrInputValidation, "quantity", args[1], "not a number")
	}

	var price decimal.Decimal
	if len(args) > 2 {
		price, err = decimal.NewFromString(args[2])
		if err != nil {
			return models.Order{}, errors.NewValidationError(errors.ErrInputValidation, "price", args[2], "not a number")
		}
	} else {
		price, err = a.Engine.Quote(cmd.Context(), symbol)
		if err != nil {
			return models.Order{}, fmt.Errorf("%w (pass a PRICE argument or --price %s=PRICE)", err, symbol)
		}
	}
	return models.NewOrder(symbol, side, qty, price), nil
}

// orderFailure prints the details of a rejected order and returns err.
func orderFailure(output *Output, err error) error {
	if output.IsJSON() {
		return err
	}

	var riskErr *errors.RiskError
	var orderErr *errors.OrderError
	switch {
	case errors.As(err, &riskErr):
		output.Error("Order rejected by risk checks:")
		for _, msg := range riskErr.Messages() {
			output.Printf("  - %s\n", msg)
		}
	case errors.Is(err, errors.ErrConfirmationRequired) && errors.As(err, &orderErr):
		output.Warning("Confirmation required:")
		for _, msg := range strings.Split(orderErr.Reason, "; ") {
			output.Printf("  - %s\n", msg)
		}
		output.Dim("Re-run with --yes to place the order.")
	}
	return err
}

func printFill(output *Output, fill *models.Fill) {
	output.Success("%s %s %s @ %s filled", fill.Side, utils.FormatQuantity(fill.Quantity), fill.Symbol, utils.FormatPrice(fill.Price))
	output.Printf("  Order ID:  %s\n", fill.OrderID)
	output.Printf("  Mode:      %s\n", fill.Mode)
	output.Printf("  Notional:  %s\n", output.Money(fill.TotalNotional))
	if fill.RealizedPnL != nil {
		output.Printf("  Realized:  %s\n", output.FormatPnL(*fill.RealizedPnL))
	}
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate BUY|SELL SYMBOL QTY [PRICE]",
		Short: "Run the risk checks for an order without placing it",
		Args:  cobra.RangeArgs(3, 4),
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			side, ok := models.ParseOrderSide(args[0])
			if !ok {
				return errors.NewValidationError(errors.ErrInputValidation, "side", args[0], "must be BUY or SELL")
			}
			order, err := app.parseOrder(cmd, side, args[1:])
			if err != nil {
				return err
			}

			result, err := app.Engine.ValidateOrder(cmd.Context(), order)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}

			if result.Valid {
				output.Success("Order passes risk checks")
			} else {
				output.Error("Order fails risk checks")
			}
			output.Printf("  Order value:    %s\n", output.Money(result.OrderValue))
			output.Printf("  Position size:  %.2f%% of portfolio\n", result.PositionSizePct)
			for _, e := range result.Errors {
				output.Error("  ✗ %s", e.Message)
			}
			for _, w := range result.Warnings {
				output.Warning("  ! %s", w.Message)
			}
			if result.RequiresConfirmation {
				output.Dim("Placing this order requires --yes.")
			}
			return nil
		}),
	}
}

func newSizeCmd(app *App) *cobra.Command {
	var sideFlag string
	var riskPct float64

	cmd := &cobra.Command{
		Use:   "size SYMBOL [PRICE]",
		Short: "Recommend a position size",
		Long: `Recommend a quantity that commits a share of the portfolio, with stop-loss
and take-profit levels from the risk profile. --risk-pct defaults to the
profile's maximum position size.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			side, ok := models.ParseOrderSide(sideFlag)
			if !ok {
				return errors.NewValidationError(errors.ErrInputValidation, "side", sideFlag, "must be BUY or SELL")
			}
			// Quantity is irrelevant here; parseOrder only needs a placeholder.
			order, err := app.parseOrder(cmd, side, append([]string{args[0], "1"}, args[1:]...))
			if err != nil {
				return err
			}

			var pct *float64
			if cmd.Flags().Changed("risk-pct") {
				pct = &riskPct
			}
			sizing, err := app.Engine.CalculatePositionSize(cmd.Context(), order.Symbol, side, order.Price, pct)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(sizing)
			}

			output.Bold("Position size for %s %s @ %s", sizing.Side, sizing.Symbol, utils.FormatPrice(sizing.Price))
			output.Printf("  Risk budget:      %.2f%% (%s)\n", sizing.RiskPct, output.Money(sizing.MaxPositionValue))
			output.Printf("  Quantity:         %s\n", utils.FormatQuantity(sizing.RecommendedQuantity))
			output.Printf("  Stop loss:        %s\n", utils.FormatPrice(sizing.StopLossPrice))
			output.Printf("  Take profit:      %s\n", utils.FormatPrice(sizing.TakeProfitPrice))
			output.Printf("  Risk per trade:   %s\n", output.Money(sizing.RiskPerTrade))
			return nil
		}),
	}

	cmd.Flags().StringVar(&sideFlag, "side", "BUY", "order side (BUY or SELL)")
	cmd.Flags().Float64Var(&riskPct, "risk-pct", 0, "percent of portfolio to commit")
	return cmd
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Show current prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			quotes := make(map[string]string, len(args))
			table := NewTable(output, "SYMBOL", "PRICE")
			for _, arg := range args {
				sym := models.NormalizeSymbol(arg)
				price, err := app.Engine.Quote(cmd.Context(), sym)
				if err != nil {
					app.Logger.Debug().Err(err).Str("symbol", sym).Msg("Quote unavailable")
					table.AddRow(sym, "n/a")
					continue
				}
				quotes[sym] = price.String()
				table.AddRow(sym, utils.FormatPrice(price))
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}
			table.Render()
			return nil
		}),
	}
}
