package cli

import (
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"papertrade/internal/errors"
	"papertrade/internal/stats"
)

func addStatsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
}

func newStatsCmd(app *App) *cobra.Command {
	var period string
	var raw bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trading performance",
		Long: `Show win rate, profit factor, drawdown, Sharpe ratio and breakdowns by
period and symbol for the paper account.`,
		Args: cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			p, ok := stats.ParsePeriod(period)
			if !ok {
				return errors.NewValidationError(errors.ErrInputValidation, "period", period, "must be daily, weekly or monthly")
			}
			report := app.Engine.Statistics(cmd.Context(), p)
			if output.IsJSON() {
				return output.JSON(report)
			}

			md := stats.Markdown(report, app.Config.Account.Currency)
			if raw {
				output.Printf("%s", md)
				return nil
			}
			rendered, err := renderMarkdown(md, output.colorEnabled)
			if err != nil {
				app.Logger.Debug().Err(err).Msg("Markdown rendering failed, printing raw")
				rendered = md
			}
			output.Printf("%s", rendered)
			return nil
		}),
	}

	cmd.Flags().StringVar(&period, "period", "daily", "breakdown period: daily, weekly or monthly")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source")
	return cmd
}

func renderMarkdown(md string, color bool) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
