package stats

import (
	"fmt"
	"strings"

	"papertrade/internal/models"
	"papertrade/pkg/utils"
)

// Report bundles everything the stats command shows.
type Report struct {
	Mode      models.TradingMode   `json:"mode"`
	Portfolio models.PortfolioView `json:"portfolio"`
	Summary   Summary              `json:"summary"`
	Period    Period               `json:"period"`
	Periods   []PeriodStats        `json:"periods"`
	Symbols   []SymbolStats        `json:"symbols"`
	Exposure  []Allocation         `json:"exposure"`
	Insights  []string             `json:"insights"`
}

// Markdown renders the report as a markdown document.
func Markdown(r Report, currency string) string {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "# Performance (%s)\n\n", r.Mode)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Portfolio value | %s |\n", utils.FormatMoney(r.Portfolio.TotalValue, currency))
	fmt.Fprintf(&b, "| Cash | %s |\n", utils.FormatMoney(r.Portfolio.Cash, currency))
	fmt.Fprintf(&b, "| Total P&L | %s (%s) |\n", utils.FormatPnL(s.TotalPnL, currency), utils.FormatPercent(s.TotalPnLPct))
	fmt.Fprintf(&b, "| Realized P&L | %s |\n", utils.FormatPnL(s.RealizedPnL, currency))
	fmt.Fprintf(&b, "| Unrealized P&L | %s |\n", utils.FormatPnL(r.Portfolio.UnrealizedPnL, currency))
	fmt.Fprintf(&b, "| Trades | %d (%d buy, %d sell) |\n", s.TotalTrades, s.BuyTrades, s.SellTrades)
	fmt.Fprintf(&b, "| Win rate | %.2f%% (%d W / %d L) |\n", s.WinRate, s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(&b, "| Profit factor | %.2f |\n", s.ProfitFactor)
	fmt.Fprintf(&b, "| Avg win / loss | %s / %s |\n", utils.FormatMoney(s.AvgWin, currency), utils.FormatMoney(s.AvgLoss, currency))
	fmt.Fprintf(&b, "| Expectancy | %s |\n", utils.FormatPnL(s.Expectancy, currency))
	fmt.Fprintf(&b, "| Sharpe ratio | %.2f |\n", s.SharpeRatio)
	fmt.Fprintf(&b, "| Max drawdown | %s (%.2f%%) |\n", utils.FormatMoney(s.MaxDrawdown, currency), s.MaxDrawdownPct)

	if len(r.Exposure) > 0 {
		b.WriteString("\n## Exposure\n\n| Holding | Value | Weight |\n|---|---:|---:|\n")
		for _, a := range r.Exposure {
			fmt.Fprintf(&b, "| %s | %s | %.2f%% |\n", a.Name, utils.FormatMoney(a.Value, currency), a.Weight)
		}
	}

	if len(r.Symbols) > 0 {
		b.WriteString("\n## By symbol\n\n| Symbol | Trades | Volume | Realized P&L |\n|---|---:|---:|---:|\n")
		for _, sym := range r.Symbols {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", sym.Symbol, sym.Trades,
				utils.FormatMoney(sym.Volume, currency), utils.FormatPnL(sym.RealizedPnL, currency))
		}
	}

	if len(r.Periods) > 0 {
		fmt.Fprintf(&b, "\n## By period (%s)\n\n| Period | Trades | Realized P&L |\n|---|---:|---:|\n", r.Period)
		for _, p := range r.Periods {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", p.Period, p.Trades, utils.FormatPnL(p.RealizedPnL, currency))
		}
	}

	if len(r.Insights) > 0 {
		b.WriteString("\n## Insights\n\n")
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	return b.String()
}
