// Package stats computes performance statistics over fill history.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Summary is the performance summary of a fill history.
type Summary struct {
	TotalTrades   int `json:"total_trades"`
	BuyTrades     int `json:"buy_trades"`
	SellTrades    int `json:"sell_trades"`
	ClosedTrades  int `json:"closed_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`

	WinRate      float64         `json:"win_rate"`
	ProfitFactor float64         `json:"profit_factor"`
	AvgTradeSize decimal.Decimal `json:"avg_trade_size"`
	AvgWin       decimal.Decimal `json:"avg_win"`
	AvgLoss      decimal.Decimal `json:"avg_loss"`
	LargestWin   decimal.Decimal `json:"largest_win"`
	LargestLoss  decimal.Decimal `json:"largest_loss"`
	Expectancy   decimal.Decimal `json:"expectancy"`
	SharpeRatio  float64         `json:"sharpe_ratio"`

	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct float64         `json:"max_drawdown_pct"`

	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	TotalPnL    decimal.Decimal `json:"total_pnl"`
	TotalPnLPct float64         `json:"total_pnl_pct"`
}

// Summarize computes the summary of fills. Realized figures come from closing
// fills; total P&L compares portfolioValue with initialBalance.
func Summarize(fills []models.Fill, initialBalance, portfolioValue decimal.Decimal) Summary {
	s := Summary{
		AvgTradeSize: decimal.Zero,
		AvgWin:       decimal.Zero,
		AvgLoss:      decimal.Zero,
		LargestWin:   decimal.Zero,
		LargestLoss:  decimal.Zero,
		Expectancy:   decimal.Zero,
		MaxDrawdown:  decimal.Zero,
		RealizedPnL:  decimal.Zero,
		TotalPnL:     portfolioValue.Sub(initialBalance),
	}
	s.TotalPnLPct = percent(s.TotalPnL, initialBalance)

	notional := decimal.Zero
	profits := decimal.Zero
	losses := decimal.Zero
	var returns []float64

	for _, f := range fills {
		s.TotalTrades++
		notional = notional.Add(f.TotalNotional)
		if f.Side == models.OrderSideBuy {
			s.BuyTrades++
		} else {
			s.SellTrades++
		}
		if !f.IsClosing() {
			continue
		}

		pnl := f.Realized()
		s.ClosedTrades++
		s.RealizedPnL = s.RealizedPnL.Add(pnl)
		returns = append(returns, percent(pnl, initialBalance))

		switch {
		case pnl.IsPositive():
			s.WinningTrades++
			profits = profits.Add(pnl)
			if pnl.GreaterThan(s.LargestWin) {
				s.LargestWin = pnl
			}
		case pnl.IsNegative():
			s.LosingTrades++
			losses = losses.Add(pnl.Abs())
			if pnl.LessThan(s.LargestLoss) {
				s.LargestLoss = pnl
			}
		}
	}

	if s.TotalTrades > 0 {
		s.AvgTradeSize = notional.Div(decimal.NewFromInt(int64(s.TotalTrades)))
	}
	if s.WinningTrades > 0 {
		s.AvgWin = profits.Div(decimal.NewFromInt(int64(s.WinningTrades)))
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = losses.Div(decimal.NewFromInt(int64(s.LosingTrades)))
	}
	if losses.IsPositive() {
		s.ProfitFactor = profits.Div(losses).InexactFloat64()
	}
	if s.ClosedTrades > 0 {
		closed := decimal.NewFromInt(int64(s.ClosedTrades))
		winFrac := decimal.NewFromInt(int64(s.WinningTrades)).Div(closed)
		s.WinRate = winFrac.Mul(hundred).InexactFloat64()
		s.Expectancy = winFrac.Mul(s.AvgWin).Sub(decimal.NewFromInt(1).Sub(winFrac).Mul(s.AvgLoss))
	}

	s.SharpeRatio = Sharpe(returns)
	s.MaxDrawdown, s.MaxDrawdownPct = MaxDrawdown(fills, initialBalance)
	return s
}

// Sharpe returns mean/stdev of returns using the sample standard deviation.
// Fewer than two samples or zero deviation yield 0.
func Sharpe(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	stdev := math.Sqrt(sq / float64(n-1))
	if stdev == 0 {
		return 0
	}
	return mean / stdev
}

// MaxDrawdown walks the realized equity curve, initialBalance plus cumulative
// realized P&L in fill order, and returns the largest peak-to-trough fall and
// that fall as a percentage of the peak.
func MaxDrawdown(fills []models.Fill, initialBalance decimal.Decimal) (decimal.Decimal, float64) {
	equity := initialBalance
	peak := initialBalance
	maxDD := decimal.Zero
	maxPct := 0.0

	for _, f := range fills {
		if !f.IsClosing() {
			continue
		}
		equity = equity.Add(f.Realized())
		if equity.GreaterThan(peak) {
			peak = equity
			continue
		}
		dd := peak.Sub(equity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			maxPct = percent(dd, peak)
		}
	}
	return maxDD, maxPct
}

// Period selects the bucket width for ByPeriod.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ParsePeriod parses a period name.
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(s); p {
	case Daily, Weekly, Monthly:
		return p, true
	}
	return "", false
}

// PeriodStats aggregates the fills of one period.
type PeriodStats struct {
	Period      string          `json:"period"`
	Trades      int             `json:"trades_count"`
	RealizedPnL decimal.Decimal `json:"total_pnl"`
	AvgPnL      decimal.Decimal `json:"avg_pnl"`
}

// ByPeriod buckets fills by day, ISO week (keyed by its Monday) or month,
// sorted ascending. loc sets the calendar; nil keeps each fill's own zone.
func ByPeriod(fills []models.Fill, period Period, loc *time.Location) []PeriodStats {
	buckets := make(map[string]*PeriodStats)
	for _, f := range fills {
		key := periodKey(f.ExecutedAt, period, loc)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodStats{Period: key, RealizedPnL: decimal.Zero}
			buckets[key] = b
		}
		b.Trades++
		b.RealizedPnL = b.RealizedPnL.Add(f.Realized())
	}

	out := make([]PeriodStats, 0, len(buckets))
	for _, b := range buckets {
		b.AvgPnL = b.RealizedPnL.Div(decimal.NewFromInt(int64(b.Trades)))
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func periodKey(t time.Time, period Period, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	switch period {
	case Weekly:
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format("2006-01-02")
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// SymbolStats aggregates the fills of one symbol.
type SymbolStats struct {
	Symbol      string          `json:"symbol"`
	Trades      int             `json:"total_trades"`
	BuyTrades   int             `json:"buy_trades"`
	SellTrades  int             `json:"sell_trades"`
	Volume      decimal.Decimal `json:"volume"`
	RealizedPnL decimal.Decimal `json:"total_pnl"`
	AvgPnL      decimal.Decimal `json:"avg_pnl"`
}

// BySymbol aggregates fills per symbol, best realized P&L first. Ties are
// ordered by symbol.
func BySymbol(fills []models.Fill) []SymbolStats {
	bySym := make(map[string]*SymbolStats)
	for _, f := range fills {
		s, ok := bySym[f.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: f.Symbol, Volume: decimal.Zero, RealizedPnL: decimal.Zero}
			bySym[f.Symbol] = s
		}
		s.Trades++
		if f.Side == models.OrderSideBuy {
			s.BuyTrades++
		} else {
			s.SellTrades++
		}
		s.Volume = s.Volume.Add(f.TotalNotional)
		s.RealizedPnL = s.RealizedPnL.Add(f.Realized())
	}

	out := make([]SymbolStats, 0, len(bySym))
	for _, s := range bySym {
		s.AvgPnL = s.RealizedPnL.Div(decimal.NewFromInt(int64(s.Trades)))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].RealizedPnL.Cmp(out[j].RealizedPnL); c != 0 {
			return c > 0
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Allocation is one line of an exposure breakdown.
type Allocation struct {
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	Weight float64         `json:"weight_pct"`
}

// Exposure breaks the portfolio value down by position plus cash, largest
// first. The cash line is always last.
func Exposure(view models.PortfolioView) []Allocation {
	out := make([]Allocation, 0, len(view.Positions)+1)
	for _, p := range view.Positions {
		out = append(out, Allocation{
			Name:   p.Symbol,
			Value:  p.MarketValue,
			Weight: percent(p.MarketValue, view.TotalValue),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value.GreaterThan(out[j].Value) })
	return append(out, Allocation{
		Name:   "CASH",
		Value:  view.Cash,
		Weight: percent(view.Cash, view.TotalValue),
	})
}

// Insights turns a summary into short textual hints. An empty history gets a
// single hint asking for more data.
func Insights(s Summary) []string {
	if s.ClosedTrades == 0 {
		return []string{"Keep trading and collecting data for better insights."}
	}

	var out []string
	switch {
	case s.WinRate > 60:
		out = append(out, "Excellent win rate! Your strategy is working well.")
	case s.WinRate < 40:
		out = append(out, "Low win rate. Consider reviewing your strategy.")
	}
	switch {
	case s.ProfitFactor > 2:
		out = append(out, "Strong profit factor. Your wins significantly outweigh losses.")
	case s.LosingTrades > 0 && s.ProfitFactor < 1:
		out = append(out, "Profit factor below 1.0. Losses exceed wins.")
	}
	switch {
	case s.SharpeRatio > 1:
		out = append(out, "Good risk-adjusted returns (Sharpe ratio).")
	case s.ClosedTrades > 1 && s.SharpeRatio < 0.5:
		out = append(out, "Low risk-adjusted returns. Consider reducing risk.")
	}
	if s.MaxDrawdownPct > 20 {
		out = append(out, "High drawdown detected. Consider tighter risk management.")
	}
	if s.Expectancy.IsPositive() {
		out = append(out, "Positive expectancy. Strategy is profitable on average.")
	} else {
		out = append(out, "Negative expectancy. Strategy needs improvement.")
	}
	return out
}

func percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
