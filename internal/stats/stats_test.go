package stats

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var day = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC) // a Wednesday

func buyFill(symbol, qty, price string, at time.Time) models.Fill {
	q, p := d(qty), d(price)
	return models.Fill{Symbol: symbol, Side: models.OrderSideBuy, Quantity: q, Price: p, TotalNotional: q.Mul(p), ExecutedAt: at}
}

func sellFill(symbol, qty, price, pnl string, at time.Time) models.Fill {
	q, p, r := d(qty), d(price), d(pnl)
	return models.Fill{Symbol: symbol, Side: models.OrderSideSell, Quantity: q, Price: p, TotalNotional: q.Mul(p), RealizedPnL: &r, ExecutedAt: at}
}

func sampleFills() []models.Fill {
	return []models.Fill{
		buyFill("AAPL", "10", "100", day),
		sellFill("AAPL", "5", "120", "100", day.Add(time.Hour)),
		buyFill("MSFT", "2", "300", day.AddDate(0, 0, 1)),
		sellFill("MSFT", "2", "250", "-100", day.AddDate(0, 0, 2)),
		sellFill("AAPL", "5", "130", "150", day.AddDate(0, 1, 0)),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleFills(), d("10000"), d("10150"))

	if s.TotalTrades != 5 || s.BuyTrades != 2 || s.SellTrades != 3 || s.ClosedTrades != 3 {
		t.Errorf("counts = %+v", s)
	}
	if s.WinningTrades != 2 || s.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d", s.WinningTrades, s.LosingTrades)
	}
	if math.Abs(s.WinRate-66.6667) > 0.001 {
		t.Errorf("WinRate = %v", s.WinRate)
	}
	if s.ProfitFactor != 2.5 {
		t.Errorf("ProfitFactor = %v, want 2.5", s.ProfitFactor)
	}
	if !s.AvgWin.Equal(d("125")) || !s.AvgLoss.Equal(d("100")) {
		t.Errorf("avg win/loss = %s/%s", s.AvgWin, s.AvgLoss)
	}
	if !s.LargestWin.Equal(d("150")) || !s.LargestLoss.Equal(d("-100")) {
		t.Errorf("largest = %s/%s", s.LargestWin, s.LargestLoss)
	}
	if !s.RealizedPnL.Equal(d("150")) || !s.TotalPnL.Equal(d("150")) || s.TotalPnLPct != 1.5 {
		t.Errorf("pnl = %s total %s (%v%%)", s.RealizedPnL, s.TotalPnL, s.TotalPnLPct)
	}
	// avg notional: (1000 + 600 + 600 + 500 + 650) / 5
	if !s.AvgTradeSize.Equal(d("670")) {
		t.Errorf("AvgTradeSize = %s", s.AvgTradeSize)
	}
	// 2/3*125 - 1/3*100 = 50
	if s.Expectancy.Round(6).String() != "50" {
		t.Errorf("Expectancy = %s", s.Expectancy)
	}
	if !s.MaxDrawdown.Equal(d("100")) {
		t.Errorf("MaxDrawdown = %s", s.MaxDrawdown)
	}
}

func TestSummarizeNoLosses(t *testing.T) {
	fills := []models.Fill{
		buyFill("AAPL", "1", "100", day),
		sellFill("AAPL", "1", "110", "10", day),
	}
	s := Summarize(fills, d("1000"), d("1010"))
	if s.ProfitFactor != 0 {
		t.Errorf("ProfitFactor with no losses = %v, want 0", s.ProfitFactor)
	}
	if s.WinRate != 100 || s.SharpeRatio != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, d("1000"), d("1000"))
	if s.TotalTrades != 0 || s.WinRate != 0 || !s.Expectancy.IsZero() || !s.AvgTradeSize.IsZero() {
		t.Errorf("empty summary = %+v", s)
	}
	if got := Insights(s); len(got) != 1 {
		t.Errorf("insights for empty history = %v", got)
	}
}

func TestSharpe(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"too few", []float64{1}, 0},
		{"zero deviation", []float64{1, 1, 1}, 0},
		{"mixed", []float64{0, 2, 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sharpe(tt.returns); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Sharpe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	fills := []models.Fill{
		sellFill("A", "1", "1", "200", day),
		sellFill("A", "1", "1", "-300", day),
		sellFill("A", "1", "1", "50", day),
		sellFill("A", "1", "1", "-100", day),
	}
	dd, pct := MaxDrawdown(fills, d("1000"))
	// peak 1200, trough 850
	if !dd.Equal(d("350")) {
		t.Errorf("drawdown = %s, want 350", dd)
	}
	if math.Abs(pct-29.1667) > 0.001 {
		t.Errorf("drawdown pct = %v", pct)
	}
}

func TestByPeriod(t *testing.T) {
	fills := sampleFills()

	tests := []struct {
		period Period
		keys   []string
		trades []int
	}{
		{Daily, []string{"2024-03-06", "2024-03-07", "2024-03-08", "2024-04-06"}, []int{2, 1, 1, 1}},
		{Weekly, []string{"2024-03-04", "2024-04-01"}, []int{4, 1}},
		{Monthly, []string{"2024-03", "2024-04"}, []int{4, 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			got := ByPeriod(fills, tt.period, time.UTC)
			if len(got) != len(tt.keys) {
				t.Fatalf("got %d periods, want %d: %+v", len(got), len(tt.keys), got)
			}
			for i := range got {
				if got[i].Period != tt.keys[i] || got[i].Trades != tt.trades[i] {
					t.Errorf("period %d = %s/%d, want %s/%d", i, got[i].Period, got[i].Trades, tt.keys[i], tt.trades[i])
				}
			}
		})
	}

	monthly := ByPeriod(fills, Monthly, time.UTC)
	if !monthly[0].RealizedPnL.IsZero() || !monthly[1].RealizedPnL.Equal(d("150")) {
		t.Errorf("monthly pnl = %s, %s", monthly[0].RealizedPnL, monthly[1].RealizedPnL)
	}
}

func TestWeeklyKeyOnSunday(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)
	if got := periodKey(sunday, Weekly, nil); got != "2024-03-04" {
		t.Errorf("week of Sunday = %s, want 2024-03-04", got)
	}
}

func TestBySymbol(t *testing.T) {
	got := BySymbol(sampleFills())
	if len(got) != 2 {
		t.Fatalf("got %d symbols", len(got))
	}
	if got[0].Symbol != "AAPL" || !got[0].RealizedPnL.Equal(d("250")) || got[0].Trades != 3 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Symbol != "MSFT" || got[1].BuyTrades != 1 || got[1].SellTrades != 1 || !got[1].Volume.Equal(d("1100")) {
		t.Errorf("second = %+v", got[1])
	}
}

func TestExposure(t *testing.T) {
	view := models.PortfolioView{
		Cash:       d("500"),
		TotalValue: d("2000"),
		Positions: []models.PositionView{
			{Symbol: "AAPL", MarketValue: d("500")},
			{Symbol: "MSFT", MarketValue: d("1000")},
		},
	}
	got := Exposure(view)
	if len(got) != 3 || got[0].Name != "MSFT" || got[0].Weight != 50 || got[2].Name != "CASH" || got[2].Weight != 25 {
		t.Errorf("exposure = %+v", got)
	}
}

func TestInsights(t *testing.T) {
	s := Summarize(sampleFills(), d("10000"), d("10150"))
	got := strings.Join(Insights(s), "\n")
	for _, want := range []string{"Excellent win rate", "Strong profit factor", "Positive expectancy"} {
		if !strings.Contains(got, want) {
			t.Errorf("insights missing %q:\n%s", want, got)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if p, ok := ParsePeriod("weekly"); !ok || p != Weekly {
		t.Errorf("ParsePeriod(weekly) = %v, %v", p, ok)
	}
	if _, ok := ParsePeriod("yearly"); ok {
		t.Error("yearly should not parse")
	}
}

func TestMarkdown(t *testing.T) {
	fills := sampleFills()
	view := models.PortfolioView{Cash: d("10150"), TotalValue: d("10150"), UnrealizedPnL: decimal.Zero}
	s := Summarize(fills, d("10000"), view.TotalValue)
	md := Markdown(Report{
		Mode:      models.TradingModePaper,
		Portfolio: view,
		Summary:   s,
		Period:    Monthly,
		Periods:   ByPeriod(fills, Monthly, time.UTC),
		Symbols:   BySymbol(fills),
		Exposure:  Exposure(view),
		Insights:  Insights(s),
	}, "USD")

	for _, want := range []string{"# Performance (PAPER)", "| Win rate | 66.67% (2 W / 1 L) |", "| AAPL | 3 |", "## By period (monthly)", "| 2024-04 | 1 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

// Property: profit factor is gross profit over gross loss whenever there are
// losses, and the win rate stays within [0, 100].
func TestProperty_ProfitFactor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("profit factor matches gross totals", prop.ForAll(
		func(pnls []int64) bool {
			var fills []models.Fill
			var gain, loss int64
			for _, p := range pnls {
				fills = append(fills, sellFill("A", "1", "1", decimal.NewFromInt(p).String(), day))
				if p > 0 {
					gain += p
				} else {
					loss -= p
				}
			}
			s := Summarize(fills, d("100000"), d("100000"))
			if s.WinRate < 0 || s.WinRate > 100 {
				return false
			}
			if loss == 0 {
				return s.ProfitFactor == 0
			}
			want := float64(gain) / float64(loss)
			return math.Abs(s.ProfitFactor-want) < 1e-9
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}
