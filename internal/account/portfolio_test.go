package account

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

func TestPortfolioValuation(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))
	mustPlace(t, acct, buy("MSFT", "5", "200"))

	view := acct.Portfolio(models.PriceMap{"AAPL": d("110")}.Lookup)

	if !view.Cash.Equal(d("8000")) {
		t.Errorf("cash = %s, want 8000", view.Cash)
	}
	if len(view.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(view.Positions))
	}

	aapl := view.Positions[0]
	if aapl.Symbol != "AAPL" || aapl.PriceFallback {
		t.Errorf("AAPL view = %+v", aapl)
	}
	if !aapl.MarketValue.Equal(d("1100")) || !aapl.UnrealizedPnL.Equal(d("100")) {
		t.Errorf("AAPL value = %s unrealized = %s", aapl.MarketValue, aapl.UnrealizedPnL)
	}
	if aapl.UnrealizedPnLPct != 10 {
		t.Errorf("AAPL unrealized pct = %v, want 10", aapl.UnrealizedPnLPct)
	}

	msft := view.Positions[1]
	if !msft.PriceFallback || !msft.CurrentPrice.Equal(d("200")) || !msft.UnrealizedPnL.IsZero() {
		t.Errorf("MSFT should fall back to average cost: %+v", msft)
	}

	if !view.TotalValue.Equal(d("10100")) {
		t.Errorf("total value = %s, want 10100", view.TotalValue)
	}
	if !view.TotalPnL.Equal(d("100")) || view.TotalPnLPct != 1 {
		t.Errorf("total pnl = %s (%v%%)", view.TotalPnL, view.TotalPnLPct)
	}
}

func TestPortfolioZeroInitialBalance(t *testing.T) {
	acct, _ := newTestAccount(t, "0")
	view := acct.Portfolio(nil)
	if view.TotalPnLPct != 0 {
		t.Errorf("TotalPnLPct = %v, want 0", view.TotalPnLPct)
	}
}

func TestSnapshot(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))

	snap := acct.Snapshot(models.PriceMap{"AAPL": d("150")}.Lookup)
	if !snap.PortfolioValue.Equal(d("10500")) {
		t.Errorf("PortfolioValue = %s, want 10500", snap.PortfolioValue)
	}
	if !snap.Holds("aapl") || snap.Holds("MSFT") {
		t.Error("Holds() mismatch")
	}
	if snap.DailyStats.TotalTrades != 1 {
		t.Errorf("DailyStats.TotalTrades = %d", snap.DailyStats.TotalTrades)
	}
}

func TestRestoreReplaysJournal(t *testing.T) {
	src, _ := newTestAccount(t, "10000")
	mustPlace(t, src, buy("AAPL", "10", "100"))
	mustPlace(t, src, buy("AAPL", "5", "130"))
	mustPlace(t, src, sell("AAPL", "7", "90"))
	mustPlace(t, src, buy("MSFT", "3", "310.55"))

	live := models.Fill{
		OrderID: "LIVE-x", Symbol: "TSLA", Side: models.OrderSideBuy,
		Quantity: d("1"), Price: d("200"), Mode: models.TradingModeLive,
		ExecutedAt: time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
	}
	journal := append(src.Fills(), live)

	dst, _ := newTestAccount(t, "10000")
	if err := dst.Restore(journal, time.Time{}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	prices := models.PriceMap{"AAPL": d("101"), "MSFT": d("300")}.Lookup
	if !reflect.DeepEqual(src.Portfolio(prices), dst.Portfolio(prices)) {
		t.Errorf("restored portfolio differs:\n got %+v\nwant %+v", dst.Portfolio(prices), src.Portfolio(prices))
	}
	if got, want := dst.DailyStats().TotalTrades, src.DailyStats().TotalTrades+1; got != want {
		t.Errorf("TotalTrades = %d, want %d (paper + live)", got, want)
	}
	if len(dst.History(0)) != 4 {
		t.Errorf("history len = %d, want 4 paper fills", len(dst.History(0)))
	}
	if dst.History(1)[0].OrderID != src.History(1)[0].OrderID {
		t.Error("replay should keep original order ids")
	}
}

func TestRestoreDailyWindow(t *testing.T) {
	acct, clock := newTestAccount(t, "10000")
	yesterday := clock.t.Add(-24 * time.Hour)
	fills := []models.Fill{
		{OrderID: "PAPER-a", Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: d("10"), Price: d("100"), Mode: models.TradingModePaper, ExecutedAt: yesterday},
		{OrderID: "PAPER-b", Symbol: "AAPL", Side: models.OrderSideSell, Quantity: d("5"), Price: d("90"), Mode: models.TradingModePaper, ExecutedAt: clock.t.Add(-2 * time.Hour)},
		{OrderID: "PAPER-c", Symbol: "AAPL", Side: models.OrderSideSell, Quantity: d("5"), Price: d("95"), Mode: models.TradingModePaper, ExecutedAt: clock.t.Add(-time.Hour)},
	}

	if err := acct.Restore(fills, clock.t.Add(-90*time.Minute)); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	stats := acct.DailyStats()
	if stats.TotalTrades != 1 || !stats.DailyLoss.Equal(d("-25")) {
		t.Errorf("daily stats = %+v, want only PAPER-c counted", stats)
	}
	if !acct.RealizedPnL().Equal(d("-75")) {
		t.Errorf("realized = %s, want -75", acct.RealizedPnL())
	}
}

func TestPortfolioCostBasisConserved(t *testing.T) {
	acct, _ := newTestAccount(t, "1000")
	mustPlace(t, acct, buy("AAPL", "1", "1"))
	mustPlace(t, acct, buy("AAPL", "2", "1.5"))
	mustPlace(t, acct, sell("AAPL", "1", "2"))

	view := acct.Portfolio(nil)
	if len(view.Positions) != 1 {
		t.Fatalf("positions = %+v", view.Positions)
	}
	if got := view.Positions[0].CostBasis; !got.Equal(d("2.6666666666666667")) {
		t.Errorf("cost basis = %s, want 2.6666666666666667", got)
	}

	held := view.Cash
	for _, p := range view.Positions {
		held = held.Add(p.CostBasis)
	}
	if want := view.InitialBalance.Add(view.RealizedPnL); !held.Equal(want) {
		t.Errorf("cash + cost basis = %s, want initial + realized = %s", held, want)
	}
}

func TestRestoreDailyStatsUseReplayedPnL(t *testing.T) {
	acct, clock := newTestAccount(t, "10000")
	stale := d("500")
	fills := []models.Fill{
		{OrderID: "PAPER-a", Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: d("10"), Price: d("100"), Mode: models.TradingModePaper, ExecutedAt: clock.t.Add(-3 * time.Hour)},
		{OrderID: "PAPER-b", Symbol: "AAPL", Side: models.OrderSideSell, Quantity: d("4"), Price: d("80"), RealizedPnL: &stale, Mode: models.TradingModePaper, ExecutedAt: clock.t.Add(-2 * time.Hour)},
		{OrderID: "LIVE-c", Symbol: "MSFT", Side: models.OrderSideBuy, Quantity: d("1"), Price: d("300"), Mode: models.TradingModeLive, ExecutedAt: clock.t.Add(-time.Hour)},
	}

	if err := acct.Restore(fills, time.Time{}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	stats := acct.DailyStats()
	if stats.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", stats.TotalTrades)
	}
	if stats.WinningTrades != 0 || stats.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d, want 0/1", stats.WinningTrades, stats.LosingTrades)
	}
	if !stats.DailyLoss.Equal(d("-80")) || !stats.TotalPnL.Equal(d("-80")) {
		t.Errorf("daily loss = %s, total = %s, want -80", stats.DailyLoss, stats.TotalPnL)
	}
	if !acct.RealizedPnL().Equal(d("-80")) {
		t.Errorf("realized = %s, want -80", acct.RealizedPnL())
	}
}

func TestRestoreFailureKeepsState(t *testing.T) {
	acct, _ := newTestAccount(t, "1000")
	mustPlace(t, acct, buy("AAPL", "1", "100"))
	before := acct.Portfolio(nil)

	bad := []models.Fill{
		{OrderID: "PAPER-a", Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: d("100"), Price: d("100"), Mode: models.TradingModePaper},
	}
	if err := acct.Restore(bad, time.Time{}); err == nil {
		t.Fatal("expected replay error")
	}
	if !reflect.DeepEqual(before, acct.Portfolio(nil)) {
		t.Error("failed restore must leave the account unchanged")
	}
}

// Property: with no intervening fills, two portfolio reports at the same
// prices are identical.
func TestProperty_IdempotentReporting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Portfolio(prices) is repeatable", prop.ForAll(
		func(qtys []int64, cents int64) bool {
			acct, err := New(Config{InitialBalance: decimal.NewFromInt(1_000_000)})
			if err != nil {
				return false
			}
			syms := []string{"AAPL", "MSFT", "TSLA"}
			for i, q := range qtys {
				_, _ = acct.PlaceOrder(models.NewOrder(syms[i%len(syms)], models.OrderSideBuy, decimal.NewFromInt(q), decimal.New(cents+int64(i), -2)))
			}
			prices := models.PriceMap{"AAPL": decimal.New(cents, -2)}.Lookup
			return reflect.DeepEqual(acct.Portfolio(prices), acct.Portfolio(prices))
		},
		gen.SliceOfN(6, gen.Int64Range(1, 100)),
		gen.Int64Range(100, 100000),
	))

	properties.TestingRun(t)
}

// Property: cash plus the cost basis held in positions minus realized P&L
// always equals the initial balance.
func TestProperty_AccountConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("cash + cost basis - realized == initial", prop.ForAll(
		func(sides []bool, qtys []int64, cents []int64) bool {
			initial := decimal.NewFromInt(100_000)
			acct, err := New(Config{InitialBalance: initial})
			if err != nil {
				return false
			}
			for i := range sides {
				side := models.OrderSideBuy
				if sides[i] {
					side = models.OrderSideSell
				}
				_, _ = acct.PlaceOrder(models.NewOrder("AAPL", side, decimal.NewFromInt(qtys[i]), decimal.New(cents[i], -2)))
			}

			held := decimal.Zero
			for _, p := range acct.Positions() {
				held = held.Add(p.CostBasis)
			}
			return acct.Cash().Add(held).Sub(acct.RealizedPnL()).Equal(initial) && !acct.Cash().IsNegative()
		},
		gen.SliceOfN(20, gen.Bool()),
		gen.SliceOfN(20, gen.Int64Range(1, 40)),
		gen.SliceOfN(20, gen.Int64Range(100, 90000)),
	))

	properties.TestingRun(t)
}
