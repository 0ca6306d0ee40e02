package account

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	perrors "papertrade/internal/errors"
	"papertrade/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

func newTestAccount(t *testing.T, balance string) (*Account, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	seq := 0
	acct, err := New(Config{
		ID:             "test",
		InitialBalance: d(balance),
		Clock:          clock.Now,
		NewOrderID: func(mode models.TradingMode) string {
			seq++
			return fmt.Sprintf("%s-%d", mode, seq)
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return acct, clock
}

func buy(symbol, qty, price string) models.Order {
	return models.NewOrder(symbol, models.OrderSideBuy, d(qty), d(price))
}

func sell(symbol, qty, price string) models.Order {
	return models.NewOrder(symbol, models.OrderSideSell, d(qty), d(price))
}

func TestNewRejectsNegativeBalance(t *testing.T) {
	_, err := New(Config{InitialBalance: d("-1")})
	if !errors.Is(err, perrors.ErrConfigInvalid) {
		t.Fatalf("error = %v, want ErrConfigInvalid", err)
	}
}

func TestPlaceOrderBuyThenSell(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")

	fill, err := acct.PlaceOrder(buy("AAPL", "10", "100"))
	if err != nil {
		t.Fatalf("buy error = %v", err)
	}
	if fill.OrderID != "PAPER-1" || fill.Status != models.FillStatusFilled || fill.Mode != models.TradingModePaper {
		t.Errorf("unexpected fill %+v", fill)
	}
	if fill.RealizedPnL != nil {
		t.Error("BUY fill should not carry realized P&L")
	}
	if !acct.Cash().Equal(d("9000")) {
		t.Errorf("cash = %s, want 9000", acct.Cash())
	}

	fill, err = acct.PlaceOrder(sell("AAPL", "10", "120"))
	if err != nil {
		t.Fatalf("sell error = %v", err)
	}
	if fill.RealizedPnL == nil || !fill.RealizedPnL.Equal(d("200")) {
		t.Errorf("realized = %v, want 200", fill.RealizedPnL)
	}
	if !acct.Cash().Equal(d("10200")) {
		t.Errorf("cash = %s, want 10200", acct.Cash())
	}
	if _, ok := acct.Position("AAPL"); ok {
		t.Error("position should be removed after full close")
	}
	if !acct.RealizedPnL().Equal(d("200")) {
		t.Errorf("RealizedPnL = %s, want 200", acct.RealizedPnL())
	}

	stats := acct.DailyStats()
	if stats.TotalTrades != 2 || stats.WinningTrades != 1 || stats.LosingTrades != 0 {
		t.Errorf("daily stats = %+v", stats)
	}
	if !stats.TotalPnL.Equal(d("200")) || !stats.DailyLoss.IsZero() {
		t.Errorf("daily pnl = %s loss = %s", stats.TotalPnL, stats.DailyLoss)
	}
}

func TestPlaceOrderLosingSellTracksDailyLoss(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))
	mustPlace(t, acct, sell("AAPL", "4", "90"))

	stats := acct.DailyStats()
	if stats.LosingTrades != 1 {
		t.Errorf("LosingTrades = %d, want 1", stats.LosingTrades)
	}
	if !stats.DailyLoss.Equal(d("-40")) {
		t.Errorf("DailyLoss = %s, want -40", stats.DailyLoss)
	}
}

func TestPlaceOrderRejectionsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		order models.Order
		want  error
	}{
		{"insufficient funds", buy("MSFT", "100", "100"), perrors.ErrInsufficientFunds},
		{"oversell", sell("AAPL", "11", "100"), perrors.ErrInsufficientQuantity},
		{"unheld sell", sell("MSFT", "1", "100"), perrors.ErrInsufficientQuantity},
		{"zero quantity", buy("AAPL", "0", "100"), perrors.ErrInvalidOrder},
		{"zero price", buy("AAPL", "1", "0"), perrors.ErrInvalidOrder},
		{"empty symbol", buy("", "1", "10"), perrors.ErrInvalidOrder},
		{"bad side", models.NewOrder("AAPL", "SHORT", d("1"), d("1")), perrors.ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, _ := newTestAccount(t, "5000")
			mustPlace(t, acct, buy("AAPL", "10", "100"))

			before := acct.Portfolio(models.NoPrices)
			beforeHistory := acct.History(0)
			beforeDaily := acct.DailyStats()

			if _, err := acct.PlaceOrder(tt.order); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}

			if !reflect.DeepEqual(before, acct.Portfolio(models.NoPrices)) {
				t.Error("portfolio changed after rejected order")
			}
			if !reflect.DeepEqual(beforeHistory, acct.History(0)) {
				t.Error("history changed after rejected order")
			}
			if !reflect.DeepEqual(beforeDaily, acct.DailyStats()) {
				t.Error("daily stats changed after rejected order")
			}
		})
	}
}

func TestBuyExactlyAllCash(t *testing.T) {
	acct, _ := newTestAccount(t, "1000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))
	if !acct.Cash().IsZero() {
		t.Errorf("cash = %s, want 0", acct.Cash())
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "1", "10"))
	mustPlace(t, acct, buy("MSFT", "1", "10"))
	mustPlace(t, acct, buy("TSLA", "1", "10"))

	all := acct.History(0)
	if len(all) != 3 || all[0].Symbol != "TSLA" || all[2].Symbol != "AAPL" {
		t.Fatalf("History(0) order wrong: %v", symbols(all))
	}
	two := acct.History(2)
	if len(two) != 2 || two[0].Symbol != "TSLA" || two[1].Symbol != "MSFT" {
		t.Fatalf("History(2) = %v", symbols(two))
	}
	if got := len(acct.History(10)); got != 3 {
		t.Errorf("History(10) len = %d, want 3", got)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	acct, clock := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))
	mustPlace(t, acct, sell("AAPL", "5", "80"))

	clock.t = clock.t.Add(48 * time.Hour)
	acct.Reset()

	if !acct.Cash().Equal(d("10000")) {
		t.Errorf("cash = %s, want 10000", acct.Cash())
	}
	if len(acct.Positions()) != 0 || len(acct.History(0)) != 0 {
		t.Error("positions and history should be empty after reset")
	}
	if !acct.RealizedPnL().IsZero() {
		t.Errorf("realized = %s, want 0", acct.RealizedPnL())
	}
	stats := acct.DailyStats()
	if stats.TotalTrades != 0 || stats.Date != "2024-03-06" {
		t.Errorf("daily stats after reset = %+v", stats)
	}
}

func TestResetDailyStats(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	mustPlace(t, acct, buy("AAPL", "10", "100"))
	mustPlace(t, acct, sell("AAPL", "10", "90"))

	acct.ResetDailyStats(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))

	stats := acct.DailyStats()
	if stats.Date != "2024-03-05" || stats.TotalTrades != 0 || !stats.DailyLoss.IsZero() {
		t.Errorf("daily stats = %+v", stats)
	}
	if !acct.RealizedPnL().Equal(d("-100")) {
		t.Error("ResetDailyStats must not touch lifetime realized P&L")
	}
}

func TestRecordExternalFillCountsTradeOnly(t *testing.T) {
	acct, _ := newTestAccount(t, "10000")
	acct.RecordExternalFill(models.Fill{OrderID: "LIVE-1", Symbol: "AAPL", Side: models.OrderSideBuy, Mode: models.TradingModeLive})

	if acct.DailyStats().TotalTrades != 1 {
		t.Error("external fill should count as a trade")
	}
	if !acct.Cash().Equal(d("10000")) || len(acct.History(0)) != 0 {
		t.Error("external fill must not touch cash or history")
	}
}

func mustPlace(t *testing.T, acct *Account, o models.Order) *models.Fill {
	t.Helper()
	fill, err := acct.PlaceOrder(o)
	if err != nil {
		t.Fatalf("PlaceOrder(%s %s %s@%s) error = %v", o.Side, o.Symbol, o.Quantity, o.Price, err)
	}
	return fill
}

func symbols(fills []models.Fill) []string {
	out := make([]string, len(fills))
	for i, f := range fills {
		out[i] = f.Symbol
	}
	return out
}
