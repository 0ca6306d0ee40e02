package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	perrors "papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/resilience"
)

func TestStaticQuotes(t *testing.T) {
	q := NewStaticQuotes(map[string]decimal.Decimal{"aapl": decimal.NewFromInt(190)})
	ctx := context.Background()

	p, err := q.Price(ctx, "AAPL")
	if err != nil || !p.Equal(decimal.NewFromInt(190)) {
		t.Fatalf("Price(AAPL) = %s, %v", p, err)
	}

	if _, err := q.Price(ctx, "MSFT"); !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("missing symbol error = %v", err)
	}

	q.Set("msft", decimal.NewFromInt(410))
	if p, _ := q.Price(ctx, "MSFT"); !p.Equal(decimal.NewFromInt(410)) {
		t.Errorf("Price(MSFT) = %s after Set", p)
	}

	q.Set("MSFT", decimal.Zero)
	if _, err := q.Price(ctx, "MSFT"); !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("zero price should be unavailable, err = %v", err)
	}
}

func TestChainFallsThrough(t *testing.T) {
	first := NewStaticQuotes(nil)
	second := NewStaticQuotes(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(5)})

	p, err := Chain{first, second}.Price(context.Background(), "AAPL")
	if err != nil || !p.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("Chain.Price = %s, %v", p, err)
	}

	if _, err := (Chain{}).Price(context.Background(), "AAPL"); !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("empty chain error = %v", err)
	}
}

func TestGuardedSourceOpensOnTransportErrors(t *testing.T) {
	calls := 0
	flaky := PriceSourceFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		calls++
		return decimal.Zero, errors.New("connection refused")
	})
	g := NewGuardedSource("quotes", flaky, resilience.Config{FailureThreshold: 2, Cooldown: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = g.Price(ctx, "AAPL")
	}
	if g.Breaker().State() != resilience.StateOpen {
		t.Fatalf("breaker state = %s, want OPEN", g.Breaker().State())
	}

	_, err := g.Price(ctx, "AAPL")
	if !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("open breaker error = %v, want ErrPriceUnavailable", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestGuardedSourceIgnoresUnknownSymbols(t *testing.T) {
	g := NewGuardedSource("quotes", NewStaticQuotes(nil), resilience.Config{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, _ = g.Price(context.Background(), "NOPE")
	}
	if g.Breaker().State() != resilience.StateClosed {
		t.Error("unknown symbols must not trip the breaker")
	}
}

type fakeHash map[string]string

func (f fakeHash) HGet(_ context.Context, key, field string) *goredis.StringCmd {
	v, ok := f[key+"/"+field]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	if v == "ERR" {
		return goredis.NewStringResult("", errors.New("i/o timeout"))
	}
	return goredis.NewStringResult(v, nil)
}

func TestRedisQuotes(t *testing.T) {
	q := newRedisQuotes(fakeHash{
		"quote:AAPL/ltp": "191.25",
		"quote:BAD/ltp":  "n/a",
		"quote:DOWN/ltp": "ERR",
	}, RedisConfig{})
	ctx := context.Background()

	p, err := q.Price(ctx, "aapl")
	if err != nil || !p.Equal(decimal.RequireFromString("191.25")) {
		t.Fatalf("Price(aapl) = %s, %v", p, err)
	}
	if _, err := q.Price(ctx, "MSFT"); !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("missing key error = %v", err)
	}
	if _, err := q.Price(ctx, "BAD"); !errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("unparseable quote error = %v", err)
	}
	_, err = q.Price(ctx, "DOWN")
	if err == nil || errors.Is(err, perrors.ErrPriceUnavailable) {
		t.Errorf("transport error should not look like a missing quote: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestSimulatedVenue(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	v := NewSimulatedVenue(func() time.Time { return at }, nil)
	o := models.NewOrder("AAPL", models.OrderSideBuy, decimal.NewFromInt(2), decimal.NewFromInt(100))

	fill, err := v.Submit(context.Background(), o)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if fill.Mode != models.TradingModeLive || fill.Status != models.FillStatusFilled {
		t.Errorf("fill = %+v", fill)
	}
	if len(fill.OrderID) < 6 || fill.OrderID[:5] != "LIVE-" {
		t.Errorf("OrderID = %q", fill.OrderID)
	}
	if !fill.TotalNotional.Equal(decimal.NewFromInt(200)) || !fill.ExecutedAt.Equal(at) {
		t.Errorf("fill = %+v", fill)
	}

	v.RejectWith(errors.New("market closed"))
	if _, err := v.Submit(context.Background(), o); !errors.Is(err, perrors.ErrVenueRejected) {
		t.Errorf("rejected submit error = %v", err)
	}
	if got := len(v.Submitted()); got != 1 {
		t.Errorf("Submitted() len = %d, want 1", got)
	}
}
