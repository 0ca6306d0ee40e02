package broker

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
	"papertrade/internal/resilience"
)

// StaticQuotes is an in-memory price table.
type StaticQuotes struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticQuotes creates a table seeded with prices.
func NewStaticQuotes(prices map[string]decimal.Decimal) *StaticQuotes {
	q := &StaticQuotes{prices: make(map[string]decimal.Decimal, len(prices))}
	for sym, p := range prices {
		q.prices[models.NormalizeSymbol(sym)] = p
	}
	return q
}

// Set records a price for symbol.
func (q *StaticQuotes) Set(symbol string, price decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[models.NormalizeSymbol(symbol)] = price
}

// Price implements PriceSource.
func (q *StaticQuotes) Price(_ context.Context, symbol string) (decimal.Decimal, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	symbol = models.NormalizeSymbol(symbol)
	p, ok := q.prices[symbol]
	if !ok || !p.IsPositive() {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "no quote for %s", symbol)
	}
	return p, nil
}

// Chain asks each source in turn and returns the first price found.
type Chain []PriceSource

// Price implements PriceSource.
func (c Chain) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var lastErr error
	for _, src := range c {
		p, err := src.Price(ctx, symbol)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.Wrapf(errors.ErrPriceUnavailable, "no quote for %s", symbol)
	}
	return decimal.Zero, lastErr
}

// GuardedSource wraps a remote price source with a circuit breaker. Unknown
// symbols do not count as failures; transport errors and timeouts do.
type GuardedSource struct {
	source  PriceSource
	breaker *resilience.Breaker
}

// NewGuardedSource wraps source. The breaker's failure predicate is replaced.
func NewGuardedSource(name string, source PriceSource, cfg resilience.Config) *GuardedSource {
	cfg.IsFailure = func(err error) bool {
		return !errors.Is(err, errors.ErrPriceUnavailable)
	}
	return &GuardedSource{source: source, breaker: resilience.New(name, cfg)}
}

// Price implements PriceSource.
func (g *GuardedSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p, err := resilience.Do(g.breaker, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return g.source.Price(ctx, symbol)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "%s: %v", symbol, err)
	}
	return p, err
}

// Breaker exposes the underlying breaker for inspection.
func (g *GuardedSource) Breaker() *resilience.Breaker {
	return g.breaker
}
