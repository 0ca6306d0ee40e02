// Package broker provides the price source and execution venue interfaces
// the engine consumes, with in-process, Redis and simulated implementations.
package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

// PriceSource supplies the current price of a symbol. Implementations return
// an error wrapping errors.ErrPriceUnavailable when no price is known.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

// Price implements PriceSource.
func (f PriceSourceFunc) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f(ctx, symbol)
}

// Venue executes approved orders for real money.
type Venue interface {
	Name() string
	Submit(ctx context.Context, order models.Order) (*models.Fill, error)
}
