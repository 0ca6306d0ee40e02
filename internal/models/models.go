// Package models provides domain models for the paper trading engine.
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// ParseOrderSide parses a side case-insensitively.
func ParseOrderSide(s string) (OrderSide, bool) {
	side := OrderSide(strings.ToUpper(strings.TrimSpace(s)))
	return side, side.Valid()
}

// OrderType represents the type of an order. It is advisory: every order
// fills immediately at the supplied price.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

// FillStatus is the terminal status of an executed order.
type FillStatus string

const (
	FillStatusFilled FillStatus = "FILLED"
)

// TradingMode selects where approved orders are executed.
type TradingMode string

const (
	TradingModePaper TradingMode = "PAPER"
	TradingModeLive  TradingMode = "LIVE"
)

// ParseTradingMode parses a mode case-insensitively.
func ParseTradingMode(s string) (TradingMode, bool) {
	switch TradingMode(strings.ToUpper(strings.TrimSpace(s))) {
	case TradingModePaper:
		return TradingModePaper, true
	case TradingModeLive:
		return TradingModeLive, true
	}
	return "", false
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PriceLookup returns the current price for symbol, or false when no price is known.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

// PriceMap is a fixed set of quotes keyed by symbol.
type PriceMap map[string]decimal.Decimal

// Lookup implements PriceLookup.
func (m PriceMap) Lookup(symbol string) (decimal.Decimal, bool) {
	p, ok := m[NormalizeSymbol(symbol)]
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}

// NoPrices is a PriceLookup that never knows a price.
func NoPrices(string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}
