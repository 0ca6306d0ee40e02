package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a request to trade. It is never stored; executed orders become Fills.
type Order struct {
	Symbol    string          `json:"symbol"`
	Side      OrderSide       `json:"side"`
	Type      OrderType       `json:"order_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Confirmed bool            `json:"confirmed,omitempty"`
}

// NewOrder builds a MARKET order with a normalised symbol.
func NewOrder(symbol string, side OrderSide, quantity, price decimal.Decimal) Order {
	return Order{
		Symbol:   NormalizeSymbol(symbol),
		Side:     side,
		Type:     OrderTypeMarket,
		Quantity: quantity,
		Price:    price,
	}
}

// Normalized returns a copy with the symbol normalised and a default type.
func (o Order) Normalized() Order {
	o.Symbol = NormalizeSymbol(o.Symbol)
	if o.Type == "" {
		o.Type = OrderTypeMarket
	}
	return o
}

// Notional is quantity times price.
func (o Order) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// NewOrderID returns a unique order id prefixed with the mode, e.g. PAPER-<uuid>.
func NewOrderID(mode TradingMode) string {
	return fmt.Sprintf("%s-%s", mode, uuid.NewString())
}

// Fill is an immutable record of an executed order.
type Fill struct {
	OrderID       string           `json:"order_id"`
	Symbol        string           `json:"symbol"`
	Side          OrderSide        `json:"side"`
	Type          OrderType        `json:"order_type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	TotalNotional decimal.Decimal  `json:"total_notional"`
	RealizedPnL   *decimal.Decimal `json:"realized_pnl,omitempty"`
	Status        FillStatus       `json:"status"`
	Mode          TradingMode      `json:"mode"`
	ExecutedAt    time.Time        `json:"executed_at"`
}

// Realized returns the realized P&L, zero for fills that carry none.
func (f Fill) Realized() decimal.Decimal {
	if f.RealizedPnL == nil {
		return decimal.Zero
	}
	return *f.RealizedPnL
}

// IsClosing reports whether the fill realized P&L (a SELL).
func (f Fill) IsClosing() bool {
	return f.RealizedPnL != nil
}

// Order reconstructs the order that produced the fill.
func (f Fill) Order() Order {
	return Order{
		Symbol:    f.Symbol,
		Side:      f.Side,
		Type:      f.Type,
		Quantity:  f.Quantity,
		Price:     f.Price,
		Confirmed: true,
	}
}
