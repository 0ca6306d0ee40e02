package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding of one symbol.
//
// AverageCost is recomputed only when units are bought. CostBasis is the
// cost still attributed to the held units; selling releases AverageCost per
// unit, and a full close releases whatever basis remains.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	OpenedAt    time.Time       `json:"opened_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MarketValue is quantity times price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealizedPnL is quantity times (price - average cost).
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price.Sub(p.AverageCost))
}

// PositionView is a position valued at a current price.
type PositionView struct {
	Symbol           string          `json:"symbol"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	MarketValue      decimal.Decimal `json:"market_value"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct float64         `json:"unrealized_pnl_pct"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	PriceFallback    bool            `json:"price_fallback"`
}

// PortfolioView is a valued report of an account.
type PortfolioView struct {
	AccountID      string          `json:"account_id"`
	Cash           decimal.Decimal `json:"cash"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Positions      []PositionView  `json:"positions"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	TotalValue     decimal.Decimal `json:"total_value"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	TotalPnLPct    float64         `json:"total_pnl_pct"`
}

// AccountSnapshot is a consistent copy of account state taken for risk validation.
type AccountSnapshot struct {
	Cash           decimal.Decimal `json:"cash"`
	Positions      []Position      `json:"positions"`
	DailyStats     DailyStats      `json:"daily_stats"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
}

// Holds reports whether the snapshot has an open position in symbol.
func (s AccountSnapshot) Holds(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}
