package models

import (
	"github.com/shopspring/decimal"
)

// RiskProfile holds the pre-trade limits. Percentages are 0-100.
type RiskProfile struct {
	MaxPositionSizePct  float64 `json:"max_position_size_pct"`
	MaxDailyLossPct     float64 `json:"max_daily_loss_pct"`
	StopLossPct         float64 `json:"stop_loss_pct"`
	TakeProfitPct       float64 `json:"take_profit_pct"`
	MaxOpenPositions    int     `json:"max_open_positions"`
	RequireConfirmation bool    `json:"require_confirmation"`
}

// DefaultRiskProfile returns the stock limits.
func DefaultRiskProfile() RiskProfile {
	return RiskProfile{
		MaxPositionSizePct:  10,
		MaxDailyLossPct:     5,
		StopLossPct:         2,
		TakeProfitPct:       5,
		MaxOpenPositions:    5,
		RequireConfirmation: true,
	}
}

// RiskProfileUpdate changes the fields that are non-nil.
type RiskProfileUpdate struct {
	MaxPositionSizePct  *float64 `json:"max_position_size_pct,omitempty"`
	MaxDailyLossPct     *float64 `json:"max_daily_loss_pct,omitempty"`
	StopLossPct         *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct       *float64 `json:"take_profit_pct,omitempty"`
	MaxOpenPositions    *int     `json:"max_open_positions,omitempty"`
	RequireConfirmation *bool    `json:"require_confirmation,omitempty"`
}

// Apply returns p with the update's non-nil fields applied.
func (u RiskProfileUpdate) Apply(p RiskProfile) RiskProfile {
	if u.MaxPositionSizePct != nil {
		p.MaxPositionSizePct = *u.MaxPositionSizePct
	}
	if u.MaxDailyLossPct != nil {
		p.MaxDailyLossPct = *u.MaxDailyLossPct
	}
	if u.StopLossPct != nil {
		p.StopLossPct = *u.StopLossPct
	}
	if u.TakeProfitPct != nil {
		p.TakeProfitPct = *u.TakeProfitPct
	}
	if u.MaxOpenPositions != nil {
		p.MaxOpenPositions = *u.MaxOpenPositions
	}
	if u.RequireConfirmation != nil {
		p.RequireConfirmation = *u.RequireConfirmation
	}
	return p
}

// DailyStats accumulates trading activity for one calendar day.
type DailyStats struct {
	Date          string          `json:"date"`
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	DailyLoss     decimal.Decimal `json:"daily_loss"`
}

// Risk rule identifiers.
const (
	RuleMaxPositionSize   = "max_position_size"
	RuleMaxDailyLoss      = "max_daily_loss"
	RuleMaxOpenPositions  = "max_open_positions"
	RuleDuplicateExposure = "duplicate_exposure"
	RuleLargeOrder        = "large_order"
)

// RiskIssue is a single error or warning raised by validation.
type RiskIssue struct {
	Rule    string  `json:"rule"`
	Message string  `json:"message"`
	Current float64 `json:"current"`
	Limit   float64 `json:"limit"`
}

// ValidationResult is the outcome of a pre-trade risk check.
type ValidationResult struct {
	Valid                bool            `json:"valid"`
	Errors               []RiskIssue     `json:"errors"`
	Warnings             []RiskIssue     `json:"warnings"`
	PositionSizePct      float64         `json:"position_size_pct"`
	OrderValue           decimal.Decimal `json:"order_value"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
}

// PositionSizing is a recommended order size for a given risk budget.
type PositionSizing struct {
	Symbol              string          `json:"symbol"`
	Side                OrderSide       `json:"side"`
	Price               decimal.Decimal `json:"price"`
	RiskPct             float64         `json:"risk_pct"`
	RecommendedQuantity decimal.Decimal `json:"recommended_quantity"`
	MaxPositionValue    decimal.Decimal `json:"max_position_value"`
	StopLossPrice       decimal.Decimal `json:"stop_loss_price"`
	TakeProfitPrice     decimal.Decimal `json:"take_profit_price"`
	RiskPerTrade        decimal.Decimal `json:"risk_per_trade"`
}

// RiskSummary reports the current limits against today's activity.
type RiskSummary struct {
	Mode             TradingMode     `json:"mode"`
	Profile          RiskProfile     `json:"profile"`
	DailyStats       DailyStats      `json:"daily_stats"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	MaxPositionValue decimal.Decimal `json:"max_position_value"`
	MaxDailyLoss     decimal.Decimal `json:"max_daily_loss"`
	RemainingLoss    decimal.Decimal `json:"remaining_loss_budget"`
	OpenPositions    int             `json:"open_positions"`
	RemainingSlots   int             `json:"remaining_position_slots"`
	TradingAllowed   bool            `json:"trading_allowed"`
}
