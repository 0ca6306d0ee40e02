package risk

import (
	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// quantityPlaces is the precision of recommended quantities. Fractional
// units are allowed; the value is truncated so it never exceeds the budget.
const quantityPlaces = 8

// CalculatePositionSize recommends a quantity that commits riskPct percent
// of the portfolio. A nil riskPct uses the profile's maximum position size.
func CalculatePositionSize(profile models.RiskProfile, symbol string, side models.OrderSide, price, portfolioValue decimal.Decimal, riskPct *float64) (models.PositionSizing, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.PositionSizing{}, errors.NewValidationError(errors.ErrInvalidOrder, "symbol", symbol, "must not be empty")
	}
	if !side.Valid() {
		return models.PositionSizing{}, errors.NewValidationError(errors.ErrInvalidOrder, "side", side, "must be BUY or SELL")
	}
	if !price.IsPositive() {
		return models.PositionSizing{}, errors.NewValidationError(errors.ErrInvalidOrder, "price", price, "must be positive")
	}

	pct := profile.MaxPositionSizePct
	if riskPct != nil {
		pct = *riskPct
	}
	if pct < 0 || pct > 100 {
		return models.PositionSizing{}, errors.NewValidationError(errors.ErrInvalidOrder, "risk_pct", pct, "must be between 0 and 100")
	}

	maxValue := decimal.Zero
	if portfolioValue.IsPositive() {
		maxValue = portfolioValue.Mul(decimal.NewFromFloat(pct)).Div(hundred)
	}
	qty := maxValue.Div(price).Truncate(quantityPlaces)

	stopFrac := decimal.NewFromFloat(profile.StopLossPct).Div(hundred)
	takeFrac := decimal.NewFromFloat(profile.TakeProfitPct).Div(hundred)
	one := decimal.NewFromInt(1)

	var stop, take decimal.Decimal
	if side == models.OrderSideBuy {
		stop = price.Mul(one.Sub(stopFrac))
		take = price.Mul(one.Add(takeFrac))
	} else {
		stop = price.Mul(one.Add(stopFrac))
		take = price.Mul(one.Sub(takeFrac))
	}

	return models.PositionSizing{
		Symbol:              symbol,
		Side:                side,
		Price:               price,
		RiskPct:             pct,
		RecommendedQuantity: qty,
		MaxPositionValue:    maxValue,
		StopLossPrice:       stop,
		TakeProfitPrice:     take,
		RiskPerTrade:        price.Sub(stop).Abs().Mul(qty),
	}, nil
}

// Summary reports the profile's limits in money terms against today's stats.
func Summary(mode models.TradingMode, profile models.RiskProfile, snap models.AccountSnapshot) models.RiskSummary {
	maxLoss := snap.PortfolioValue.Mul(decimal.NewFromFloat(profile.MaxDailyLossPct)).Div(hundred)
	remaining := maxLoss.Add(snap.DailyStats.DailyLoss)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	slots := profile.MaxOpenPositions - len(snap.Positions)
	if slots < 0 {
		slots = 0
	}

	return models.RiskSummary{
		Mode:             mode,
		Profile:          profile,
		DailyStats:       snap.DailyStats,
		PortfolioValue:   snap.PortfolioValue,
		MaxPositionValue: snap.PortfolioValue.Mul(decimal.NewFromFloat(profile.MaxPositionSizePct)).Div(hundred),
		MaxDailyLoss:     maxLoss,
		RemainingLoss:    remaining,
		OpenPositions:    len(snap.Positions),
		RemainingSlots:   slots,
		TradingAllowed:   !snap.DailyStats.DailyLoss.LessThan(maxLoss.Neg()),
	}
}
