package account

import (
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Portfolio values the account at the prices returned by lookup. Positions
// without a price are valued at their average cost and flagged.
//
// Cost basis is reported as stored by the ledger, so cash plus the summed
// cost basis equals the initial balance plus realized P&L exactly, even when
// the average cost does not terminate.
func (a *Account) Portfolio(lookup models.PriceLookup) models.PortfolioView {
	if lookup == nil {
		lookup = models.NoPrices
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	view := models.PortfolioView{
		AccountID:      a.id,
		Cash:           a.cash,
		InitialBalance: a.initialBalance,
		Positions:      make([]models.PositionView, 0, len(a.book)),
		PositionsValue: decimal.Zero,
		UnrealizedPnL:  decimal.Zero,
		RealizedPnL:    a.realized,
	}

	for _, pos := range a.book.Positions() {
		pv := valuePosition(pos, lookup)
		view.Positions = append(view.Positions, pv)
		view.PositionsValue = view.PositionsValue.Add(pv.MarketValue)
		view.UnrealizedPnL = view.UnrealizedPnL.Add(pv.UnrealizedPnL)
	}

	view.TotalValue = view.Cash.Add(view.PositionsValue)
	view.TotalPnL = view.TotalValue.Sub(a.initialBalance)
	view.TotalPnLPct = percentOf(view.TotalPnL, a.initialBalance)
	return view
}

func valuePosition(pos models.Position, lookup models.PriceLookup) models.PositionView {
	price, ok := lookup(pos.Symbol)
	if !ok {
		price = pos.AverageCost
	}

	return models.PositionView{
		Symbol:           pos.Symbol,
		Quantity:         pos.Quantity,
		AverageCost:      pos.AverageCost,
		CurrentPrice:     price,
		MarketValue:      pos.MarketValue(price),
		CostBasis:        pos.CostBasis,
		UnrealizedPnL:    pos.UnrealizedPnL(price),
		UnrealizedPnLPct: percentOf(pos.UnrealizedPnL(price), pos.CostBasis),
		RealizedPnL:      pos.RealizedPnL,
		PriceFallback:    !ok,
	}
}

// Snapshot returns a consistent copy of the state the risk validator needs.
func (a *Account) Snapshot(lookup models.PriceLookup) models.AccountSnapshot {
	if lookup == nil {
		lookup = models.NoPrices
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	positions := a.book.Positions()
	value := a.cash
	for _, pos := range positions {
		price, ok := lookup(pos.Symbol)
		if !ok {
			price = pos.AverageCost
		}
		value = value.Add(pos.MarketValue(price))
	}

	return models.AccountSnapshot{
		Cash:           a.cash,
		Positions:      positions,
		DailyStats:     a.daily,
		PortfolioValue: value,
		RealizedPnL:    a.realized,
	}
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
