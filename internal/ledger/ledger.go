// Package ledger keeps per-symbol holdings with a weighted-average cost basis.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// Book maps a symbol to its open position. Only positions with a positive
// quantity are present.
type Book map[string]*models.Position

// NewBook returns an empty book.
func NewBook() Book {
	return make(Book)
}

// Clone returns a deep copy of the book.
func (b Book) Clone() Book {
	out := make(Book, len(b))
	for sym, pos := range b {
		cp := *pos
		out[sym] = &cp
	}
	return out
}

// Get returns a copy of the position for symbol.
func (b Book) Get(symbol string) (models.Position, bool) {
	pos, ok := b[models.NormalizeSymbol(symbol)]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Has reports whether symbol has an open position.
func (b Book) Has(symbol string) bool {
	_, ok := b[models.NormalizeSymbol(symbol)]
	return ok
}

// Symbols returns the held symbols in sorted order.
func (b Book) Symbols() []string {
	out := make([]string, 0, len(b))
	for sym := range b {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Positions returns copies of all positions sorted by symbol.
func (b Book) Positions() []models.Position {
	out := make([]models.Position, 0, len(b))
	for _, sym := range b.Symbols() {
		out = append(out, *b[sym])
	}
	return out
}

// CostBasis returns the total cost attributed to held units.
func (b Book) CostBasis() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range b {
		total = total.Add(pos.CostBasis)
	}
	return total
}

// Apply fills order against the book at the order's price. It returns the
// realized P&L for a SELL and nil for a BUY. On error the book is unchanged.
func (b Book) Apply(order models.Order, at time.Time) (*decimal.Decimal, error) {
	symbol := models.NormalizeSymbol(order.Symbol)
	if symbol == "" {
		return nil, errors.NewValidationError(errors.ErrInvalidOrder, "symbol", order.Symbol, "must not be empty")
	}
	if !order.Quantity.IsPositive() {
		return nil, errors.NewValidationError(errors.ErrInvalidOrder, "quantity", order.Quantity, "must be positive")
	}
	if !order.Price.IsPositive() {
		return nil, errors.NewValidationError(errors.ErrInvalidOrder, "price", order.Price, "must be positive")
	}

	switch order.Side {
	case models.OrderSideBuy:
		b.buy(symbol, order.Quantity, order.Price, at)
		return nil, nil
	case models.OrderSideSell:
		realized, err := b.sell(symbol, order.Quantity, order.Price, at)
		if err != nil {
			return nil, err
		}
		return &realized, nil
	default:
		return nil, errors.NewValidationError(errors.ErrInvalidOrder, "side", order.Side, "must be BUY or SELL")
	}
}

func (b Book) buy(symbol string, qty, price decimal.Decimal, at time.Time) {
	cost := qty.Mul(price)

	pos, ok := b[symbol]
	if !ok {
		b[symbol] = &models.Position{
			Symbol:      symbol,
			Quantity:    qty,
			AverageCost: price,
			CostBasis:   cost,
			RealizedPnL: decimal.Zero,
			OpenedAt:    at,
			UpdatedAt:   at,
		}
		return
	}

	pos.Quantity = pos.Quantity.Add(qty)
	pos.CostBasis = pos.CostBasis.Add(cost)
	pos.AverageCost = pos.CostBasis.Div(pos.Quantity)
	pos.UpdatedAt = at
}

func (b Book) sell(symbol string, qty, price decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	pos, ok := b[symbol]
	if !ok {
		return decimal.Zero, errors.NewOrderError("", symbol, string(models.OrderSideSell),
			"no open position", errors.ErrInsufficientQuantity)
	}
	if pos.Quantity.LessThan(qty) {
		return decimal.Zero, errors.NewOrderError("", symbol, string(models.OrderSideSell),
			fmt.Sprintf("requested %s, held %s", qty, pos.Quantity), errors.ErrInsufficientQuantity)
	}

	released := pos.AverageCost.Mul(qty)
	remaining := pos.Quantity.Sub(qty)
	if remaining.IsZero() {
		released = pos.CostBasis
	}
	realized := qty.Mul(price).Sub(released)

	if remaining.IsZero() {
		delete(b, symbol)
		return realized, nil
	}

	pos.Quantity = remaining
	pos.CostBasis = pos.CostBasis.Sub(released)
	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	pos.UpdatedAt = at
	return realized, nil
}
