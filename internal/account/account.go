// Package account maintains a simulated trading account: cash, open
// positions, fill history and daily statistics.
package account

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/ledger"
	"papertrade/internal/models"
)

// DateLayout is the calendar-day key used by daily statistics.
const DateLayout = "2006-01-02"

// Config holds configuration for an account.
type Config struct {
	ID             string
	InitialBalance decimal.Decimal
	Clock          func() time.Time
	NewOrderID     func(mode models.TradingMode) string
}

// Account is a paper trading account. All methods are safe for concurrent use.
type Account struct {
	id             string
	initialBalance decimal.Decimal
	now            func() time.Time
	newOrderID     func(mode models.TradingMode) string

	mu       sync.RWMutex
	cash     decimal.Decimal
	book     ledger.Book
	history  []models.Fill
	realized decimal.Decimal
	daily    models.DailyStats
}

// New creates an account funded with the initial balance.
func New(cfg Config) (*Account, error) {
	if cfg.InitialBalance.IsNegative() {
		return nil, errors.NewValidationError(errors.ErrConfigInvalid, "initial_balance", cfg.InitialBalance, "must not be negative")
	}
	if cfg.ID == "" {
		cfg.ID = "paper"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewOrderID == nil {
		cfg.NewOrderID = models.NewOrderID
	}

	a := &Account{
		id:             cfg.ID,
		initialBalance: cfg.InitialBalance,
		now:            cfg.Clock,
		newOrderID:     cfg.NewOrderID,
	}
	a.resetLocked()
	return a, nil
}

// ID returns the account id.
func (a *Account) ID() string {
	return a.id
}

// InitialBalance returns the balance the account was funded with.
func (a *Account) InitialBalance() decimal.Decimal {
	return a.initialBalance
}

// Cash returns the available cash.
func (a *Account) Cash() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cash
}

// RealizedPnL returns the lifetime realized P&L.
func (a *Account) RealizedPnL() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.realized
}

// Symbols returns the symbols with open positions.
func (a *Account) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.book.Symbols()
}

// Position returns a copy of the open position for symbol.
func (a *Account) Position(symbol string) (models.Position, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.book.Get(symbol)
}

// Positions returns copies of all open positions sorted by symbol.
func (a *Account) Positions() []models.Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.book.Positions()
}

// DailyStats returns today's counters.
func (a *Account) DailyStats() models.DailyStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.daily
}

// PlaceOrder executes order immediately at its price. On error the account
// is unchanged.
func (a *Account) PlaceOrder(order models.Order) (*models.Fill, error) {
	order = order.Normalized()
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fill, err := a.applyLocked(order, a.newOrderID(models.TradingModePaper), a.now())
	if err != nil {
		return nil, err
	}
	out := *fill
	return &out, nil
}

// ValidateOrder checks the structural validity of an order.
func ValidateOrder(order models.Order) error {
	switch {
	case models.NormalizeSymbol(order.Symbol) == "":
		return errors.NewValidationError(errors.ErrInvalidOrder, "symbol", order.Symbol, "must not be empty")
	case !order.Side.Valid():
		return errors.NewValidationError(errors.ErrInvalidOrder, "side", order.Side, "must be BUY or SELL")
	case order.Type != "" && !order.Type.Valid():
		return errors.NewValidationError(errors.ErrInvalidOrder, "order_type", order.Type, "must be MARKET or LIMIT")
	case !order.Quantity.IsPositive():
		return errors.NewValidationError(errors.ErrInvalidOrder, "quantity", order.Quantity, "must be positive")
	case !order.Price.IsPositive():
		return errors.NewValidationError(errors.ErrInvalidOrder, "price", order.Price, "must be positive")
	}
	return nil
}

// applyLocked applies order to a copy of the book and commits only when every
// step succeeded.
func (a *Account) applyLocked(order models.Order, orderID string, at time.Time) (*models.Fill, error) {
	notional := order.Notional()

	if order.Side == models.OrderSideBuy && notional.GreaterThan(a.cash) {
		return nil, errors.NewOrderError("", order.Symbol, string(order.Side),
			fmt.Sprintf("need %s, have %s", notional.StringFixed(2), a.cash.StringFixed(2)),
			errors.ErrInsufficientFunds)
	}

	book := a.book.Clone()
	realized, err := book.Apply(order, at)
	if err != nil {
		return nil, err
	}

	cash := a.cash
	if order.Side == models.OrderSideBuy {
		cash = cash.Sub(notional)
	} else {
		cash = cash.Add(notional)
	}

	fill := models.Fill{
		OrderID:       orderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		Quantity:      order.Quantity,
		Price:         order.Price,
		TotalNotional: notional,
		RealizedPnL:   realized,
		Status:        models.FillStatusFilled,
		Mode:          models.TradingModePaper,
		ExecutedAt:    at,
	}

	a.cash = cash
	a.book = book
	a.history = append(a.history, fill)
	if realized != nil {
		a.realized = a.realized.Add(*realized)
	}
	a.recordDailyLocked(fill)
	return &fill, nil
}

func (a *Account) recordDailyLocked(fill models.Fill) {
	a.daily.TotalTrades++
	if !fill.IsClosing() {
		return
	}
	realized := fill.Realized()
	switch {
	case realized.IsPositive():
		a.daily.WinningTrades++
	case realized.IsNegative():
		a.daily.LosingTrades++
		a.daily.DailyLoss = a.daily.DailyLoss.Add(realized)
	}
	a.daily.TotalPnL = a.daily.TotalPnL.Add(realized)
}

// RecordExternalFill counts a fill executed elsewhere (a live venue) in
// today's statistics without touching cash or positions.
func (a *Account) RecordExternalFill(fill models.Fill) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordDailyLocked(fill)
}

// History returns fills most recent first. limit <= 0 returns all.
func (a *Account) History(limit int) []models.Fill {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Fill, 0, n)
	for i := len(a.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, a.history[i])
	}
	return out
}

// Fills returns the full history in execution order.
func (a *Account) Fills() []models.Fill {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Fill, len(a.history))
	copy(out, a.history)
	return out
}

// Reset restores the initial balance and clears positions, history and
// daily statistics. The risk profile and trading mode live elsewhere and are
// not affected.
func (a *Account) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

func (a *Account) resetLocked() {
	a.cash = a.initialBalance
	a.book = ledger.NewBook()
	a.history = nil
	a.realized = decimal.Zero
	a.daily = newDailyStats(a.now())
}

// ResetDailyStats starts a fresh day.
func (a *Account) ResetDailyStats(day time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.daily = newDailyStats(day)
}

func newDailyStats(day time.Time) models.DailyStats {
	return models.DailyStats{
		Date:      day.Format(DateLayout),
		TotalPnL:  decimal.Zero,
		DailyLoss: decimal.Zero,
	}
}
