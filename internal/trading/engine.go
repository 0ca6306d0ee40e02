package trading

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"papertrade/internal/account"
	"papertrade/internal/broker"
	"papertrade/internal/errors"
	"papertrade/internal/logging"
	"papertrade/internal/metrics"
	"papertrade/internal/models"
	"papertrade/internal/notify"
	"papertrade/internal/risk"
	"papertrade/internal/stats"
	"papertrade/internal/store"
)

const (
	defaultPriceTimeout  = 2 * time.Second
	defaultNotifyTimeout = 10 * time.Second
)

// Config holds the engine's settings and collaborators. Only Account is
// required; nil collaborators are replaced with inert defaults.
type Config struct {
	Account     account.Config
	Mode        models.TradingMode
	RiskProfile models.RiskProfile

	PriceTimeout  time.Duration
	NotifyTimeout time.Duration

	Prices   broker.PriceSource
	Venue    broker.Venue
	Notifier notify.Notifier
	Journal  store.Journal
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Engine is the order entry point: it prices, validates, executes and
// records orders, and reports on the account.
type Engine struct {
	account   *account.Account
	validator *risk.Validator
	mode      *ModeController

	prices   broker.PriceSource
	venue    broker.Venue
	notifier notify.Notifier
	journal  store.Journal
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	priceTimeout  time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	// submit serialises snapshot, validation and execution.
	submit sync.Mutex
	wg     sync.WaitGroup
}

// NewEngine creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Account.Clock == nil {
		cfg.Account.Clock = time.Now
	}
	acct, err := account.New(cfg.Account)
	if err != nil {
		return nil, err
	}

	profile := cfg.RiskProfile
	if profile == (models.RiskProfile{}) {
		profile = models.DefaultRiskProfile()
	}
	validator, err := risk.NewValidator(profile)
	if err != nil {
		return nil, err
	}

	mode := NewModeController(cfg.Logger)
	if cfg.Mode != "" {
		if _, err := mode.Set(string(cfg.Mode)); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		account:       acct,
		validator:     validator,
		mode:          mode,
		prices:        cfg.Prices,
		venue:         cfg.Venue,
		notifier:      cfg.Notifier,
		journal:       cfg.Journal,
		metrics:       cfg.Metrics,
		logger:        logging.WithComponent(cfg.Logger, "engine"),
		priceTimeout:  cfg.PriceTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		now:           cfg.Account.Clock,
	}
	if e.prices == nil {
		e.prices = broker.NewStaticQuotes(nil)
	}
	if e.venue == nil {
		e.venue = broker.NewSimulatedVenue(e.now, cfg.Account.NewOrderID)
	}
	if e.notifier == nil {
		e.notifier = notify.NoOpNotifier{}
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	if e.priceTimeout <= 0 {
		e.priceTimeout = defaultPriceTimeout
	}
	if e.notifyTimeout <= 0 {
		e.notifyTimeout = defaultNotifyTimeout
	}
	return e, nil
}

// Account returns the paper account.
func (e *Engine) Account() *account.Account {
	return e.account
}

// Mode returns the current trading mode.
func (e *Engine) Mode() models.TradingMode {
	return e.mode.Mode()
}

// RiskProfile returns the current risk profile.
func (e *Engine) RiskProfile() models.RiskProfile {
	return e.validator.Profile()
}

// ============================================================================
// Orders
// ============================================================================

// PlaceOrder validates order and executes it: against the paper account in
// PAPER mode, through the venue in LIVE mode. Rejected orders leave the
// account unchanged.
func (e *Engine) PlaceOrder(ctx context.Context, order models.Order) (*models.Fill, error) {
	order = order.Normalized()
	if err := account.ValidateOrder(order); err != nil {
		e.reject(order, metrics.ReasonInvalid, err)
		return nil, err
	}

	lookup := e.quotes(ctx, e.account.Symbols())

	e.submit.Lock()
	snap := e.account.Snapshot(lookup)
	result := e.validator.Validate(order, snap)

	if !result.Valid {
		e.submit.Unlock()
		err := risk.RiskError(order, result)
		e.reject(order, metrics.ReasonRisk, err)
		e.dispatch("risk alert", func(ctx context.Context) error {
			return e.notifier.SendRiskAlert(ctx, order, result)
		})
		return nil, err
	}
	if result.RequiresConfirmation && !order.Confirmed {
		e.submit.Unlock()
		err := errors.NewOrderError("", order.Symbol, string(order.Side), warningText(result), errors.ErrConfirmationRequired)
		e.reject(order, metrics.ReasonConfirmation, err)
		return nil, err
	}

	mode := e.mode.Mode()
	fill, err := e.execute(ctx, mode, order)
	if err != nil {
		e.submit.Unlock()
		e.reject(order, rejectionReason(err), err)
		return nil, err
	}
	// Journal under the lock so the journal order matches execution order.
	e.record(ctx, *fill)
	e.submit.Unlock()

	logging.LogFill(e.logger, *fill)
	e.metrics.ObserveFill(string(fill.Side), string(fill.Mode))
	e.metrics.SetAccount(e.account.Cash(), e.account.RealizedPnL(), len(e.account.Symbols()))

	out := *fill
	e.dispatch("fill", func(ctx context.Context) error {
		return e.notifier.SendFill(ctx, out)
	})
	return fill, nil
}

func (e *Engine) execute(ctx context.Context, mode models.TradingMode, order models.Order) (*models.Fill, error) {
	if mode != models.TradingModeLive {
		return e.account.PlaceOrder(order)
	}

	fill, err := e.venue.Submit(ctx, order)
	if err != nil {
		return nil, errors.Wrapf(err, "%s venue", e.venue.Name())
	}
	e.account.RecordExternalFill(*fill)
	return fill, nil
}

func (e *Engine) record(ctx context.Context, fill models.Fill) {
	if e.journal == nil {
		return
	}
	if err := e.journal.SaveFill(ctx, fill); err != nil {
		e.metrics.JournalErrors.Inc()
		l := logging.WithOrderID(e.logger, fill.OrderID)
		l.Error().Err(err).Msg("Failed to journal fill")
	}
}

func (e *Engine) reject(order models.Order, reason string, err error) {
	e.metrics.ObserveRejection(reason)
	logging.LogRejection(e.logger, order, reason, err)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrInvalidOrder):
		return metrics.ReasonInvalid
	case errors.Is(err, errors.ErrInsufficientFunds):
		return metrics.ReasonFunds
	case errors.Is(err, errors.ErrInsufficientQuantity):
		return metrics.ReasonQuantity
	case errors.Is(err, errors.ErrVenueRejected):
		return metrics.ReasonVenue
	default:
		return metrics.ReasonOther
	}
}

func warningText(result models.ValidationResult) string {
	msgs := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, "; ")
}

// ValidateOrder runs the risk checks without executing.
func (e *Engine) ValidateOrder(ctx context.Context, order models.Order) (models.ValidationResult, error) {
	order = order.Normalized()
	if err := account.ValidateOrder(order); err != nil {
		return models.ValidationResult{}, err
	}
	snap := e.account.Snapshot(e.quotes(ctx, e.account.Symbols()))
	return e.validator.Validate(order, snap), nil
}

// dispatch runs a notification in the background with its own timeout.
// Close waits for outstanding notifications.
func (e *Engine) dispatch(kind string, send func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			e.logger.Warn().Err(err).Str("notification", kind).Msg("Notification failed")
		}
	}()
}

// ============================================================================
// Prices
// ============================================================================

type quote struct {
	symbol string
	price  decimal.Decimal
	err    error
	took   time.Duration
}

// quotes fetches prices for symbols concurrently, bounded by the price
// timeout. Symbols without a price in time are left out so callers fall back
// to average cost.
func (e *Engine) quotes(ctx context.Context, symbols []string) models.PriceLookup {
	prices := make(models.PriceMap, len(symbols))
	if len(symbols) == 0 {
		return prices.Lookup
	}

	ctx, cancel := context.WithTimeout(ctx, e.priceTimeout)
	defer cancel()

	start := time.Now()
	results := make(chan quote, len(symbols))
	for _, sym := range symbols {
		go func(sym string) {
			begin := time.Now()
			price, err := e.prices.Price(ctx, sym)
			results <- quote{symbol: sym, price: price, err: err, took: time.Since(begin)}
		}(sym)
	}

	failed := make(map[string]error, len(symbols))
	for pending := len(symbols); pending > 0; pending-- {
		select {
		case q := <-results:
			e.metrics.ObservePriceLookup(q.took, q.err != nil)
			if q.err != nil {
				failed[q.symbol] = q.err
				continue
			}
			prices[q.symbol] = q.price
		case <-ctx.Done():
			e.logger.Debug().Int("missing", pending).Msg("Price lookup timed out")
			e.fallBack(symbols, prices, failed, ctx.Err(), time.Since(start))
			return prices.Lookup
		}
	}
	e.fallBack(symbols, prices, failed, nil, 0)
	return prices.Lookup
}

// fallBack logs every symbol left without a price. Symbols with no result
// by the deadline are recorded as failed lookups taking elapsed.
func (e *Engine) fallBack(symbols []string, prices models.PriceMap, failed map[string]error, deadline error, elapsed time.Duration) {
	for _, sym := range symbols {
		if _, ok := prices[sym]; ok {
			continue
		}
		err, seen := failed[sym]
		if !seen {
			err = deadline
			e.metrics.ObservePriceLookup(elapsed, true)
		}
		pos, _ := e.account.Position(sym)
		logging.LogPriceFallback(e.logger, sym, pos.AverageCost, err)
	}
}

// ============================================================================
// Reporting
// ============================================================================

// Portfolio values the account at current prices.
func (e *Engine) Portfolio(ctx context.Context) models.PortfolioView {
	return e.account.Portfolio(e.quotes(ctx, e.account.Symbols()))
}

// TradeHistory returns paper fills most recent first. limit <= 0 returns all.
func (e *Engine) TradeHistory(limit int) []models.Fill {
	return e.account.History(limit)
}

// VenueHistory returns journaled LIVE fills most recent first.
func (e *Engine) VenueHistory(ctx context.Context, limit int) ([]models.Fill, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.ListFills(ctx, store.FillFilter{Mode: models.TradingModeLive, Newest: true, Limit: limit})
}

// CalculatePositionSize recommends a quantity for symbol at price. A nil
// riskPct uses the profile's maximum position size.
func (e *Engine) CalculatePositionSize(ctx context.Context, symbol string, side models.OrderSide, price decimal.Decimal, riskPct *float64) (models.PositionSizing, error) {
	snap := e.account.Snapshot(e.quotes(ctx, e.account.Symbols()))
	return risk.CalculatePositionSize(e.validator.Profile(), symbol, side, price, snap.PortfolioValue, riskPct)
}

// Quote returns the current price of symbol from the price source.
func (e *Engine) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.priceTimeout)
	defer cancel()
	price, err := e.prices.Price(ctx, models.NormalizeSymbol(symbol))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "quote %s", models.NormalizeSymbol(symbol))
	}
	return price, nil
}

// RiskSummary reports the risk limits against today's trading.
func (e *Engine) RiskSummary(ctx context.Context) models.RiskSummary {
	snap := e.account.Snapshot(e.quotes(ctx, e.account.Symbols()))
	return risk.Summary(e.mode.Mode(), e.validator.Profile(), snap)
}

// Statistics builds the performance report over the paper history.
func (e *Engine) Statistics(ctx context.Context, period stats.Period) stats.Report {
	view := e.Portfolio(ctx)
	fills := e.account.Fills()
	summary := stats.Summarize(fills, e.account.InitialBalance(), view.TotalValue)

	return stats.Report{
		Mode:      e.mode.Mode(),
		Portfolio: view,
		Summary:   summary,
		Period:    period,
		Periods:   stats.ByPeriod(fills, period, time.Local),
		Symbols:   stats.BySymbol(fills),
		Exposure:  stats.Exposure(view),
		Insights:  stats.Insights(summary),
	}
}

// ============================================================================
// Settings
// ============================================================================

// SetTradingMode switches between PAPER and LIVE and persists the choice.
func (e *Engine) SetTradingMode(ctx context.Context, mode string) (ModeResult, error) {
	e.submit.Lock()
	defer e.submit.Unlock()

	// Persist first so a failed write leaves the mode as it was.
	if next, ok := models.ParseTradingMode(mode); ok {
		if err := e.saveSetting(ctx, store.SettingTradingMode, string(next)); err != nil {
			return ModeResult{}, err
		}
	}
	res, err := e.mode.Set(mode)
	if err != nil {
		return res, err
	}
	if res.Changed {
		e.dispatch("mode change", func(ctx context.Context) error {
			return e.notifier.SendModeChange(ctx, res.Previous, res.Mode)
		})
	}
	return res, nil
}

// UpdateRiskProfile applies the non-nil fields of u and persists the result.
// The previous profile is restored if it cannot be persisted.
func (e *Engine) UpdateRiskProfile(ctx context.Context, u models.RiskProfileUpdate) (models.RiskProfile, error) {
	e.submit.Lock()
	defer e.submit.Unlock()

	prev := e.validator.Profile()
	profile, err := e.validator.Update(u)
	if err != nil {
		return profile, err
	}
	data, err := json.Marshal(profile)
	if err == nil {
		err = e.saveSetting(ctx, store.SettingRiskProfile, string(data))
	}
	if err != nil {
		if rerr := e.validator.Set(prev); rerr != nil {
			e.logger.Error().Err(rerr).Msg("Failed to restore risk profile")
		}
		return prev, errors.Wrap(err, "persist risk profile")
	}
	e.logger.Info().Interface("profile", profile).Msg("Risk profile updated")
	return profile, nil
}

// Reset returns the paper account to its initial balance and clears its
// journaled fills. Mode and risk profile are kept.
func (e *Engine) Reset(ctx context.Context) error {
	e.submit.Lock()
	defer e.submit.Unlock()

	now := e.now()
	if e.journal != nil {
		if _, err := e.journal.ClearFills(ctx, models.TradingModePaper); err != nil {
			return err
		}
		if err := e.saveSetting(ctx, store.SettingDailyResetAt, now.Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	e.account.Reset()
	e.metrics.SetAccount(e.account.Cash(), e.account.RealizedPnL(), 0)
	e.logger.Info().Str("balance", e.account.InitialBalance().String()).Msg("Account reset")
	return nil
}

// ResetDailyStats starts a new trading day for the daily loss limit.
func (e *Engine) ResetDailyStats(ctx context.Context) error {
	e.submit.Lock()
	defer e.submit.Unlock()

	now := e.now()
	if err := e.saveSetting(ctx, store.SettingDailyResetAt, now.Format(time.RFC3339Nano)); err != nil {
		return err
	}
	e.account.ResetDailyStats(now)
	return nil
}

func (e *Engine) saveSetting(ctx context.Context, key, value string) error {
	if e.journal == nil {
		return nil
	}
	return e.journal.SaveSetting(ctx, key, value)
}

// Restore loads the mode, risk profile and fill journal. Without a journal
// it does nothing.
func (e *Engine) Restore(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	e.submit.Lock()
	defer e.submit.Unlock()

	if v, ok, err := e.journal.GetSetting(ctx, store.SettingTradingMode); err != nil {
		return err
	} else if ok {
		if _, err := e.mode.Set(v); err != nil {
			return errors.Wrap(err, "restore trading mode")
		}
	}

	if v, ok, err := e.journal.GetSetting(ctx, store.SettingRiskProfile); err != nil {
		return err
	} else if ok {
		var profile models.RiskProfile
		if err := json.Unmarshal([]byte(v), &profile); err != nil {
			return errors.Wrap(errors.ErrConfigInvalid, "decode stored risk profile: "+err.Error())
		}
		if err := e.validator.Set(profile); err != nil {
			return errors.Wrap(err, "restore risk profile")
		}
	}

	var dailySince time.Time
	if v, ok, err := e.journal.GetSetting(ctx, store.SettingDailyResetAt); err != nil {
		return err
	} else if ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return errors.Wrap(errors.ErrConfigInvalid, "decode daily reset time: "+err.Error())
		}
		dailySince = t
	}

	fills, err := e.journal.ListFills(ctx, store.FillFilter{})
	if err != nil {
		return err
	}
	if err := e.account.Restore(fills, dailySince); err != nil {
		return err
	}

	e.metrics.SetAccount(e.account.Cash(), e.account.RealizedPnL(), len(e.account.Symbols()))
	e.logger.Debug().Int("fills", len(fills)).Str("mode", string(e.mode.Mode())).Msg("Engine restored")
	return nil
}

// Close waits for pending notifications and closes the journal.
func (e *Engine) Close() error {
	e.wg.Wait()
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}
