// Package trading wires the account, risk checks and execution venues into
// the order engine.
package trading

import (
	"sync"

	"github.com/rs/zerolog"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// ModeResult describes a trading-mode transition.
type ModeResult struct {
	Previous models.TradingMode `json:"previous"`
	Mode     models.TradingMode `json:"mode"`
	Changed  bool               `json:"changed"`
	Message  string             `json:"message"`
}

// ModeController holds the current trading mode.
type ModeController struct {
	mu     sync.RWMutex
	mode   models.TradingMode
	logger zerolog.Logger
}

// NewModeController creates a controller in PAPER mode.
func NewModeController(logger zerolog.Logger) *ModeController {
	return &ModeController{mode: models.TradingModePaper, logger: logger}
}

// Mode returns the current mode.
func (c *ModeController) Mode() models.TradingMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// IsLive reports whether orders are routed to the execution venue.
func (c *ModeController) IsLive() bool {
	return c.Mode() == models.TradingModeLive
}

// Set switches to mode (case-insensitive). The switch is immediate.
func (c *ModeController) Set(mode string) (ModeResult, error) {
	next, ok := models.ParseTradingMode(mode)
	if !ok {
		return ModeResult{}, errors.NewValidationError(errors.ErrInvalidMode, "mode", mode, "must be PAPER or LIVE")
	}

	c.mu.Lock()
	prev := c.mode
	c.mode = next
	c.mu.Unlock()

	res := ModeResult{
		Previous: prev,
		Mode:     next,
		Changed:  prev != next,
		Message:  "Trading mode set to " + string(next),
	}
	if next == models.TradingModeLive {
		res.Message = "Trading mode set to LIVE. Orders will be sent to the execution venue."
		if res.Changed {
			c.logger.Warn().Str("previous", string(prev)).Msg("Live trading enabled")
		}
	} else if res.Changed {
		c.logger.Info().Str("previous", string(prev)).Msg("Paper trading enabled")
	}
	return res, nil
}
