// Package store provides the persistent journal of fills and settings.
package store

import (
	"context"
	"time"

	"papertrade/internal/models"
)

// Journal defines the interface for fill and settings persistence.
type Journal interface {
	// Fills
	SaveFill(ctx context.Context, fill models.Fill) error
	ListFills(ctx context.Context, filter FillFilter) ([]models.Fill, error)
	ClearFills(ctx context.Context, mode models.TradingMode) (int64, error)

	// Settings
	SaveSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, bool, error)

	// Lifecycle
	Close() error
}

// Setting keys used by the engine.
const (
	SettingTradingMode  = "trading_mode"
	SettingRiskProfile  = "risk_profile"
	SettingDailyResetAt = "daily_reset_at"
)

// FillFilter represents filters for querying fills. Results are in execution
// order unless Newest is set.
type FillFilter struct {
	Symbol    string
	Side      models.OrderSide
	Mode      models.TradingMode
	StartDate time.Time
	EndDate   time.Time
	Newest    bool
	Limit     int
}
