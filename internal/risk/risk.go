// Package risk implements pre-trade risk validation and position sizing.
package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// LargeOrderPct is the order size, as a percentage of portfolio value, at
// which a large-order warning is raised.
const LargeOrderPct = 5.0

var hundred = decimal.NewFromInt(100)

// Validator checks orders against a risk profile. The profile can be
// replaced at runtime; Validate always sees a consistent copy.
type Validator struct {
	mu      sync.RWMutex
	profile models.RiskProfile
}

// NewValidator creates a validator after checking the profile.
func NewValidator(profile models.RiskProfile) (*Validator, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}
	return &Validator{profile: profile}, nil
}

// Profile returns the current profile.
func (v *Validator) Profile() models.RiskProfile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.profile
}

// Update applies the non-nil fields of u. The profile is unchanged if the
// result would be invalid.
func (v *Validator) Update(u models.RiskProfileUpdate) (models.RiskProfile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := u.Apply(v.profile)
	if err := ValidateProfile(next); err != nil {
		return v.profile, err
	}
	v.profile = next
	return next, nil
}

// Set replaces the profile after checking it.
func (v *Validator) Set(profile models.RiskProfile) error {
	if err := ValidateProfile(profile); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = profile
	return nil
}

// Validate checks order against the current profile and snapshot.
func (v *Validator) Validate(order models.Order, snap models.AccountSnapshot) models.ValidationResult {
	return Validate(v.Profile(), order, snap)
}

// ValidateProfile checks that percentages are within 0-100 and the position
// cap is non-negative.
func ValidateProfile(p models.RiskProfile) error {
	pcts := []struct {
		field string
		value float64
	}{
		{"max_position_size_pct", p.MaxPositionSizePct},
		{"max_daily_loss_pct", p.MaxDailyLossPct},
		{"stop_loss_pct", p.StopLossPct},
		{"take_profit_pct", p.TakeProfitPct},
	}
	for _, pct := range pcts {
		if pct.value < 0 || pct.value > 100 {
			return errors.NewValidationError(errors.ErrConfigInvalid, pct.field, pct.value, "must be between 0 and 100")
		}
	}
	if p.MaxOpenPositions < 0 {
		return errors.NewValidationError(errors.ErrConfigInvalid, "max_open_positions", p.MaxOpenPositions, "must not be negative")
	}
	return nil
}

// Validate runs every rule and collects errors and warnings. It does not
// stop at the first failure.
func Validate(profile models.RiskProfile, order models.Order, snap models.AccountSnapshot) models.ValidationResult {
	order = order.Normalized()
	value := order.Notional()
	sizePct := PositionSizePct(value, snap.PortfolioValue)

	result := models.ValidationResult{
		Errors:          []models.RiskIssue{},
		Warnings:        []models.RiskIssue{},
		PositionSizePct: sizePct,
		OrderValue:      value,
	}

	if sizePct > profile.MaxPositionSizePct {
		result.Errors = append(result.Errors, models.RiskIssue{
			Rule:    models.RuleMaxPositionSize,
			Message: fmt.Sprintf("Position size (%.2f%%) exceeds maximum (%g%%)", sizePct, profile.MaxPositionSizePct),
			Current: sizePct,
			Limit:   profile.MaxPositionSizePct,
		})
	}

	lossLimit := decimal.NewFromFloat(profile.MaxDailyLossPct).Div(hundred).Mul(snap.PortfolioValue)
	if snap.DailyStats.DailyLoss.LessThan(lossLimit.Neg()) {
		result.Errors = append(result.Errors, models.RiskIssue{
			Rule:    models.RuleMaxDailyLoss,
			Message: "Daily loss limit reached. Trading paused.",
			Current: snap.DailyStats.DailyLoss.InexactFloat64(),
			Limit:   lossLimit.Neg().InexactFloat64(),
		})
	}

	held := snap.Holds(order.Symbol)
	opens := order.Side == models.OrderSideBuy && !held
	if opens && len(snap.Positions) >= profile.MaxOpenPositions {
		result.Errors = append(result.Errors, models.RiskIssue{
			Rule:    models.RuleMaxOpenPositions,
			Message: fmt.Sprintf("Maximum open positions (%d) reached", profile.MaxOpenPositions),
			Current: float64(len(snap.Positions)),
			Limit:   float64(profile.MaxOpenPositions),
		})
	}

	if order.Side == models.OrderSideBuy && held {
		result.Warnings = append(result.Warnings, models.RiskIssue{
			Rule:    models.RuleDuplicateExposure,
			Message: fmt.Sprintf("Already have position in %s", order.Symbol),
		})
	}

	if sizePct >= LargeOrderPct {
		result.Warnings = append(result.Warnings, models.RiskIssue{
			Rule:    models.RuleLargeOrder,
			Message: "Large position size. Consider reducing.",
			Current: sizePct,
			Limit:   LargeOrderPct,
		})
	}

	result.Valid = len(result.Errors) == 0
	result.RequiresConfirmation = profile.RequireConfirmation && len(result.Warnings) > 0
	return result
}

// PositionSizePct is value as a percentage of portfolio value. A
// non-positive portfolio value counts as 100%.
func PositionSizePct(value, portfolioValue decimal.Decimal) float64 {
	if !portfolioValue.IsPositive() {
		return 100
	}
	return value.Div(portfolioValue).Mul(hundred).InexactFloat64()
}

// RiskError converts the errors of a failed validation into a typed error.
func RiskError(order models.Order, result models.ValidationResult) *errors.RiskError {
	violations := make([]errors.RiskViolation, len(result.Errors))
	for i, issue := range result.Errors {
		violations[i] = errors.RiskViolation{
			Rule:    issue.Rule,
			Current: issue.Current,
			Limit:   issue.Limit,
			Message: issue.Message,
		}
	}
	return errors.NewRiskError(order.Symbol, string(order.Side), violations...)
}
