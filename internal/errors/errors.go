// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrInvalidOrder         = errors.New("invalid order")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrRiskLimitExceeded    = errors.New("risk limit exceeded")
	ErrInvalidMode          = errors.New("invalid trading mode")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrVenueRejected        = errors.New("execution venue rejected order")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrDatabaseError        = errors.New("database error")
	ErrInputValidation      = errors.New("input validation failed")
)

// OrderError represents an error related to order operations.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	id := e.OrderID
	if id == "" {
		id = "-"
	}
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", id, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", id, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ValidationError represents a validation error on a single field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInputValidation
	}
	return e.Err
}

// NewValidationError creates a new ValidationError. kind is the sentinel the
// error unwraps to; nil means ErrInputValidation.
func NewValidationError(kind error, field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     kind,
	}
}

// RiskViolation is a single failed risk rule.
type RiskViolation struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (v RiskViolation) String() string {
	return fmt.Sprintf("[%s] %s (current: %.2f, limit: %.2f)", v.Rule, v.Message, v.Current, v.Limit)
}

// RiskError reports every rule an order violated.
type RiskError struct {
	Symbol     string
	Action     string
	Violations []RiskViolation
}

func (e *RiskError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("risk violation %s %s: %s", e.Action, e.Symbol, strings.Join(parts, "; "))
}

func (e *RiskError) Unwrap() error {
	return ErrRiskLimitExceeded
}

// Messages returns the human-readable message of each violation.
func (e *RiskError) Messages() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Message
	}
	return out
}

// NewRiskError creates a new RiskError.
func NewRiskError(symbol, action string, violations ...RiskViolation) *RiskError {
	return &RiskError{
		Symbol:     symbol,
		Action:     action,
		Violations: violations,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
