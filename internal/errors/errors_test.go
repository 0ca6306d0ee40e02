package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestOrderErrorUnwrap(t *testing.T) {
	err := NewOrderError("", "AAPL", "BUY", "need 1500.00, have 100.00", ErrInsufficientFunds)

	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "[-]") {
		t.Errorf("expected placeholder order id in %q", err.Error())
	}

	wrapped := Wrap(err, "place order")
	var oe *OrderError
	if !As(wrapped, &oe) {
		t.Fatal("expected OrderError through Wrap")
	}
	if oe.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", oe.Symbol)
	}
}

func TestRiskErrorUnwrapsToLimitExceeded(t *testing.T) {
	err := NewRiskError("AAPL", "BUY",
		RiskViolation{Rule: "max_position_size", Current: 15, Limit: 10, Message: "Position size (15.00%) exceeds maximum (10%)"},
		RiskViolation{Rule: "max_open_positions", Current: 5, Limit: 5, Message: "Maximum open positions (5) reached"},
	)

	if !Is(err, ErrRiskLimitExceeded) {
		t.Fatal("RiskError should unwrap to ErrRiskLimitExceeded")
	}
	if got := len(err.Messages()); got != 2 {
		t.Fatalf("Messages() len = %d, want 2", got)
	}
	if !strings.Contains(err.Error(), "max_open_positions") {
		t.Errorf("error text should list every rule, got %q", err.Error())
	}
}

func TestValidationErrorKind(t *testing.T) {
	tests := []struct {
		name string
		kind error
		want error
	}{
		{"default kind", nil, ErrInputValidation},
		{"order", ErrInvalidOrder, ErrInvalidOrder},
		{"config", ErrConfigInvalid, ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.kind, "quantity", 0, "must be positive")
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
