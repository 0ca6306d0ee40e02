package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWithConfigNoWriters(t *testing.T) {
	logger := NewLoggerWithConfig(LogConfig{})
	if logger.GetLevel() != zerolog.Disabled {
		t.Errorf("logger without writers should be disabled, level = %v", logger.GetLevel())
	}
}

func TestNewLoggerWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "papertrade.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", File: true, FilePath: path, MaxSize: 1})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}
}

func TestLogFill(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	pnl := decimal.NewFromInt(200)

	LogFill(logger, models.Fill{
		OrderID:       "PAPER-1",
		Symbol:        "AAPL",
		Side:          models.OrderSideSell,
		Quantity:      decimal.NewFromInt(10),
		Price:         decimal.NewFromInt(120),
		TotalNotional: decimal.NewFromInt(1200),
		RealizedPnL:   &pnl,
		Mode:          models.TradingModePaper,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["order_id"] != "PAPER-1" || entry["realized_pnl"] != "200" || entry["event"] != "fill" || entry["symbol"] != "AAPL" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogRejection(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogRejection(logger, models.NewOrder("AAPL", models.OrderSideBuy, decimal.NewFromInt(1), decimal.NewFromInt(1)), "risk", errors.New("too big"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "warn" || entry["error"] != "too big" || entry["reason"] != "risk" || entry["symbol"] != "AAPL" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogPriceFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogPriceFallback(logger, "MSFT", decimal.NewFromInt(310), errors.New("no quote"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "debug" || entry["symbol"] != "MSFT" || entry["average_cost"] != "310" || entry["error"] != "no quote" {
		t.Errorf("entry = %v", entry)
	}
}
