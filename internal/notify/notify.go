// Package notify delivers trade and risk events to notification channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"papertrade/internal/config"
	"papertrade/internal/models"
	"papertrade/internal/security"
	"papertrade/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendFill(ctx context.Context, fill models.Fill) error
	SendRiskAlert(ctx context.Context, order models.Order, result models.ValidationResult) error
	SendModeChange(ctx context.Context, from, to models.TradingMode) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade NotificationType = "trade"
	NotificationAlert NotificationType = "alert"
	NotificationInfo  NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelAlertsOnly NotificationLevel = "alerts_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	currency string
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the channels enabled in cfg.
func NewMultiNotifier(cfg config.NotificationConfig, currency string, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		level:    NotificationLevel(cfg.Level),
		currency: currency,
		now:      time.Now,
	}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if mn.currency == "" {
		mn.currency = utils.DefaultCurrency
	}
	if !cfg.Enabled {
		return mn
	}

	if cfg.Log {
		mn.channels = append(mn.channels, NewLogNotifier(logger))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the configured channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	names := make([]string, 0, len(mn.channels))
	for _, ch := range mn.channels {
		names = append(names, ch.Name())
	}
	return names
}

func (mn *MultiNotifier) shouldSend(t NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return t == NotificationTrade
	case LevelAlertsOnly:
		return t == NotificationAlert
	default:
		return true
	}
}

// Send sends a notification to all enabled channels. Every channel is tried;
// failures are joined into one error.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = mn.now()
	}

	mn.mu.RLock()
	channels := make([]NotificationChannel, len(mn.channels))
	copy(channels, mn.channels)
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendFill sends a trade notification for an executed order.
func (mn *MultiNotifier) SendFill(ctx context.Context, fill models.Fill) error {
	title := fmt.Sprintf("Order Filled: %s %s %s", fill.Side, utils.FormatQuantity(fill.Quantity), fill.Symbol)
	message := fmt.Sprintf(
		"Mode: %s\nSymbol: %s\nAction: %s\nQuantity: %s\nPrice: %s\nTotal: %s",
		fill.Mode,
		fill.Symbol,
		fill.Side,
		utils.FormatQuantity(fill.Quantity),
		utils.FormatMoney(fill.Price, mn.currency),
		utils.FormatMoney(fill.TotalNotional, mn.currency),
	)

	data := map[string]interface{}{
		"order_id": fill.OrderID,
		"mode":     fill.Mode,
		"symbol":   fill.Symbol,
		"side":     fill.Side,
		"quantity": fill.Quantity.String(),
		"price":    fill.Price.String(),
		"total":    fill.TotalNotional.String(),
	}
	if fill.RealizedPnL != nil {
		message += fmt.Sprintf("\nRealized P&L: %s", utils.FormatPnL(*fill.RealizedPnL, mn.currency))
		data["realized_pnl"] = fill.RealizedPnL.String()
	}

	return mn.Send(ctx, Notification{
		Type:      NotificationTrade,
		Title:     title,
		Message:   message,
		Data:      data,
		Timestamp: fill.ExecutedAt,
	})
}

// SendRiskAlert sends an alert for an order the risk checks refused.
func (mn *MultiNotifier) SendRiskAlert(ctx context.Context, order models.Order, result models.ValidationResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Order: %s %s %s @ %s\n", order.Side, utils.FormatQuantity(order.Quantity), order.Symbol,
		utils.FormatMoney(order.Price, mn.currency))
	fmt.Fprintf(&sb, "Position size: %s", utils.FormatPercent(result.PositionSizePct))

	rules := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		fmt.Fprintf(&sb, "\n- %s", issue.Message)
		rules = append(rules, issue.Rule)
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationAlert,
		Title:   fmt.Sprintf("Risk Alert: %s %s blocked", order.Side, order.Symbol),
		Message: sb.String(),
		Data: map[string]interface{}{
			"symbol":            order.Symbol,
			"side":              order.Side,
			"order_value":       result.OrderValue.String(),
			"position_size_pct": result.PositionSizePct,
			"rules":             rules,
		},
	})
}

// SendModeChange sends a notice when the trading mode switches.
func (mn *MultiNotifier) SendModeChange(ctx context.Context, from, to models.TradingMode) error {
	message := fmt.Sprintf("Trading mode changed from %s to %s", from, to)
	if to == models.TradingModeLive {
		message += "\nOrders are now routed to the execution venue."
	}
	return mn.Send(ctx, Notification{
		Type:    NotificationInfo,
		Title:   fmt.Sprintf("Mode: %s", to),
		Message: message,
		Data: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	})
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	retry   utils.RetryConfig
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: timeout},
		retry:   utils.DefaultRetryConfig(),
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send posts the notification as JSON. Server errors and transport failures
// are retried; a 4xx response is not.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return utils.Retry(ctx, w.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return utils.Permanent(fmt.Errorf("creating webhook request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "papertrade/1.0")

		resp, err := w.client.Do(req)
		if err != nil {
			var ue *url.Error
			if errors.As(err, &ue) {
				ue.URL = security.RedactURL(ue.URL)
			}
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return utils.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	})
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// Name returns the name of the notifier.
func (l *LogNotifier) Name() string {
	return "log"
}

// IsEnabled returns whether the notifier is enabled.
func (l *LogNotifier) IsEnabled() bool {
	return true
}

// Send logs the notification. Alerts are logged at warn level.
func (l *LogNotifier) Send(_ context.Context, n Notification) error {
	event := l.logger.Info()
	if n.Type == NotificationAlert {
		event = l.logger.Warn()
	}
	event.
		Str("type", string(n.Type)).
		Str("title", n.Title).
		Interface("data", n.Data).
		Time("at", n.Timestamp).
		Msg(n.Message)
	return nil
}

// NoOpNotifier discards every notification.
type NoOpNotifier struct{}

func (NoOpNotifier) Send(context.Context, Notification) error { return nil }

func (NoOpNotifier) SendFill(context.Context, models.Fill) error { return nil }

func (NoOpNotifier) SendModeChange(context.Context, models.TradingMode, models.TradingMode) error {
	return nil
}

func (NoOpNotifier) SendRiskAlert(context.Context, models.Order, models.ValidationResult) error {
	return nil
}
