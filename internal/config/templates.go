package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# papertrade configuration

[account]
id = "paper"
# Starting cash for the paper account
initial_balance = "100000"
# ISO 4217 code used when printing amounts
currency = "USD"

[trading]
# Trading mode: "paper" or "live"
mode = "paper"
# How long to wait for a quote before valuing a position at its average cost
price_timeout = "2s"
notify_timeout = "10s"

[risk]
# Maximum order value as percentage of portfolio value
max_position_size_pct = 10.0
# Trading pauses once today's realized losses exceed this share of portfolio value
max_daily_loss_pct = 5.0
stop_loss_pct = 2.0
take_profit_pct = 5.0
max_open_positions = 5
# Ask for confirmation when an order raises warnings
require_confirmation = true

# Static quotes used for valuation, e.g. AAPL = "190.50"
[prices]

[redis]
# Read last traded prices from hashes named <key_prefix><SYMBOL>
enabled = false
addr = "localhost:6379"
password = ""
db = 0
key_prefix = "quote:"
field = "ltp"

[store]
# SQLite journal of fills and settings
enabled = true
# path = "~/.config/papertrade/journal.db"

[notifications]
enabled = false
# Notification level: all, trades_only, alerts_only
level = "all"
# Write notifications to the log
log = true

[notifications.webhook]
enabled = false
url = ""
timeout = "10s"

[log]
level = "info"
console = false
file = true
max_size = 100
max_backups = 7
max_age = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
