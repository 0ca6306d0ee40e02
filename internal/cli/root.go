package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrade/internal/account"
	"papertrade/internal/broker"
	"papertrade/internal/config"
	"papertrade/internal/errors"
	"papertrade/internal/logging"
	"papertrade/internal/metrics"
	"papertrade/internal/models"
	"papertrade/internal/notify"
	"papertrade/internal/resilience"
	"papertrade/internal/security"
	"papertrade/internal/store"
	"papertrade/internal/trading"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Engine  *trading.Engine
	Metrics *metrics.Metrics
	Health  *resilience.Checker

	priceFlags  []string
	metricsFile string
	closers     []func() error
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory when the command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "papertrade",
		Short: "Paper trading ledger with pre-trade risk checks",
		Long: `papertrade simulates a brokerage account. Orders are checked against a
risk profile (position size, daily loss, open positions) before they are
filled against the paper account or routed to a live venue.

Every fill is journaled, so the account survives restarts.

Use 'papertrade <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				dir, _ := cmd.Flags().GetString("config")
				loaded, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = loaded
				app.Logger = logging.NewLoggerWithConfig(logConfig(loaded.Log))
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				lc := logConfig(app.Config.Log)
				lc.Level = "debug"
				lc.Console = true
				app.Logger = logging.NewLoggerWithConfig(lc)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/papertrade)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().StringArrayVar(&app.priceFlags, "price", nil, "quote override SYMBOL=PRICE (repeatable)")
	rootCmd.PersistentFlags().StringVar(&app.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	addCoreCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addRiskCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	return rootCmd
}

func logConfig(c config.LogConfig) logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Level,
		Console:    c.Console,
		File:       c.File,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
	}
}

// run opens the engine, runs fn and always closes the engine afterwards so
// pending notifications are delivered and the journal is flushed.
func (a *App) run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		err := fn(cmd, args)
		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
}

func (a *App) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.Config

	balance, err := cfg.InitialBalance()
	if err != nil {
		return err
	}
	table, err := cfg.QuoteTable()
	if err != nil {
		return err
	}
	overrides, err := ParsePriceFlags(a.priceFlags)
	if err != nil {
		return err
	}

	a.Metrics = metrics.New()
	a.Health = resilience.NewChecker(cfg.Trading.PriceTimeout)

	// Command-line quotes win over the live feed, which wins over the
	// configured table.
	sources := broker.Chain{broker.NewStaticQuotes(overrides)}
	if cfg.Redis.Enabled {
		rq, err := broker.NewRedisQuotes(broker.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Field:     cfg.Redis.Field,
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Redis quote source unavailable, using configured prices")
			a.Health.Register("redis", func(context.Context) resilience.ComponentHealth {
				return resilience.ComponentHealth{Status: resilience.HealthStatusUnhealthy, Message: err.Error()}
			})
		} else {
			bc := resilience.DefaultConfig()
			bc.OnStateChange = a.Metrics.BreakerStateChange
			guarded := broker.NewGuardedSource("redis-quotes", rq, bc)
			sources = append(sources, guarded)
			a.closers = append(a.closers, rq.Close)
			a.Health.Register("redis", resilience.PingHealthCheck(rq.Ping, 250*time.Millisecond))
			a.Health.Register("redis-breaker", resilience.BreakerHealthCheck(guarded.Breaker()))
		}
	}
	sources = append(sources, broker.NewStaticQuotes(table))

	var journal store.Journal
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		journal = s
		a.Health.Register("journal", resilience.PingHealthCheck(s.Ping, 100*time.Millisecond))
	}

	engine, err := trading.NewEngine(trading.Config{
		Account: account.Config{
			ID:             cfg.Account.ID,
			InitialBalance: balance,
		},
		Mode:          cfg.Mode(),
		RiskProfile:   cfg.Risk.Profile(),
		PriceTimeout:  cfg.Trading.PriceTimeout,
		NotifyTimeout: cfg.Trading.NotifyTimeout,
		Prices:        sources,
		Notifier:      notify.NewMultiNotifier(cfg.Notifications, cfg.Account.Currency, a.Logger),
		Journal:       journal,
		Metrics:       a.Metrics,
		Logger:        a.Logger,
	})
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return err
	}
	a.Engine = engine

	if err := engine.Restore(ctx); err != nil {
		a.close()
		return errors.Wrap(err, "restoring journal")
	}
	return nil
}

func (a *App) close() error {
	if a.Engine == nil {
		return nil
	}
	var errs []string
	if err := a.Engine.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if a.metricsFile != "" {
		if err := a.Metrics.WriteTextfile(a.metricsFile); err != nil {
			errs = append(errs, err.Error())
		}
	}
	a.Engine = nil
	a.closers = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParsePriceFlags parses SYMBOL=PRICE pairs.
func ParsePriceFlags(pairs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(pairs))
	for _, pair := range pairs {
		sym, raw, ok := strings.Cut(pair, "=")
		sym = models.NormalizeSymbol(sym)
		if !ok {
			return nil, errors.NewValidationError(errors.ErrInputValidation, "price", pair, "expected SYMBOL=PRICE")
		}
		if err := security.ValidateSymbol(sym); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !p.IsPositive() {
			return nil, errors.NewValidationError(errors.ErrInputValidation, "price", pair, "price must be a positive number")
		}
		out[sym] = p
	}
	return out, nil
}

func (a *App) output(cmd *cobra.Command) *Output {
	out := NewOutput(cmd)
	if a.Config != nil {
		out.WithCurrency(a.Config.Account.Currency)
	}
	return out
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newHealthCmd(app))
}

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the journal and quote sources",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			health := app.Health.Run(cmd.Context())

			if output.IsJSON() {
				if err := output.JSON(health); err != nil {
					return err
				}
			} else {
				table := NewTable(output, "COMPONENT", "STATUS", "LATENCY", "MESSAGE")
				for _, c := range health.Components {
					table.AddRow(c.Name, healthColor(output, c.Status), c.Latency.Round(time.Microsecond).String(), c.Message)
				}
				table.Render()
				output.Println()
				output.Printf("Overall: %s\n", healthColor(output, health.Status))
			}

			if health.Status == resilience.HealthStatusUnhealthy {
				return fmt.Errorf("health check failed")
			}
			return nil
		}),
	}
}

func healthColor(output *Output, status resilience.HealthStatus) string {
	switch status {
	case resilience.HealthStatusHealthy:
		return output.ColoredString(ColorGreen, string(status))
	case resilience.HealthStatusDegraded:
		return output.ColoredString(ColorYellow, string(status))
	}
	return output.ColoredString(ColorRed, string(status))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("papertrade v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View the loaded configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			cfg := app.Config
			if output.IsJSON() {
				redacted := *cfg
				redacted.Redis.Password = security.MaskCredential(cfg.Redis.Password)
				redacted.Notifications.Webhook.URL = security.RedactURL(cfg.Notifications.Webhook.URL)
				return output.JSON(redacted)
			}

			output.Bold("Configuration (%s)", cfg.Dir)
			output.Println()
			table := NewTable(output, "KEY", "VALUE")
			table.AddRow("account.id", cfg.Account.ID)
			table.AddRow("account.initial_balance", cfg.Account.InitialBalance)
			table.AddRow("account.currency", cfg.Account.Currency)
			table.AddRow("trading.mode", cfg.Trading.Mode)
			table.AddRow("trading.price_timeout", cfg.Trading.PriceTimeout.String())
			table.AddRow("risk.max_position_size_pct", fmt.Sprintf("%g", cfg.Risk.MaxPositionSizePct))
			table.AddRow("risk.max_daily_loss_pct", fmt.Sprintf("%g", cfg.Risk.MaxDailyLossPct))
			table.AddRow("risk.max_open_positions", fmt.Sprintf("%d", cfg.Risk.MaxOpenPositions))
			table.AddRow("redis.enabled", fmt.Sprintf("%t", cfg.Redis.Enabled))
			table.AddRow("store.path", cfg.Store.Path)
			table.AddRow("notifications.enabled", fmt.Sprintf("%t", cfg.Notifications.Enabled))
			if cfg.Notifications.Webhook.URL != "" {
				table.AddRow("notifications.webhook.url", security.RedactURL(cfg.Notifications.Webhook.URL))
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			NewOutput(cmd).Println(app.Config.Dir)
			return nil
		},
	})

	return cmd
}
