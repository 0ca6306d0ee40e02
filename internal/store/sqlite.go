package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// timeLayout keeps nanoseconds and sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the journal at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError("failed to open database", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, dbError("failed to initialize schema", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Executed orders, paper and live
	CREATE TABLE IF NOT EXISTS fills (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL UNIQUE,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		total_notional TEXT NOT NULL,
		realized_pnl TEXT,
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		executed_at TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Key/value settings (mode, risk profile, daily reset boundary)
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_mode_time ON fills(mode, executed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return dbError("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Fills
// ============================================================================

// SaveFill appends a fill to the journal.
func (s *SQLiteStore) SaveFill(ctx context.Context, fill models.Fill) error {
	var realized sql.NullString
	if fill.RealizedPnL != nil {
		realized = sql.NullString{String: fill.RealizedPnL.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (order_id, symbol, side, order_type, quantity, price, total_notional, realized_pnl, status, mode, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fill.OrderID, fill.Symbol, string(fill.Side), string(fill.Type), fill.Quantity.String(), fill.Price.String(),
		fill.TotalNotional.String(), realized, string(fill.Status), string(fill.Mode), fill.ExecutedAt.UTC().Format(timeLayout))
	if err != nil {
		return dbError(fmt.Sprintf("failed to save fill %s", fill.OrderID), err)
	}
	return nil
}

// ListFills retrieves fills matching filter.
func (s *SQLiteStore) ListFills(ctx context.Context, filter FillFilter) ([]models.Fill, error) {
	query := "SELECT order_id, symbol, side, order_type, quantity, price, total_notional, realized_pnl, status, mode, executed_at FROM fills WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, models.NormalizeSymbol(filter.Symbol))
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, string(filter.Side))
	}
	if filter.Mode != "" {
		query += " AND mode = ?"
		args = append(args, string(filter.Mode))
	}
	if !filter.StartDate.IsZero() {
		query += " AND executed_at >= ?"
		args = append(args, filter.StartDate.UTC().Format(timeLayout))
	}
	if !filter.EndDate.IsZero() {
		query += " AND executed_at <= ?"
		args = append(args, filter.EndDate.UTC().Format(timeLayout))
	}

	if filter.Newest {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query fills", err)
	}
	defer rows.Close()

	var fills []models.Fill
	for rows.Next() {
		fill, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to read fills", err)
	}
	return fills, nil
}

func scanFill(rows *sql.Rows) (models.Fill, error) {
	var f models.Fill
	var side, orderType, status, mode string
	var qty, price, notional, executedAt string
	var realized sql.NullString
	if err := rows.Scan(&f.OrderID, &f.Symbol, &side, &orderType, &qty, &price, &notional, &realized, &status, &mode, &executedAt); err != nil {
		return f, dbError("failed to scan fill", err)
	}

	f.Side = models.OrderSide(side)
	f.Type = models.OrderType(orderType)
	f.Status = models.FillStatus(status)
	f.Mode = models.TradingMode(mode)

	var err error
	if f.Quantity, err = decimal.NewFromString(qty); err != nil {
		return f, corrupt(f.OrderID, "quantity", err)
	}
	if f.Price, err = decimal.NewFromString(price); err != nil {
		return f, corrupt(f.OrderID, "price", err)
	}
	if f.TotalNotional, err = decimal.NewFromString(notional); err != nil {
		return f, corrupt(f.OrderID, "total_notional", err)
	}
	if realized.Valid {
		pnl, err := decimal.NewFromString(realized.String)
		if err != nil {
			return f, corrupt(f.OrderID, "realized_pnl", err)
		}
		f.RealizedPnL = &pnl
	}
	if f.ExecutedAt, err = time.Parse(timeLayout, executedAt); err != nil {
		return f, corrupt(f.OrderID, "executed_at", err)
	}
	return f, nil
}

func corrupt(orderID, column string, err error) error {
	return dbError(fmt.Sprintf("fill %s has invalid %s", orderID, column), err)
}

// ClearFills deletes the fills of mode, or every fill when mode is empty.
func (s *SQLiteStore) ClearFills(ctx context.Context, mode models.TradingMode) (int64, error) {
	query := "DELETE FROM fills"
	args := []interface{}{}
	if mode != "" {
		query += " WHERE mode = ?"
		args = append(args, string(mode))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbError("failed to clear fills", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ============================================================================
// Settings
// ============================================================================

// SaveSetting stores value under key, replacing any previous value.
func (s *SQLiteStore) SaveSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return dbError(fmt.Sprintf("failed to save setting %s", key), err)
	}
	return nil
}

// GetSetting returns the value stored under key and whether it exists.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, dbError(fmt.Sprintf("failed to read setting %s", key), err)
	}
	return value, true, nil
}

func dbError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", errors.ErrDatabaseError, action, err)
}
