// Package sqlite implements the closed-signal archive on a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.ClosedSignalArchive.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite archive.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (and if needed creates) the archive database.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite archive")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signals.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the live driver and ad hoc queries.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	// The Go driver benefits from a single connection; SQLite serializes
	// writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize archive schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite archive initialization failed")
		return nil, err
	}

	cfg.Logger.Info(context.Background(), "SQLite archive ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signal_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		signal_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		strategy_id TEXT NOT NULL,
		exchange_id TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		close_reason TEXT NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signal_history_symbol_closed_at ON signal_history (symbol, closed_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite archive connection")
		return r.db.Close()
	}
	return nil
}

// RecordClose saves a closed-signal row and returns its assigned ID.
func (r *Repository) RecordClose(ctx context.Context, cs *domain.ClosedSignal) (int64, error) {
	if cs == nil {
		return 0, fmt.Errorf("%w: cannot record a nil closed signal", ports.ErrQueryFailed)
	}

	const query = `
	INSERT INTO signal_history
		(signal_id, symbol, strategy_id, exchange_id, side, entry_price, exit_price, pnl_percent, close_reason, opened_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		cs.SignalID, cs.Symbol, cs.StrategyID, cs.ExchangeID, string(cs.Side),
		cs.EntryPrice, cs.ExitPrice, cs.PNLPercent, string(cs.CloseReason),
		cs.OpenedAt, cs.ClosedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert closed signal: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get insert ID: %v", ports.ErrQueryFailed, err)
	}
	return id, nil
}

// FindBySymbol retrieves the most recent closed signals for a symbol.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.ClosedSignal, error) {
	const query = `
	SELECT id, signal_id, symbol, strategy_id, exchange_id, side, entry_price, exit_price, pnl_percent, close_reason, opened_at, closed_at
	FROM signal_history
	WHERE symbol = ?
	ORDER BY closed_at DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query closed signals for %s: %v", ports.ErrQueryFailed, symbol, err)
	}
	defer rows.Close()

	var out []*domain.ClosedSignal
	for rows.Next() {
		cs, err := scanClosedSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration failed: %v", ports.ErrQueryFailed, err)
	}
	return out, nil
}

// CountTodayBySymbol counts the signals closed since UTC midnight for a symbol.
func (r *Repository) CountTodayBySymbol(ctx context.Context, symbol string) (int, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)

	const query = `SELECT COUNT(*) FROM signal_history WHERE symbol = ? AND closed_at >= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, symbol, midnight).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count today's closed signals for %s: %v", ports.ErrQueryFailed, symbol, err)
	}
	return count, nil
}

// TotalPNLPercent sums the realized PNL percentage across all closed signals.
func (r *Repository) TotalPNLPercent(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(pnl_percent), 0) FROM signal_history`
	var total float64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: failed to sum realized pnl: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}

func scanClosedSignal(rows *sql.Rows) (*domain.ClosedSignal, error) {
	var cs domain.ClosedSignal
	var side, reason string
	if err := rows.Scan(
		&cs.ID, &cs.SignalID, &cs.Symbol, &cs.StrategyID, &cs.ExchangeID, &side,
		&cs.EntryPrice, &cs.ExitPrice, &cs.PNLPercent, &reason,
		&cs.OpenedAt, &cs.ClosedAt,
	); err != nil {
		return nil, fmt.Errorf("%w: failed to scan closed signal row: %v", ports.ErrQueryFailed, err)
	}
	cs.Side = domain.PositionSide(side)
	cs.CloseReason = domain.CloseReason(reason)
	return &cs, nil
}
