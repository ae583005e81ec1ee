package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Position lifecycle status values stored in the status column.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

const positionsSchema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS positions (
    id TEXT PRIMARY KEY,
    instrument_key TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    initial_quantity INTEGER NOT NULL,
    side TEXT NOT NULL,
    entry_price REAL NOT NULL,
    entry_timestamp INTEGER NOT NULL,
    stop_loss REAL DEFAULT 0,
    take_profit REAL DEFAULT 0,
    exit_price REAL DEFAULT 0,
    exit_timestamp INTEGER DEFAULT 0,
    realized_pnl REAL DEFAULT 0,
    exit_reason TEXT DEFAULT '',
    strategy TEXT DEFAULT '',
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_entry_ts ON positions(entry_timestamp);
`

// Init creates the positions table if missing.
func (d *Database) Init() error {
	if _, err := d.DB.Exec(positionsSchema); err != nil {
		return fmt.Errorf("init positions schema: %w", err)
	}
	return nil
}

// PositionRecord is one position lifecycle row. The ledger's in-memory
// Position maps onto it one to one.
type PositionRecord struct {
	ID              string
	InstrumentKey   string
	Quantity        int
	InitialQuantity int
	Side            string // BUY or SELL
	EntryPrice      float64
	EntryTimestamp  int64
	StopLoss        float64
	TakeProfit      float64
	ExitPrice       float64
	ExitTimestamp   int64
	RealizedPnL     float64
	ExitReason      string
	Strategy        string
	Status          string
}

// UpsertPositionOp builds the write operation for a position row, for
// batching by the journal. Every lifecycle change rewrites the full row.
func UpsertPositionOp(r PositionRecord) (string, []any) {
	query := `
		INSERT INTO positions (id, instrument_key, quantity, initial_quantity, side,
			entry_price, entry_timestamp, stop_loss, take_profit,
			exit_price, exit_timestamp, realized_pnl, exit_reason, strategy, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quantity = excluded.quantity,
			stop_loss = excluded.stop_loss,
			take_profit = excluded.take_profit,
			exit_price = excluded.exit_price,
			exit_timestamp = excluded.exit_timestamp,
			realized_pnl = excluded.realized_pnl,
			exit_reason = excluded.exit_reason,
			status = excluded.status`
	args := []any{
		r.ID, r.InstrumentKey, r.Quantity, r.InitialQuantity, r.Side,
		r.EntryPrice, r.EntryTimestamp, r.StopLoss, r.TakeProfit,
		r.ExitPrice, r.ExitTimestamp, r.RealizedPnL, r.ExitReason, r.Strategy, r.Status,
	}
	return query, args
}

// LoadPositions returns every still-open row plus rows entered since the
// given session start, so a restart resumes the current day intact.
func (d *Database) LoadPositions(ctx context.Context, sessionStart time.Time) ([]PositionRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, instrument_key, quantity, initial_quantity, side,
			entry_price, entry_timestamp, stop_loss, take_profit,
			exit_price, exit_timestamp, realized_pnl, exit_reason, strategy, status
		FROM positions
		WHERE status = ? OR entry_timestamp >= ?
		ORDER BY entry_timestamp`,
		StatusOpen, sessionStart.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var r PositionRecord
		if err := rows.Scan(&r.ID, &r.InstrumentKey, &r.Quantity, &r.InitialQuantity, &r.Side,
			&r.EntryPrice, &r.EntryTimestamp, &r.StopLoss, &r.TakeProfit,
			&r.ExitPrice, &r.ExitTimestamp, &r.RealizedPnL, &r.ExitReason, &r.Strategy, &r.Status); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetPosition fetches one row by id, mainly for tests and tooling.
func (d *Database) GetPosition(ctx context.Context, id string) (PositionRecord, error) {
	var r PositionRecord
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, instrument_key, quantity, initial_quantity, side,
			entry_price, entry_timestamp, stop_loss, take_profit,
			exit_price, exit_timestamp, realized_pnl, exit_reason, strategy, status
		FROM positions WHERE id = ?`, id).
		Scan(&r.ID, &r.InstrumentKey, &r.Quantity, &r.InitialQuantity, &r.Side,
			&r.EntryPrice, &r.EntryTimestamp, &r.StopLoss, &r.TakeProfit,
			&r.ExitPrice, &r.ExitTimestamp, &r.RealizedPnL, &r.ExitReason, &r.Strategy, &r.Status)
	if err == sql.ErrNoRows {
		return r, fmt.Errorf("position %s not found", id)
	}
	return r, err
}
