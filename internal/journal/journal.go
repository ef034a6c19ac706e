// Package journal persists backtest runs and their trades to SQLite so runs
// can be compared after the fact.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	symbol       TEXT NOT NULL,
	start_date   TEXT NOT NULL,
	end_date     TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	total_profit TEXT,
	opens        INTEGER,
	closes       INTEGER,
	win_rate     REAL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	time     TEXT NOT NULL,
	action   TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price    TEXT NOT NULL,
	memo     TEXT
);

CREATE INDEX IF NOT EXISTS trades_run_id ON trades(run_id);
`

// Trade is one persisted instruction execution.
type Trade struct {
	Time     time.Time
	Action   string
	Quantity int
	Price    decimal.Decimal
	Memo     string
}

// Summary closes out a run row once the replay finished.
type Summary struct {
	TotalProfit decimal.Decimal
	Opens       int
	Closes      int
	WinRate     float64
}

type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun inserts a run row and returns its id.
func (j *Journal) StartRun(symbol string, start, end time.Time) (string, error) {
	id := ulid.Make().String()
	_, err := j.db.Exec(`
		INSERT INTO runs (id, symbol, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, symbol,
		start.Format(time.DateOnly), end.Format(time.DateOnly),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun fills in the aggregate columns of a run.
func (j *Journal) FinishRun(runID string, s Summary) error {
	_, err := j.db.Exec(`
		UPDATE runs SET total_profit = ?, opens = ?, closes = ?, win_rate = ?
		WHERE id = ?`,
		s.TotalProfit.String(), s.Opens, s.Closes, s.WinRate, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// RecordTrade appends one trade to a run.
func (j *Journal) RecordTrade(runID string, t Trade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades (run_id, time, action, quantity, price, memo)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, t.Time.UTC().Format(time.RFC3339), t.Action, t.Quantity,
		t.Price.String(), t.Memo,
	)
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// Trades returns a run's trades in insertion order.
func (j *Journal) Trades(runID string) ([]Trade, error) {
	rows, err := j.db.Query(`
		SELECT time, action, quantity, price, memo FROM trades
		WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var (
			t        Trade
			ts       string
			priceStr string
		)
		if err := rows.Scan(&ts, &t.Action, &t.Quantity, &priceStr, &t.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if t.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("invalid trade time %q: %w", ts, err)
		}
		if t.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("invalid trade price %q: %w", priceStr, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
