// Package store is the sqlite persistence layer: the run ledger and the
// per-domain data tables, all keyed by natural business identity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/wonny/stockfinder/pkg/logger"
)

// Store wraps the sqlite database handle
// ⭐ SSOT: sqlite 연결은 여기서만 생성
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ingest_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL UNIQUE,
  started_at TEXT NOT NULL,
  finished_at TEXT,
  status TEXT NOT NULL,
  run_type TEXT NOT NULL,
  scope TEXT NOT NULL,
  source_profile TEXT NOT NULL,
  prices_window TEXT,
  prices_lookback_days INTEGER,
  prices_backfill INTEGER NOT NULL DEFAULT 0,
  dry_run INTEGER NOT NULL DEFAULT 0,
  symbols_count INTEGER NOT NULL DEFAULT 0,
  notes_json TEXT NOT NULL DEFAULT '[]',
  error_message TEXT
);

CREATE TABLE IF NOT EXISTS ingest_domain_outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  domain TEXT NOT NULL,
  status TEXT NOT NULL,
  rows_read INTEGER NOT NULL DEFAULT 0,
  rows_written INTEGER NOT NULL DEFAULT 0,
  rows_skipped INTEGER NOT NULL DEFAULT 0,
  errors_json TEXT NOT NULL DEFAULT '[]',
  updated_at TEXT NOT NULL,
  UNIQUE(run_id, domain)
);

CREATE TABLE IF NOT EXISTS symbol_universe (
  stock_code TEXT PRIMARY KEY,
  name TEXT,
  market TEXT,
  dart_corp_code TEXT,
  listed_date TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_price_ohlcv (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stock_code TEXT NOT NULL,
  timeframe TEXT NOT NULL,
  candle_at TEXT NOT NULL,
  open_price REAL NOT NULL,
  high_price REAL NOT NULL,
  low_price REAL NOT NULL,
  close_price REAL NOT NULL,
  volume REAL NOT NULL,
  source TEXT NOT NULL,
  as_of TEXT,
  collected_at TEXT NOT NULL,
  UNIQUE(stock_code, timeframe, candle_at, source)
);

CREATE TABLE IF NOT EXISTS fundamental_snapshot (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stock_code TEXT NOT NULL,
  period_yyyymm TEXT NOT NULL,
  report_term TEXT NOT NULL,
  roe REAL,
  eps REAL,
  bps REAL,
  sps REAL,
  sales_growth REAL,
  profit_growth REAL,
  net_growth REAL,
  debt_ratio REAL,
  reserve_ratio REAL,
  source TEXT NOT NULL,
  collected_at TEXT NOT NULL,
  UNIQUE(stock_code, period_yyyymm, report_term, source)
);

CREATE TABLE IF NOT EXISTS raw_financial_statement (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stock_code TEXT NOT NULL,
  report_type TEXT NOT NULL,
  period_yyyymm TEXT NOT NULL,
  report_term TEXT NOT NULL,
  item_key TEXT NOT NULL,
  item_value REAL,
  currency TEXT,
  source TEXT NOT NULL,
  collected_at TEXT NOT NULL,
  UNIQUE(stock_code, report_type, period_yyyymm, report_term, item_key, source)
);

CREATE TABLE IF NOT EXISTS raw_event_feed (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stock_code TEXT,
  event_time TEXT NOT NULL,
  event_type TEXT NOT NULL,
  severity INTEGER NOT NULL,
  headline TEXT NOT NULL,
  summary TEXT,
  source TEXT NOT NULL,
  source_event_id TEXT NOT NULL,
  collected_at TEXT NOT NULL,
  UNIQUE(source, source_event_id)
);

CREATE TABLE IF NOT EXISTS symbol_margin_policy (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  stock_code TEXT NOT NULL,
  as_of TEXT NOT NULL,
  is_full_margin INTEGER NOT NULL DEFAULT 0,
  margin_rate_pct REAL,
  collection_status TEXT NOT NULL,
  source_note TEXT,
  collected_at TEXT NOT NULL,
  UNIQUE(stock_code, as_of)
);
`

// Open opens (creating if needed) the sqlite store at path
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer; concurrent runs serialize on the file lock
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: log}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("path", path).Debug("Store opened")
	return s, nil
}

// OpenMemory opens an in-memory store (tests)
func OpenMemory(log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: log}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrap applies pragmas and the idempotent schema
func (s *Store) bootstrap() error {
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("set WAL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB exposes the raw handle to repositories in this package tree
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
