package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PriceRepository persists OHLCV candles keyed by (code, timeframe, date, source)
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(s *Store) *PriceRepository {
	return &PriceRepository{db: s.DB()}
}

// Upsert writes one candle, overwriting any prior row on the natural key
func (r *PriceRepository) Upsert(ctx context.Context, runID string, p *PriceRow) error {
	query := `
		INSERT INTO raw_price_ohlcv (
			run_id, stock_code, timeframe, candle_at, open_price, high_price,
			low_price, close_price, volume, source, as_of, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_code, timeframe, candle_at, source) DO UPDATE SET
			run_id = excluded.run_id,
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			close_price = excluded.close_price,
			volume = excluded.volume,
			as_of = excluded.as_of,
			collected_at = excluded.collected_at
	`
	_, err := r.db.ExecContext(ctx, query,
		runID, p.StockCode, p.Timeframe, p.CandleAt,
		p.Open, p.High, p.Low, p.Close, p.Volume,
		p.Source, nullString(p.AsOf),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert price %s/%s: %w", p.StockCode, p.CandleAt, err)
	}
	return nil
}

// CountForRun recounts price rows attributed to a run
func (r *PriceRepository) CountForRun(ctx context.Context, runID string) (int, error) {
	return countForRun(ctx, r.db, "raw_price_ohlcv", runID)
}

// FundamentalRepository persists finance-ratio snapshots
type FundamentalRepository struct {
	db *sql.DB
}

// NewFundamentalRepository creates a new fundamental repository
func NewFundamentalRepository(s *Store) *FundamentalRepository {
	return &FundamentalRepository{db: s.DB()}
}

// Upsert writes one snapshot on the (code, period, term, source) key
func (r *FundamentalRepository) Upsert(ctx context.Context, runID string, f *FundamentalRow) error {
	query := `
		INSERT INTO fundamental_snapshot (
			run_id, stock_code, period_yyyymm, report_term,
			roe, eps, bps, sps, sales_growth, profit_growth, net_growth,
			debt_ratio, reserve_ratio, source, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_code, period_yyyymm, report_term, source) DO UPDATE SET
			run_id = excluded.run_id,
			roe = excluded.roe,
			eps = excluded.eps,
			bps = excluded.bps,
			sps = excluded.sps,
			sales_growth = excluded.sales_growth,
			profit_growth = excluded.profit_growth,
			net_growth = excluded.net_growth,
			debt_ratio = excluded.debt_ratio,
			reserve_ratio = excluded.reserve_ratio,
			collected_at = excluded.collected_at
	`
	_, err := r.db.ExecContext(ctx, query,
		runID, f.StockCode, f.Period, f.Term,
		f.ROE, f.EPS, f.BPS, f.SPS, f.SalesGrowth, f.ProfitGrowth, f.NetGrowth,
		f.DebtRatio, f.ReserveRatio, f.Source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert fundamental %s/%s: %w", f.StockCode, f.Period, err)
	}
	return nil
}

// CountForRun recounts fundamental rows attributed to a run
func (r *FundamentalRepository) CountForRun(ctx context.Context, runID string) (int, error) {
	return countForRun(ctx, r.db, "fundamental_snapshot", runID)
}

// FinancialRepository persists statement line items
type FinancialRepository struct {
	db *sql.DB
}

// NewFinancialRepository creates a new financial statement repository
func NewFinancialRepository(s *Store) *FinancialRepository {
	return &FinancialRepository{db: s.DB()}
}

// Upsert writes one line item on its full natural key
func (r *FinancialRepository) Upsert(ctx context.Context, runID string, f *StatementRow) error {
	query := `
		INSERT INTO raw_financial_statement (
			run_id, stock_code, report_type, period_yyyymm, report_term,
			item_key, item_value, currency, source, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_code, report_type, period_yyyymm, report_term, item_key, source) DO UPDATE SET
			run_id = excluded.run_id,
			item_value = excluded.item_value,
			currency = excluded.currency,
			collected_at = excluded.collected_at
	`
	_, err := r.db.ExecContext(ctx, query,
		runID, f.StockCode, f.ReportType, f.Period, f.Term,
		f.ItemKey, f.ItemValue, f.Currency, f.Source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert statement %s/%s/%s: %w", f.StockCode, f.Period, f.ItemKey, err)
	}
	return nil
}

// CountForRun recounts statement rows attributed to a run
func (r *FinancialRepository) CountForRun(ctx context.Context, runID string) (int, error) {
	return countForRun(ctx, r.db, "raw_financial_statement", runID)
}

// EventRepository persists corporate events keyed by (source, source_event_id)
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(s *Store) *EventRepository {
	return &EventRepository{db: s.DB()}
}

// Upsert writes one event on the (source, source_event_id) key
func (r *EventRepository) Upsert(ctx context.Context, runID string, e *EventRow) error {
	query := `
		INSERT INTO raw_event_feed (
			run_id, stock_code, event_time, event_type, severity,
			headline, summary, source, source_event_id, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_event_id) DO UPDATE SET
			run_id = excluded.run_id,
			stock_code = excluded.stock_code,
			event_time = excluded.event_time,
			event_type = excluded.event_type,
			severity = excluded.severity,
			headline = excluded.headline,
			summary = excluded.summary,
			collected_at = excluded.collected_at
	`
	_, err := r.db.ExecContext(ctx, query,
		runID, nullString(e.StockCode), e.EventTime, e.EventType, e.Severity,
		e.Headline, nullString(e.Summary), e.Source, e.SourceEventID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s/%s: %w", e.Source, e.SourceEventID, err)
	}
	return nil
}

// CountForRun recounts event rows attributed to a run
func (r *EventRepository) CountForRun(ctx context.Context, runID string) (int, error) {
	return countForRun(ctx, r.db, "raw_event_feed", runID)
}

// MarginRepository persists margin policy rows keyed by (code, as_of)
type MarginRepository struct {
	db *sql.DB
}

// NewMarginRepository creates a new margin repository
func NewMarginRepository(s *Store) *MarginRepository {
	return &MarginRepository{db: s.DB()}
}

// Upsert writes one margin policy row
func (r *MarginRepository) Upsert(ctx context.Context, runID string, m *MarginRow) error {
	query := `
		INSERT INTO symbol_margin_policy (
			run_id, stock_code, as_of, is_full_margin, margin_rate_pct,
			collection_status, source_note, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_code, as_of) DO UPDATE SET
			run_id = excluded.run_id,
			is_full_margin = excluded.is_full_margin,
			margin_rate_pct = excluded.margin_rate_pct,
			collection_status = excluded.collection_status,
			source_note = excluded.source_note,
			collected_at = excluded.collected_at
	`
	_, err := r.db.ExecContext(ctx, query,
		runID, m.StockCode, m.AsOf, boolToInt(m.IsFullMargin), m.MarginRatePct,
		m.CollectionStatus, nullString(m.SourceNote),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert margin %s/%s: %w", m.StockCode, m.AsOf, err)
	}
	return nil
}

// CountForRun recounts margin rows attributed to a run
func (r *MarginRepository) CountForRun(ctx context.Context, runID string) (int, error) {
	return countForRun(ctx, r.db, "symbol_margin_policy", runID)
}

// countForRun recounts rows attributed to a run in one data table
func countForRun(ctx context.Context, db *sql.DB, table, runID string) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id = ?`, table)
	if err := db.QueryRowContext(ctx, query, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s for run: %w", table, err)
	}
	return count, nil
}
