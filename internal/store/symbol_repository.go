package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SymbolRepository persists the symbol universe
// ⭐ SSOT: symbol_universe 접근은 여기서만
type SymbolRepository struct {
	db *sql.DB
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(s *Store) *SymbolRepository {
	return &SymbolRepository{db: s.DB()}
}

// Upsert writes one symbol, keeping known values when the update omits them
func (r *SymbolRepository) Upsert(ctx context.Context, sym *Symbol) error {
	query := `
		INSERT INTO symbol_universe (
			stock_code, name, market, dart_corp_code, listed_date, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(stock_code) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), symbol_universe.name),
			market = COALESCE(NULLIF(excluded.market, ''), symbol_universe.market),
			dart_corp_code = COALESCE(NULLIF(excluded.dart_corp_code, ''), symbol_universe.dart_corp_code),
			listed_date = COALESCE(NULLIF(excluded.listed_date, ''), symbol_universe.listed_date),
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		sym.StockCode, sym.Name, sym.Market, sym.DartCorpCode, sym.ListedDate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert symbol %s: %w", sym.StockCode, err)
	}
	return nil
}

// ListActive returns all active symbols in stable lexicographic order.
// The ordering is load-bearing: scope=all planning and limit_symbols
// truncation rely on it being deterministic.
func (r *SymbolRepository) ListActive(ctx context.Context) ([]Symbol, error) {
	query := `
		SELECT stock_code, COALESCE(name, ''), COALESCE(market, ''),
		       COALESCE(dart_corp_code, ''), COALESCE(listed_date, '')
		FROM symbol_universe
		WHERE is_active = 1
		ORDER BY stock_code ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var s Symbol
		if err := rows.Scan(&s.StockCode, &s.Name, &s.Market, &s.DartCorpCode, &s.ListedDate); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Get loads a single symbol, nil when unknown
func (r *SymbolRepository) Get(ctx context.Context, stockCode string) (*Symbol, error) {
	query := `
		SELECT stock_code, COALESCE(name, ''), COALESCE(market, ''),
		       COALESCE(dart_corp_code, ''), COALESCE(listed_date, '')
		FROM symbol_universe
		WHERE stock_code = ?
	`

	var s Symbol
	err := r.db.QueryRowContext(ctx, query, stockCode).Scan(
		&s.StockCode, &s.Name, &s.Market, &s.DartCorpCode, &s.ListedDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol %s: %w", stockCode, err)
	}
	return &s, nil
}
