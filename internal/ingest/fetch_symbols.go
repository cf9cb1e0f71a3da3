package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// symbolsFetcher maintains the symbol universe. A universe item refreshes
// the whole set from the DART corp-code master; a per-symbol item enriches
// one stored symbol from the KIS product master.
type symbolsFetcher struct {
	brokerage BrokerageClient
	filings   FilingsClient
	symbols   *store.SymbolRepository
	logger    *logger.Logger
}

func (f *symbolsFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	if item.Universe {
		return f.refreshUniverse(ctx)
	}
	return f.enrichSymbol(ctx, item.Symbol.StockCode)
}

// refreshUniverse replaces stale universe entries with the current listed
// set from the corp-code master. Known fields survive the upsert.
func (f *symbolsFetcher) refreshUniverse(ctx context.Context) (ItemResult, error) {
	var result ItemResult

	entries, err := f.filings.FetchCorpCodes(ctx)
	if err != nil {
		return result, err
	}
	result.Read = len(entries)

	for _, entry := range entries {
		code := NormalizeSymbol(entry.StockCode)
		if code == "" {
			result.Skipped++
			continue
		}
		sym := &store.Symbol{
			StockCode:    code,
			Name:         entry.CorpName,
			DartCorpCode: entry.CorpCode,
		}
		if err := f.symbols.Upsert(ctx, sym); err != nil {
			return result, &PersistenceError{Op: "upsert symbol", Err: err}
		}
		result.Written++
	}

	f.logger.WithField("symbols", result.Written).Info("Symbol universe refreshed")
	return result, nil
}

// enrichSymbol fills name, market and listed date from the KIS product master
func (f *symbolsFetcher) enrichSymbol(ctx context.Context, code string) (ItemResult, error) {
	var result ItemResult

	info, err := f.brokerage.SearchStockInfo(ctx, code)
	if err != nil {
		return result, err
	}
	result.Read = 1

	sym := &store.Symbol{
		StockCode:  code,
		Name:       info.ProductName,
		Market:     info.Market(),
		ListedDate: isoDate(info.ListedDate),
	}
	if err := f.symbols.Upsert(ctx, sym); err != nil {
		return result, &PersistenceError{Op: "upsert symbol", Err: err}
	}
	result.Written = 1
	return result, nil
}
