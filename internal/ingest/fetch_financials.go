package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/external/kis"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// financialsFetcher pulls flattened statement line items for one symbol
type financialsFetcher struct {
	brokerage  BrokerageClient
	financials *store.FinancialRepository
	logger     *logger.Logger
}

func (f *financialsFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	var result ItemResult

	items, err := f.brokerage.FetchStatements(ctx, item.Symbol.StockCode)
	result.Read = len(items)
	if err != nil {
		return result, err
	}

	for _, si := range items {
		if !periodInWindow(si.Period, item.Window) {
			result.Skipped++
			continue
		}
		row := &store.StatementRow{
			StockCode:  item.Symbol.StockCode,
			ReportType: si.ReportType,
			Period:     si.Period,
			Term:       si.Term,
			ItemKey:    si.ItemKey,
			ItemValue:  si.Value,
			Currency:   "KRW",
			Source:     kis.Provider,
		}
		if err := f.financials.Upsert(ctx, runID, row); err != nil {
			return result, &PersistenceError{Op: "upsert statement", Err: err}
		}
		result.Written++
	}

	return result, nil
}
