package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// margin rates at or above this are treated as cash-only (no leverage)
const fullMarginRatePct = 100.0

// marginsFetcher merges two trading inquiries into one margin policy row:
// the orderable-balance probe confirms the symbol is tradable for the
// account, the integrated-margin inquiry carries the rate. Both must
// succeed or the item fails; no half-row is written.
type marginsFetcher struct {
	brokerage BrokerageClient
	margins   *store.MarginRepository
	logger    *logger.Logger
}

func (f *marginsFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	var result ItemResult

	if _, err := f.brokerage.FetchOrderableBalance(ctx, item.Symbol.StockCode); err != nil {
		return result, err
	}
	result.Read++

	margin, err := f.brokerage.FetchIntegratedMargin(ctx, item.Symbol.StockCode)
	if err != nil {
		return result, err
	}
	result.Read++

	asOf := item.Window.To
	if asOf == "" {
		asOf = todayUTC().Format("20060102")
	}

	row := &store.MarginRow{
		StockCode:        item.Symbol.StockCode,
		AsOf:             isoDate(asOf),
		CollectionStatus: "collected",
	}
	if rate, ok := margin.Rate(); ok {
		row.MarginRatePct = &rate
		row.IsFullMargin = rate >= fullMarginRatePct
	} else {
		// Both inquiries answered but the rate field was empty
		row.CollectionStatus = "failed"
		row.SourceNote = "margin rate missing from inquiry"
	}

	if err := f.margins.Upsert(ctx, runID, row); err != nil {
		return result, &PersistenceError{Op: "upsert margin", Err: err}
	}
	result.Written = 1
	return result, nil
}
