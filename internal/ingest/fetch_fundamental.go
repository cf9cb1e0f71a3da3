package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/external/kis"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// fundamentalFetcher pulls annual and quarterly finance-ratio snapshots
type fundamentalFetcher struct {
	brokerage    BrokerageClient
	fundamentals *store.FundamentalRepository
	logger       *logger.Logger
}

var ratioTerms = []struct {
	divCode string
	term    string
}{
	{"0", "annual"},
	{"1", "quarterly"},
}

func (f *fundamentalFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	var result ItemResult

	for _, t := range ratioTerms {
		ratios, err := f.brokerage.FetchFinanceRatios(ctx, item.Symbol.StockCode, t.divCode)
		result.Read += len(ratios)
		if err != nil {
			return result, err
		}

		for _, ratio := range ratios {
			if !periodInWindow(ratio.Period, item.Window) {
				result.Skipped++
				continue
			}
			row := ratioRow(item.Symbol.StockCode, t.term, ratio)
			if err := f.fundamentals.Upsert(ctx, runID, row); err != nil {
				return result, &PersistenceError{Op: "upsert fundamental", Err: err}
			}
			result.Written++
		}
	}

	return result, nil
}

// ratioRow normalizes one provider snapshot; unparseable ratios become NULL
func ratioRow(code, term string, r kis.FinanceRatio) *store.FundamentalRow {
	return &store.FundamentalRow{
		StockCode:    code,
		Period:       r.Period,
		Term:         term,
		ROE:          numericPtr(r.ROE),
		EPS:          numericPtr(r.EPS),
		BPS:          numericPtr(r.BPS),
		SPS:          numericPtr(r.SPS),
		SalesGrowth:  numericPtr(r.SalesGrowth),
		ProfitGrowth: numericPtr(r.ProfitGrowth),
		NetGrowth:    numericPtr(r.NetGrowth),
		DebtRatio:    numericPtr(r.DebtRatio),
		ReserveRatio: numericPtr(r.ReserveRatio),
		Source:       kis.Provider,
	}
}

// numericPtr parses a provider numeric string, nil when absent or malformed
func numericPtr(raw string) *float64 {
	v, ok := kis.ParseNumeric(raw)
	if !ok {
		return nil
	}
	return &v
}

// periodInWindow checks a YYYYMM period against a YYYYMMDD window
func periodInWindow(period string, w Window) bool {
	if len(period) != 6 {
		return false
	}
	if w.From != "" && len(w.From) >= 6 && period < w.From[:6] {
		return false
	}
	if w.To != "" && len(w.To) >= 6 && period > w.To[:6] {
		return false
	}
	return true
}
