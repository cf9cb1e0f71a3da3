package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/external/kis"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// pricesFetcher pulls OHLCV candles for every requested timeframe of one
// symbol and upserts them on the (code, timeframe, date, source) key.
type pricesFetcher struct {
	brokerage  BrokerageClient
	prices     *store.PriceRepository
	timeframes []string
	maxPages   int
	logger     *logger.Logger
}

func (f *pricesFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	var result ItemResult

	maxPages := f.maxPages
	if item.Window.Backfill {
		// Full-history backfill needs enough backward slides to reach the
		// listed date; ~100 daily candles per page.
		maxPages = 200
	}

	for _, timeframe := range f.timeframes {
		candles, err := f.brokerage.FetchChartPrices(ctx, item.Symbol.StockCode, timeframe, item.Window.From, item.Window.To, maxPages)
		result.Read += len(candles)
		if err != nil {
			return result, err
		}

		for _, candle := range candles {
			row, ok := candleRow(item.Symbol.StockCode, timeframe, item.Window.To, candle)
			if !ok {
				result.Skipped++
				continue
			}
			if err := f.prices.Upsert(ctx, runID, row); err != nil {
				return result, &PersistenceError{Op: "upsert price", Err: err}
			}
			result.Written++
		}
	}

	return result, nil
}

// candleRow normalizes one provider candle, false when malformed
func candleRow(code, timeframe, asOf string, c kis.ChartCandle) (*store.PriceRow, bool) {
	date := isoDate(c.TradeDate)
	if date == "" {
		return nil, false
	}
	open, ok1 := kis.ParseNumeric(c.OpenPrice)
	high, ok2 := kis.ParseNumeric(c.HighPrice)
	low, ok3 := kis.ParseNumeric(c.LowPrice)
	closePrice, ok4 := kis.ParseNumeric(c.ClosePrice)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	volume, _ := kis.ParseNumeric(c.Volume)

	return &store.PriceRow{
		StockCode: code,
		Timeframe: timeframe,
		CandleAt:  date,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Source:    kis.Provider,
		AsOf:      isoDate(asOf),
	}, true
}
