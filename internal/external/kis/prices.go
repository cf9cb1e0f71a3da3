package kis

import (
	"context"
	"net/url"
	"time"
)

// TR IDs for quotation endpoints
const (
	// 기간별 시세 (일/주/월/년)
	TRIDChartPrice = "FHKST03010100"
	// 상품 기본 조회
	TRIDStockInfo = "CTPF1002R"
)

// ChartCandle is one OHLCV row from the item chart price endpoint
type ChartCandle struct {
	TradeDate  string `json:"stck_bsop_date"`
	OpenPrice  string `json:"stck_oprc"`
	HighPrice  string `json:"stck_hgpr"`
	LowPrice   string `json:"stck_lwpr"`
	ClosePrice string `json:"stck_clpr"`
	Volume     string `json:"acml_vol"`
}

type chartPriceResponse struct {
	apiHeader
	Output2 []ChartCandle `json:"output2"`
	Output  []ChartCandle `json:"output"`
}

// FetchChartPrices fetches OHLCV candles for a symbol and timeframe.
// KIS returns at most ~100 candles per call, so the request window slides
// backwards from `to` until `from` is covered or maxPages is exhausted.
func (c *Client) FetchChartPrices(ctx context.Context, symbol, timeframe, from, to string, maxPages int) ([]ChartCandle, error) {
	switch timeframe {
	case "D", "W", "M", "Y":
	default:
		timeframe = "D"
	}
	if to == "" {
		to = time.Now().UTC().Format("20060102")
	}
	if from == "" {
		from = time.Now().UTC().AddDate(-1, 0, 0).Format("20060102")
	}
	if maxPages < 1 {
		maxPages = 1
	}

	var candles []ChartCandle
	currentTo := to

	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("FID_COND_MRKT_DIV_CODE", "J")
		params.Set("FID_INPUT_ISCD", symbol)
		params.Set("FID_INPUT_DATE_1", from)
		params.Set("FID_INPUT_DATE_2", currentTo)
		params.Set("FID_PERIOD_DIV_CODE", timeframe)
		params.Set("FID_ORG_ADJ_PRC", "0")

		var result chartPriceResponse
		if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", TRIDChartPrice, params, &result); err != nil {
			return candles, err
		}
		if err := result.check(); err != nil {
			// First page failure is a real error; later pages just end the scan
			if page == 0 {
				return nil, err
			}
			break
		}

		output := result.Output2
		if len(output) == 0 {
			output = result.Output
		}
		if len(output) == 0 {
			break
		}

		oldest := ""
		for _, candle := range output {
			if candle.TradeDate == "" {
				continue
			}
			candles = append(candles, candle)
			oldest = candle.TradeDate
		}

		// Slide the window past the oldest candle we received
		if oldest == "" || oldest <= from {
			break
		}
		prev, err := time.Parse("20060102", oldest)
		if err != nil {
			break
		}
		currentTo = prev.AddDate(0, 0, -1).Format("20060102")
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"count":     len(candles),
	}).Debug("Chart prices fetched")

	return candles, nil
}

// StockInfo is the product master record for a symbol
type StockInfo struct {
	ProductName string `json:"prdt_abrv_name"`
	MarketID    string `json:"mket_id_cd"`        // STK: KOSPI, KSQ: KOSDAQ
	ListedDate  string `json:"scts_mket_lstg_dt"` // YYYYMMDD
}

type stockInfoResponse struct {
	apiHeader
	Output StockInfo `json:"output"`
}

// SearchStockInfo fetches symbol metadata (name, market, listed date)
func (c *Client) SearchStockInfo(ctx context.Context, symbol string) (*StockInfo, error) {
	params := url.Values{}
	params.Set("PRDT_TYPE_CD", "300")
	params.Set("PDNO", symbol)

	var result stockInfoResponse
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/search-stock-info", TRIDStockInfo, params, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}

	return &result.Output, nil
}

// Market translates the KIS market ID code into the exchange name
func (si *StockInfo) Market() string {
	switch si.MarketID {
	case "STK":
		return "KOSPI"
	case "KSQ":
		return "KOSDAQ"
	default:
		return ""
	}
}
