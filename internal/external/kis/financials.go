package kis

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// TR IDs for finance endpoints
const (
	TRIDFinanceRatio = "FHKST66430100"
	TRIDBalanceSheet = "FHKST66430200"
	TRIDProfitRatio  = "FHKST66430300"
	TRIDGrowthRatio  = "FHKST66430400"
	TRIDOtherRatios  = "FHKST66430500"
)

var periodPattern = regexp.MustCompile(`^\d{6}$`)

// FinanceRatio is one period snapshot from the financial-ratio endpoint
type FinanceRatio struct {
	Period       string `json:"stac_yymm"` // YYYYMM
	ROE          string `json:"roe_val"`
	EPS          string `json:"eps"`
	BPS          string `json:"bps"`
	SPS          string `json:"sps"`
	SalesGrowth  string `json:"grs"`
	ProfitGrowth string `json:"bsop_prfi_inrt"`
	NetGrowth    string `json:"ntin_inrt"`
	DebtRatio    string `json:"lblt_rate"`
	ReserveRatio string `json:"rsrv_rate"`
}

type financeRatioResponse struct {
	apiHeader
	Output []FinanceRatio `json:"output"`
}

// FetchFinanceRatios fetches annual (div "0") or quarterly (div "1") ratio snapshots
func (c *Client) FetchFinanceRatios(ctx context.Context, symbol, divCode string) ([]FinanceRatio, error) {
	params := url.Values{}
	params.Set("FID_DIV_CLS_CODE", divCode)
	params.Set("FID_COND_MRKT_DIV_CODE", "J")
	params.Set("FID_INPUT_ISCD", symbol)

	var result financeRatioResponse
	if err := c.get(ctx, "/uapi/domestic-stock/v1/finance/financial-ratio", TRIDFinanceRatio, params, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}

	// Drop rows without a well-formed period
	ratios := result.Output[:0]
	for _, r := range result.Output {
		if periodPattern.MatchString(strings.TrimSpace(r.Period)) {
			ratios = append(ratios, r)
		}
	}
	return ratios, nil
}

// StatementItem is one flattened line item from a statement endpoint
type StatementItem struct {
	ReportType string  // BS, IS, GROWTH, ETC
	Period     string  // YYYYMM
	Term       string  // annual, quarterly
	ItemKey    string  // upper-cased provider field name
	Value      float64 //
}

// statementEndpoint pairs a finance endpoint with its report type tag
type statementEndpoint struct {
	path       string
	trID       string
	reportType string
}

var statementEndpoints = []statementEndpoint{
	{"/uapi/domestic-stock/v1/finance/balance-sheet", TRIDBalanceSheet, "BS"},
	{"/uapi/domestic-stock/v1/finance/profit-ratio", TRIDProfitRatio, "IS"},
	{"/uapi/domestic-stock/v1/finance/growth-ratio", TRIDGrowthRatio, "GROWTH"},
	{"/uapi/domestic-stock/v1/finance/other-major-ratios", TRIDOtherRatios, "ETC"},
}

// statement payloads carry period-keyed maps of numeric strings whose field
// set differs per endpoint, so they decode into a generic map and flatten
type statementResponse struct {
	apiHeader
	Output []map[string]string `json:"output"`
}

// skip bookkeeping fields that are not statement line items
var statementSkipKeys = map[string]struct{}{
	"stac_yymm":    {},
	"acml_tr_pbmn": {},
	"acml_ntin":    {},
}

// FetchStatements fetches all statement endpoints for both annual and
// quarterly terms and flattens them into line items.
func (c *Client) FetchStatements(ctx context.Context, symbol string) ([]StatementItem, error) {
	var items []StatementItem

	terms := []struct {
		divCode string
		term    string
	}{
		{"0", "annual"},
		{"1", "quarterly"},
	}

	for _, t := range terms {
		for _, ep := range statementEndpoints {
			params := url.Values{}
			params.Set("FID_DIV_CLS_CODE", t.divCode)
			params.Set("FID_COND_MRKT_DIV_CODE", "J")
			params.Set("FID_INPUT_ISCD", symbol)

			var result statementResponse
			if err := c.get(ctx, ep.path, ep.trID, params, &result); err != nil {
				return items, err
			}
			if err := result.check(); err != nil {
				// Some endpoints legitimately have no data for a symbol/term
				c.logger.WithFields(map[string]interface{}{
					"symbol":      symbol,
					"report_type": ep.reportType,
					"term":        t.term,
				}).Debug("Statement endpoint returned no data")
				continue
			}

			items = append(items, flattenStatement(result.Output, ep.reportType, t.term)...)
		}
	}

	return items, nil
}

// flattenStatement turns period rows into one StatementItem per numeric field
func flattenStatement(rows []map[string]string, reportType, term string) []StatementItem {
	var items []StatementItem
	for _, row := range rows {
		period := strings.TrimSpace(row["stac_yymm"])
		if !periodPattern.MatchString(period) {
			continue
		}
		for key, raw := range row {
			if _, skip := statementSkipKeys[key]; skip {
				continue
			}
			value, ok := ParseNumeric(raw)
			if !ok {
				continue
			}
			items = append(items, StatementItem{
				ReportType: reportType,
				Period:     period,
				Term:       term,
				ItemKey:    strings.ToUpper(key),
				Value:      value,
			})
		}
	}
	return items
}

// ParseNumeric parses a KIS numeric string ("1,234.5", "12%")
func ParseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
