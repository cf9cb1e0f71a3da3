package kis

import (
	"context"
	"net/url"
)

// TR IDs for trading inquiries used by margin collection
const (
	// 매수가능조회
	TRIDOrderableBalance = "TTTC8908R"
	// 통합증거금조회
	TRIDIntegratedMargin = "TTTC0869R"
)

// OrderableBalance is the order-eligible balance inquiry result for a symbol
type OrderableBalance struct {
	OrderableCash   string `json:"ord_psbl_cash"`
	MaxBuyQty       string `json:"max_buy_qty"`
	PsblQtyCalcUnpr string `json:"psbl_qty_calc_unpr"`
}

type orderableBalanceResponse struct {
	apiHeader
	Output OrderableBalance `json:"output"`
}

// FetchOrderableBalance queries how much of a symbol the account could buy.
// Margin collection uses it as an eligibility probe before the margin rate
// inquiry; a non-zero rt_cd means the symbol is not orderable for the account.
func (c *Client) FetchOrderableBalance(ctx context.Context, symbol string) (*OrderableBalance, error) {
	cano, acntPrdtCd, err := c.splitAccountNo()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("CANO", cano)
	params.Set("ACNT_PRDT_CD", acntPrdtCd)
	params.Set("PDNO", symbol)
	params.Set("ORD_UNPR", "0")
	params.Set("ORD_DVSN", "01")
	params.Set("CMA_EVLU_AMT_ICLD_YN", "Y")
	params.Set("OVRS_ICLD_YN", "N")

	var result orderableBalanceResponse
	if err := c.get(ctx, "/uapi/domestic-stock/v1/trading/inquire-psbl-order", TRIDOrderableBalance, params, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}

	return &result.Output, nil
}

// IntegratedMargin is the integrated margin inquiry result for a symbol
type IntegratedMargin struct {
	MarginRate string `json:"acmga_rt"` // 증거금율 (%)
}

type integratedMarginResponse struct {
	apiHeader
	Output IntegratedMargin `json:"output"`
}

// FetchIntegratedMargin queries the account-level margin rate for a symbol
func (c *Client) FetchIntegratedMargin(ctx context.Context, symbol string) (*IntegratedMargin, error) {
	cano, acntPrdtCd, err := c.splitAccountNo()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("CANO", cano)
	params.Set("ACNT_PRDT_CD", acntPrdtCd)
	params.Set("PDNO", symbol)

	var result integratedMarginResponse
	if err := c.get(ctx, "/uapi/domestic-stock/v1/trading/intgr-margin", TRIDIntegratedMargin, params, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}

	return &result.Output, nil
}

// Rate parses the margin rate percentage, false when absent
func (m *IntegratedMargin) Rate() (float64, bool) {
	return ParseNumeric(m.MarginRate)
}
