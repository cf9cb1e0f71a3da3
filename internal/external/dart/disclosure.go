package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/stockfinder/internal/external/apierr"
)

// DisclosureResponse represents the DART disclosure list response
type DisclosureResponse struct {
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	PageNo      int          `json:"page_no"`
	TotalPage   int          `json:"total_page"`
	Disclosures []Disclosure `json:"list"`
}

// Disclosure represents a single disclosure item
type Disclosure struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	ReportNm  string `json:"report_nm"` // 공시 제목
	RceptNo   string `json:"rcept_no"`  // 접수번호
	FlrNm     string `json:"flr_nm"`    // 공시 제출인
	RceptDt   string `json:"rcept_dt"`  // 접수일자 (YYYYMMDD)
}

// status "013" means no data for the query, which is not an error
const statusNoData = "013"

// FetchDisclosures fetches the disclosure list for one company and date range.
// Dates are YYYYMMDD. A single page of up to 100 items is requested per call.
func (c *Client) FetchDisclosures(ctx context.Context, corpCode, beginDate, endDate string, pageNo int) ([]Disclosure, int, error) {
	params := url.Values{}
	params.Set("crtfc_key", c.apiKey)
	params.Set("corp_code", corpCode)
	params.Set("bgn_de", beginDate)
	params.Set("end_de", endDate)
	params.Set("page_count", "100")
	if pageNo > 0 {
		params.Set("page_no", fmt.Sprintf("%d", pageNo))
	}

	reqURL := fmt.Sprintf("%s/list.json?%s", strings.TrimRight(c.baseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, apierr.Wrap(Provider, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, apierr.Wrap(Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, apierr.FromStatus(Provider, resp.StatusCode, string(body))
	}

	var result DisclosureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("decode disclosure list: %v", err))
	}

	switch result.Status {
	case "000":
	case statusNoData:
		return nil, 0, nil
	case "020", "021":
		return nil, 0, apierr.New(Provider, apierr.KindRateLimit, fmt.Sprintf("DART quota: %s", result.Message))
	case "010", "011":
		return nil, 0, apierr.New(Provider, apierr.KindAuth, fmt.Sprintf("DART key rejected: %s", result.Message))
	default:
		return nil, 0, apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("DART status %s: %s", result.Status, result.Message))
	}

	return result.Disclosures, result.TotalPage, nil
}
