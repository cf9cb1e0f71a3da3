package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/wonny/stockfinder/internal/external/apierr"
	"github.com/wonny/stockfinder/pkg/config"
	"github.com/wonny/stockfinder/pkg/httputil"
	"github.com/wonny/stockfinder/pkg/logger"
)

// Provider is the name attached to typed errors and stored rows
const Provider = "kis"

// Client handles communication with KIS (한국투자증권) open API
// ⭐ SSOT: KIS API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.KISConfig

	// Token management
	accessToken string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex
}

// NewClient creates a new KIS API client
func NewClient(cfg config.KISConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		cfg:        cfg,
	}
}

// TokenResponse represents the OAuth token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getToken gets a valid access token, refreshing if necessary
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Double-check after acquiring write lock
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/oauth2/tokenP", c.cfg.BaseURL)
	payload := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	}

	resp, err := c.httpClient.PostJSON(ctx, tokenURL, payload)
	if err != nil {
		return "", apierr.Wrap(Provider, fmt.Errorf("token request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apierr.FromStatus(Provider, resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("decode token response: %v", err))
	}
	if tokenResp.AccessToken == "" {
		return "", apierr.New(Provider, apierr.KindAuth, "empty access token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second) // 1분 여유

	c.logger.WithFields(map[string]interface{}{
		"expires_in": tokenResp.ExpiresIn,
	}).Info("KIS access token refreshed")

	return c.accessToken, nil
}

// get makes an authenticated GET request to KIS and decodes into out
func (c *Client) get(ctx context.Context, path string, trID string, params url.Values, out interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apierr.Wrap(Provider, fmt.Errorf("create request: %w", err))
	}

	// Required headers
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Wrap(Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apierr.FromStatus(Provider, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("decode response: %v", err))
	}

	return nil
}

// apiHeader is the envelope every KIS response carries
type apiHeader struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

// check translates a non-zero rt_cd into a typed error
func (h apiHeader) check() error {
	if h.RtCd == "0" {
		return nil
	}
	return apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("API error: %s - %s", h.MsgCd, h.Msg1))
}

// splitAccountNo splits the 10-digit account into CANO + product code
func (c *Client) splitAccountNo() (string, string, error) {
	if len(c.cfg.AccountNo) < 10 {
		return "", "", apierr.New(Provider, apierr.KindAuth, "invalid account number format")
	}
	return c.cfg.AccountNo[:8], c.cfg.AccountNo[8:10], nil
}
