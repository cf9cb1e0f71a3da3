package dart

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/wonny/stockfinder/pkg/config"
	"github.com/wonny/stockfinder/pkg/logger"
)

// Provider is the name attached to typed errors and stored rows
const Provider = "dart"

// Client handles communication with DART (전자공시시스템) open API
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new DART API client
// DART API requires legacy TLS configuration (RSA key exchange)
func NewClient(cfg config.DARTConfig, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: newLegacyCompatibleClient(timeout),
		logger:     log,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
	}
}

// newLegacyCompatibleClient creates an HTTP client compatible with legacy TLS servers
// DART server requires RSA key exchange cipher suites which Go 1.22+ no longer offers by default
func newLegacyCompatibleClient(timeout time.Duration) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,

		// Include RSA KEX cipher suites for legacy server compatibility
		// DART server doesn't support ECDHE, so we need RSA key exchange
		CipherSuites: []uint16{
			// ECDHE (modern) - will be used if server supports
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,

			// RSA KEX (legacy) - required for DART API
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false, // Disable HTTP/2 for legacy server compatibility

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5, // Reduced to avoid overwhelming DART API
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}
