package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockfinder/internal/external/apierr"
	"github.com/wonny/stockfinder/pkg/config"
	"github.com/wonny/stockfinder/pkg/logger"
)

const corpCodeXML = `<?xml version="1.0" encoding="UTF-8"?>
<result>
	<list>
		<corp_code>00126380</corp_code>
		<corp_name>삼성전자</corp_name>
		<stock_code>005930</stock_code>
	</list>
	<list>
		<corp_code>00164779</corp_code>
		<corp_name>SK하이닉스</corp_name>
		<stock_code>000660</stock_code>
	</list>
	<list>
		<corp_code>01234567</corp_code>
		<corp_name>비상장회사</corp_name>
		<stock_code> </stock_code>
	</list>
</result>`

func corpCodeZIP(t *testing.T, xmlBody string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("CORPCODE.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(xmlBody))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestDARTClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DARTConfig{APIKey: "test-dart-key", BaseURL: server.URL}
	c := NewClient(cfg, 5*time.Second, logger.Nop())
	// httptest serves plain HTTP; the legacy TLS transport is not needed here
	c.httpClient = server.Client()
	return c
}

func TestFetchCorpCodesFiltersUnlisted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/corpCode.xml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-dart-key", r.URL.Query().Get("crtfc_key"))
		w.Write(corpCodeZIP(t, corpCodeXML))
	})

	c := newTestDARTClient(t, mux)
	entries, err := c.FetchCorpCodes(context.Background())
	require.NoError(t, err)

	// the unlisted company has no stock code and is dropped
	require.Len(t, entries, 2)
	assert.Equal(t, "00126380", entries[0].CorpCode)
	assert.Equal(t, "005930", entries[0].StockCode)
	assert.Equal(t, "삼성전자", entries[0].CorpName)
}

func TestFetchCorpCodesBadPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/corpCode.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a zip"))
	})

	c := newTestDARTClient(t, mux)
	_, err := c.FetchCorpCodes(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindBadResponse, apierr.KindOf(err))
}

func TestParseCorpCodeZipEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	_, err := parseCorpCodeZip(buf.Bytes())
	require.Error(t, err)
	assert.Equal(t, apierr.KindBadResponse, apierr.KindOf(err))
}
