package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/stockfinder/internal/external/apierr"
)

// CorpCodeEntry is one listed company from the corpCode master file
type CorpCodeEntry struct {
	CorpCode  string `xml:"corp_code"`
	CorpName  string `xml:"corp_name"`
	StockCode string `xml:"stock_code"`
}

// corpCodeFile is the XML document inside the corpCode ZIP
type corpCodeFile struct {
	XMLName xml.Name        `xml:"result"`
	List    []CorpCodeEntry `xml:"list"`
}

// FetchCorpCodes downloads the DART corpCode master (ZIP of one XML file)
// and returns entries that carry a stock code, i.e. listed companies.
func (c *Client) FetchCorpCodes(ctx context.Context) ([]CorpCodeEntry, error) {
	url := fmt.Sprintf("%s/corpCode.xml?crtfc_key=%s", strings.TrimRight(c.baseURL, "/"), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierr.Wrap(Provider, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apierr.FromStatus(Provider, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(Provider, fmt.Errorf("read corpCode body: %w", err))
	}

	entries, err := parseCorpCodeZip(data)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(entries)).Info("DART corp codes fetched")
	return entries, nil
}

// parseCorpCodeZip extracts and parses the first XML file of the ZIP payload
func parseCorpCodeZip(data []byte) ([]CorpCodeEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("corpCode ZIP: %v", err))
	}
	if len(zr.File) == 0 {
		return nil, apierr.New(Provider, apierr.KindBadResponse, "corpCode ZIP is empty")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("corpCode ZIP entry: %v", err))
	}
	defer f.Close()

	var doc corpCodeFile
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, apierr.New(Provider, apierr.KindBadResponse, fmt.Sprintf("corpCode XML: %v", err))
	}

	entries := make([]CorpCodeEntry, 0, len(doc.List))
	for _, entry := range doc.List {
		entry.CorpCode = strings.TrimSpace(entry.CorpCode)
		entry.CorpName = strings.TrimSpace(entry.CorpName)
		entry.StockCode = strings.TrimSpace(entry.StockCode)
		if entry.StockCode == "" {
			continue // unlisted company
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
