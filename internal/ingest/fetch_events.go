package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/wonny/stockfinder/internal/external/dart"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// default disclosure lookback when the run carries no window
const eventsDefaultLookbackDays = 30

// disclosure pages fetched per symbol at most
const eventsMaxPages = 10

// eventsFetcher pulls DART disclosures for one symbol. Symbols with no
// corp-code mapping are skipped, not failed; the mapping comes from the
// universe refresh and may legitimately be missing.
type eventsFetcher struct {
	filings FilingsClient
	symbols *store.SymbolRepository
	events  *store.EventRepository
	logger  *logger.Logger
}

func (f *eventsFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	var result ItemResult

	corpCode := item.Symbol.DartCorpCode
	if corpCode == "" {
		stored, err := f.symbols.Get(ctx, item.Symbol.StockCode)
		if err != nil {
			return result, &PersistenceError{Op: "get symbol", Err: err}
		}
		if stored != nil {
			corpCode = stored.DartCorpCode
		}
	}
	if corpCode == "" {
		f.logger.WithField("symbol", item.Symbol.StockCode).Debug("No corp code mapping, skipping disclosures")
		result.Skipped = 1
		return result, nil
	}

	begin, end := eventsRange(item.Window)

	for page := 1; page <= eventsMaxPages; page++ {
		disclosures, totalPages, err := f.filings.FetchDisclosures(ctx, corpCode, begin, end, page)
		result.Read += len(disclosures)
		if err != nil {
			return result, err
		}

		for _, d := range disclosures {
			row, ok := eventRow(item.Symbol.StockCode, d)
			if !ok {
				result.Skipped++
				continue
			}
			if err := f.events.Upsert(ctx, runID, row); err != nil {
				return result, &PersistenceError{Op: "upsert event", Err: err}
			}
			result.Written++
		}

		if page >= totalPages {
			break
		}
	}

	return result, nil
}

// eventsRange resolves the disclosure date range in YYYYMMDD
func eventsRange(w Window) (string, string) {
	end := w.To
	if end == "" {
		end = todayUTC().Format("20060102")
	}
	begin := w.From
	if begin == "" {
		t, err := time.Parse("20060102", end)
		if err != nil {
			t = todayUTC()
		}
		begin = t.AddDate(0, 0, -eventsDefaultLookbackDays).Format("20060102")
	}
	return begin, end
}

// eventRow normalizes one disclosure; the receipt number is the natural key
func eventRow(code string, d dart.Disclosure) (*store.EventRow, bool) {
	if d.RceptNo == "" {
		return nil, false
	}
	date := isoDate(d.RceptDt)
	if date == "" {
		return nil, false
	}

	eventType, severity := classifyDisclosure(d.ReportNm)
	return &store.EventRow{
		StockCode:     code,
		EventTime:     date + "T00:00:00Z",
		EventType:     eventType,
		Severity:      severity,
		Headline:      strings.TrimSpace(d.ReportNm),
		Summary:       strings.TrimSpace(d.FlrNm),
		Source:        dart.Provider,
		SourceEventID: d.RceptNo,
	}, true
}

// classifyDisclosure buckets a disclosure title into an event type.
// Capital-structure events rank above routine filings.
var disclosureTypes = []struct {
	keyword   string
	eventType string
	severity  int
}{
	{"유상증자", "capital_increase", 2},
	{"무상증자", "bonus_issue", 2},
	{"감자", "capital_reduction", 2},
	{"합병", "merger", 2},
	{"분할", "split", 2},
	{"상장폐지", "delisting", 3},
	{"거래정지", "trading_halt", 3},
}

func classifyDisclosure(title string) (string, int) {
	for _, dt := range disclosureTypes {
		if strings.Contains(title, dt.keyword) {
			return dt.eventType, dt.severity
		}
	}
	return "disclosure", 1
}
