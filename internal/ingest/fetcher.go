package ingest

import (
	"context"

	"github.com/wonny/stockfinder/internal/external/dart"
	"github.com/wonny/stockfinder/internal/external/kis"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/config"
	"github.com/wonny/stockfinder/pkg/logger"
)

// BrokerageClient is the slice of the KIS client the fetchers consume
type BrokerageClient interface {
	SearchStockInfo(ctx context.Context, symbol string) (*kis.StockInfo, error)
	FetchChartPrices(ctx context.Context, symbol, timeframe, from, to string, maxPages int) ([]kis.ChartCandle, error)
	FetchFinanceRatios(ctx context.Context, symbol, divCode string) ([]kis.FinanceRatio, error)
	FetchStatements(ctx context.Context, symbol string) ([]kis.StatementItem, error)
	FetchOrderableBalance(ctx context.Context, symbol string) (*kis.OrderableBalance, error)
	FetchIntegratedMargin(ctx context.Context, symbol string) (*kis.IntegratedMargin, error)
}

// FilingsClient is the slice of the DART client the fetchers consume
type FilingsClient interface {
	FetchCorpCodes(ctx context.Context) ([]dart.CorpCodeEntry, error)
	FetchDisclosures(ctx context.Context, corpCode, beginDate, endDate string, pageNo int) ([]dart.Disclosure, int, error)
}

// Fetcher executes one work item of its domain: fetch from the provider,
// normalize, and persist through the repositories. Row counters come back
// in the ItemResult even when the item partially failed.
type Fetcher interface {
	Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error)
}

// Repositories bundles the store-side dependencies of the fetchers
type Repositories struct {
	Symbols      *store.SymbolRepository
	Prices       *store.PriceRepository
	Fundamentals *store.FundamentalRepository
	Financials   *store.FinancialRepository
	Events       *store.EventRepository
	Margins      *store.MarginRepository
}

// NewRepositories wires every repository off one store
func NewRepositories(s *store.Store) *Repositories {
	return &Repositories{
		Symbols:      store.NewSymbolRepository(s),
		Prices:       store.NewPriceRepository(s),
		Fundamentals: store.NewFundamentalRepository(s),
		Financials:   store.NewFinancialRepository(s),
		Events:       store.NewEventRepository(s),
		Margins:      store.NewMarginRepository(s),
	}
}

// NewFetchers builds the per-domain fetcher set for one run request
func NewFetchers(req *Request, cfg *config.Config, brokerage BrokerageClient, filings FilingsClient, repos *Repositories, log *logger.Logger) map[Domain]Fetcher {
	timeframes := req.Timeframes
	if len(timeframes) == 0 {
		timeframes = []string{"D"}
	}

	return map[Domain]Fetcher{
		DomainSymbols: &symbolsFetcher{
			brokerage: brokerage,
			filings:   filings,
			symbols:   repos.Symbols,
			logger:    log,
		},
		DomainPrices: &pricesFetcher{
			brokerage:  brokerage,
			prices:     repos.Prices,
			timeframes: timeframes,
			maxPages:   cfg.KIS.MaxPricePages,
			logger:     log,
		},
		DomainFundamental: &fundamentalFetcher{
			brokerage:    brokerage,
			fundamentals: repos.Fundamentals,
			logger:       log,
		},
		DomainFinancials: &financialsFetcher{
			brokerage:  brokerage,
			financials: repos.Financials,
			logger:     log,
		},
		DomainEvents: &eventsFetcher{
			filings: filings,
			symbols: repos.Symbols,
			events:  repos.Events,
			logger:  log,
		},
		DomainMargins: &marginsFetcher{
			brokerage: brokerage,
			margins:   repos.Margins,
			logger:    log,
		},
	}
}

// domainExcluded reports whether the source profile shuts a domain out of
// its provider. Excluded domains are recorded as skipped, not failed.
func domainExcluded(domain Domain, scope Scope, profile SourceProfile) bool {
	switch profile {
	case ProfileKIS:
		// events come from DART only; a scope=all symbols refresh does too
		return domain == DomainEvents || (domain == DomainSymbols && scope == ScopeAll)
	case ProfileDART:
		switch domain {
		case DomainPrices, DomainFundamental, DomainFinancials, DomainMargins:
			return true
		case DomainSymbols:
			// single-scope symbol enrichment is a KIS lookup
			return scope == ScopeSingle
		}
	}
	return false
}
