package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockfinder/internal/external/apierr"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

type fakeFetcher struct {
	fn func(ctx context.Context, runID string, item WorkItem) (ItemResult, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
	return f.fn(ctx, runID, item)
}

func okFetcher(written int) Fetcher {
	return &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
		return ItemResult{Read: written, Written: written}, nil
	}}
}

type harness struct {
	store *store.Store
	runs  *store.RunRepository
	repos *Repositories
}

func newHarness(t *testing.T, codes ...string) *harness {
	t.Helper()

	st, err := store.OpenMemory(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repos := NewRepositories(st)
	for _, code := range codes {
		require.NoError(t, repos.Symbols.Upsert(context.Background(), &store.Symbol{StockCode: code}))
	}
	return &harness{store: st, runs: store.NewRunRepository(st), repos: repos}
}

func (h *harness) orchestrator(fetchers map[Domain]Fetcher) *Orchestrator {
	planner := NewPlanner(h.repos.Symbols, logger.Nop())
	return NewOrchestrator(planner, h.runs, fetchers, SequentialExecutor{}, logger.Nop())
}

func (h *harness) query() *Query {
	return NewQuery(h.runs, h.repos)
}

func TestRunAllDomainsSucceed(t *testing.T) {
	h := newHarness(t, "000660", "005930")
	o := h.orchestrator(map[Domain]Fetcher{
		DomainPrices:      okFetcher(3),
		DomainFundamental: okFetcher(2),
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices", "fundamental"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	assert.Equal(t, string(RunSucceeded), summary.Status)
	assert.Equal(t, 2, summary.Symbols)
	require.Len(t, summary.Domains, 2)
	assert.Equal(t, "prices", summary.Domains[0].Domain)
	assert.Equal(t, string(OutcomeOK), summary.Domains[0].Status)
	assert.Equal(t, 6, summary.Domains[0].RowsWritten) // 2 symbols x 3 rows
	assert.NotEmpty(t, summary.RunID)
	assert.NotEmpty(t, summary.FinishedAt)

	// ledger round-trips through the status query
	got, err := h.query().Status(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, string(RunSucceeded), got.Status)
	require.Len(t, got.Domains, 2)
	assert.Equal(t, 6, got.Domains[0].RowsWritten)
}

func TestRunSymbolFailureIsolation(t *testing.T) {
	h := newHarness(t, "000660", "005930")
	o := h.orchestrator(map[Domain]Fetcher{
		DomainPrices: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			if item.Symbol.StockCode == "000660" {
				return ItemResult{}, apierr.New("kis", apierr.KindRateLimit, "quota exceeded")
			}
			return ItemResult{Read: 1, Written: 1}, nil
		}},
		DomainMargins: okFetcher(1),
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices", "margins"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	assert.Equal(t, string(RunPartial), summary.Status)

	prices := summary.Domains[0]
	assert.Equal(t, string(OutcomePartial), prices.Status)
	assert.Equal(t, 1, prices.RowsWritten)
	require.Len(t, prices.Errors, 1)
	assert.Equal(t, "kis", prices.Errors[0].Provider)
	assert.Equal(t, "000660", prices.Errors[0].Symbol)

	// the margin domain is untouched by the prices failure
	assert.Equal(t, string(OutcomeOK), summary.Domains[1].Status)
}

func TestRunAllDomainsFail(t *testing.T) {
	h := newHarness(t, "005930")
	failing := &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
		return ItemResult{}, errors.New("down")
	}}
	o := h.orchestrator(map[Domain]Fetcher{DomainPrices: failing, DomainEvents: failing})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices", "events"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)
	assert.Equal(t, string(RunFailed), summary.Status)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	h := newHarness(t, "005930")
	poison := &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
		t.Fatal("dry run must not execute fetchers")
		return ItemResult{}, nil
	}}
	o := h.orchestrator(map[Domain]Fetcher{DomainPrices: poison})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
		DryRun:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, string(RunSucceeded), summary.Status)
	assert.True(t, summary.DryRun)
	require.Len(t, summary.Domains, 1)
	assert.Equal(t, string(OutcomeSkipped), summary.Domains[0].Status)
	assert.Equal(t, 1, summary.Domains[0].PlannedItems)
	assert.Equal(t, 0, summary.Domains[0].RowsWritten)
	assert.Contains(t, summary.Notes, "dry run: no provider calls, no rows written")

	// the no-op run is still on the ledger
	got, err := h.query().Status(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.True(t, got.DryRun)
}

func TestRunUniverseRefreshFailureSkipsDownstream(t *testing.T) {
	h := newHarness(t, "005930")
	o := h.orchestrator(map[Domain]Fetcher{
		DomainSymbols: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			return ItemResult{}, apierr.New("dart", apierr.KindAuth, "key rejected")
		}},
		DomainPrices: okFetcher(1),
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"symbols", "prices"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	// a scope=all run without a trustworthy universe fails outright
	assert.Equal(t, string(RunFailed), summary.Status)
	assert.Equal(t, string(OutcomeFailed), summary.Domains[0].Status)
	assert.Equal(t, string(OutcomeSkipped), summary.Domains[1].Status)
	assert.Equal(t, 0, summary.Domains[1].RowsWritten)
}

func TestRunUniverseBootstrapFeedsDownstream(t *testing.T) {
	h := newHarness(t) // empty universe
	var pricedSymbols []string

	o := h.orchestrator(map[Domain]Fetcher{
		DomainSymbols: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			require.True(t, item.Universe)
			for _, code := range []string{"000660", "005930"} {
				require.NoError(t, h.repos.Symbols.Upsert(ctx, &store.Symbol{StockCode: code}))
			}
			return ItemResult{Read: 2, Written: 2}, nil
		}},
		DomainPrices: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			pricedSymbols = append(pricedSymbols, item.Symbol.StockCode)
			return ItemResult{Read: 1, Written: 1}, nil
		}},
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"symbols", "prices"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	assert.Equal(t, string(RunSucceeded), summary.Status)
	assert.Equal(t, 2, summary.Symbols)
	assert.Equal(t, []string{"000660", "005930"}, pricedSymbols)
}

func TestRunSourceProfileSkips(t *testing.T) {
	h := newHarness(t, "005930")
	o := h.orchestrator(map[Domain]Fetcher{
		DomainPrices: okFetcher(1),
		DomainEvents: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			t.Fatal("events must not run under the kis profile")
			return ItemResult{}, nil
		}},
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices", "events"},
		Scope:         ScopeAll,
		SourceProfile: ProfileKIS,
	})
	require.NoError(t, err)

	// a skipped domain demotes the run to partial
	assert.Equal(t, string(RunPartial), summary.Status)
	assert.Equal(t, string(OutcomeOK), summary.Domains[0].Status)
	assert.Equal(t, string(OutcomeSkipped), summary.Domains[1].Status)
	assert.Contains(t, summary.Notes, "events skipped by source profile kis")
}

func TestRunCancellation(t *testing.T) {
	h := newHarness(t, "000660", "005930")
	ctx, cancel := context.WithCancel(context.Background())

	o := h.orchestrator(map[Domain]Fetcher{
		DomainPrices: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			cancel() // first item cancels the rest of the run
			return ItemResult{Read: 1, Written: 1}, nil
		}},
		DomainMargins: okFetcher(1),
	})

	summary, err := o.Run(ctx, &Request{
		RunTypes:      []string{"prices", "margins"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	assert.Equal(t, string(RunCancelled), summary.Status)
	assert.Equal(t, string(OutcomePartial), summary.Domains[0].Status)
	assert.Equal(t, string(OutcomeSkipped), summary.Domains[1].Status)
	assert.Contains(t, summary.Notes, "run cancelled before completion")
}

func TestStatusUnknownRun(t *testing.T) {
	h := newHarness(t)

	_, err := h.query().Status(context.Background(), "no-such-run")
	var rnf *RunNotFoundError
	require.ErrorAs(t, err, &rnf)
	assert.Equal(t, KindRunNotFound, KindOf(err))
}

func TestDBCheckRecount(t *testing.T) {
	h := newHarness(t, "005930")

	// the fetcher writes real rows so the recount can agree
	o := h.orchestrator(map[Domain]Fetcher{
		DomainPrices: &fakeFetcher{fn: func(ctx context.Context, runID string, item WorkItem) (ItemResult, error) {
			row := &store.PriceRow{
				StockCode: item.Symbol.StockCode, Timeframe: "D", CandleAt: "2026-08-28",
				Open: 1, High: 2, Low: 1, Close: 2, Volume: 100, Source: "kis",
			}
			if err := h.repos.Prices.Upsert(ctx, runID, row); err != nil {
				return ItemResult{}, err
			}
			return ItemResult{Read: 1, Written: 1}, nil
		}},
	})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	check, err := h.query().DBCheck(context.Background(), summary.RunID)
	require.NoError(t, err)

	prices := check.Domains[0]
	require.NotNil(t, prices.RecountedRows)
	assert.Equal(t, 1, *prices.RecountedRows)
	require.NotNil(t, prices.CountMatches)
	assert.True(t, *prices.CountMatches)
}

func TestDBCheckReportsMismatch(t *testing.T) {
	h := newHarness(t, "005930")

	// claims two rows but writes none
	o := h.orchestrator(map[Domain]Fetcher{DomainPrices: okFetcher(2)})

	summary, err := o.Run(context.Background(), &Request{
		RunTypes:      []string{"prices"},
		Scope:         ScopeAll,
		SourceProfile: ProfileAll,
	})
	require.NoError(t, err)

	check, err := h.query().DBCheck(context.Background(), summary.RunID)
	require.NoError(t, err)

	prices := check.Domains[0]
	require.NotNil(t, prices.CountMatches)
	assert.False(t, *prices.CountMatches)
	assert.Equal(t, 0, *prices.RecountedRows)

	found := false
	for _, note := range check.Notes {
		if note == "db-check mismatch: prices rows_written=2 recounted=0" {
			found = true
		}
	}
	assert.True(t, found, "mismatch note missing: %v", check.Notes)
}
