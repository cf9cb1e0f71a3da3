package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

func newTestPlanner(t *testing.T, codes ...string) *Planner {
	t.Helper()

	st, err := store.OpenMemory(logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	symbols := store.NewSymbolRepository(st)
	for _, code := range codes {
		require.NoError(t, symbols.Upsert(context.Background(), &store.Symbol{StockCode: code}))
	}
	return NewPlanner(symbols, logger.Nop())
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"005930", "005930"},
		{"5930", "005930"},
		{" 005930 ", "005930"},
		{"A005930", "005930"},
		{"", ""},
		{"samsung", ""},
		{"1234567", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeSymbol(tt.raw); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPlanSingleScope(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.Plan(context.Background(), &Request{
		RunTypes: []string{"prices", "margins"},
		Scope:    ScopeSingle,
		Symbols:  []string{"5930", "005930", "000660"},
	})
	require.NoError(t, err)

	// duplicates collapse after normalization
	assert.Len(t, plan.Symbols, 2)
	assert.Equal(t, "005930", plan.Symbols[0].StockCode)

	assert.Equal(t, []Domain{DomainPrices, DomainMargins}, plan.Domains)
	assert.Len(t, plan.Items[DomainPrices], 2)
	assert.Equal(t, 4, plan.TotalItems())
}

func TestPlanEmptySingleScope(t *testing.T) {
	p := newTestPlanner(t)

	_, err := p.Plan(context.Background(), &Request{
		RunTypes: []string{"prices"},
		Scope:    ScopeSingle,
		Symbols:  []string{"not-a-code"},
	})

	var es *EmptyScopeError
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindEmptyScope, KindOf(err))
}

func TestPlanScopeAllTruncation(t *testing.T) {
	p := newTestPlanner(t, "000660", "005930", "000100")

	plan, err := p.Plan(context.Background(), &Request{
		RunTypes:     []string{"prices"},
		Scope:        ScopeAll,
		LimitSymbols: 2,
	})
	require.NoError(t, err)

	// lexicographic order, truncated deterministically
	require.Len(t, plan.Symbols, 2)
	assert.Equal(t, "000100", plan.Symbols[0].StockCode)
	assert.Equal(t, "000660", plan.Symbols[1].StockCode)
	require.Len(t, plan.Notes, 1)
	assert.Contains(t, plan.Notes[0], "limit_symbols")
}

func TestPlanScopeAllEmptyUniverse(t *testing.T) {
	p := newTestPlanner(t)

	// Without the symbols domain an empty universe is a dead end
	_, err := p.Plan(context.Background(), &Request{
		RunTypes: []string{"prices"},
		Scope:    ScopeAll,
	})
	var es *EmptyScopeError
	require.ErrorAs(t, err, &es)

	// With the symbols domain the universe refresh bootstraps it
	plan, err := p.Plan(context.Background(), &Request{
		RunTypes: []string{"symbols", "prices"},
		Scope:    ScopeAll,
	})
	require.NoError(t, err)
	require.Len(t, plan.Items[DomainSymbols], 1)
	assert.True(t, plan.Items[DomainSymbols][0].Universe)
	assert.Empty(t, plan.Items[DomainPrices])
}

func TestPlanInvalidWindow(t *testing.T) {
	p := newTestPlanner(t, "005930")

	_, err := p.Plan(context.Background(), &Request{
		RunTypes: []string{"prices"},
		Scope:    ScopeAll,
		AsOfFrom: "2026-03-01",
		AsOfTo:   "2026-02-01",
	})

	var iw *InvalidWindowError
	require.True(t, errors.As(err, &iw))
	assert.Equal(t, "20260301", iw.From)
	assert.Equal(t, "20260201", iw.To)
}

func TestPlanRejectsMalformedDates(t *testing.T) {
	p := newTestPlanner(t, "005930")

	tests := []struct {
		name string
		req  Request
	}{
		{"bad as_of_from", Request{AsOfFrom: "next tuesday"}},
		{"bad as_of_to", Request{AsOfTo: "2026-13-99"}},
		{"bad as_of", Request{AsOf: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.RunTypes = []string{"prices"}
			tt.req.Scope = ScopeAll

			_, err := p.Plan(context.Background(), &tt.req)

			var id *InvalidDateError
			require.True(t, errors.As(err, &id))
			assert.Equal(t, KindInvalidWindow, KindOf(err))
		})
	}
}

func TestPlanPricesWindows(t *testing.T) {
	today := todayUTC().Format("20060102")

	tests := []struct {
		name     string
		req      Request
		sym      store.Symbol
		wantFrom string
		wantTo   string
		backfill bool
	}{
		{
			name:     "explicit bounds win",
			req:      Request{AsOfFrom: "20260101", AsOfTo: "20260131"},
			wantFrom: "20260101",
			wantTo:   "20260131",
		},
		{
			name:     "fast preset is seven trailing days",
			req:      Request{PricesWindow: WindowFast},
			wantFrom: todayUTC().AddDate(0, 0, -7).Format("20060102"),
			wantTo:   today,
		},
		{
			name:     "no preset defaults to fast",
			req:      Request{},
			wantFrom: todayUTC().AddDate(0, 0, -7).Format("20060102"),
			wantTo:   today,
		},
		{
			name:     "unknown preset falls back to fast",
			req:      Request{PricesWindow: PricesWindow("hourly")},
			wantFrom: todayUTC().AddDate(0, 0, -7).Format("20060102"),
			wantTo:   today,
		},
		{
			name:     "backfill flag wins over a preset",
			req:      Request{PricesWindow: WindowFast, Backfill: true},
			sym:      store.Symbol{StockCode: "005930", ListedDate: "1975-06-11"},
			wantFrom: "19750611",
			wantTo:   today,
			backfill: true,
		},
		{
			name:     "normal preset is thirty trailing days",
			req:      Request{PricesWindow: WindowNormal},
			wantFrom: todayUTC().AddDate(0, 0, -30).Format("20060102"),
			wantTo:   today,
		},
		{
			name:     "lookback overrides the preset",
			req:      Request{PricesWindow: WindowFast, LookbackDays: 90},
			wantFrom: todayUTC().AddDate(0, 0, -90).Format("20060102"),
			wantTo:   today,
		},
		{
			name:     "full preset starts at the listed date",
			req:      Request{PricesWindow: WindowFull},
			sym:      store.Symbol{StockCode: "005930", ListedDate: "1975-06-11"},
			wantFrom: "19750611",
			wantTo:   today,
			backfill: true,
		},
		{
			name:     "full preset without listed date hits the floor",
			req:      Request{PricesWindow: WindowFull},
			wantFrom: backfillFloor,
			wantTo:   today,
			backfill: true,
		},
	}

	p := newTestPlanner(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.windowFor(DomainPrices, &tt.req, tt.sym)
			assert.Equal(t, tt.wantFrom, w.From)
			assert.Equal(t, tt.wantTo, w.To)
			assert.Equal(t, tt.backfill, w.Backfill)
		})
	}
}

func TestPlanNonPriceWindow(t *testing.T) {
	p := newTestPlanner(t)

	w := p.windowFor(DomainEvents, &Request{AsOfFrom: "20260101", AsOfTo: "20260301"}, store.Symbol{})
	assert.Equal(t, "20260101", w.From)
	assert.Equal(t, "20260301", w.To)

	// as-of alone caps the window
	w = p.windowFor(DomainFundamental, &Request{AsOf: "2026-06-30"}, store.Symbol{})
	assert.Equal(t, "", w.From)
	assert.Equal(t, "20260630", w.To)

	// nothing at all means latest
	w = p.windowFor(DomainMargins, &Request{}, store.Symbol{})
	assert.True(t, w.Latest())
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"20260115", "20260115"},
		{"2026-01-15", "20260115"},
		{"2026/01/15", "20260115"},
		{"", ""},
		{"yesterday", ""},
	}
	for _, tt := range tests {
		if got := normalizeDate(tt.raw); got != tt.want {
			t.Errorf("normalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	rfc := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC).Format(time.RFC3339)
	if got := normalizeDate(rfc); got != "20260115" {
		t.Errorf("normalizeDate(RFC3339) = %q, want 20260115", got)
	}
}
