package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// earliest date used for full-history backfill when the listed date is unknown
const backfillFloor = "19900101"

// Prices window presets in trailing days
var pricesWindowDays = map[PricesWindow]int{
	WindowFast:   7,
	WindowNormal: 30,
}

// Plan is the ordered expansion of a run request into work items
type Plan struct {
	Domains []Domain
	Items   map[Domain][]WorkItem
	Symbols []store.Symbol
	Notes   []string
}

// TotalItems counts planned work items across all domains
func (p *Plan) TotalItems() int {
	total := 0
	for _, items := range p.Items {
		total += len(items)
	}
	return total
}

// Planner expands run requests into ordered work-item plans
// ⭐ SSOT: 실행 계획 수립은 여기서만
type Planner struct {
	symbols *store.SymbolRepository
	logger  *logger.Logger
}

// NewPlanner creates a new planner
func NewPlanner(symbols *store.SymbolRepository, log *logger.Logger) *Planner {
	return &Planner{symbols: symbols, logger: log}
}

// Plan validates the request and produces the ordered work-item plan.
// Domain order follows DomainOrder; within a domain, items follow the
// resolved symbol-set order.
func (p *Planner) Plan(ctx context.Context, req *Request) (*Plan, error) {
	from, err := parseRequestDate("as_of_from", req.AsOfFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseRequestDate("as_of_to", req.AsOfTo)
	if err != nil {
		return nil, err
	}
	if _, err := parseRequestDate("as_of", req.AsOf); err != nil {
		return nil, err
	}
	if from != "" && to != "" && from > to {
		return nil, &InvalidWindowError{From: from, To: to}
	}

	domains := orderedDomains(req.RunTypes)
	if len(domains) == 0 {
		domains = append(domains, DomainOrder...)
	}

	plan := &Plan{
		Domains: domains,
		Items:   make(map[Domain][]WorkItem, len(domains)),
	}

	symbols, notes, err := p.resolveSymbols(ctx, req, domains)
	if err != nil {
		return nil, err
	}
	plan.Symbols = symbols
	plan.Notes = notes

	for _, domain := range domains {
		plan.Items[domain] = p.itemsFor(domain, req, symbols)
	}

	p.logger.WithFields(map[string]interface{}{
		"domains": len(domains),
		"symbols": len(symbols),
		"items":   plan.TotalItems(),
	}).Debug("Run plan built")

	return plan, nil
}

// RefreshScopeAll re-resolves the symbol universe from storage and rebuilds
// the work items of every domain after `symbols`. The orchestrator calls it
// once the symbols domain has completed under scope=all, so downstream
// domains see the freshly discovered universe.
func (p *Planner) RefreshScopeAll(ctx context.Context, req *Request, plan *Plan) error {
	if req.Scope != ScopeAll {
		return nil
	}

	symbols, notes, err := p.resolveAllSymbols(ctx, req)
	if err != nil {
		return err
	}
	plan.Symbols = symbols
	for _, note := range notes {
		if !containsNote(plan.Notes, note) {
			plan.Notes = append(plan.Notes, note)
		}
	}

	for _, domain := range plan.Domains {
		if domain == DomainSymbols {
			continue
		}
		plan.Items[domain] = p.itemsFor(domain, req, symbols)
	}
	return nil
}

// resolveSymbols resolves the effective symbol set for the request
func (p *Planner) resolveSymbols(ctx context.Context, req *Request, domains []Domain) ([]store.Symbol, []string, error) {
	if req.Scope == ScopeSingle {
		var symbols []store.Symbol
		seen := make(map[string]bool)
		for _, raw := range req.Symbols {
			code := NormalizeSymbol(raw)
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			symbols = append(symbols, store.Symbol{StockCode: code})
		}
		if len(symbols) == 0 {
			return nil, nil, &EmptyScopeError{Scope: ScopeSingle}
		}
		return symbols, nil, nil
	}

	symbols, notes, err := p.resolveAllSymbols(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if len(symbols) == 0 {
		// An empty universe is acceptable only when the symbols domain is
		// part of this run: its universe refresh will populate storage and
		// the plan gets rebuilt afterwards.
		hasSymbolsDomain := false
		for _, d := range domains {
			if d == DomainSymbols {
				hasSymbolsDomain = true
				break
			}
		}
		if !hasSymbolsDomain {
			return nil, nil, &EmptyScopeError{Scope: ScopeAll}
		}
		notes = append(notes, "symbol universe empty; bootstrapping from filings corp codes")
	}

	return symbols, notes, nil
}

// resolveAllSymbols reads the stored universe, lexicographically ordered,
// and applies the limit_symbols guardrail with a truncation note.
func (p *Planner) resolveAllSymbols(ctx context.Context, req *Request) ([]store.Symbol, []string, error) {
	symbols, err := p.symbols.ListActive(ctx)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "list symbols", Err: err}
	}

	var notes []string
	if req.LimitSymbols > 0 && len(symbols) > req.LimitSymbols {
		notes = append(notes, fmt.Sprintf("limit_symbols applied: %d of %d symbols planned", req.LimitSymbols, len(symbols)))
		symbols = symbols[:req.LimitSymbols]
	}
	return symbols, notes, nil
}

// itemsFor builds the work items of one domain
func (p *Planner) itemsFor(domain Domain, req *Request, symbols []store.Symbol) []WorkItem {
	if domain == DomainSymbols && req.Scope == ScopeAll {
		// One synthetic item refreshing the whole universe
		return []WorkItem{{Domain: DomainSymbols, Universe: true}}
	}

	items := make([]WorkItem, 0, len(symbols))
	for _, sym := range symbols {
		items = append(items, WorkItem{
			Domain: domain,
			Symbol: sym,
			Window: p.windowFor(domain, req, sym),
		})
	}
	return items
}

// windowFor resolves the effective time window of one (domain, symbol)
func (p *Planner) windowFor(domain Domain, req *Request, sym store.Symbol) Window {
	from := normalizeDate(req.AsOfFrom)
	to := normalizeDate(req.AsOfTo)

	if domain != DomainPrices {
		// Non-price domains use the as-of range directly; empty means
		// latest available.
		if from == "" && to == "" {
			if asOf := normalizeDate(req.AsOf); asOf != "" {
				return Window{To: asOf}
			}
		}
		return Window{From: from, To: to}
	}

	// Explicit bounds win over presets
	if from != "" || to != "" {
		return Window{From: from, To: to}
	}

	today := todayUTC()
	if req.LookbackDays > 0 {
		return Window{
			From: today.AddDate(0, 0, -req.LookbackDays).Format("20060102"),
			To:   today.Format("20060102"),
		}
	}

	if req.PricesWindow == WindowFull || req.Backfill {
		start := normalizeDate(sym.ListedDate)
		if start == "" {
			start = backfillFloor
		}
		return Window{From: start, To: today.Format("20060102"), Backfill: true}
	}

	days, ok := pricesWindowDays[req.PricesWindow]
	if !ok {
		// unset or unrecognized preset falls back to the fast default
		days = pricesWindowDays[WindowFast]
	}
	return Window{
		From: today.AddDate(0, 0, -days).Format("20060102"),
		To:   today.Format("20060102"),
	}
}

// NormalizeSymbol canonicalizes a stock code: digits only, left-padded to
// six characters. Returns "" for input that cannot be a KRX code.
func NormalizeSymbol(raw string) string {
	var digits strings.Builder
	for _, ch := range strings.TrimSpace(raw) {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	code := digits.String()
	if code == "" || len(code) > 6 {
		return ""
	}
	return strings.Repeat("0", 6-len(code)) + code
}

// parseRequestDate canonicalizes a request date flag. Unlike provider data,
// a typo'd flag value must not silently widen the window to "latest".
func parseRequestDate(field, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	if d := normalizeDate(s); d != "" {
		return d, nil
	}
	return "", &InvalidDateError{Field: field, Value: raw}
}

// normalizeDate canonicalizes a date string into YYYYMMDD, "" when unparseable
func normalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"20060102", "2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}

// isoDate converts YYYYMMDD into YYYY-MM-DD, "" when unparseable
func isoDate(raw string) string {
	ymd := normalizeDate(raw)
	if ymd == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", ymd[:4], ymd[4:6], ymd[6:8])
}

func containsNote(notes []string, note string) bool {
	for _, n := range notes {
		if n == note {
			return true
		}
	}
	return false
}
