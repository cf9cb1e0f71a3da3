// Package ingest is the ingestion core: run planning, preflight credential
// checks, per-domain fetchers and the orchestrator that ties them to the
// run ledger.
package ingest

import (
	"time"

	"github.com/wonny/stockfinder/internal/store"
)

// Domain is one category of fetched data
type Domain string

const (
	DomainSymbols     Domain = "symbols"
	DomainPrices      Domain = "prices"
	DomainFundamental Domain = "fundamental"
	DomainFinancials  Domain = "financials"
	DomainEvents      Domain = "events"
	DomainMargins     Domain = "margins"

	// RunTypeAll expands to every domain
	RunTypeAll = "all"
)

// DomainOrder is the fixed execution order. `symbols` must run first so a
// scope=all run can establish its symbol universe before dependent domains.
var DomainOrder = []Domain{
	DomainSymbols,
	DomainPrices,
	DomainFundamental,
	DomainFinancials,
	DomainEvents,
	DomainMargins,
}

// RunStatus is the ledger status of a run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// OutcomeStatus is the status of one domain within a run
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomePartial OutcomeStatus = "partial"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Scope selects between an explicit symbol set and the full universe
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeAll    Scope = "all"
)

// SourceProfile restricts which providers a run may query
type SourceProfile string

const (
	ProfileAll  SourceProfile = "all"
	ProfileKIS  SourceProfile = "kis"
	ProfileDART SourceProfile = "dart"
)

// PricesWindow is a named preset for the prices lookback
type PricesWindow string

const (
	WindowFast   PricesWindow = "fast"   // 7 trailing days
	WindowNormal PricesWindow = "normal" // 30 trailing days
	WindowFull   PricesWindow = "full"   // entire history, backfill
)

// Request is a fully resolved run request
type Request struct {
	RunTypes      []string // domain names or "all"
	Scope         Scope
	Symbols       []string
	SourceProfile SourceProfile
	Timeframes    []string // D, W, M, Y
	AsOf          string   // YYYYMMDD or YYYY-MM-DD
	AsOfFrom      string
	AsOfTo        string
	PricesWindow  PricesWindow
	LookbackDays  int
	Backfill      bool
	LimitSymbols  int
	DryRun        bool
}

// Credentials are the secrets consumed opaquely by preflight and clients
type Credentials struct {
	KISAppKey    string
	KISAppSecret string
	KISAccountNo string
	DARTAPIKey   string
}

// Window is a resolved time range for one domain
type Window struct {
	From     string // YYYYMMDD, empty means provider default / latest
	To       string // YYYYMMDD
	Backfill bool
}

// Latest reports whether the window means "latest available"
func (w Window) Latest() bool {
	return w.From == "" && w.To == "" && !w.Backfill
}

// WorkItem is one (domain, symbol, window) unit of work. Ephemeral and
// in-memory only; the planner produces them and the orchestrator consumes.
type WorkItem struct {
	Domain Domain
	Symbol store.Symbol
	Window Window

	// Universe marks the synthetic scope=all symbols item that refreshes
	// the whole universe in a single provider call.
	Universe bool
}

// ItemResult carries the row counters of one executed work item
type ItemResult struct {
	Read    int
	Written int
	Skipped int
}

// DomainSummary is the per-domain slice of the JSON summary
type DomainSummary struct {
	Domain       string               `json:"domain"`
	Status       string               `json:"status"`
	RowsRead     int                  `json:"rows_read"`
	RowsWritten  int                  `json:"rows_written"`
	RowsSkipped  int                  `json:"rows_skipped"`
	PlannedItems int                  `json:"planned_items,omitempty"`
	Errors       []store.OutcomeError `json:"errors,omitempty"`

	// db-check only
	RecountedRows *int  `json:"recounted_rows,omitempty"`
	CountMatches  *bool `json:"count_matches,omitempty"`
}

// Summary is the JSON object every command emits
type Summary struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	DryRun     bool            `json:"dry_run,omitempty"`
	Scope      string          `json:"scope,omitempty"`
	RunType    string          `json:"run_type,omitempty"`
	StartedAt  string          `json:"started_at,omitempty"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Symbols    int             `json:"symbols_count"`
	Domains    []DomainSummary `json:"domains"`
	Notes      []string        `json:"notes"`
	Error      string          `json:"error,omitempty"`
}

// todayUTC is the date anchor used for window math
func todayUTC() time.Time {
	return time.Now().UTC()
}
