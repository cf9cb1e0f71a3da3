package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/logger"
)

// Orchestrator drives a run end to end: plan, ledger insert, per-domain
// execution with outcome persistence after every domain, final status.
// ⭐ SSOT: 수집 실행 흐름은 여기서만
type Orchestrator struct {
	planner  *Planner
	runs     *store.RunRepository
	fetchers map[Domain]Fetcher
	executor Executor
	logger   *logger.Logger
}

// NewOrchestrator creates a new run orchestrator
func NewOrchestrator(planner *Planner, runs *store.RunRepository, fetchers map[Domain]Fetcher, executor Executor, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		planner:  planner,
		runs:     runs,
		fetchers: fetchers,
		executor: executor,
		logger:   log,
	}
}

// Run executes one ingest request. Planning errors surface before any
// ledger row exists; once the run is inserted, every failure is recorded
// on the run itself and Run still returns a summary.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Summary, error) {
	plan, err := o.planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &store.Run{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		Status:         string(RunRunning),
		RunType:        runTypeLabel(req.RunTypes),
		Scope:          string(req.Scope),
		SourceProfile:  string(req.SourceProfile),
		PricesWindow:   string(req.PricesWindow),
		LookbackDays:   req.LookbackDays,
		PricesBackfill: req.Backfill,
		DryRun:         req.DryRun,
		SymbolsCount:   len(plan.Symbols),
		Notes:          plan.Notes,
	}

	if req.DryRun {
		return o.dryRun(ctx, req, run, plan)
	}

	if err := o.runs.InsertRun(ctx, run); err != nil {
		return nil, &PersistenceError{Op: "insert run", Err: err}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":  run.RunID,
		"scope":   run.Scope,
		"domains": len(plan.Domains),
		"symbols": run.SymbolsCount,
	}).Info("Ingest run started")

	summaries, cancelled, aborted, err := o.executeDomains(ctx, req, run, plan)
	if err != nil {
		return nil, err
	}

	run.SymbolsCount = len(plan.Symbols)
	run.Status = string(finalStatus(summaries, cancelled, aborted))
	if cancelled {
		run.Notes = appendNote(run.Notes, "run cancelled before completion")
	}
	run.Notes = appendNote(run.Notes, plan.Notes...)
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if err := o.runs.FinalizeRun(ctx, run); err != nil {
		return nil, &PersistenceError{Op: "finalize run", Err: err}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": run.RunID,
		"status": run.Status,
	}).Info("Ingest run finished")

	return summarize(run, summaries), nil
}

// dryRun records the plan as a no-op run: no provider call, no data row
func (o *Orchestrator) dryRun(ctx context.Context, req *Request, run *store.Run, plan *Plan) (*Summary, error) {
	run.Notes = appendNote(run.Notes, "dry run: no provider calls, no rows written")
	run.Status = string(RunSucceeded)
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if err := o.runs.InsertRun(ctx, run); err != nil {
		return nil, &PersistenceError{Op: "insert run", Err: err}
	}

	var summaries []DomainSummary
	for _, domain := range plan.Domains {
		ds := DomainSummary{
			Domain:       string(domain),
			Status:       string(OutcomeSkipped),
			PlannedItems: len(plan.Items[domain]),
		}
		if err := o.persistOutcome(ctx, run.RunID, ds); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}

	if err := o.runs.FinalizeRun(ctx, run); err != nil {
		return nil, &PersistenceError{Op: "finalize run", Err: err}
	}
	return summarize(run, summaries), nil
}

// executeDomains runs every planned domain in order, persisting each
// outcome as soon as the domain settles. The returned universeFailed flag
// marks a scope=all universe refresh failure, which aborts the run.
func (o *Orchestrator) executeDomains(ctx context.Context, req *Request, run *store.Run, plan *Plan) ([]DomainSummary, bool, bool, error) {
	var summaries []DomainSummary
	cancelled := false
	universeFailed := false

	for _, domain := range plan.Domains {
		ds := DomainSummary{Domain: string(domain), PlannedItems: len(plan.Items[domain])}

		switch {
		case cancelled:
			ds.Status = string(OutcomeSkipped)

		case universeFailed && domain != DomainSymbols:
			// Without a trustworthy universe every downstream scope=all
			// domain would fan out over stale symbols
			ds.Status = string(OutcomeSkipped)
			run.Notes = appendNote(run.Notes, fmt.Sprintf("%s skipped: symbol universe refresh failed", domain))

		case domainExcluded(domain, req.Scope, req.SourceProfile):
			ds.Status = string(OutcomeSkipped)
			run.Notes = appendNote(run.Notes, fmt.Sprintf("%s skipped by source profile %s", domain, req.SourceProfile))

		default:
			result := o.executor.Execute(ctx, plan.Items[domain], o.itemRunner(domain, run.RunID))
			ds.RowsRead = result.Read
			ds.RowsWritten = result.Written
			ds.RowsSkipped = result.Skipped
			ds.Errors = result.Errors
			ds.Status = string(outcomeStatus(result))

			if result.Cancelled || ctx.Err() != nil {
				cancelled = true
			}
			if domain == DomainSymbols && req.Scope == ScopeAll {
				if ds.Status == string(OutcomeFailed) {
					universeFailed = true
				} else if !cancelled {
					// Downstream domains run over the refreshed universe
					if err := o.planner.RefreshScopeAll(ctx, req, plan); err != nil {
						return nil, false, false, err
					}
				}
			}
		}

		if err := o.persistOutcome(ctx, run.RunID, ds); err != nil {
			return nil, false, false, err
		}
		summaries = append(summaries, ds)

		o.logger.WithFields(map[string]interface{}{
			"run_id": run.RunID,
			"domain": domain,
			"status": ds.Status,
			"rows":   ds.RowsWritten,
		}).Info("Domain settled")
	}

	return summaries, cancelled, universeFailed, nil
}

// itemRunner adapts the domain's fetcher into the executor's item function
func (o *Orchestrator) itemRunner(domain Domain, runID string) itemFunc {
	fetcher := o.fetchers[domain]
	return func(ctx context.Context, item WorkItem) (ItemResult, error) {
		res, err := fetcher.Fetch(ctx, runID, item)
		if err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"domain": domain,
				"symbol": item.Symbol.StockCode,
			}).Warn("Work item failed")
		}
		return res, err
	}
}

func (o *Orchestrator) persistOutcome(ctx context.Context, runID string, ds DomainSummary) error {
	outcome := &store.DomainOutcome{
		RunID:       runID,
		Domain:      ds.Domain,
		Status:      ds.Status,
		RowsRead:    ds.RowsRead,
		RowsWritten: ds.RowsWritten,
		RowsSkipped: ds.RowsSkipped,
		Errors:      ds.Errors,
	}
	if err := o.runs.UpsertOutcome(ctx, outcome); err != nil {
		return &PersistenceError{Op: "upsert outcome", Err: err}
	}
	return nil
}

// outcomeStatus folds an executor result into the domain status
func outcomeStatus(r DomainResult) OutcomeStatus {
	switch {
	case r.Cancelled && r.OKItems > 0:
		return OutcomePartial
	case r.Cancelled:
		return OutcomeSkipped
	case r.Failed > 0 && r.OKItems > 0:
		return OutcomePartial
	case r.Failed > 0:
		return OutcomeFailed
	default:
		return OutcomeOK
	}
}

// finalStatus folds the domain statuses into the run status. Any domain
// short of ok demotes the run to partial; a run where nothing succeeded,
// or whose scope=all universe refresh failed, is failed outright.
func finalStatus(summaries []DomainSummary, cancelled, aborted bool) RunStatus {
	if cancelled {
		return RunCancelled
	}
	if aborted {
		return RunFailed
	}

	ok, failed := 0, 0
	for _, ds := range summaries {
		switch ds.Status {
		case string(OutcomeOK):
			ok++
		case string(OutcomeFailed):
			failed++
		}
	}

	switch {
	case len(summaries) == 0:
		return RunSucceeded
	case ok == len(summaries):
		return RunSucceeded
	case failed == len(summaries):
		return RunFailed
	default:
		return RunPartial
	}
}

// summarize builds the JSON summary from the finalized run
func summarize(run *store.Run, domains []DomainSummary) *Summary {
	s := &Summary{
		RunID:     run.RunID,
		Status:    run.Status,
		DryRun:    run.DryRun,
		Scope:     run.Scope,
		RunType:   run.RunType,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Symbols:   run.SymbolsCount,
		Domains:   domains,
		Notes:     run.Notes,
		Error:     run.ErrorMessage,
	}
	if s.Notes == nil {
		s.Notes = []string{}
	}
	if run.FinishedAt != nil {
		s.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return s
}

// runTypeLabel renders the requested run types for the ledger
func runTypeLabel(runTypes []string) string {
	if len(runTypes) == 0 {
		return RunTypeAll
	}
	parts := make([]string, 0, len(runTypes))
	for _, rt := range runTypes {
		rt = strings.ToLower(strings.TrimSpace(rt))
		if rt == RunTypeAll {
			return RunTypeAll
		}
		parts = append(parts, rt)
	}
	return strings.Join(parts, ",")
}

// appendNote appends notes, dropping duplicates
func appendNote(notes []string, add ...string) []string {
	for _, note := range add {
		if note == "" || containsNote(notes, note) {
			continue
		}
		notes = append(notes, note)
	}
	return notes
}
