package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/stockfinder/internal/store"
)

// Query serves the read-only run projections: status and db-check
type Query struct {
	runs  *store.RunRepository
	repos *Repositories
}

// NewQuery creates a new run query service
func NewQuery(runs *store.RunRepository, repos *Repositories) *Query {
	return &Query{runs: runs, repos: repos}
}

// Status projects a run and its persisted domain outcomes into a summary
func (q *Query) Status(ctx context.Context, runID string) (*Summary, error) {
	run, outcomes, err := q.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	domains := make([]DomainSummary, 0, len(outcomes))
	for _, o := range outcomes {
		domains = append(domains, DomainSummary{
			Domain:      o.Domain,
			Status:      o.Status,
			RowsRead:    o.RowsRead,
			RowsWritten: o.RowsWritten,
			RowsSkipped: o.RowsSkipped,
			Errors:      o.Errors,
		})
	}
	return summarize(run, domains), nil
}

// DBCheck is Status plus a recount of stored rows per domain. Ledger and
// data tables are written in separate transactions, so a mismatch is
// reportable state, not an error.
func (q *Query) DBCheck(ctx context.Context, runID string) (*Summary, error) {
	run, outcomes, err := q.load(ctx, runID)
	if err != nil {
		return nil, err
	}

	var notes []string
	domains := make([]DomainSummary, 0, len(outcomes))
	for _, o := range outcomes {
		ds := DomainSummary{
			Domain:      o.Domain,
			Status:      o.Status,
			RowsRead:    o.RowsRead,
			RowsWritten: o.RowsWritten,
			RowsSkipped: o.RowsSkipped,
			Errors:      o.Errors,
		}

		if counter := q.counter(Domain(o.Domain)); counter != nil {
			count, err := counter(ctx, runID)
			if err != nil {
				return nil, &PersistenceError{Op: "recount " + o.Domain, Err: err}
			}
			matches := count == o.RowsWritten
			ds.RecountedRows = &count
			ds.CountMatches = &matches
			if !matches {
				notes = append(notes, fmt.Sprintf("db-check mismatch: %s rows_written=%d recounted=%d", o.Domain, o.RowsWritten, count))
			}
		}

		domains = append(domains, ds)
	}

	summary := summarize(run, domains)
	summary.Notes = appendNote(summary.Notes, notes...)
	return summary, nil
}

// counter picks the recount query of one domain. The symbol universe
// carries no run attribution, so the symbols domain has no recount.
func (q *Query) counter(domain Domain) func(context.Context, string) (int, error) {
	switch domain {
	case DomainPrices:
		return q.repos.Prices.CountForRun
	case DomainFundamental:
		return q.repos.Fundamentals.CountForRun
	case DomainFinancials:
		return q.repos.Financials.CountForRun
	case DomainEvents:
		return q.repos.Events.CountForRun
	case DomainMargins:
		return q.repos.Margins.CountForRun
	default:
		return nil
	}
}

func (q *Query) load(ctx context.Context, runID string) (*store.Run, []store.DomainOutcome, error) {
	run, err := q.runs.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, nil, &RunNotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, nil, &PersistenceError{Op: "get run", Err: err}
	}

	outcomes, err := q.runs.GetOutcomes(ctx, runID)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "get outcomes", Err: err}
	}
	return run, outcomes, nil
}
