package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockfinder/internal/store"
)

// itemFunc executes one work item and reports its row counters
type itemFunc func(ctx context.Context, item WorkItem) (ItemResult, error)

// DomainResult aggregates the item results of one domain
type DomainResult struct {
	Read      int
	Written   int
	Skipped   int
	OKItems   int
	Failed    int
	Errors    []store.OutcomeError
	Cancelled bool
}

func (r *DomainResult) add(item WorkItem, res ItemResult, err error) {
	r.Read += res.Read
	r.Written += res.Written
	r.Skipped += res.Skipped
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, outcomeError(item.Symbol.StockCode, err))
		return
	}
	r.OKItems++
}

// Executor runs a domain's work items with symbol-level failure isolation:
// one failing item never stops its siblings. Cancellation is cooperative
// and checked before each dispatch; in-flight items finish.
type Executor interface {
	Execute(ctx context.Context, items []WorkItem, run itemFunc) DomainResult
}

// SequentialExecutor runs items one at a time in plan order
type SequentialExecutor struct{}

func (SequentialExecutor) Execute(ctx context.Context, items []WorkItem, run itemFunc) DomainResult {
	var result DomainResult
	for _, item := range items {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		res, err := run(ctx, item)
		result.add(item, res, err)
	}
	return result
}

// PoolExecutor runs items on a bounded worker pool
type PoolExecutor struct {
	Workers int
}

func (p PoolExecutor) Execute(ctx context.Context, items []WorkItem, run itemFunc) DomainResult {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		result DomainResult
	)

	g := &errgroup.Group{}
	g.SetLimit(workers)

	for _, item := range items {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		item := item
		g.Go(func() error {
			res, err := run(ctx, item)
			mu.Lock()
			result.add(item, res, err)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return result
}
