// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stockfinder/internal/ingest"
	"github.com/wonny/stockfinder/pkg/logger"
)

// RunFunc executes one ingest request and returns its summary
type RunFunc func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error)

// IngestJob runs a fixed ingest request on a cron schedule. The typical
// setup is a daily scope=all fast-window run after market close.
type IngestJob struct {
	name     string
	schedule string
	request  *ingest.Request
	run      RunFunc
	logger   *logger.Logger
}

// NewIngestJob creates a scheduled ingest job
func NewIngestJob(name, schedule string, req *ingest.Request, run RunFunc, log *logger.Logger) *IngestJob {
	return &IngestJob{
		name:     name,
		schedule: schedule,
		request:  req,
		run:      run,
		logger:   log,
	}
}

// Name returns the job name
func (j *IngestJob) Name() string { return j.name }

// Schedule returns the cron schedule expression
func (j *IngestJob) Schedule() string { return j.schedule }

// Run executes the ingest request once
func (j *IngestJob) Run(ctx context.Context) error {
	summary, err := j.run(ctx, j.request)
	if err != nil {
		return fmt.Errorf("scheduled ingest %s: %w", j.name, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"job":    j.name,
		"run_id": summary.RunID,
		"status": summary.Status,
	}).Info("Scheduled ingest finished")

	// partial is acceptable for a scheduled run; a fully failed run retries
	if summary.Status == string(ingest.RunFailed) {
		return fmt.Errorf("scheduled ingest %s: run %s failed", j.name, summary.RunID)
	}
	return nil
}
