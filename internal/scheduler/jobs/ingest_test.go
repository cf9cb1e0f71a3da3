package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockfinder/internal/ingest"
	"github.com/wonny/stockfinder/pkg/logger"
)

func newJob(run RunFunc) *IngestJob {
	req := &ingest.Request{RunTypes: []string{"all"}, Scope: ingest.ScopeAll}
	return NewIngestJob("daily-ingest", "0 30 18 * * MON-FRI", req, run, logger.Nop())
}

func TestIngestJobSucceeded(t *testing.T) {
	j := newJob(func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error) {
		return &ingest.Summary{RunID: "r1", Status: string(ingest.RunSucceeded)}, nil
	})

	assert.Equal(t, "daily-ingest", j.Name())
	assert.Equal(t, "0 30 18 * * MON-FRI", j.Schedule())
	require.NoError(t, j.Run(context.Background()))
}

func TestIngestJobPartialIsAcceptable(t *testing.T) {
	j := newJob(func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error) {
		return &ingest.Summary{RunID: "r2", Status: string(ingest.RunPartial)}, nil
	})

	require.NoError(t, j.Run(context.Background()))
}

func TestIngestJobFailedRunErrors(t *testing.T) {
	j := newJob(func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error) {
		return &ingest.Summary{RunID: "r3", Status: string(ingest.RunFailed)}, nil
	})

	err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r3")
}

func TestIngestJobWrapsRunError(t *testing.T) {
	sentinel := errors.New("orchestrator exploded")
	j := newJob(func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error) {
		return nil, sentinel
	})

	err := j.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}
