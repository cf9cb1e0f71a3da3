package commands

import (
	"fmt"

	"github.com/wonny/stockfinder/internal/external/dart"
	"github.com/wonny/stockfinder/internal/external/kis"
	"github.com/wonny/stockfinder/internal/ingest"
	"github.com/wonny/stockfinder/internal/store"
	"github.com/wonny/stockfinder/pkg/config"
	"github.com/wonny/stockfinder/pkg/httputil"
	"github.com/wonny/stockfinder/pkg/logger"
)

// app bundles the wired runtime of one command invocation
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	store  *store.Store
	runs   *store.RunRepository
	repos  *ingest.Repositories
}

// newApp loads config, opens the store and wires the repositories.
// Global flags override the environment.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: log,
		store:  st,
		runs:   store.NewRunRepository(st),
		repos:  ingest.NewRepositories(st),
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// credentials exposes the configured secrets to the preflight guard
func (a *app) credentials() ingest.Credentials {
	return ingest.Credentials{
		KISAppKey:    a.cfg.KIS.AppKey,
		KISAppSecret: a.cfg.KIS.AppSecret,
		KISAccountNo: a.cfg.KIS.AccountNo,
		DARTAPIKey:   a.cfg.DART.APIKey,
	}
}

// orchestrator wires the full run pipeline for one request
func (a *app) orchestrator(req *ingest.Request, workers int) *ingest.Orchestrator {
	httpClient := httputil.New(a.cfg, a.logger)
	brokerage := kis.NewClient(a.cfg.KIS, httpClient, a.logger)
	filings := dart.NewClient(a.cfg.DART, a.cfg.HTTP.Timeout, a.logger)

	fetchers := ingest.NewFetchers(req, a.cfg, brokerage, filings, a.repos, a.logger)
	planner := ingest.NewPlanner(a.repos.Symbols, a.logger)

	var executor ingest.Executor = ingest.SequentialExecutor{}
	if workers > 1 {
		executor = ingest.PoolExecutor{Workers: workers}
	}

	return ingest.NewOrchestrator(planner, a.runs, fetchers, executor, a.logger)
}

// query wires the read-only run projections
func (a *app) query() *ingest.Query {
	return ingest.NewQuery(a.runs, a.repos)
}
