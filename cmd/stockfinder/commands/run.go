package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockfinder/internal/ingest"
)

var (
	runTypes     string
	runScope     string
	runSymbols   string
	runSource    string
	runTimeframe string
	runAsOf      string
	runAsOfFrom  string
	runAsOfTo    string
	runWindow    string
	runLookback  int
	runBackfill  bool
	runLimit     int
	runDryRun    bool
	runWorkers   int
)

// runCmd represents the ingest run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "데이터 수집 실행",
	Long: `요청한 도메인의 데이터를 수집하고 run 원장에 기록합니다.

도메인: symbols, prices, fundamental, financials, events, margins, all
수집 전 자격증명 사전 점검을 통과해야 하며, 종목 단위 실패는
나머지 종목 수집을 막지 않습니다.

Example:
  go run ./cmd/stockfinder run --scope all --type all --window fast
  go run ./cmd/stockfinder run --symbols 005930,000660 --type prices --window normal
  go run ./cmd/stockfinder run --scope all --type prices --window full --limit-symbols 50
  go run ./cmd/stockfinder run --type all --dry-run --json`,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().StringVar(&runTypes, "type", "all", "comma-separated run types")
	runCmd.Flags().StringVar(&runScope, "scope", "", "single|all (default: single when --symbols set, else all)")
	runCmd.Flags().StringVar(&runSymbols, "symbols", "", "comma-separated stock codes for scope=single")
	runCmd.Flags().StringVar(&runSource, "source", "all", "source profile: all|kis|dart")
	runCmd.Flags().StringVar(&runTimeframe, "timeframes", "D", "comma-separated price timeframes: D,W,M,Y")
	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "reference date (YYYYMMDD or YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runAsOfFrom, "as-of-from", "", "window start date")
	runCmd.Flags().StringVar(&runAsOfTo, "as-of-to", "", "window end date")
	runCmd.Flags().StringVar(&runWindow, "window", "", "prices window preset: fast|normal|full")
	runCmd.Flags().IntVar(&runLookback, "lookback-days", 0, "prices lookback override in days")
	runCmd.Flags().BoolVar(&runBackfill, "backfill", false, "full-history prices backfill")
	runCmd.Flags().IntVar(&runLimit, "limit-symbols", 0, "cap the scope=all symbol fan-out")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "plan and record only, no provider calls")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "worker pool size (default from INGEST_WORKERS)")

	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	req := buildRequest()

	if err := ingest.Preflight(req, a.credentials()); err != nil {
		return fail(err)
	}

	workers := runWorkers
	if workers <= 0 {
		workers = a.cfg.Ingest.Workers
	}

	// SIGINT/SIGTERM cancel cooperatively: in-flight items finish, the run
	// is finalized as cancelled.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := a.orchestrator(req, workers).Run(ctx, req)
	if err != nil {
		return fail(err)
	}

	if err := printSummary(summary); err != nil {
		return err
	}
	if summary.Status == string(ingest.RunFailed) {
		return fmt.Errorf("run %s failed", summary.RunID)
	}
	return nil
}

// buildRequest maps the command flags onto an ingest request
func buildRequest() *ingest.Request {
	symbols := splitCSV(runSymbols)

	scope := ingest.Scope(runScope)
	if scope == "" {
		if len(symbols) > 0 {
			scope = ingest.ScopeSingle
		} else {
			scope = ingest.ScopeAll
		}
	}

	return &ingest.Request{
		RunTypes:      splitCSV(runTypes),
		Scope:         scope,
		Symbols:       symbols,
		SourceProfile: ingest.SourceProfile(runSource),
		Timeframes:    splitCSV(runTimeframe),
		AsOf:          runAsOf,
		AsOfFrom:      runAsOfFrom,
		AsOfTo:        runAsOfTo,
		PricesWindow:  ingest.PricesWindow(runWindow),
		LookbackDays:  runLookback,
		Backfill:      runBackfill,
		LimitSymbols:  runLimit,
		DryRun:        runDryRun,
	}
}
