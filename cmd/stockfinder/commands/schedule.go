package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockfinder/internal/ingest"
	"github.com/wonny/stockfinder/internal/scheduler"
	"github.com/wonny/stockfinder/internal/scheduler/jobs"
)

var (
	scheduleCron   string
	scheduleTypes  string
	scheduleWindow string
)

// scheduleCmd represents the scheduled ingest command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "정기 수집 스케줄러 실행",
	Long: `cron 스케줄에 따라 scope=all 수집을 반복 실행합니다.
기본 스케줄은 평일 장 마감 후 18:30입니다.

Example:
  go run ./cmd/stockfinder schedule
  go run ./cmd/stockfinder schedule --cron "0 0 19 * * MON-FRI" --window normal`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "0 30 18 * * MON-FRI", "cron schedule (with seconds)")
	scheduleCmd.Flags().StringVar(&scheduleTypes, "type", "all", "comma-separated run types")
	scheduleCmd.Flags().StringVar(&scheduleWindow, "window", "fast", "prices window preset")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	req := &ingest.Request{
		RunTypes:      splitCSV(scheduleTypes),
		Scope:         ingest.ScopeAll,
		SourceProfile: ingest.ProfileAll,
		Timeframes:    []string{"D"},
		PricesWindow:  ingest.PricesWindow(scheduleWindow),
	}

	if err := ingest.Preflight(req, a.credentials()); err != nil {
		return fail(err)
	}

	run := func(ctx context.Context, req *ingest.Request) (*ingest.Summary, error) {
		return a.orchestrator(req, a.cfg.Ingest.Workers).Run(ctx, req)
	}

	sched := scheduler.New(a.logger)
	job := jobs.NewIngestJob("daily-ingest", scheduleCron, req, run, a.logger)
	if err := sched.AddJob(job); err != nil {
		return fail(err)
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return nil
}
