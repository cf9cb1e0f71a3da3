package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockfinder/internal/api"
	"github.com/wonny/stockfinder/internal/api/handlers"
)

// serveCmd represents the API server command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run 원장 조회 API 서버 실행",
	Long: `run 원장을 읽기 전용 HTTP API로 노출합니다.

Endpoints:
  GET /healthz
  GET /api/v1/runs/{run_id}
  GET /api/v1/runs/{run_id}/db-check

Example:
  go run ./cmd/stockfinder serve
  PORT=9000 go run ./cmd/stockfinder serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	runHandler := handlers.NewRunHandler(a.query(), a.logger)
	router := api.NewRouter(runHandler, a.logger)
	server := api.New(a.cfg, a.logger, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fail(err)
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fail(err)
	}
	return nil
}
