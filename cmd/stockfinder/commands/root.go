package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbPath     string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockfinder",
	Short: "국내 주식 데이터 수집기 - KIS/DART 기반",
	Long: `stockfinder Unified CLI

KIS 오픈API와 DART 전자공시에서 종목·시세·재무·공시·증거금 데이터를
수집해 로컬 저장소에 적재합니다. 모든 실행은 run 원장에 기록됩니다.

Usage:
  go run ./cmd/stockfinder [command]

Examples:
  go run ./cmd/stockfinder run --scope all --type all --window fast
  go run ./cmd/stockfinder run --symbols 005930 --type prices,fundamental
  go run ./cmd/stockfinder status <run_id>
  go run ./cmd/stockfinder db-check <run_id> --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	rewriteDeprecatedAlias()
	return rootCmd.Execute()
}

// rewriteDeprecatedAlias maps the retired `collect` verb onto `run` so old
// scripts keep working, with a warning on stderr.
func rewriteDeprecatedAlias() {
	if len(os.Args) > 1 && os.Args[1] == "collect" {
		fmt.Fprintln(os.Stderr, "warning: `collect` is deprecated, use `run` instead")
		os.Args[1] = "run"
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "sqlite store path (default from STOCKFINDER_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output on stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
