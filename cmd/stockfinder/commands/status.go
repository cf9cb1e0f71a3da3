package commands

import (
	"github.com/spf13/cobra"
)

// statusCmd represents the run status query command
var statusCmd = &cobra.Command{
	Use:   "status <run_id>",
	Short: "run 원장 상태 조회",
	Long: `과거 실행의 원장 기록과 도메인별 결과를 조회합니다.

Example:
  go run ./cmd/stockfinder status 2f1c...-run-id
  go run ./cmd/stockfinder status 2f1c...-run-id --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	summary, err := a.query().Status(cmd.Context(), args[0])
	if err != nil {
		return fail(err)
	}
	return printSummary(summary)
}
