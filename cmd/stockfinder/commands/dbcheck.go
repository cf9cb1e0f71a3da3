package commands

import (
	"github.com/spf13/cobra"
)

// dbCheckCmd represents the run db-check command
var dbCheckCmd = &cobra.Command{
	Use:   "db-check <run_id>",
	Short: "run 기록과 실제 저장 행 수 대조",
	Long: `원장에 기록된 rows_written과 데이터 테이블의 실제 행 수를
도메인별로 재집계해 대조합니다. 불일치는 오류가 아니라 노트로
보고됩니다.

Example:
  go run ./cmd/stockfinder db-check 2f1c...-run-id --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fail(err)
	}
	defer a.close()

	summary, err := a.query().DBCheck(cmd.Context(), args[0])
	if err != nil {
		return fail(err)
	}
	return printSummary(summary)
}
