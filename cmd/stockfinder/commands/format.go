package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/stockfinder/internal/ingest"
)

const line = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// printSummary writes the run summary to stdout, as JSON when --json is set
func printSummary(summary *ingest.Summary) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Run %s\n", summary.RunID)
	fmt.Println(line)
	fmt.Printf("  상태:    %s%s\n", summary.Status, dryRunTag(summary))
	fmt.Printf("  범위:    %s (%d종목)\n", summary.Scope, summary.Symbols)
	fmt.Printf("  타입:    %s\n", summary.RunType)
	if summary.StartedAt != "" {
		fmt.Printf("  시작:    %s\n", summary.StartedAt)
	}
	if summary.FinishedAt != "" {
		fmt.Printf("  종료:    %s\n", summary.FinishedAt)
	}

	fmt.Println()
	fmt.Println("  도메인별 결과")
	for _, d := range summary.Domains {
		fmt.Printf("    %-12s %-9s read=%-6d written=%-6d skipped=%d%s\n",
			d.Domain, d.Status, d.RowsRead, d.RowsWritten, d.RowsSkipped, recountTag(d))
		for _, e := range d.Errors {
			symbol := e.Symbol
			if symbol == "" {
				symbol = "-"
			}
			fmt.Printf("      ⚠️  [%s] %s: %s\n", e.Provider, symbol, e.Message)
		}
	}

	if len(summary.Notes) > 0 {
		fmt.Println()
		fmt.Println("  노트")
		for _, note := range summary.Notes {
			fmt.Printf("    - %s\n", note)
		}
	}
	if summary.Error != "" {
		fmt.Printf("\n  ❌ %s\n", summary.Error)
	}
	fmt.Println(line)
	return nil
}

func dryRunTag(s *ingest.Summary) string {
	if s.DryRun {
		return " (dry run)"
	}
	return ""
}

func recountTag(d ingest.DomainSummary) string {
	if d.RecountedRows == nil {
		return ""
	}
	if d.CountMatches != nil && *d.CountMatches {
		return fmt.Sprintf("  recount=%d ✓", *d.RecountedRows)
	}
	return fmt.Sprintf("  recount=%d ✗", *d.RecountedRows)
}

// fail reports a fatal error on the selected output format and returns it
// so the process exits non-zero. JSON mode keeps stdout machine-readable.
func fail(err error) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ingest.NewErrorObject(err))
	} else {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", ingest.KindOf(err), err)
	}
	return err
}

// splitCSV splits a comma-separated flag value, dropping empty parts
func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
