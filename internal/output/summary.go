// Package output renders pipeline results for human consumption. The JSON
// encoding of a RunResult is the machine interface; this is the operator view.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/engine"
)

// ANSI color codes for outcome output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[0;33m"
)

// SummaryOptions controls how RenderSummary renders a run result.
type SummaryOptions struct {
	// Colored wraps the outcome label with ANSI codes. Default false
	// (CI-safe).
	Colored bool

	// IncludeLog appends the execution log lines when present.
	IncludeLog bool
}

// outcomeCell returns the outcome, colored when requested.
func outcomeCell(outcome string, colored bool) string {
	if !colored {
		return outcome
	}
	switch outcome {
	case engine.OutcomeRemediated:
		return ansiGreen + outcome + ansiReset
	case engine.OutcomeFailed:
		return ansiRed + outcome + ansiReset
	case engine.OutcomeRunning, engine.OutcomeApprovalRequired:
		return ansiYellow + outcome + ansiReset
	default:
		return outcome
	}
}

// ShortenMessage truncates msg to at most max runes, appending "..." when
// truncated. max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// RenderSummary writes a formatted view of one finding traversal to w.
// Rows are emitted only for the steps the traversal actually reached, so a
// NOT_SUPPORTED run prints a short report and a full remediation prints the
// execution details and outcome.
func RenderSummary(w io.Writer, result *engine.RunResult, opts SummaryOptions) {
	if result == nil {
		fmt.Fprintln(w, "No result.")
		return
	}

	rows := [][2]string{}
	if f := result.Finding; f != nil {
		rows = append(rows,
			[2]string{"Finding", f.ID},
			[2]string{"Account", fmt.Sprintf("%s (%s)", f.AccountID, f.Region)},
			[2]string{"Control", fmt.Sprintf("%s %s / %s", f.StandardShortName, f.StandardVersion, f.ControlID)},
			[2]string{"Title", ShortenMessage(f.Title, 70)},
		)
	}
	if r := result.Resolution; r != nil {
		if r.Request != nil {
			rows = append(rows, [2]string{"Runbook", r.Request.DocumentName})
		}
		if r.Message != "" {
			rows = append(rows, [2]string{"Resolution", ShortenMessage(r.Message, 70)})
		}
	}
	if d := result.Decision; d != nil && d.ApprovalRequired {
		rows = append(rows, [2]string{"Approval", "required"})
	}
	if result.Planned > 0 {
		rows = append(rows, [2]string{"Planned at", fmt.Sprintf("%d", result.Planned)})
	}
	if dr := result.Dispatch; dr != nil {
		rows = append(rows, [2]string{"Execution", dr.ExecutionID})
	}
	if ev := result.Evaluation; ev != nil {
		rows = append(rows,
			[2]string{"Status", ev.RemediationStatus},
			[2]string{"Message", ShortenMessage(ev.Message, 70)},
		)
		if ev.AffectedObject != "" {
			rows = append(rows, [2]string{"Affected", ev.AffectedObject})
		}
	}
	rows = append(rows, [2]string{"Outcome", outcomeCell(result.Outcome, opts.Colored)})

	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-*s  %s\n", width, row[0], row[1])
	}

	if opts.IncludeLog && result.Evaluation != nil && len(result.Evaluation.LogData) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Execution log:")
		fmt.Fprintln(w, strings.Repeat("-", 14))
		for _, line := range result.Evaluation.LogData {
			fmt.Fprintln(w, line)
		}
	}
}
