package models

// ExecutionStatus is the automation engine's reported execution state.
type ExecutionStatus string

const (
	ExecPending    ExecutionStatus = "Pending"
	ExecInProgress ExecutionStatus = "InProgress"
	ExecWaiting    ExecutionStatus = "Waiting"
	ExecSuccess    ExecutionStatus = "Success"
	ExecTimedOut   ExecutionStatus = "TimedOut"
	ExecCancelling ExecutionStatus = "Cancelling"
	ExecCancelled  ExecutionStatus = "Cancelled"
	ExecFailed     ExecutionStatus = "Failed"
)

// terminalStatuses are the states after which the engine reports no further
// transitions. Everything else means "re-poll later".
var terminalStatuses = map[ExecutionStatus]bool{
	ExecSuccess:    true,
	ExecTimedOut:   true,
	ExecCancelling: true,
	ExecCancelled:  true,
	ExecFailed:     true,
}

// IsTerminal reports whether s is a terminal execution status.
func (s ExecutionStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// ExecutionRecord is one poll's view of a dispatched automation execution.
// It is re-derived in full from the engine on every poll and never cached
// or mutated locally.
type ExecutionRecord struct {
	ExecutionID string          `json:"execution_id"`
	Status      ExecutionStatus `json:"status"`

	// Outputs holds the raw automation outputs keyed by step output name,
	// e.g. "Remediation.Output" or "ParseInput.AffectedObject".
	Outputs map[string][]string `json:"outputs,omitempty"`

	// FailureMessage is the engine's failure detail, set on failed runs.
	FailureMessage string `json:"failure_message,omitempty"`
}

// EvaluationResult is the status evaluator's normalized interpretation of an
// ExecutionRecord, mapped back to the originating finding.
type EvaluationResult struct {
	// Status is the engine's raw execution status.
	Status ExecutionStatus `json:"status"`

	// RemediationStatus is the normalized outcome: "running" while
	// non-terminal, the runbook-reported status on success, or the raw
	// terminal status otherwise.
	RemediationStatus string `json:"remediation_status"`

	// Message is the human-readable outcome summary.
	Message string `json:"message"`

	// AffectedObject describes the resource the remediation acted on.
	AffectedObject string `json:"affected_object"`

	// Response is the structured remediation response payload.
	Response map[string]any `json:"response,omitempty"`

	// LogData is the execution log split into lines, with the engine's
	// failure message appended when present.
	LogData []string `json:"log_data,omitempty"`
}

// IsTerminal reports whether the underlying execution has finished.
func (r *EvaluationResult) IsTerminal() bool {
	return r.Status.IsTerminal()
}
