package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/resolver"
)

// RunOptions configures a single finding traversal.
// It is the sole input to Engine.RunFinding besides the payload itself.
type RunOptions struct {
	// EventType is the raw event detail-type string, used to classify the
	// trigger as automatic ingestion or a manual custom action.
	EventType string

	// TaskToken, when set, routes the run through the rate-limiting
	// scheduler and acknowledges the workflow's suspended wait state.
	TaskToken string

	// NoPoll stops the run after dispatch without waiting for the
	// execution to reach a terminal state. The caller polls separately.
	NoPoll bool
}

// RunResult aggregates every step's typed output for one finding traversal.
// Fields are populated as far as the pipeline progressed.
type RunResult struct {
	Finding    *models.Finding          `json:"finding"`
	Resolution *resolver.Resolution     `json:"resolution,omitempty"`
	Decision   *models.WorkflowDecision `json:"decision,omitempty"`
	Planned    int64                    `json:"planned_timestamp,omitempty"`
	Dispatch   *models.DispatchResult   `json:"dispatch,omitempty"`
	Evaluation *models.EvaluationResult `json:"evaluation,omitempty"`

	// Outcome summarizes where the traversal ended: "REMEDIATED",
	// "FAILED", "RUNNING", "NOT_SUPPORTED", or "APPROVAL_REQUIRED".
	Outcome string `json:"outcome"`
}

// Engine drives one finding through the remediation pipeline:
// normalize → resolve → gate → (schedule) → dispatch → evaluate → notify.
//
// Engine must not call AWS SDK clients directly; it delegates to the
// injected step components.
type Engine interface {
	RunFinding(ctx context.Context, raw map[string]any, opts RunOptions) (*RunResult, error)
}
