package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/dispatch"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/execstatus"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/findings"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/gate"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/notifier"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/resolver"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/scheduler"
)

// Traversal outcome values reported in RunResult.Outcome.
const (
	OutcomeRemediated       = "REMEDIATED"
	OutcomeFailed           = "FAILED"
	OutcomeRunning          = "RUNNING"
	OutcomeNotSupported     = "NOT_SUPPORTED"
	OutcomeApprovalRequired = "APPROVAL_REQUIRED"
)

// successStatus is the runbook-reported status meaning the fix landed.
const successStatus = "SUCCESS"

// DefaultEngine is the production implementation of Engine. It sequences the
// step components for one finding; between-step state travels only in the
// RunResult, never in shared memory.
type DefaultEngine struct {
	normalizer *findings.Normalizer
	resolver   *resolver.Resolver
	gate       *gate.Gate
	scheduler  *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
	evaluator  *execstatus.Evaluator
	notifier   *notifier.Notifier
	log        *zap.Logger

	// PollInterval is the wait between execution status polls. Shortened
	// in tests.
	PollInterval time.Duration
}

// NewDefaultEngine constructs a DefaultEngine wired to the supplied step
// components. scheduler may be nil when throttling is not deployed.
func NewDefaultEngine(
	n *findings.Normalizer,
	r *resolver.Resolver,
	g *gate.Gate,
	s *scheduler.Scheduler,
	d *dispatch.Dispatcher,
	e *execstatus.Evaluator,
	nt *notifier.Notifier,
	log *zap.Logger,
) *DefaultEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultEngine{
		normalizer:   n,
		resolver:     r,
		gate:         g,
		scheduler:    s,
		dispatcher:   d,
		evaluator:    e,
		notifier:     nt,
		log:          log,
		PollInterval: 15 * time.Second,
	}
}

// RunFinding implements Engine. Steps run strictly in order; a typed failure
// at any step ends the traversal with the partial RunResult populated so the
// caller can see exactly how far the finding got.
func (e *DefaultEngine) RunFinding(ctx context.Context, raw map[string]any, opts RunOptions) (*RunResult, error) {
	result := &RunResult{}

	f, err := e.normalizer.Normalize(ctx, raw)
	if err != nil {
		return result, fmt.Errorf("normalize finding: %w", err)
	}
	result.Finding = f

	resolution, err := e.resolver.Resolve(ctx, f)
	if err != nil {
		return result, fmt.Errorf("resolve control: %w", err)
	}
	result.Resolution = resolution
	if resolution.Status == resolver.ResolutionNotSupported {
		result.Outcome = OutcomeNotSupported
		e.log.Info("finding not supported for remediation",
			zap.String("finding", f.ID), zap.String("reason", resolution.Message))
		return result, nil
	}
	req := resolution.Request

	decision := e.gate.Evaluate(ctx, f, opts.EventType)
	result.Decision = &decision
	req.ApprovalRequired = decision.ApprovalRequired
	req.Impact = decision.Impact
	if decision.Override != nil {
		// The alternate workflow replaces the standard remediation path
		// entirely: runbook, role, and execution location. The role
		// parameter must follow so the runbook assumes the override role.
		req.DocumentName = decision.Override.RunbookName
		req.RoleARN = decision.Override.RoleARN
		req.AccountID = decision.Override.AccountID
		req.Region = decision.Override.Region
		req.Parameters["AutomationAssumeRole"] = []string{decision.Override.RoleARN}
	} else if decision.ApprovalRequired {
		// Approval demanded but no approval workflow deployed: stop here
		// rather than auto-running a destructive fix.
		result.Outcome = OutcomeApprovalRequired
		return result, nil
	}

	if opts.TaskToken != "" && e.scheduler != nil {
		planned, err := e.scheduler.Schedule(ctx, req.AccountID, req.Region,
			map[string]any{"document_name": req.DocumentName}, opts.TaskToken)
		if err != nil {
			return result, fmt.Errorf("schedule remediation: %w", err)
		}
		result.Planned = planned
	}

	dispatched, err := e.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return result, fmt.Errorf("dispatch remediation: %w", err)
	}
	result.Dispatch = dispatched

	if err := e.notifier.UpdateWorkflowStatus(ctx, f, models.WorkflowNotified, dispatched.Message); err != nil {
		// The execution is already running; record the bookkeeping failure
		// and keep going.
		e.log.Warn("workflow status update failed", zap.Error(err))
	}

	if opts.NoPoll {
		result.Outcome = OutcomeRunning
		return result, nil
	}

	evaluation, err := e.pollUntilTerminal(ctx, dispatched.ExecutionID, req)
	if err != nil {
		return result, err
	}
	result.Evaluation = evaluation
	result.Outcome = e.finish(ctx, f, req, evaluation)
	return result, nil
}

// pollUntilTerminal re-evaluates the execution until it reaches a terminal
// state or ctx is cancelled. Each poll re-derives the record in full.
func (e *DefaultEngine) pollUntilTerminal(ctx context.Context, executionID string, req *models.RemediationRequest) (*models.EvaluationResult, error) {
	ticker := time.NewTicker(e.PollInterval)
	defer ticker.Stop()

	for {
		evaluation, err := e.evaluator.Evaluate(ctx, executionID, req.AccountID, req.Region, req.ControlID)
		if err != nil {
			return nil, fmt.Errorf("evaluate execution %s: %w", executionID, err)
		}
		if evaluation.IsTerminal() {
			return evaluation, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// finish reports the terminal outcome: resolves the finding on success,
// leaves it NOTIFIED on failure, and notifies downstream either way.
func (e *DefaultEngine) finish(ctx context.Context, f *models.Finding, req *models.RemediationRequest, evaluation *models.EvaluationResult) string {
	outcome := OutcomeFailed
	if evaluation.Status == models.ExecSuccess && evaluation.RemediationStatus == successStatus {
		outcome = OutcomeRemediated
		if err := e.notifier.UpdateWorkflowStatus(ctx, f, models.WorkflowResolved, evaluation.Message); err != nil {
			e.log.Warn("workflow status update failed", zap.Error(err))
		}
	}

	e.notifier.Notify(ctx, notifier.Notification{
		FindingID:      f.ID,
		AccountID:      f.AccountID,
		Region:         f.Region,
		Standard:       f.Standard,
		ControlID:      f.ControlID,
		Status:         evaluation.RemediationStatus,
		Message:        evaluation.Message,
		AffectedObject: evaluation.AffectedObject,
		LogData:        evaluation.LogData,
	})
	return outcome
}
