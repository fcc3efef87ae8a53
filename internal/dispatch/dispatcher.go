// Package dispatch starts remediation document executions in member
// accounts. It never waits for completion; polling is the status
// evaluator's job.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

// ErrRoleAssumption marks a failure to assume the remediation role in the
// member account. It is propagated untouched: retry policy belongs to the
// governing workflow, not this component.
var ErrRoleAssumption = errors.New("role assumption failed")

// Dispatcher invokes remediation documents via the automation engine.
type Dispatcher struct {
	provider common.AWSClientProvider
	session  *common.Session
	log      *zap.Logger
}

// NewDispatcher wires a Dispatcher to the admin session. Member-account
// clients are derived per request through role assumption.
func NewDispatcher(provider common.AWSClientProvider, session *common.Session, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{provider: provider, session: session, log: log}
}

// Dispatch assumes the request's remediation role and starts the automation
// execution in the member account. The returned result carries the
// engine-assigned execution ID with status "QUEUED"; the execution itself
// runs asynchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.RemediationRequest) (*models.DispatchResult, error) {
	clients, err := d.provider.AssumeRole(ctx, d.session, req.RoleARN, req.Region)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRoleAssumption, req.RoleARN, err)
	}

	out, err := clients.SSM.StartAutomationExecution(ctx, &ssm.StartAutomationExecutionInput{
		DocumentName:    aws.String(req.DocumentName),
		DocumentVersion: aws.String("$DEFAULT"),
		Parameters:      req.Parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("start automation execution %s in %s/%s: %w",
			req.DocumentName, req.AccountID, req.Region, err)
	}

	executionID := aws.ToString(out.AutomationExecutionId)
	d.log.Info("remediation dispatched",
		zap.String("document", req.DocumentName),
		zap.String("account", req.AccountID),
		zap.String("region", req.Region),
		zap.String("execution_id", executionID))

	return &models.DispatchResult{
		ExecutionID: executionID,
		Status:      "QUEUED",
		Message: fmt.Sprintf("Remediation queued: %s in account %s (%s)",
			req.DocumentName, req.AccountID, req.Region),
	}, nil
}
