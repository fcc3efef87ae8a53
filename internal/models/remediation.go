package models

// RemediationImpact classifies how intrusive a remediation is.
type RemediationImpact string

const (
	ImpactDestructive    RemediationImpact = "destructive"
	ImpactNondestructive RemediationImpact = "nondestructive"
)

// RemediationRequest is the resolved intent to act on a finding. Produced by
// the control resolver, consumed by the dispatcher, and never persisted:
// state crosses step boundaries inside the workflow payload only.
type RemediationRequest struct {
	// DocumentName is the automation document to execute, following the
	// ASR-{short}_{version}_{control} convention unless an alternate
	// workflow override replaced it.
	DocumentName string `json:"document_name"`

	// AccountID and Region locate the member account where the document runs.
	AccountID string `json:"account_id"`
	Region    string `json:"region"`

	// RoleARN is the remediation role to assume in the target account.
	RoleARN string `json:"role_arn"`

	// ControlID is the control the document remediates. When a remap
	// override applies this differs from the finding's own ControlID.
	ControlID string `json:"control_id"`

	// Parameters are the document inputs; always includes the serialized
	// finding and the assumed role ARN.
	Parameters map[string][]string `json:"parameters,omitempty"`

	ApprovalRequired bool              `json:"approval_required"`
	Impact           RemediationImpact `json:"impact"`
}

// WorkflowOverride redirects remediation to an alternate runbook, typically
// an approval workflow running in the admin account.
type WorkflowOverride struct {
	RunbookName string `json:"runbook_name"`
	// Account selects where the runbook executes: "member" for the
	// finding's own account, "admin" for the orchestrating account.
	Account string `json:"account"`

	// AccountID and Region are the resolved execution location for the
	// Account selector. Dispatch and status polls both target them.
	AccountID string `json:"account_id"`
	Region    string `json:"region"`

	RoleARN string `json:"role_arn"`
}

// WorkflowDecision is the approval gate's verdict for one finding.
type WorkflowDecision struct {
	ApprovalRequired bool              `json:"approval_required"`
	Impact           RemediationImpact `json:"impact"`

	// Override, when non-nil, fully replaces the standard remediation path.
	Override *WorkflowOverride `json:"override,omitempty"`
}

// DispatchResult reports a started automation execution. Status is always
// "QUEUED"; completion is observed later by the status evaluator.
type DispatchResult struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}
