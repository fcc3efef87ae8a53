package policy

// PolicyConfig is the orchestrator's remediation policy. It is loaded from
// a yaml file at startup and passed read-only into the pipeline steps.
type PolicyConfig struct {
	Version int `yaml:"version"`

	// WaitTimeSeconds is the minimum interval between remediations released
	// for the same account/region pair. Kept as a string because the value
	// arrives from a deployment parameter; the scheduler parses it and
	// reports a typed failure when it is not numeric.
	WaitTimeSeconds string `yaml:"wait_time_seconds"`

	// SchedulingTable is the DynamoDB table holding the throttle ledger.
	SchedulingTable string `yaml:"scheduling_table"`

	// TopicARN is the SNS topic that receives remediation outcome messages.
	TopicARN string `yaml:"topic_arn"`

	// AlternateWorkflow, when set, routes gated remediations to an
	// approval runbook instead of the standard document.
	AlternateWorkflow *AlternateWorkflowConfig `yaml:"alternate_workflow,omitempty"`

	// DestructiveControls lists controls whose remediation is considered
	// destructive, as "{standardShortName}:{version}:{controlId}" entries.
	// An empty list means no control is treated as destructive.
	DestructiveControls []string `yaml:"destructive_controls"`

	// SensitiveAccounts lists account IDs that require approval before
	// destructive automatic remediation.
	SensitiveAccounts []string `yaml:"sensitive_accounts"`
}

// AlternateWorkflowConfig names the approval runbook and where it runs.
type AlternateWorkflowConfig struct {
	RunbookName string `yaml:"runbook_name"`

	// Account selects the execution account: "member" for the finding's
	// own account, "admin" for the orchestrating account.
	Account string `yaml:"account"`

	RoleName string `yaml:"role_name"`
}
