package models

// WorkflowStatus is the Security Hub workflow state of a finding.
type WorkflowStatus string

const (
	WorkflowNew        WorkflowStatus = "NEW"
	WorkflowNotified   WorkflowStatus = "NOTIFIED"
	WorkflowResolved   WorkflowStatus = "RESOLVED"
	WorkflowSuppressed WorkflowStatus = "SUPPRESSED"
)

// Resource is one affected resource attached to a finding. The first entry
// in Finding.Resources is treated as the primary remediation target.
type Resource struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Region  string         `json:"region,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Finding is the canonical, normalized representation of a Security Hub
// finding. It is constructed once per pipeline invocation by the normalizer
// and is immutable afterwards except for WorkflowStatus, which the notifier
// advances at fixed pipeline points.
type Finding struct {
	// ID is the finding ARN. Always matches the Security Hub ARN pattern;
	// construction fails otherwise.
	ID string `json:"id"`

	// AccountID is the 12-digit AWS account that owns the finding.
	AccountID string `json:"account_id"`

	// Region is the region of the primary affected resource.
	Region string `json:"region"`

	// Standard is the long name of the originating compliance standard,
	// e.g. "aws-foundational-security-best-practices", or the
	// "security-control" sentinel for consolidated findings.
	Standard string `json:"standard"`

	// StandardShortName is the solution abbreviation for Standard
	// (e.g. "AFSBP", "CIS"), resolved via the shortname parameter lookup.
	StandardShortName string `json:"standard_short_name"`

	// StandardVersion is the standard's version string, or "2.0.0" for
	// consolidated security-control findings.
	StandardVersion string `json:"standard_version"`

	// ControlID is the standard-specific control identifier as reported by
	// the finding. Remap overrides never change this field; the remapped
	// value lives on the RemediationRequest so reporting keeps the original.
	ControlID string `json:"control_id"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`

	Resources []Resource `json:"resources"`

	// WorkflowStatus tracks the Security Hub workflow state as this
	// pipeline advances it (NEW → NOTIFIED → RESOLVED).
	WorkflowStatus WorkflowStatus `json:"workflow_status,omitempty"`

	// Raw is the provider-native finding payload, carried through opaquely
	// so runbooks receive the full original document.
	Raw map[string]any `json:"raw,omitempty"`
}

// PrimaryResource returns the first resource entry, which the pipeline
// treats as the remediation target. Returns a zero Resource when the
// finding carries none (normalization rejects that case up front).
func (f *Finding) PrimaryResource() Resource {
	if len(f.Resources) == 0 {
		return Resource{}
	}
	return f.Resources[0]
}
