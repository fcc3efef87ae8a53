// Package findings parses raw Security Hub finding payloads into the
// canonical internal representation used by the rest of the pipeline.
package findings

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
)

// Sentinel standard identity assigned to consolidated security-control
// findings, whose ARNs carry no explicit standard or version segment.
const (
	SecurityControlStandard = "security-control"
	SecurityControlVersion  = "2.0.0"
)

// ErrInvalidFinding marks a data-contract violation in the inbound payload.
// It is non-retryable: the payload itself is malformed, not the pipeline.
var ErrInvalidFinding = errors.New("invalid finding")

// InvalidFindingError identifies which field of the raw finding failed
// validation. It wraps ErrInvalidFinding so callers can branch with
// errors.Is without parsing the message.
type InvalidFindingError struct {
	Field string
	Value string
}

func (e *InvalidFindingError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Field, e.Value)
}

func (e *InvalidFindingError) Unwrap() error { return ErrInvalidFinding }

var (
	// subscriptionPattern matches first-generation finding ARNs that embed
	// the standard, version, and control:
	//   .../subscription/{standard}/v/{version}/{control}/finding/{uuid}
	subscriptionPattern = regexp.MustCompile(
		`^arn:(?:aws|aws-cn|aws-us-gov):securityhub:(?:[a-z]{2}(?:-gov)?-[a-z]+-\d):\d{12}:` +
			`subscription/(.*?)/v/(\d+\.\d+\.\d+[^/]*)/(.*?)/finding/([a-f0-9-]+)$`)

	// securityControlPattern matches consolidated-control finding ARNs,
	// which carry only the control ID:
	//   .../security-control/{control}/finding/{uuid}
	securityControlPattern = regexp.MustCompile(
		`^arn:(?:aws|aws-cn|aws-us-gov):securityhub:(?:[a-z]{2}(?:-gov)?-[a-z]+-\d):\d{12}:` +
			`security-control/(.*?)/finding/([a-f0-9-]+)$`)

	accountIDPattern = regexp.MustCompile(`^\d{12}$`)
)

// ShortNameLookup resolves a standard's long name to its solution
// abbreviation (e.g. "aws-foundational-security-best-practices" → "AFSBP").
type ShortNameLookup interface {
	LookupAbbreviation(ctx context.Context, standard, version string) (string, error)
}

// Normalizer converts provider-native finding payloads into models.Finding.
// It is a pure parser aside from the injected abbreviation lookup.
type Normalizer struct {
	shortNames ShortNameLookup
	log        *zap.Logger
}

// NewNormalizer returns a Normalizer using the given abbreviation lookup.
func NewNormalizer(shortNames ShortNameLookup, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{shortNames: shortNames, log: log}
}

// Normalize validates and parses raw into a Finding. It fails with an
// InvalidFindingError when the finding ID matches neither supported ARN
// shape, the account ID is not 12 digits, or no usable resource is present.
// A failed Normalize never returns a partially populated Finding.
func (n *Normalizer) Normalize(ctx context.Context, raw map[string]any) (*models.Finding, error) {
	findingID, _ := raw["Id"].(string)
	accountID, _ := raw["AwsAccountId"].(string)

	standard, version, controlID, ok := parseFindingARN(findingID)
	if !ok {
		return nil, &InvalidFindingError{Field: "Finding Id", Value: findingID}
	}
	if !accountIDPattern.MatchString(accountID) {
		return nil, &InvalidFindingError{Field: "AwsAccountId", Value: accountID}
	}

	resources := parseResources(raw["Resources"])
	if len(resources) == 0 || resources[0].ID == "" {
		return nil, &InvalidFindingError{Field: "Resources", Value: findingID}
	}

	region, _ := raw["Region"].(string)
	if region == "" {
		region = resources[0].Region
	}

	f := &models.Finding{
		ID:              findingID,
		AccountID:       accountID,
		Region:          region,
		Standard:        standard,
		StandardVersion: version,
		ControlID:       controlID,
		Resources:       resources,
		WorkflowStatus:  parseWorkflowStatus(raw),
		Raw:             raw,
	}

	if title, ok := raw["Title"].(string); ok {
		f.Title = title
	}
	if desc, ok := raw["Description"].(string); ok {
		f.Description = desc
	}
	if sev, ok := raw["Severity"].(map[string]any); ok {
		if label, ok := sev["Label"].(string); ok {
			f.Severity = label
		}
	}

	if n.shortNames != nil {
		short, err := n.shortNames.LookupAbbreviation(ctx, standard, version)
		if err != nil {
			// The abbreviation drives document naming downstream; without
			// it the finding still parses, so log and continue.
			n.log.Warn("abbreviation lookup failed",
				zap.String("standard", standard),
				zap.Error(err))
		} else {
			f.StandardShortName = short
		}
	}

	return f, nil
}

// parseFindingARN extracts (standard, version, control) from a finding ARN,
// trying the subscription shape first and the consolidated security-control
// shape second. The second shape has no standard/version segments; those
// default to the security-control sentinel identity.
func parseFindingARN(arn string) (standard, version, controlID string, ok bool) {
	if m := subscriptionPattern.FindStringSubmatch(arn); m != nil {
		return m[1], m[2], m[3], true
	}
	if m := securityControlPattern.FindStringSubmatch(arn); m != nil {
		return SecurityControlStandard, SecurityControlVersion, m[1], true
	}
	return "", "", "", false
}

// parseResources converts the raw Resources array into typed entries,
// skipping malformed members. The first entry is the remediation target.
func parseResources(v any) []models.Resource {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var resources []models.Resource
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := models.Resource{}
		r.Type, _ = m["Type"].(string)
		r.ID, _ = m["Id"].(string)
		r.Region, _ = m["Region"].(string)
		if details, ok := m["Details"].(map[string]any); ok {
			r.Details = details
		}
		resources = append(resources, r)
	}
	return resources
}

func parseWorkflowStatus(raw map[string]any) models.WorkflowStatus {
	wf, ok := raw["Workflow"].(map[string]any)
	if !ok {
		return models.WorkflowNew
	}
	status, ok := wf["Status"].(string)
	if !ok || status == "" {
		return models.WorkflowNew
	}
	return models.WorkflowStatus(status)
}
