// Package resolver maps a normalized finding onto a concrete remediation
// document and execution role, applying configured remap overrides and
// verifying the document is executable in the target account.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

// ResolutionStatus is the resolver's verdict for a finding.
type ResolutionStatus string

const (
	// ResolutionResolved means a RemediationRequest was produced.
	ResolutionResolved ResolutionStatus = "RESOLVED"

	// ResolutionNotSupported means the standard/version pair is not
	// enabled. This is a policy outcome, not an error: remediation is
	// simply not attempted and the finding stays unresolved.
	ResolutionNotSupported ResolutionStatus = "NOT_SUPPORTED"
)

// Resolution is the full resolver output for one finding.
type Resolution struct {
	Status  ResolutionStatus           `json:"status"`
	Request *models.RemediationRequest `json:"request,omitempty"`
	Message string                     `json:"message,omitempty"`
}

// Typed failures for the document verification step. Distinguished so the
// workflow can route "deploy the runbook" differently from "fix permissions".
var (
	ErrDocumentNotFound     = errors.New("remediation document not found")
	ErrDocumentInaccessible = errors.New("remediation document inaccessible")
	ErrDocumentStateInvalid = errors.New("remediation document state invalid")
)

// DocumentName derives the automation document name for a control. It is a
// pure function; the result is part of the wire contract and must not change.
func DocumentName(standardShortName, version, controlID string) string {
	return fmt.Sprintf("ASR-%s_%s_%s", standardShortName, version, controlID)
}

// RoleName derives the remediation role name for a control. Also part of the
// wire contract.
func RoleName(standardShortName, version, controlID string) string {
	return fmt.Sprintf("SO0111-Remediate-%s-%s-%s", standardShortName, version, controlID)
}

// RoleARN scopes a remediation role name to a member account.
func RoleARN(accountID, roleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
}

// remapPath is the parameter holding an alternate control ID for controls
// that share another control's fix.
func remapPath(standardShortName, version, controlID string) string {
	return fmt.Sprintf("/Solutions/SO0111/%s/%s/%s/remap", standardShortName, version, controlID)
}

// statusPath is the parameter recording whether a standard/version pair is
// enabled for automated remediation.
func statusPath(standardShortName, version string) string {
	return fmt.Sprintf("/Solutions/SO0111/%s/%s/status", standardShortName, version)
}

// Resolver turns findings into remediation requests. All external lookups
// go through the injected clients; Resolve performs no writes.
type Resolver struct {
	ssm     common.SSMClient
	checker DocumentChecker
	log     *zap.Logger
}

// NewResolver wires a Resolver to the admin-account SSM client (parameter
// lookups) and a DocumentChecker (member-account document verification).
func NewResolver(ssmClient common.SSMClient, checker DocumentChecker, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{ssm: ssmClient, checker: checker, log: log}
}

// Resolve maps f onto a RemediationRequest. Given identical external state
// (remap parameters, document registry) it is idempotent: the same finding
// always yields the same request.
func (r *Resolver) Resolve(ctx context.Context, f *models.Finding) (*Resolution, error) {
	enabled, err := r.standardEnabled(ctx, f.StandardShortName, f.StandardVersion)
	if err != nil {
		return nil, fmt.Errorf("check standard status: %w", err)
	}
	if !enabled {
		return &Resolution{
			Status: ResolutionNotSupported,
			Message: fmt.Sprintf("standard %s version %s is not enabled for remediation",
				f.Standard, f.StandardVersion),
		}, nil
	}

	controlID := r.remappedControlID(ctx, f)

	docName := DocumentName(f.StandardShortName, f.StandardVersion, controlID)
	roleName := RoleName(f.StandardShortName, f.StandardVersion, controlID)

	check := r.checker.CheckDocument(ctx, docName, f.AccountID, f.Region)
	switch check.State {
	case DocumentNotFound:
		return nil, fmt.Errorf("%w: %s in account %s", ErrDocumentNotFound, docName, f.AccountID)
	case DocumentAccessDenied:
		return nil, fmt.Errorf("%w: %s in account %s: %v", ErrDocumentInaccessible, docName, f.AccountID, check.Err)
	case DocumentCheckError:
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentStateInvalid, docName, check.Err)
	}
	if !check.Active() {
		return nil, fmt.Errorf("%w: %s is %s/%s, want Automation/Active",
			ErrDocumentStateInvalid, docName, check.Type, check.Status)
	}

	req := &models.RemediationRequest{
		DocumentName: docName,
		AccountID:    f.AccountID,
		Region:       f.Region,
		RoleARN:      RoleARN(f.AccountID, roleName),
		ControlID:    controlID,
		Parameters:   buildParameters(f, RoleARN(f.AccountID, roleName)),
		Impact:       models.ImpactNondestructive,
	}
	return &Resolution{Status: ResolutionResolved, Request: req}, nil
}

// standardEnabled reads the standard's status parameter. An absent parameter
// means the standard was never enabled; that is normal control flow.
func (r *Resolver) standardEnabled(ctx context.Context, shortName, version string) (bool, error) {
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(statusPath(shortName, version)),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(aws.ToString(out.Parameter.Value), "enabled"), nil
}

// remappedControlID returns the alternate control ID configured for the
// finding's control, or the original when no remap parameter exists. The
// original control ID always stays on the Finding for reporting.
func (r *Resolver) remappedControlID(ctx context.Context, f *models.Finding) string {
	path := remapPath(f.StandardShortName, f.StandardVersion, f.ControlID)
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(path)})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if !errors.As(err, &notFound) {
			// Transient parameter store failure: fall back to the original
			// control rather than blocking remediation.
			r.log.Warn("remap lookup failed", zap.String("path", path), zap.Error(err))
		}
		return f.ControlID
	}
	remapped := aws.ToString(out.Parameter.Value)
	if remapped == "" {
		return f.ControlID
	}
	r.log.Info("control remapped",
		zap.String("control", f.ControlID),
		zap.String("remapped", remapped))
	return remapped
}

// buildParameters assembles the document inputs: the serialized finding and
// the role the runbook must assume.
func buildParameters(f *models.Finding, roleARN string) map[string][]string {
	serialized, err := json.Marshal(f)
	if err != nil {
		// Finding came from JSON; marshalling back cannot realistically
		// fail, but an empty document input would be worse than none.
		serialized = []byte("{}")
	}
	return map[string][]string{
		"Finding":              {string(serialized)},
		"AutomationAssumeRole": {roleARN},
	}
}
