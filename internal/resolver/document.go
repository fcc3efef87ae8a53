package resolver

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

// DocumentState classifies the outcome of a document existence check.
// Callers branch on this value instead of parsing SDK error codes.
type DocumentState int

const (
	// DocumentFound means the document exists; Type and Status are set.
	DocumentFound DocumentState = iota

	// DocumentNotFound means the document does not exist in the target
	// account. For remap-style lookups this is normal control flow.
	DocumentNotFound

	// DocumentAccessDenied means the check itself was rejected; this is a
	// configuration problem needing operator attention, not an absence.
	DocumentAccessDenied

	// DocumentCheckError covers every other client failure.
	DocumentCheckError
)

// DocumentCheck is the result of inspecting an automation document.
type DocumentCheck struct {
	State  DocumentState
	Type   string // e.g. "Automation"
	Status string // e.g. "Active"
	Err    error  // underlying error for AccessDenied / CheckError
}

// Active reports whether the document is an Automation document in Active
// state, i.e. actually executable.
func (c DocumentCheck) Active() bool {
	return c.State == DocumentFound && c.Type == "Automation" && c.Status == "Active"
}

// DocumentChecker verifies a named automation document in a target account
// and region.
type DocumentChecker interface {
	CheckDocument(ctx context.Context, name, accountID, region string) DocumentCheck
}

// CrossAccountDocumentChecker is the production DocumentChecker. It assumes
// the orchestrator's member role in the target account and issues
// DescribeDocument there.
type CrossAccountDocumentChecker struct {
	Provider common.AWSClientProvider
	Session  *common.Session
}

// CheckDocument implements DocumentChecker.
func (c *CrossAccountDocumentChecker) CheckDocument(ctx context.Context, name, accountID, region string) DocumentCheck {
	clients, err := c.Provider.AssumeRole(ctx, c.Session, common.MemberRoleARN(accountID), region)
	if err != nil {
		return DocumentCheck{State: DocumentAccessDenied, Err: err}
	}
	return DescribeDocument(ctx, clients.SSM, name)
}

// DescribeDocument runs the DescribeDocument call against client and
// classifies the outcome.
func DescribeDocument(ctx context.Context, client common.SSMClient, name string) DocumentCheck {
	out, err := client.DescribeDocument(ctx, &ssm.DescribeDocumentInput{
		Name: aws.String(name),
	})
	if err != nil {
		return classifyDocumentError(err)
	}
	if out.Document == nil {
		return DocumentCheck{State: DocumentNotFound}
	}
	return DocumentCheck{
		State:  DocumentFound,
		Type:   string(out.Document.DocumentType),
		Status: string(out.Document.Status),
	}
}

// classifyDocumentError maps SDK errors onto DocumentState values.
func classifyDocumentError(err error) DocumentCheck {
	var invalidDoc *ssmtypes.InvalidDocument
	if errors.As(err, &invalidDoc) {
		return DocumentCheck{State: DocumentNotFound}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return DocumentCheck{State: DocumentAccessDenied, Err: err}
		}
	}
	return DocumentCheck{State: DocumentCheckError, Err: err}
}
