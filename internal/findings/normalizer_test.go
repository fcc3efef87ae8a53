package findings

import (
	"context"
	"errors"
	"testing"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
)

const (
	subscriptionARN = "arn:aws:securityhub:us-east-1:111111111111:subscription/" +
		"aws-foundational-security-best-practices/v/1.0.0/AutoScaling.1/finding/" +
		"635ceb5d-3dfd-4458-804e-48a42cd723e4"
	securityControlARN = "arn:aws:securityhub:us-east-1:111111111111:security-control/" +
		"S3.1/finding/635ceb5d-3dfd-4458-804e-48a42cd723e4"
)

func validRawFinding(id string) map[string]any {
	return map[string]any{
		"Id":           id,
		"AwsAccountId": "111111111111",
		"Region":       "us-east-1",
		"Title":        "Auto Scaling groups should use ELB health checks",
		"Severity":     map[string]any{"Label": "MEDIUM"},
		"Resources": []any{
			map[string]any{
				"Type": "AwsAutoScalingAutoScalingGroup",
				"Id":   "arn:aws:autoscaling:us-east-1:111111111111:autoScalingGroup:x",
			},
		},
	}
}

func TestNormalize_SubscriptionARN(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	f, err := n.Normalize(context.Background(), validRawFinding(subscriptionARN))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if f.Standard != "aws-foundational-security-best-practices" {
		t.Errorf("standard: got %q", f.Standard)
	}
	if f.StandardVersion != "1.0.0" {
		t.Errorf("version: got %q; want 1.0.0", f.StandardVersion)
	}
	if f.ControlID != "AutoScaling.1" {
		t.Errorf("control: got %q; want AutoScaling.1", f.ControlID)
	}
	if f.StandardShortName != "AFSBP" {
		t.Errorf("short name: got %q; want AFSBP", f.StandardShortName)
	}
	if f.AccountID != "111111111111" {
		t.Errorf("account: got %q", f.AccountID)
	}
}

// TestNormalize_SecurityControlARN verifies the consolidated finding shape:
// no standard/version segments, so both default to the sentinel identity.
func TestNormalize_SecurityControlARN(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	f, err := n.Normalize(context.Background(), validRawFinding(securityControlARN))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if f.Standard != SecurityControlStandard {
		t.Errorf("standard: got %q; want %q", f.Standard, SecurityControlStandard)
	}
	if f.StandardVersion != SecurityControlVersion {
		t.Errorf("version: got %q; want %q", f.StandardVersion, SecurityControlVersion)
	}
	if f.ControlID != "S3.1" {
		t.Errorf("control: got %q; want S3.1", f.ControlID)
	}
}

func TestNormalize_InvalidFindingID(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	raw := validRawFinding("arn:aws:ec2:us-east-1:111111111111:instance/i-0abc")
	f, err := n.Normalize(context.Background(), raw)
	if f != nil {
		t.Fatalf("want nil finding on invalid ID, got %+v", f)
	}
	if !errors.Is(err, ErrInvalidFinding) {
		t.Fatalf("want ErrInvalidFinding, got %v", err)
	}
	var ife *InvalidFindingError
	if !errors.As(err, &ife) || ife.Field != "Finding Id" {
		t.Errorf("want Finding Id field error, got %v", err)
	}
}

// TestNormalize_InvalidAccountID verifies a 13-digit account is rejected
// with the exact operator-facing message.
func TestNormalize_InvalidAccountID(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	raw := validRawFinding(subscriptionARN)
	raw["AwsAccountId"] = "1234123412345"
	_, err := n.Normalize(context.Background(), raw)
	if err == nil {
		t.Fatal("want error for 13-digit account ID")
	}
	if err.Error() != "AwsAccountId is invalid: 1234123412345" {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestNormalize_MissingResources(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	raw := validRawFinding(subscriptionARN)
	raw["Resources"] = []any{}
	if _, err := n.Normalize(context.Background(), raw); !errors.Is(err, ErrInvalidFinding) {
		t.Errorf("want ErrInvalidFinding for empty resources, got %v", err)
	}
}

func TestNormalize_WorkflowStatusDefaultsToNew(t *testing.T) {
	n := NewNormalizer(StaticShortNames{}, nil)
	f, err := n.Normalize(context.Background(), validRawFinding(subscriptionARN))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if f.WorkflowStatus != models.WorkflowNew {
		t.Errorf("workflow status: got %q; want NEW", f.WorkflowStatus)
	}
}

func TestNormalize_AbbreviationFailureIsNonFatal(t *testing.T) {
	n := NewNormalizer(failingShortNames{}, nil)
	f, err := n.Normalize(context.Background(), validRawFinding(subscriptionARN))
	if err != nil {
		t.Fatalf("Normalize should tolerate abbreviation failure, got %v", err)
	}
	if f.StandardShortName != "" {
		t.Errorf("short name should stay empty on lookup failure, got %q", f.StandardShortName)
	}
}

func TestStaticShortNames_UnknownStandard(t *testing.T) {
	_, err := StaticShortNames{}.LookupAbbreviation(context.Background(), "made-up-standard", "1.0.0")
	if err == nil {
		t.Error("want error for unknown standard")
	}
}

type failingShortNames struct{}

func (failingShortNames) LookupAbbreviation(context.Context, string, string) (string, error) {
	return "", errors.New("parameter store unreachable")
}
