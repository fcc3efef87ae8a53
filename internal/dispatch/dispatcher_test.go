package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/providers/aws/common"
)

type startMockSSM struct {
	lastInput   *ssm.StartAutomationExecutionInput
	executionID string
	err         error
}

func (m *startMockSSM) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return nil, errors.New("not used")
}

func (m *startMockSSM) DescribeDocument(context.Context, *ssm.DescribeDocumentInput, ...func(*ssm.Options)) (*ssm.DescribeDocumentOutput, error) {
	return nil, errors.New("not used")
}

func (m *startMockSSM) StartAutomationExecution(_ context.Context, params *ssm.StartAutomationExecutionInput, _ ...func(*ssm.Options)) (*ssm.StartAutomationExecutionOutput, error) {
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &ssm.StartAutomationExecutionOutput{AutomationExecutionId: aws.String(m.executionID)}, nil
}

func (m *startMockSSM) GetAutomationExecution(context.Context, *ssm.GetAutomationExecutionInput, ...func(*ssm.Options)) (*ssm.GetAutomationExecutionOutput, error) {
	return nil, errors.New("not used")
}

type mockProvider struct {
	clients     *common.ClientSet
	lastRole    string
	lastRegion  string
	assumeError error
}

func (m *mockProvider) LoadDefault(context.Context) (*common.Session, error) {
	return &common.Session{AccountID: "999999999999", Region: "us-east-1", Clients: m.clients}, nil
}

func (m *mockProvider) ConfigForRegion(sess *common.Session, region string) aws.Config {
	cfg := sess.Config
	cfg.Region = region
	return cfg
}

func (m *mockProvider) AssumeRole(_ context.Context, _ *common.Session, roleARN, region string) (*common.ClientSet, error) {
	m.lastRole = roleARN
	m.lastRegion = region
	if m.assumeError != nil {
		return nil, m.assumeError
	}
	return m.clients, nil
}

func remediationRequest() *models.RemediationRequest {
	return &models.RemediationRequest{
		DocumentName: "ASR-CIS_1.2.0_1.6",
		AccountID:    "111111111111",
		Region:       "us-east-1",
		RoleARN:      "arn:aws:iam::111111111111:role/SO0111-Remediate-CIS-1.2.0-1.6",
		ControlID:    "1.6",
		Parameters: map[string][]string{
			"Finding":              {"{}"},
			"AutomationAssumeRole": {"arn:aws:iam::111111111111:role/SO0111-Remediate-CIS-1.2.0-1.6"},
		},
	}
}

func TestDispatch_StartsExecution(t *testing.T) {
	client := &startMockSSM{executionID: "11111111-2222-3333-4444-555555555555"}
	provider := &mockProvider{clients: &common.ClientSet{SSM: client}}
	d := NewDispatcher(provider, &common.Session{AccountID: "999999999999"}, nil)

	result, err := d.Dispatch(context.Background(), remediationRequest())
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.ExecutionID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("execution ID: got %q", result.ExecutionID)
	}
	if result.Status != "QUEUED" {
		t.Errorf("status: got %q; want QUEUED", result.Status)
	}
	if provider.lastRole != "arn:aws:iam::111111111111:role/SO0111-Remediate-CIS-1.2.0-1.6" {
		t.Errorf("assumed role: got %q", provider.lastRole)
	}
	if provider.lastRegion != "us-east-1" {
		t.Errorf("assumed region: got %q", provider.lastRegion)
	}
	if got := aws.ToString(client.lastInput.DocumentVersion); got != "$DEFAULT" {
		t.Errorf("document version: got %q; want $DEFAULT", got)
	}
	if got := client.lastInput.Parameters["AutomationAssumeRole"]; len(got) != 1 {
		t.Errorf("parameters not forwarded: %v", client.lastInput.Parameters)
	}
}

// TestDispatch_RoleAssumptionFailure verifies the typed error surfaces so the
// workflow can apply its own retry policy.
func TestDispatch_RoleAssumptionFailure(t *testing.T) {
	provider := &mockProvider{assumeError: errors.New("AccessDenied")}
	d := NewDispatcher(provider, &common.Session{}, nil)

	_, err := d.Dispatch(context.Background(), remediationRequest())
	if !errors.Is(err, ErrRoleAssumption) {
		t.Errorf("want ErrRoleAssumption, got %v", err)
	}
}

func TestDispatch_StartFailure(t *testing.T) {
	client := &startMockSSM{err: errors.New("throttled")}
	provider := &mockProvider{clients: &common.ClientSet{SSM: client}}
	d := NewDispatcher(provider, &common.Session{}, nil)

	_, err := d.Dispatch(context.Background(), remediationRequest())
	if err == nil {
		t.Fatal("want error when StartAutomationExecution fails")
	}
	if errors.Is(err, ErrRoleAssumption) {
		t.Error("start failure must not be classified as role assumption")
	}
}
