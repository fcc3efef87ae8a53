package gate

import (
	"context"
	"testing"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/policy"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/resolver"
)

const importedEventType = "Security Hub Findings - Imported"
const customActionEventType = "Security Hub Findings - Custom Action"

type stubChecker struct {
	active   bool
	lastName string
	lastAcct string
}

func (s *stubChecker) CheckDocument(_ context.Context, name, accountID, _ string) resolver.DocumentCheck {
	s.lastName = name
	s.lastAcct = accountID
	if s.active {
		return resolver.DocumentCheck{State: resolver.DocumentFound, Type: "Automation", Status: "Active"}
	}
	return resolver.DocumentCheck{State: resolver.DocumentNotFound}
}

func sensitiveFinding() *models.Finding {
	return &models.Finding{
		ID:                "arn:aws:securityhub:us-east-1:222222222222:subscription/cis-aws-foundations-benchmark/v/1.2.0/1.6/finding/635ceb5d-3dfd-4458-804e-48a42cd723e4",
		AccountID:         "222222222222",
		Region:            "us-east-1",
		StandardShortName: "CIS",
		StandardVersion:   "1.2.0",
		ControlID:         "1.6",
	}
}

func gatingPolicy() *policy.PolicyConfig {
	return &policy.PolicyConfig{
		Version:             1,
		DestructiveControls: []string{"CIS:1.2.0:1.6"},
		SensitiveAccounts:   []string{"222222222222"},
	}
}

func TestClassifyTrigger(t *testing.T) {
	if got := ClassifyTrigger(importedEventType); got != TriggerAutomatic {
		t.Errorf("imported event: got %q; want automatic", got)
	}
	if got := ClassifyTrigger(customActionEventType); got != TriggerManual {
		t.Errorf("custom action event: got %q; want manual", got)
	}
	if got := ClassifyTrigger(""); got != TriggerAutomatic {
		t.Errorf("empty event type: got %q; want automatic", got)
	}
}

// TestEvaluate_AllConditionsHold verifies approval is demanded only when the
// trigger is automatic, the control destructive, and the account sensitive.
func TestEvaluate_AllConditionsHold(t *testing.T) {
	g := NewGate(gatingPolicy(), nil, "999999999999", "us-east-1", nil)
	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if !decision.ApprovalRequired {
		t.Error("want approval required")
	}
	if decision.Impact != models.ImpactDestructive {
		t.Errorf("impact: got %q; want destructive", decision.Impact)
	}
}

func TestEvaluate_ManualTriggerBypassesApproval(t *testing.T) {
	g := NewGate(gatingPolicy(), nil, "999999999999", "us-east-1", nil)
	decision := g.Evaluate(context.Background(), sensitiveFinding(), customActionEventType)
	if decision.ApprovalRequired {
		t.Error("manual trigger must not require approval")
	}
	if decision.Impact != models.ImpactNondestructive {
		t.Errorf("impact: got %q; want nondestructive", decision.Impact)
	}
}

func TestEvaluate_NonSensitiveAccount(t *testing.T) {
	cfg := gatingPolicy()
	cfg.SensitiveAccounts = nil
	g := NewGate(cfg, nil, "999999999999", "us-east-1", nil)
	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.ApprovalRequired {
		t.Error("non-sensitive account must not require approval")
	}
}

// TestEvaluate_NilPolicy mirrors the default deployment: no policy file
// means every predicate is false and nothing is gated.
func TestEvaluate_NilPolicy(t *testing.T) {
	g := NewGate(nil, nil, "999999999999", "us-east-1", nil)
	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.ApprovalRequired {
		t.Error("nil policy must not require approval")
	}
	if decision.Override != nil {
		t.Error("nil policy must not produce an override")
	}
}

func TestEvaluate_OverrideInAdminAccount(t *testing.T) {
	cfg := gatingPolicy()
	cfg.AlternateWorkflow = &policy.AlternateWorkflowConfig{
		RunbookName: "ASR-ApprovalWorkflow",
		Account:     "admin",
		RoleName:    "SO0111-ApprovalWorkflow",
	}
	checker := &stubChecker{active: true}
	g := NewGate(cfg, checker, "999999999999", "us-east-1", nil)

	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.Override == nil {
		t.Fatal("want override")
	}
	if checker.lastAcct != "999999999999" {
		t.Errorf("runbook verified in %q; want admin account", checker.lastAcct)
	}
	if decision.Override.AccountID != "999999999999" || decision.Override.Region != "us-east-1" {
		t.Errorf("override location: got %s/%s; want admin account and region",
			decision.Override.AccountID, decision.Override.Region)
	}
	if decision.Override.RoleARN != "arn:aws:iam::999999999999:role/SO0111-ApprovalWorkflow" {
		t.Errorf("override role: got %q", decision.Override.RoleARN)
	}
}

func TestEvaluate_OverrideInMemberAccount(t *testing.T) {
	cfg := gatingPolicy()
	cfg.AlternateWorkflow = &policy.AlternateWorkflowConfig{
		RunbookName: "ASR-ApprovalWorkflow",
		Account:     "member",
		RoleName:    "SO0111-ApprovalWorkflow",
	}
	checker := &stubChecker{active: true}
	g := NewGate(cfg, checker, "999999999999", "us-east-1", nil)

	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.Override == nil {
		t.Fatal("want override")
	}
	if checker.lastAcct != "222222222222" {
		t.Errorf("runbook verified in %q; want member account", checker.lastAcct)
	}
	if decision.Override.AccountID != "222222222222" {
		t.Errorf("override account: got %q; want member account", decision.Override.AccountID)
	}
}

// TestEvaluate_InactiveOverrideDropped verifies the permissive behavior: a
// missing approval runbook silently drops the override while the approval
// requirement itself stands.
func TestEvaluate_InactiveOverrideDropped(t *testing.T) {
	cfg := gatingPolicy()
	cfg.AlternateWorkflow = &policy.AlternateWorkflowConfig{
		RunbookName: "ASR-ApprovalWorkflow",
		Account:     "admin",
		RoleName:    "SO0111-ApprovalWorkflow",
	}
	g := NewGate(cfg, &stubChecker{active: false}, "999999999999", "us-east-1", nil)

	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.Override != nil {
		t.Error("inactive runbook must drop the override")
	}
	if !decision.ApprovalRequired {
		t.Error("approval requirement must survive a dropped override")
	}
}

func TestEvaluate_OverrideOnlyWhenGated(t *testing.T) {
	cfg := gatingPolicy()
	cfg.SensitiveAccounts = nil // gate never trips
	cfg.AlternateWorkflow = &policy.AlternateWorkflowConfig{
		RunbookName: "ASR-ApprovalWorkflow",
		Account:     "admin",
		RoleName:    "SO0111-ApprovalWorkflow",
	}
	g := NewGate(cfg, &stubChecker{active: true}, "999999999999", "us-east-1", nil)

	decision := g.Evaluate(context.Background(), sensitiveFinding(), importedEventType)
	if decision.Override != nil {
		t.Error("override must apply only when the approval gate trips")
	}
}
