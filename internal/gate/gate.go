// Package gate decides whether a remediation proceeds directly or is routed
// through an approval workflow, based on the trigger type and site policy.
package gate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/sechub-asr/internal/models"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/policy"
	"github.com/pankaj-dahiya-devops/sechub-asr/internal/resolver"
)

// TriggerType classifies how the pipeline invocation originated.
type TriggerType string

const (
	// TriggerAutomatic means the finding arrived through automated
	// ingestion (EventBridge imported-findings rule).
	TriggerAutomatic TriggerType = "automatic"

	// TriggerManual means an operator fired the custom action on the
	// finding in the console.
	TriggerManual TriggerType = "manual"
)

// ClassifyTrigger maps the raw event-type string onto a TriggerType.
// Custom-action invocations identify themselves in the detail type; every
// other shape is treated as automated ingestion.
func ClassifyTrigger(eventType string) TriggerType {
	if strings.Contains(strings.ToLower(eventType), "custom action") {
		return TriggerManual
	}
	return TriggerAutomatic
}

// Gate evaluates approval policy for one finding. It owns no business rules
// itself: destructiveness and account sensitivity come from the policy
// config, and the alternate workflow comes from configuration too.
type Gate struct {
	cfg     *policy.PolicyConfig
	checker resolver.DocumentChecker

	// adminAccountID / adminRegion locate the orchestrating account, used
	// when the alternate workflow is configured to run there.
	adminAccountID string
	adminRegion    string

	log *zap.Logger
}

// NewGate builds a Gate. checker may be nil when no alternate workflow is
// configured; it is only consulted to verify the override runbook.
func NewGate(cfg *policy.PolicyConfig, checker resolver.DocumentChecker, adminAccountID, adminRegion string, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		cfg:            cfg,
		checker:        checker,
		adminAccountID: adminAccountID,
		adminRegion:    adminRegion,
		log:            log,
	}
}

// Evaluate returns the workflow decision for f. Approval is required only
// when all three conditions hold: the trigger was automatic, the control's
// remediation is destructive, and the account is sensitive. When approval is
// required and an alternate workflow is configured and active, the override
// fully replaces the standard remediation path.
func (g *Gate) Evaluate(ctx context.Context, f *models.Finding, eventType string) models.WorkflowDecision {
	decision := models.WorkflowDecision{
		ApprovalRequired: false,
		Impact:           models.ImpactNondestructive,
	}

	trigger := ClassifyTrigger(eventType)
	destructive := policy.IsDestructive(g.cfg, f.StandardShortName, f.StandardVersion, f.ControlID)
	sensitive := policy.IsAccountSensitive(g.cfg, f.AccountID)

	useAlternate := false
	if trigger == TriggerAutomatic && destructive && sensitive {
		decision.ApprovalRequired = true
		decision.Impact = models.ImpactDestructive
		useAlternate = true
	}

	if useAlternate {
		if override := g.resolveOverride(ctx, f); override != nil {
			// The alternate workflow replaces the standard path entirely.
			decision.Override = override
		}
	}

	return decision
}

// resolveOverride materializes the configured alternate workflow, verifying
// the runbook is active at its execution location first. A missing or
// inactive runbook drops the override; the decision then proceeds with the
// standard approval values. Missing configuration is not a hard failure.
func (g *Gate) resolveOverride(ctx context.Context, f *models.Finding) *models.WorkflowOverride {
	alt := g.cfg.AlternateWorkflow
	if alt == nil || alt.RunbookName == "" {
		return nil
	}

	account := g.adminAccountID
	region := g.adminRegion
	if alt.Account == "member" {
		account = f.AccountID
		region = f.Region
	}

	if g.checker != nil {
		check := g.checker.CheckDocument(ctx, alt.RunbookName, account, region)
		if !check.Active() {
			g.log.Warn("alternate workflow runbook not active, override dropped",
				zap.String("runbook", alt.RunbookName),
				zap.String("account", account))
			return nil
		}
	}

	return &models.WorkflowOverride{
		RunbookName: alt.RunbookName,
		Account:     alt.Account,
		AccountID:   account,
		Region:      region,
		RoleARN:     resolver.RoleARN(account, alt.RoleName),
	}
}
