package common

import "fmt"

// OrchestratorMemberRole is the read-only role deployed into every member
// account for cross-account inspection (document describe, execution polls).
const OrchestratorMemberRole = "SO0111-ASR-Orchestrator-Member"

// MemberRoleARN builds the orchestrator member role ARN for an account.
func MemberRoleARN(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, OrchestratorMemberRole)
}
