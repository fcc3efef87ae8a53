package models

import "fmt"

// ScheduleEntry is the per-(account, region) throttle ledger row. Entries
// only ever move forward in time and are never deleted.
type ScheduleEntry struct {
	// Key is the composite "{account}-{region}" partition key.
	Key string `json:"key"`

	// LastExecuted is the epoch second of the most recently planned
	// release for this key.
	LastExecuted int64 `json:"last_executed"`
}

// ScheduleKey builds the ledger partition key for an account/region pair.
func ScheduleKey(accountID, region string) string {
	return fmt.Sprintf("%s-%s", accountID, region)
}

// PlannedRemediation is the scheduler's completion payload, delivered
// through the workflow task-token callback.
type PlannedRemediation struct {
	// PlannedTimestamp is the epoch second at which the remediation may run.
	PlannedTimestamp int64 `json:"planned_timestamp"`

	// Details carries the caller's remediation payload through unchanged.
	Details map[string]any `json:"details,omitempty"`
}
