package policy

import "fmt"

// IsDestructive reports whether the control's remediation is flagged as
// destructive. Safe to call with cfg == nil (no control is destructive).
func IsDestructive(cfg *PolicyConfig, standardShortName, version, controlID string) bool {
	if cfg == nil {
		return false
	}
	key := fmt.Sprintf("%s:%s:%s", standardShortName, version, controlID)
	for _, entry := range cfg.DestructiveControls {
		if entry == key {
			return true
		}
	}
	return false
}

// IsAccountSensitive reports whether accountID is on the sensitive list.
// Safe to call with cfg == nil (no account is sensitive).
func IsAccountSensitive(cfg *PolicyConfig, accountID string) bool {
	if cfg == nil {
		return false
	}
	for _, a := range cfg.SensitiveAccounts {
		if a == accountID {
			return true
		}
	}
	return false
}
