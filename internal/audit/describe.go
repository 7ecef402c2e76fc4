package audit

import "fmt"

// Describe renders a one-line human-readable summary of an entry for the
// admin log table. Presentation only; the raw fields stay authoritative.
func Describe(e Entry) string {
	switch e.Action {
	case ActionVerifyDonation:
		if no := e.Details["receipt_no"]; no != "" {
			return fmt.Sprintf("verified donation %s, issued receipt %s", e.ResourceID, no)
		}
		return fmt.Sprintf("verified donation %s", e.ResourceID)
	case ActionFlagDonation:
		if reason := e.Details["reason"]; reason != "" {
			return fmt.Sprintf("flagged donation %s: %s", e.ResourceID, reason)
		}
		return fmt.Sprintf("flagged donation %s", e.ResourceID)
	case ActionRevertDonation:
		return fmt.Sprintf("reverted donation %s to pending", e.ResourceID)
	case ActionStaffLogin:
		return "staff signed in"
	case ActionCreateStaff:
		return fmt.Sprintf("created staff user %s", e.ResourceID)
	default:
		return fmt.Sprintf("%s on %s", e.Action, e.TargetResource())
	}
}
