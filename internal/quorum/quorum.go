// Package quorum is the pure approval policy: no I/O, no state. The quorum
// threshold is the team's configured value, snapshotted onto a transaction
// at creation time. Later quorum changes never affect in-flight transactions.
package quorum

import "github.com/avelikov/quorum-vault/internal/model"

// Required returns the approval threshold for new transactions of the team.
func Required(team *model.Team) int {
	return team.Quorum
}

// ValidThreshold reports whether q is a usable quorum for a team of the
// given size: at least one approver, at most every member.
func ValidThreshold(q, memberCount int) bool {
	return q >= 1 && q <= memberCount
}

// Satisfied reports whether the approval set meets the snapshotted threshold.
func Satisfied(approvalCount, needed int) bool {
	return approvalCount >= needed
}

// NextStatus returns the status a transaction holds after an approval set
// of the given size has been recorded.
func NextStatus(approvalCount, needed int) model.TxStatus {
	if Satisfied(approvalCount, needed) {
		return model.TxStatusCompleted
	}
	if approvalCount > 0 {
		return model.TxStatusPartialComplete
	}
	return model.TxStatusPendingApproval
}
