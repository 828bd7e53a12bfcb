package quorum

import (
	"testing"

	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	team := &model.Team{
		ID:     "team1",
		Name:   "treasury",
		Quorum: 2,
		Members: []*model.TeamMember{
			{UserID: "user1", IsActive: true},
			{UserID: "user2", IsActive: true},
			{UserID: "user3", IsActive: true},
		},
	}

	// Configured quorum, not full membership.
	assert.Equal(t, 2, Required(team))
}

func TestValidThreshold(t *testing.T) {
	tests := []struct {
		name        string
		quorum      int
		memberCount int
		want        bool
	}{
		{"quorum of one", 1, 3, true},
		{"quorum equals membership", 3, 3, true},
		{"quorum below one", 0, 3, false},
		{"negative quorum", -1, 3, false},
		{"quorum above membership", 4, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidThreshold(tt.quorum, tt.memberCount))
		})
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name      string
		approvals int
		needed    int
		want      model.TxStatus
	}{
		{"no approvals yet", 0, 2, model.TxStatusPendingApproval},
		{"quorum unmet", 1, 2, model.TxStatusPartialComplete},
		{"quorum met", 2, 2, model.TxStatusCompleted},
		{"single approver quorum", 1, 1, model.TxStatusCompleted},
		{"partial on larger quorum", 2, 3, model.TxStatusPartialComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(tt.approvals, tt.needed))
			assert.Equal(t, tt.want == model.TxStatusCompleted, Satisfied(tt.approvals, tt.needed))
		})
	}
}
