package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTypeSend     TxType = "SEND"
	TxTypeBuy      TxType = "BUY"
	TxTypeSell     TxType = "SELL"
	TxTypeTransfer TxType = "TRANSFER"
)

type TxStatus string

const (
	TxStatusPendingApproval TxStatus = "PENDING_APPROVAL"
	TxStatusPartialComplete TxStatus = "PARTIAL_COMPLETE"
	TxStatusCompleted       TxStatus = "COMPLETED"
	TxStatusFailed          TxStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s TxStatus) IsTerminal() bool {
	return s == TxStatusCompleted || s == TxStatusFailed
}

type Transaction struct {
	ID              string          `json:"transaction_id"`
	TeamID          string          `json:"team_id"`
	Type            TxType          `json:"type"`
	Asset           string          `json:"asset"`
	Amount          decimal.Decimal `json:"amount"`
	Recipient       string          `json:"recipient"`
	Memo            string          `json:"memo,omitempty"`
	CreatedBy       string          `json:"created_by"`
	Status          TxStatus        `json:"status"`
	ApprovalsNeeded int             `json:"approvals_needed"`
	Approvals       []*Approval     `json:"approvals"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
}

// Approval records a single verified member approval. Approvals are
// immutable once written and never removed.
type Approval struct {
	ApproverID string     `json:"approver_id"`
	Receipt    string     `json:"receipt,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// HasApprover reports whether the approver already holds an approval slot.
func (t *Transaction) HasApprover(approverID string) bool {
	for _, a := range t.Approvals {
		if a.ApproverID == approverID {
			return true
		}
	}
	return false
}
