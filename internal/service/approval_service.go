package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/avelikov/quorum-vault/internal/db"
	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/quorum"
	"github.com/avelikov/quorum-vault/internal/repository"
	"github.com/avelikov/quorum-vault/internal/shardverifier"
	"github.com/avelikov/quorum-vault/pkg/logger"
)

// maxAppendAttempts bounds the re-read/re-append loop when concurrent
// approvals race for the same slot.
const maxAppendAttempts = 3

// ApprovalService is the sole writer of transaction status. Every status
// change flows through SubmitApproval or TransactionService.CancelTransaction;
// there is no raw status endpoint.
type ApprovalService struct {
	tx db.Transactor

	txs      repository.TransactionRepository
	members  repository.MemberRepository
	verifier shardverifier.Verifier
}

func NewApprovalService(tx db.Transactor) *ApprovalService {
	return &ApprovalService{tx: tx}
}

// SubmitApproval validates an approval attempt and appends it atomically.
//
// Duplicate submissions from the same approver are idempotent: the current
// transaction state is returned without error, whatever the status, since
// network-flaky clients are expected to retry. The shard verifier is called
// before anything is written; a rejection leaves the transaction untouched.
// The append itself is conditional on the approval count observed at read
// time — on conflict the state is re-read and re-validated, bounded by
// maxAppendAttempts.
func (a *ApprovalService) SubmitApproval(ctx context.Context, txID, approverID, shardValue string) (*model.Transaction, *Error) {
	l := logger.FromContext(ctx)
	l.Info("submitting approval",
		zap.String("transaction_id", txID),
		zap.String("approver_id", approverID))

	tx, serr := a.loadTransaction(ctx, txID)
	if serr != nil {
		return nil, serr
	}

	if tx.HasApprover(approverID) {
		l.Info("duplicate approval, returning current state",
			zap.String("transaction_id", txID),
			zap.String("approver_id", approverID))
		return tx, nil
	}

	if tx.Status.IsTerminal() {
		return nil, NewError(ErrorCodeAlreadyTerminal, "transaction is already "+string(tx.Status))
	}

	member, err := a.members.Get(ctx, approverID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && member.TeamID != tx.TeamID) {
		return nil, NewError(ErrorCodeNotMember, "approver is not a member of the team")
	}
	if err != nil {
		l.Error("failed to get approver", zap.String("approver_id", approverID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get approver")
	}
	if !member.IsActive {
		return nil, NewError(ErrorCodeMemberInactive, "inactive member cannot approve")
	}

	// External verification happens before any write and holds no locks.
	// A verified-but-unpersisted approval on crash is accepted loss: the
	// client retries and verification is idempotent.
	receipt, err := a.verifier.Verify(ctx, tx.TeamID, approverID, shardValue)
	if errors.Is(err, shardverifier.ErrShardRejected) {
		l.Warn("shard rejected",
			zap.String("transaction_id", txID),
			zap.String("approver_id", approverID))
		return nil, NewError(ErrorCodeShardRejected, "shard value rejected by verifier")
	}
	if err != nil {
		l.Error("shard verifier call failed", zap.String("transaction_id", txID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "shard verification unavailable")
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		approval := &repository.Approval{
			TransactionID: txID,
			ApproverID:    approverID,
			Receipt:       receipt,
		}

		expected := len(tx.Approvals)
		newStatus := quorum.NextStatus(expected+1, tx.ApprovalsNeeded)

		err = a.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			return a.txs.AppendApproval(txCtx, txID, approval, expected, newStatus)
		})

		switch {
		case err == nil:
			l.Info("approval recorded",
				zap.String("transaction_id", txID),
				zap.String("approver_id", approverID),
				zap.String("status", string(newStatus)),
				zap.Int("approvals", expected+1))
			return a.loadTransaction(ctx, txID)

		case errors.Is(err, repository.ErrAlreadyExists):
			// Lost a race against our own retry; idempotent success.
			return a.loadTransaction(ctx, txID)

		case errors.Is(err, repository.ErrVersionConflict):
			l.Debug("approval append conflict, re-reading",
				zap.String("transaction_id", txID),
				zap.Int("attempt", attempt+1))

			tx, serr = a.loadTransaction(ctx, txID)
			if serr != nil {
				return nil, serr
			}
			if tx.HasApprover(approverID) {
				return tx, nil
			}
			if tx.Status.IsTerminal() {
				return nil, NewError(ErrorCodeAlreadyTerminal, "transaction is already "+string(tx.Status))
			}

		default:
			l.Error("failed to append approval", zap.String("transaction_id", txID), zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to record approval")
		}
	}

	l.Warn("approval retries exhausted", zap.String("transaction_id", txID))
	return nil, NewError(ErrorCodeConcurrencyConflict, "transaction is contended, retry the approval")
}

func (a *ApprovalService) loadTransaction(ctx context.Context, txID string) (*model.Transaction, *Error) {
	repoTx, err := a.txs.Get(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "transaction not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get transaction")
	}

	approvals, err := a.txs.GetApprovals(ctx, txID)
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get approvals")
	}

	return toModelTransaction(repoTx, approvals), nil
}

func (a *ApprovalService) WithTransactionRepo(r repository.TransactionRepository) *ApprovalService {
	a.txs = r
	return a
}

func (a *ApprovalService) WithMemberRepo(r repository.MemberRepository) *ApprovalService {
	a.members = r
	return a
}

func (a *ApprovalService) WithVerifier(v shardverifier.Verifier) *ApprovalService {
	a.verifier = v
	return a
}
