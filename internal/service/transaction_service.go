package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avelikov/quorum-vault/internal/db"
	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/quorum"
	"github.com/avelikov/quorum-vault/internal/repository"
	"github.com/avelikov/quorum-vault/pkg/logger"
)

// TransactionDraft is the client-supplied part of a new transaction.
type TransactionDraft struct {
	TeamID    string          `json:"team_id" validate:"required"`
	Type      model.TxType    `json:"type" validate:"required,oneof=SEND BUY SELL TRANSFER"`
	Asset     string          `json:"asset" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Recipient string          `json:"recipient" validate:"required"`
	Memo      string          `json:"memo"`
}

type TransactionService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	members repository.MemberRepository
	txs     repository.TransactionRepository
}

func NewTransactionService(tx db.Transactor) *TransactionService {
	return &TransactionService{tx: tx}
}

// CreateTransaction creates a transaction in PENDING_APPROVAL with the
// team's quorum snapshotted as ApprovalsNeeded. Quorum changes made after
// this point never affect the transaction.
func (s *TransactionService) CreateTransaction(ctx context.Context, draft *TransactionDraft, createdBy string) (*model.Transaction, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating transaction",
		zap.String("team_id", draft.TeamID),
		zap.String("type", string(draft.Type)),
		zap.String("created_by", createdBy))

	if !draft.Amount.IsPositive() {
		return nil, NewError(ErrorCodeInvalidBody, "amount must be positive")
	}

	result := &model.Transaction{}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, err := s.teams.Get(txCtx, draft.TeamID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		if err != nil {
			l.Error("failed to get team", zap.String("team_id", draft.TeamID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get team")
		}

		creator, err := s.members.Get(txCtx, createdBy)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && creator.TeamID != team.ID) {
			return NewError(ErrorCodeNotMember, "creator is not a member of the team")
		}
		if err != nil {
			l.Error("failed to get creator", zap.String("user_id", createdBy), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get creator")
		}
		if !creator.IsActive {
			return NewError(ErrorCodeMemberInactive, "inactive member cannot create transactions")
		}

		// Snapshot the quorum now; in-flight transactions keep it forever.
		needed := quorum.Required(&model.Team{ID: team.ID, Name: team.Name, Quorum: team.Quorum})

		repoTx := &repository.Transaction{
			ID:              uuid.NewString(),
			TeamID:          team.ID,
			Type:            draft.Type,
			Asset:           draft.Asset,
			Amount:          draft.Amount,
			Recipient:       draft.Recipient,
			Memo:            draft.Memo,
			CreatedBy:       createdBy,
			Status:          model.TxStatusPendingApproval,
			ApprovalsNeeded: needed,
			ApprovalCount:   0,
		}

		err = s.txs.Create(txCtx, repoTx)
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return NewError(ErrorCodeTransactionExists, "transaction id already exists")
		case err != nil:
			l.Error("failed to create transaction", zap.String("team_id", team.ID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create transaction")
		}

		*result = model.Transaction{
			ID:              repoTx.ID,
			TeamID:          repoTx.TeamID,
			Type:            repoTx.Type,
			Asset:           repoTx.Asset,
			Amount:          repoTx.Amount,
			Recipient:       repoTx.Recipient,
			Memo:            repoTx.Memo,
			CreatedBy:       repoTx.CreatedBy,
			Status:          repoTx.Status,
			ApprovalsNeeded: repoTx.ApprovalsNeeded,
			Approvals:       []*model.Approval{},
			CreatedAt:       repoTx.CreatedAt,
		}

		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	l.Info("transaction created",
		zap.String("transaction_id", result.ID),
		zap.Int("approvals_needed", result.ApprovalsNeeded))

	return result, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, txID string) (*model.Transaction, *Error) {
	repoTx, err := s.txs.Get(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "transaction not found")
	}
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get transaction")
	}

	approvals, err := s.txs.GetApprovals(ctx, txID)
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to get approvals")
	}

	return toModelTransaction(repoTx, approvals), nil
}

// ListPending returns the team's transactions still awaiting quorum.
func (s *TransactionService) ListPending(ctx context.Context, teamID string) ([]*model.Transaction, *Error) {
	l := logger.FromContext(ctx)

	if _, err := s.teams.Get(ctx, teamID); errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	} else if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	repoTxs, err := s.txs.ListByTeamAndStatus(ctx, teamID, []model.TxStatus{
		model.TxStatusPendingApproval,
		model.TxStatusPartialComplete,
	})
	if err != nil {
		l.Error("failed to list pending transactions", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list pending transactions")
	}

	txs := make([]*model.Transaction, 0, len(repoTxs))
	for _, repoTx := range repoTxs {
		approvals, err := s.txs.GetApprovals(ctx, repoTx.ID)
		if err != nil {
			l.Error("failed to get approvals", zap.String("transaction_id", repoTx.ID), zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to get approvals")
		}
		txs = append(txs, toModelTransaction(repoTx, approvals))
	}

	return txs, nil
}

// CancelTransaction moves any non-terminal transaction to FAILED. This is
// the only status mutation besides approval and it is admin-gated at the
// API layer; there is no raw status write anywhere.
func (s *TransactionService) CancelTransaction(ctx context.Context, txID string) (*model.Transaction, *Error) {
	l := logger.FromContext(ctx)
	l.Info("cancelling transaction", zap.String("transaction_id", txID))

	result := &model.Transaction{}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		repoTx, err := s.txs.MarkFailed(txCtx, txID)
		if errors.Is(err, repository.ErrVersionConflict) {
			// Either absent or already terminal; read to tell them apart.
			current, getErr := s.txs.Get(txCtx, txID)
			if errors.Is(getErr, repository.ErrNotFound) {
				return NewError(ErrorCodeNotFound, "transaction not found")
			}
			if getErr != nil {
				return NewError(ErrorCodeUnspecified, "failed to get transaction")
			}
			return NewError(ErrorCodeAlreadyTerminal, "transaction is already "+string(current.Status))
		}
		if err != nil {
			l.Error("failed to cancel transaction", zap.String("transaction_id", txID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to cancel transaction")
		}

		approvals, err := s.txs.GetApprovals(txCtx, txID)
		if err != nil {
			return NewError(ErrorCodeUnspecified, "failed to get approvals")
		}

		*result = *toModelTransaction(repoTx, approvals)
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return result, nil
}

func toModelTransaction(repoTx *repository.Transaction, approvals []*repository.Approval) *model.Transaction {
	tx := &model.Transaction{
		ID:              repoTx.ID,
		TeamID:          repoTx.TeamID,
		Type:            repoTx.Type,
		Asset:           repoTx.Asset,
		Amount:          repoTx.Amount,
		Recipient:       repoTx.Recipient,
		Memo:            repoTx.Memo,
		CreatedBy:       repoTx.CreatedBy,
		Status:          repoTx.Status,
		ApprovalsNeeded: repoTx.ApprovalsNeeded,
		Approvals:       make([]*model.Approval, 0, len(approvals)),
		CreatedAt:       repoTx.CreatedAt,
	}
	for _, a := range approvals {
		tx.Approvals = append(tx.Approvals, &model.Approval{
			ApproverID: a.ApproverID,
			Receipt:    a.Receipt,
			ApprovedAt: a.ApprovedAt,
		})
	}
	return tx
}

func (s *TransactionService) WithTeamRepo(r repository.TeamRepository) *TransactionService {
	s.teams = r
	return s
}

func (s *TransactionService) WithMemberRepo(r repository.MemberRepository) *TransactionService {
	s.members = r
	return s
}

func (s *TransactionService) WithTransactionRepo(r repository.TransactionRepository) *TransactionService {
	s.txs = r
	return s
}
