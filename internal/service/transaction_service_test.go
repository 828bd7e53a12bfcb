package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/repository"
)

func validDraft() *TransactionDraft {
	return &TransactionDraft{
		TeamID:    "team1",
		Type:      model.TxTypeSend,
		Asset:     "BTC",
		Amount:    decimal.NewFromFloat(0.5),
		Recipient: "bc1qaddr",
		Memo:      "payout",
	}
}

func TestTransactionService_CreateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		draft          *TransactionDraft
		createdBy      string
		setupMocks     func(*MockTeamRepository, *MockMemberRepository, *MockTransactionRepository)
		expectedError  bool
		errorCode      ErrorCode
		expectedNeeded int
	}{
		{
			name:      "approvals needed snapshots team quorum",
			draft:     validDraft(),
			createdBy: "user1",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, xr *MockTransactionRepository) {
				tr.On("Get", mock.Anything, "team1").Return(&repository.Team{ID: "team1", Name: "treasury", Quorum: 3}, nil)
				mr.On("Get", mock.Anything, "user1").Return(&repository.Member{ID: "user1", IsActive: true, TeamID: "team1"}, nil)

				xr.On("Create", mock.Anything, mock.MatchedBy(func(tx *repository.Transaction) bool {
					return tx.TeamID == "team1" &&
						tx.Status == model.TxStatusPendingApproval &&
						tx.ApprovalsNeeded == 3 &&
						tx.ApprovalCount == 0
				})).Return(nil)
			},
			expectedNeeded: 3,
		},
		{
			name: "non-positive amount rejected before any I/O",
			draft: &TransactionDraft{
				TeamID:    "team1",
				Type:      model.TxTypeSend,
				Asset:     "BTC",
				Amount:    decimal.Zero,
				Recipient: "bc1qaddr",
			},
			createdBy:     "user1",
			setupMocks:    func(tr *MockTeamRepository, mr *MockMemberRepository, xr *MockTransactionRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:      "unknown team",
			draft:     validDraft(),
			createdBy: "user1",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, xr *MockTransactionRepository) {
				tr.On("Get", mock.Anything, "team1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:      "creator from another team",
			draft:     validDraft(),
			createdBy: "outsider",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, xr *MockTransactionRepository) {
				tr.On("Get", mock.Anything, "team1").Return(&repository.Team{ID: "team1", Quorum: 2}, nil)
				mr.On("Get", mock.Anything, "outsider").Return(&repository.Member{ID: "outsider", IsActive: true, TeamID: "team2"}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotMember,
		},
		{
			name:      "inactive creator",
			draft:     validDraft(),
			createdBy: "user2",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, xr *MockTransactionRepository) {
				tr.On("Get", mock.Anything, "team1").Return(&repository.Team{ID: "team1", Quorum: 2}, nil)
				mr.On("Get", mock.Anything, "user2").Return(&repository.Member{ID: "user2", IsActive: false, TeamID: "team1"}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeMemberInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockTeamRepo := new(MockTeamRepository)
			mockMemberRepo := new(MockMemberRepository)
			mockTxRepo := new(MockTransactionRepository)

			tt.setupMocks(mockTeamRepo, mockMemberRepo, mockTxRepo)

			svc := NewTransactionService(mockTx).
				WithTeamRepo(mockTeamRepo).
				WithMemberRepo(mockMemberRepo).
				WithTransactionRepo(mockTxRepo)

			got, err := svc.CreateTransaction(context.Background(), tt.draft, tt.createdBy)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				require.Nil(t, err)
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, model.TxStatusPendingApproval, got.Status)
				assert.Equal(t, tt.expectedNeeded, got.ApprovalsNeeded)
				assert.Empty(t, got.Approvals)
			}

			mockTeamRepo.AssertExpectations(t)
			mockMemberRepo.AssertExpectations(t)
			mockTxRepo.AssertExpectations(t)
		})
	}
}

func TestTransactionService_CancelTransaction(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockTransactionRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name: "cancel pending transaction",
			setupMocks: func(xr *MockTransactionRepository) {
				failed := pendingTx(1)
				failed.Status = model.TxStatusFailed
				xr.On("MarkFailed", mock.Anything, "tx1").Return(failed, nil)
				xr.On("GetApprovals", mock.Anything, "tx1").Return([]*repository.Approval{
					{TransactionID: "tx1", ApproverID: "userA"},
				}, nil)
			},
		},
		{
			name: "cancel completed transaction refused",
			setupMocks: func(xr *MockTransactionRepository) {
				xr.On("MarkFailed", mock.Anything, "tx1").Return(nil, repository.ErrVersionConflict)
				xr.On("Get", mock.Anything, "tx1").Return(completedTx(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeAlreadyTerminal,
		},
		{
			name: "cancel unknown transaction",
			setupMocks: func(xr *MockTransactionRepository) {
				xr.On("MarkFailed", mock.Anything, "tx1").Return(nil, repository.ErrVersionConflict)
				xr.On("Get", mock.Anything, "tx1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockTxRepo := new(MockTransactionRepository)

			tt.setupMocks(mockTxRepo)

			svc := NewTransactionService(mockTx).WithTransactionRepo(mockTxRepo)

			got, err := svc.CancelTransaction(context.Background(), "tx1")

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				require.Nil(t, err)
				assert.Equal(t, model.TxStatusFailed, got.Status)
			}

			mockTxRepo.AssertExpectations(t)
		})
	}
}

func TestTransactionService_ListPending(t *testing.T) {
	mockTx := new(MockTransactor)
	mockTeamRepo := new(MockTeamRepository)
	mockTxRepo := new(MockTransactionRepository)

	mockTeamRepo.On("Get", mock.Anything, "team1").Return(&repository.Team{ID: "team1", Quorum: 2}, nil)
	mockTxRepo.On("ListByTeamAndStatus", mock.Anything, "team1", []model.TxStatus{
		model.TxStatusPendingApproval,
		model.TxStatusPartialComplete,
	}).Return([]*repository.Transaction{pendingTx(0), pendingTx(1)}, nil)
	mockTxRepo.On("GetApprovals", mock.Anything, "tx1").Return([]*repository.Approval{}, nil)

	svc := NewTransactionService(mockTx).
		WithTeamRepo(mockTeamRepo).
		WithTransactionRepo(mockTxRepo)

	got, err := svc.ListPending(context.Background(), "team1")
	require.Nil(t, err)
	assert.Len(t, got, 2)

	mockTeamRepo.AssertExpectations(t)
	mockTxRepo.AssertExpectations(t)
}
