package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *repository.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Get(ctx context.Context, teamID string) (*repository.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) GetTeamMembers(ctx context.Context, teamID string) ([]*repository.Member, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Member), args.Error(1)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Get(ctx context.Context, memberID string) (*repository.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Member), args.Error(1)
}

func (m *MockMemberRepository) Upsert(ctx context.Context, member *repository.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) Patch(ctx context.Context, patch *repository.MemberPatch) (*repository.Member, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Member), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *repository.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Get(ctx context.Context, txID string) (*repository.Transaction, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetApprovals(ctx context.Context, txID string) ([]*repository.Approval, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Approval), args.Error(1)
}

func (m *MockTransactionRepository) ListByTeamAndStatus(ctx context.Context, teamID string, statuses []model.TxStatus) ([]*repository.Transaction, error) {
	args := m.Called(ctx, teamID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AppendApproval(ctx context.Context, txID string, approval *repository.Approval, expectedCount int, newStatus model.TxStatus) error {
	args := m.Called(ctx, txID, approval, expectedCount, newStatus)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkFailed(ctx context.Context, txID string) (*repository.Transaction, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Transaction), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, teamID, shardID, shardValue string) (string, error) {
	args := m.Called(ctx, teamID, shardID, shardValue)
	return args.String(0), args.Error(1)
}
