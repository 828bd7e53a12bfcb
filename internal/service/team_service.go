package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/avelikov/quorum-vault/internal/db"
	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/quorum"
	"github.com/avelikov/quorum-vault/internal/repository"
	"github.com/avelikov/quorum-vault/pkg/logger"
)

type TeamService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	members repository.MemberRepository
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{tx: tx}
}

func (t *TeamService) AddTeam(ctx context.Context, team *model.Team) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("adding team", zap.String("team_name", team.Name), zap.Int("quorum", team.Quorum))

	if !quorum.ValidThreshold(team.Quorum, len(team.Members)) {
		l.Warn("invalid quorum for team",
			zap.String("team_name", team.Name),
			zap.Int("quorum", team.Quorum),
			zap.Int("members", len(team.Members)))
		return nil, NewError(ErrorCodeQuorumInvalid, "quorum must be between 1 and the member count")
	}

	team.ID = uuid.NewString()

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		err := t.teams.Create(txCtx, &repository.Team{
			ID:     team.ID,
			Name:   team.Name,
			Quorum: team.Quorum,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("team already exists", zap.String("team_name", team.Name))
			return NewError(ErrorCodeTeamExists, "team already exists")
		}
		if err != nil {
			l.Error("failed to create team", zap.String("team_name", team.Name), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create team")
		}

		for _, member := range team.Members {
			if err = t.members.Upsert(txCtx, &repository.Member{
				ID:       member.UserID,
				Username: member.Username,
				Email:    member.Email,
				Role:     string(member.Role),
				IsActive: member.IsActive,
				TeamID:   team.ID,
			}); err != nil {
				l.Error("failed to upsert team member",
					zap.String("team_id", team.ID),
					zap.String("user_id", member.UserID),
					zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to upsert team member")
			}
		}

		l.Debug("team added successfully", zap.String("team_id", team.ID))

		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return team, nil
}

func (t *TeamService) GetTeam(ctx context.Context, teamID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("getting team", zap.String("team_id", teamID))

	teamRepo, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("team not found", zap.String("team_id", teamID))
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	membersRepo, err := t.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		l.Error("failed to get team members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team members")
	}

	members := make([]*model.TeamMember, 0, len(membersRepo))
	for _, member := range membersRepo {
		members = append(members, &model.TeamMember{
			UserID:   member.ID,
			Username: member.Username,
			Email:    member.Email,
			Role:     model.MemberRole(member.Role),
			IsActive: member.IsActive,
		})
	}

	l.Debug("team retrieved successfully", zap.String("team_id", teamID))

	return &model.Team{
		ID:      teamRepo.ID,
		Name:    teamRepo.Name,
		Quorum:  teamRepo.Quorum,
		Members: members,
	}, nil
}

// SetMemberIsActive deactivates or reactivates a member. Deactivation is
// refused when it would leave fewer active members than the team quorum.
func (t *TeamService) SetMemberIsActive(ctx context.Context, memberID string, isActive bool) (*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)
	l.Info("setting member active status", zap.String("member_id", memberID), zap.Bool("is_active", isActive))

	var result *model.TeamMember

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		member, err := t.members.Get(txCtx, memberID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "member not found")
		}
		if err != nil {
			l.Error("failed to get member", zap.String("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get member")
		}

		if !isActive && member.IsActive {
			team, err := t.teams.Get(txCtx, member.TeamID)
			if err != nil {
				l.Error("failed to get team", zap.String("team_id", member.TeamID), zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to get team")
			}

			members, err := t.teams.GetTeamMembers(txCtx, member.TeamID)
			if err != nil {
				l.Error("failed to get team members", zap.String("team_id", member.TeamID), zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to get team members")
			}

			active := 0
			for _, m := range members {
				if m.IsActive {
					active++
				}
			}

			if active-1 < team.Quorum {
				l.Warn("deactivation would break quorum",
					zap.String("team_id", member.TeamID),
					zap.Int("active", active),
					zap.Int("quorum", team.Quorum))
				return NewError(ErrorCodeQuorumInvalid, "deactivation would leave fewer active members than quorum")
			}
		}

		patched, err := t.members.Patch(txCtx, &repository.MemberPatch{
			ID:       memberID,
			IsActive: &isActive,
		})
		if err != nil {
			l.Error("failed to patch member", zap.String("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update member")
		}

		result = &model.TeamMember{
			UserID:   patched.ID,
			Username: patched.Username,
			Email:    patched.Email,
			Role:     model.MemberRole(patched.Role),
			IsActive: patched.IsActive,
		}

		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	return result, nil
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithMemberRepo(r repository.MemberRepository) *TeamService {
	t.members = r
	return t
}
