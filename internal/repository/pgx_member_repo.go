package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/avelikov/quorum-vault/internal/db"
)

type Member struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	Role     string `db:"role"`
	IsActive bool   `db:"is_active"`
	TeamID   string `db:"team_id"`
}

type MemberPatch struct {
	ID       string  `db:"id"`
	Username *string `db:"username"`
	Email    *string `db:"email"`
	IsActive *bool   `db:"is_active"`
}

type MemberRepository interface {
	Get(ctx context.Context, memberID string) (*Member, error)
	Upsert(ctx context.Context, member *Member) error
	Patch(ctx context.Context, patch *MemberPatch) (*Member, error)
}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool}
}

func (p *pgxMemberRepository) Get(ctx context.Context, memberID string) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "username", "email", "role", "is_active", "team_id"),
		sm.From("member"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(memberID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m := &Member{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&m.ID,
		&m.Username,
		&m.Email,
		&m.Role,
		&m.IsActive,
		&m.TeamID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (p *pgxMemberRepository) Upsert(ctx context.Context, member *Member) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("member", "id", "username", "email", "role", "is_active", "team_id"),
		im.Values(
			psql.Arg(member.ID),
			psql.Arg(member.Username),
			psql.Arg(member.Email),
			psql.Arg(member.Role),
			psql.Arg(member.IsActive),
			psql.Arg(member.TeamID),
		),
		im.OnConflict(psql.Quote("id")).DoUpdate(
			im.SetCol("username").ToArg(member.Username),
			im.SetCol("email").ToArg(member.Email),
			im.SetCol("role").ToArg(member.Role),
			im.SetCol("is_active").ToArg(member.IsActive),
			im.SetCol("team_id").ToArg(member.TeamID),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return err
	}

	return nil
}

func (p *pgxMemberRepository) Patch(ctx context.Context, patch *MemberPatch) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 3)
	if patch.Username != nil {
		sets = append(sets, um.SetCol("username").ToArg(*patch.Username))
	}
	if patch.Email != nil {
		sets = append(sets, um.SetCol("email").ToArg(*patch.Email))
	}
	if patch.IsActive != nil {
		sets = append(sets, um.SetCol("is_active").ToArg(*patch.IsActive))
	}

	q := psql.Update(
		um.Table("member"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning("id", "username", "email", "role", "is_active", "team_id"),
	)

	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m := &Member{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&m.ID,
		&m.Username,
		&m.Email,
		&m.Role,
		&m.IsActive,
		&m.TeamID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return m, nil
}
