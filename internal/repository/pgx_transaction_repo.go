package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/avelikov/quorum-vault/internal/db"
	"github.com/avelikov/quorum-vault/internal/model"
)

type Transaction struct {
	ID              string          `db:"id"`
	TeamID          string          `db:"team_id"`
	Type            model.TxType    `db:"type"`
	Asset           string          `db:"asset"`
	Amount          decimal.Decimal `db:"amount"`
	Recipient       string          `db:"recipient"`
	Memo            string          `db:"memo"`
	CreatedBy       string          `db:"created_by"`
	Status          model.TxStatus  `db:"status"`
	ApprovalsNeeded int             `db:"approvals_needed"`
	ApprovalCount   int             `db:"approval_count"`
	CreatedAt       *time.Time      `db:"created_at"`
}

type Approval struct {
	TransactionID string     `db:"transaction_id"`
	ApproverID    string     `db:"approver_id"`
	Receipt       string     `db:"receipt"`
	ApprovedAt    *time.Time `db:"approved_at"`
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, txID string) (*Transaction, error)
	GetApprovals(ctx context.Context, txID string) ([]*Approval, error)
	ListByTeamAndStatus(ctx context.Context, teamID string, statuses []model.TxStatus) ([]*Transaction, error)

	// AppendApproval is the single linearization point of the approval
	// state machine: it bumps approval_count and moves status in one
	// conditional update keyed on the expected count, then records the
	// approval row. ErrVersionConflict means a concurrent approval won the
	// slot; ErrAlreadyExists means this approver already holds one.
	AppendApproval(ctx context.Context, txID string, approval *Approval, expectedCount int, newStatus model.TxStatus) error

	// MarkFailed moves a non-terminal transaction to FAILED.
	// ErrVersionConflict means the transaction is already terminal.
	MarkFailed(ctx context.Context, txID string) (*Transaction, error)
}

type pgxTransactionRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &pgxTransactionRepository{pool: pool}
}

var transactionColumns = []any{
	"id", "team_id", "type", "asset", "amount", "recipient", "memo",
	"created_by", "status", "approvals_needed", "approval_count", "created_at",
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	t := &Transaction{}
	err := row.Scan(
		&t.ID,
		&t.TeamID,
		&t.Type,
		&t.Asset,
		&t.Amount,
		&t.Recipient,
		&t.Memo,
		&t.CreatedBy,
		&t.Status,
		&t.ApprovalsNeeded,
		&t.ApprovalCount,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create Insert a pending transaction and set tx.CreatedAt
func (p *pgxTransactionRepository) Create(ctx context.Context, tx *Transaction) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("transactions",
			"id", "team_id", "type", "asset", "amount", "recipient", "memo",
			"created_by", "status", "approvals_needed", "approval_count"),
		im.Values(
			psql.Arg(tx.ID),
			psql.Arg(tx.TeamID),
			psql.Arg(tx.Type),
			psql.Arg(tx.Asset),
			psql.Arg(tx.Amount),
			psql.Arg(tx.Recipient),
			psql.Arg(tx.Memo),
			psql.Arg(tx.CreatedBy),
			psql.Arg(tx.Status),
			psql.Arg(tx.ApprovalsNeeded),
			psql.Arg(tx.ApprovalCount),
		),
		im.Returning("created_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&tx.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrAlreadyExists
		case "23503": // In this case team_id or created_by does not exist
			return ErrNotFound
		}
	}
	return err
}

func (p *pgxTransactionRepository) Get(ctx context.Context, txID string) (*Transaction, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(transactionColumns...),
		sm.From("transactions"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(txID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	t, err := scanTransaction(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (p *pgxTransactionRepository) GetApprovals(ctx context.Context, txID string) ([]*Approval, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("transaction_id", "approver_id", "receipt", "approved_at"),
		sm.From("approval"),
		sm.Where(psql.Quote("transaction_id").EQ(psql.Arg(txID))),
		sm.OrderBy("approved_at").Asc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Approval, error) {
		a := &Approval{}
		if err = row.Scan(&a.TransactionID, &a.ApproverID, &a.Receipt, &a.ApprovedAt); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}

	return approvals, nil
}

func (p *pgxTransactionRepository) ListByTeamAndStatus(ctx context.Context, teamID string, statuses []model.TxStatus) ([]*Transaction, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	statusArgs := make([]any, 0, len(statuses))
	for _, s := range statuses {
		statusArgs = append(statusArgs, s)
	}

	q := psql.Select(
		sm.Columns(transactionColumns...),
		sm.From("transactions"),
		sm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("status").In(psql.Arg(statusArgs...))),
		),
		sm.OrderBy("created_at").Desc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func (p *pgxTransactionRepository) AppendApproval(ctx context.Context, txID string, approval *Approval, expectedCount int, newStatus model.TxStatus) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("transactions"),
		um.SetCol("status").ToArg(newStatus),
		um.SetCol("approval_count").ToArg(expectedCount+1),
		um.Where(
			psql.Quote("id").EQ(psql.Arg(txID)).
				And(psql.Quote("approval_count").EQ(psql.Arg(expectedCount))).
				And(psql.Quote("status").In(
					psql.Arg(model.TxStatusPendingApproval),
					psql.Arg(model.TxStatusPartialComplete),
				)),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	ins := psql.Insert(
		im.Into("approval", "transaction_id", "approver_id", "receipt"),
		im.Values(psql.Arg(txID), psql.Arg(approval.ApproverID), psql.Arg(approval.Receipt)),
		im.Returning("approved_at"),
	)

	sql, args, err = ins.Build(ctx)
	if err != nil {
		return err
	}

	err = e.QueryRow(ctx, sql, args...).Scan(&approval.ApprovedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (p *pgxTransactionRepository) MarkFailed(ctx context.Context, txID string) (*Transaction, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("transactions"),
		um.SetCol("status").ToArg(model.TxStatusFailed),
		um.Where(
			psql.Quote("id").EQ(psql.Arg(txID)).
				And(psql.Quote("status").In(
					psql.Arg(model.TxStatusPendingApproval),
					psql.Arg(model.TxStatusPartialComplete),
				)),
		),
		um.Returning(transactionColumns...),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	t, err := scanTransaction(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionConflict
	}
	return t, err
}
