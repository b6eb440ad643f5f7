package sqlxrepos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
)

const feeColumns = `id, college_id, student_id, amount, due_date, status, paid_at, created_at, updated_at`

type feeRow struct {
	ID        string          `db:"id"`
	CollegeID string          `db:"college_id"`
	StudentID string          `db:"student_id"`
	Amount    decimal.Decimal `db:"amount"`
	DueDate   core.Date       `db:"due_date"`
	Status    string          `db:"status"`
	PaidAt    null.Time       `db:"paid_at"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func newFeeRow(f fee.Fee) feeRow {
	return feeRow{
		ID:        f.ID,
		CollegeID: f.CollegeID,
		StudentID: f.StudentID,
		Amount:    f.Amount,
		DueDate:   f.DueDate,
		Status:    string(f.Status),
		PaidAt:    null.TimeFromPtr(f.PaidAt),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (r feeRow) toFee() fee.Fee {
	f := fee.Fee{
		ID:        r.ID,
		CollegeID: r.CollegeID,
		StudentID: r.StudentID,
		Amount:    r.Amount,
		DueDate:   r.DueDate,
		Status:    fee.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.PaidAt.Valid {
		paidAt := r.PaidAt.Time.UTC()
		f.PaidAt = &paidAt
	}
	return f
}

type feeRepository struct {
	db core.DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db core.DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	q := `INSERT INTO fee (` + feeColumns + `)
		VALUES (:id, :college_id, :student_id, :amount, :due_date, :status, :paid_at, :created_at, :updated_at)
		RETURNING ` + feeColumns
	var rows []feeRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, newFeeRow(f)); err != nil {
		return fee.Fee{}, core.NewStorageError(err, "inserting fee")
	}
	return rows[0].toFee(), nil
}

func feeWhere(filter fee.Filter) *where {
	w := newWhere()
	w.add("college_id = :college_id", "college_id", filter.CollegeID)
	if filter.StudentID != "" {
		w.add("student_id = :student_id", "student_id", filter.StudentID)
	}
	if filter.ID != "" {
		w.add("id = :id", "id", filter.ID)
	}
	if filter.Status != "" {
		w.add("status = :status", "status", string(filter.Status))
	}
	if !filter.DueAfter.IsZero() {
		w.add("due_date >= :due_after", "due_after", filter.DueAfter)
	}
	if !filter.DueBefore.IsZero() {
		w.add("due_date <= :due_before", "due_before", filter.DueBefore)
	}
	return w
}

func (repo *feeRepository) QueryFees(
	ctx context.Context,
	filter fee.Filter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]fee.Fee, error) {
	w := feeWhere(filter)
	q := `SELECT ` + feeColumns + ` FROM fee` + w.String() + orderBy(ordering)
	var rows []feeRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, w.args); err != nil {
		return nil, core.NewStorageError(err, "selecting fees")
	}
	fees := make([]fee.Fee, 0, len(rows))
	for _, r := range rows {
		fees = append(fees, r.toFee())
	}
	return fees, nil
}

func (repo *feeRepository) GetFee(ctx context.Context, filter fee.Filter, exec ...core.DBExecutor) (fee.Fee, error) {
	w := feeWhere(filter)
	q := `SELECT ` + feeColumns + ` FROM fee` + w.String() + ` LIMIT 1`
	var rows []feeRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, w.args); err != nil {
		return fee.Fee{}, core.NewStorageError(err, "selecting fee")
	}
	if len(rows) == 0 {
		return fee.Fee{}, fee.ErrNotFound
	}
	return rows[0].toFee(), nil
}

func (repo *feeRepository) UpdateFee(ctx context.Context, f fee.Fee, fromStatus fee.Status, exec ...core.DBExecutor) (fee.Fee, error) {
	q := `UPDATE fee SET due_date = :due_date, status = :status, paid_at = :paid_at, updated_at = :updated_at
		WHERE id = :id AND college_id = :college_id AND status = :from_status
		RETURNING ` + feeColumns
	arg := struct {
		feeRow
		FromStatus string `db:"from_status"`
	}{newFeeRow(f), string(fromStatus)}

	var rows []feeRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, arg); err != nil {
		return fee.Fee{}, core.NewStorageError(err, "updating fee")
	}
	if len(rows) == 0 {
		return fee.Fee{}, fee.ErrStatusChanged
	}
	return rows[0].toFee(), nil
}

// SettleOldestPending locks the oldest pending fee and marks it paid.
// A concurrent settlement holding that fee makes it wait; once committed, the fee no longer
// matches and the next pending one is locked instead.
func (repo *feeRepository) SettleOldestPending(
	ctx context.Context,
	collegeID, studentID string,
	at time.Time,
	exec ...core.DBExecutor,
) (fee.Fee, error) {
	q := `UPDATE fee SET status = 'paid', paid_at = $3, updated_at = $4
		WHERE id = (
			SELECT id FROM fee
			WHERE college_id = $1 AND student_id = $2 AND status = 'pending'
			ORDER BY due_date ASC, created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE
		) AND status = 'pending'
		RETURNING ` + feeColumns
	var rows []feeRow
	err := selectRows(ctx, getExec(repo.db, exec), &rows, q, collegeID, studentID, at.UTC(), time.Now().UTC())
	if err != nil {
		return fee.Fee{}, core.NewStorageError(err, "settling fee")
	}
	if len(rows) == 0 {
		return fee.Fee{}, fee.ErrNothingToSettle
	}
	return rows[0].toFee(), nil
}
