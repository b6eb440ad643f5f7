package sqlxrepos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/payment"
)

const paymentColumns = `id, college_id, student_id, amount, payment_date, method, created_at, updated_at`

type paymentRow struct {
	ID          string          `db:"id"`
	CollegeID   string          `db:"college_id"`
	StudentID   string          `db:"student_id"`
	Amount      decimal.Decimal `db:"amount"`
	PaymentDate time.Time       `db:"payment_date"`
	Method      string          `db:"method"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r paymentRow) toPayment() payment.Payment {
	return payment.Payment{
		ID:          r.ID,
		CollegeID:   r.CollegeID,
		StudentID:   r.StudentID,
		Amount:      r.Amount,
		PaymentDate: r.PaymentDate.UTC(),
		Method:      payment.Method(r.Method),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	db core.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db core.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := `INSERT INTO payment (` + paymentColumns + `)
		VALUES (:id, :college_id, :student_id, :amount, :payment_date, :method, :created_at, :updated_at)
		RETURNING ` + paymentColumns
	row := paymentRow{
		ID:          p.ID,
		CollegeID:   p.CollegeID,
		StudentID:   p.StudentID,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Method:      string(p.Method),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	var rows []paymentRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, row); err != nil {
		return payment.Payment{}, core.NewStorageError(err, "inserting payment")
	}
	return rows[0].toPayment(), nil
}

func (repo *paymentRepository) QueryPayments(
	ctx context.Context,
	filter payment.Filter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]payment.Payment, error) {
	w := newWhere()
	w.add("college_id = :college_id", "college_id", filter.CollegeID)
	if filter.StudentID != "" {
		w.add("student_id = :student_id", "student_id", filter.StudentID)
	}
	if !filter.From.IsZero() {
		w.add("payment_date >= :from", "from", filter.From.Time)
	}
	if !filter.To.IsZero() {
		w.add("payment_date < :to", "to", filter.To.AddDate(0, 0, 1))
	}

	q := `SELECT ` + paymentColumns + ` FROM payment` + w.String() + orderBy(ordering)
	var rows []paymentRow
	if err := namedSelect(ctx, getExec(repo.db, exec), &rows, q, w.args); err != nil {
		return nil, core.NewStorageError(err, "selecting payments")
	}
	pmts := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		pmts = append(pmts, r.toPayment())
	}
	return pmts, nil
}
