package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	err := repo.db.write(exec, func() error {
		repo.db.payment.insert(p.ID, p)
		return nil
	})
	return p, err
}

func matchPayment(p payment.Payment, filter payment.Filter) bool {
	if p.CollegeID != filter.CollegeID {
		return false
	}
	if filter.StudentID != "" && p.StudentID != filter.StudentID {
		return false
	}
	if !filter.From.IsZero() && p.PaymentDate.Before(filter.From.Time) {
		return false
	}
	if !filter.To.IsZero() && !p.PaymentDate.Before(filter.To.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func comparePayments(a, b payment.Payment, field string) int {
	switch field {
	case "payment_date":
		return compareTimes(a.PaymentDate, b.PaymentDate)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "amount":
		return compareDecimals(a.Amount, b.Amount)
	case "method":
		return compareStrings(string(a.Method), string(b.Method))
	}
	return 0
}

func (repo *paymentRepository) QueryPayments(
	_ context.Context,
	filter payment.Filter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]payment.Payment, error) {
	pmts := make([]payment.Payment, 0)
	repo.db.read(func() {
		for _, row := range repo.db.payment.all() {
			if p := row.(payment.Payment); matchPayment(p, filter) {
				pmts = append(pmts, p)
			}
		}
	})
	sort.SliceStable(pmts, func(i, j int) bool {
		return less(ordering, func(field string) int { return comparePayments(pmts[i], pmts[j], field) })
	})
	return pmts, nil
}
