package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
)

var settlementOrdering = []core.DBOrdering{
	{Field: "due_date", Ascending: true},
	{Field: "created_at", Ascending: true},
	{Field: "id", Ascending: true},
}

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db}
}

func copyFee(f fee.Fee) fee.Fee {
	if f.PaidAt != nil {
		paidAt := *f.PaidAt
		f.PaidAt = &paidAt
	}
	return f
}

// query returns the fees matching filter, sorted by ordering. db.mu must be held.
func (repo *feeRepository) query(filter fee.Filter, ordering []core.DBOrdering) []fee.Fee {
	fees := make([]fee.Fee, 0)
	for _, row := range repo.db.fee.all() {
		if f := row.(fee.Fee); matchFee(f, filter) {
			fees = append(fees, copyFee(f))
		}
	}
	sort.SliceStable(fees, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareFees(fees[i], fees[j], field) })
	})
	return fees
}

func matchFee(f fee.Fee, filter fee.Filter) bool {
	if f.CollegeID != filter.CollegeID {
		return false
	}
	if filter.StudentID != "" && f.StudentID != filter.StudentID {
		return false
	}
	if filter.ID != "" && f.ID != filter.ID {
		return false
	}
	if filter.Status != "" && f.Status != filter.Status {
		return false
	}
	if !filter.DueAfter.IsZero() && f.DueDate.Before(filter.DueAfter.Time) {
		return false
	}
	if !filter.DueBefore.IsZero() && f.DueDate.After(filter.DueBefore.Time) {
		return false
	}
	return true
}

func compareFees(a, b fee.Fee, field string) int {
	switch field {
	case "id":
		return compareStrings(a.ID, b.ID)
	case "due_date":
		return compareTimes(a.DueDate.Time, b.DueDate.Time)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "amount":
		return compareDecimals(a.Amount, b.Amount)
	case "status":
		return compareStrings(string(a.Status), string(b.Status))
	case "paid_at":
		return compareTimePtrs(a.PaidAt, b.PaidAt)
	}
	return 0
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	err := repo.db.write(exec, func() error {
		repo.db.fee.insert(f.ID, copyFee(f))
		return nil
	})
	return copyFee(f), err
}

func (repo *feeRepository) QueryFees(
	_ context.Context,
	filter fee.Filter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]fee.Fee, error) {
	var fees []fee.Fee
	repo.db.read(func() {
		fees = repo.query(filter, ordering)
	})
	return fees, nil
}

func (repo *feeRepository) GetFee(_ context.Context, filter fee.Filter, _ ...core.DBExecutor) (fee.Fee, error) {
	var fees []fee.Fee
	repo.db.read(func() {
		fees = repo.query(filter, nil)
	})
	if len(fees) == 0 {
		return fee.Fee{}, fee.ErrNotFound
	}
	return fees[0], nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee, fromStatus fee.Status, exec ...core.DBExecutor) (fee.Fee, error) {
	err := repo.db.write(exec, func() error {
		orig, ok := repo.db.fee.rows[f.ID].(fee.Fee)
		if !ok || orig.CollegeID != f.CollegeID || orig.Status != fromStatus {
			return fee.ErrStatusChanged
		}
		// amount, owner and creation never change
		f.Amount = orig.Amount
		f.StudentID = orig.StudentID
		f.CreatedAt = orig.CreatedAt
		repo.db.fee.insert(f.ID, copyFee(f))
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return copyFee(f), nil
}

func (repo *feeRepository) SettleOldestPending(
	_ context.Context,
	collegeID, studentID string,
	at time.Time,
	exec ...core.DBExecutor,
) (fee.Fee, error) {
	var settled fee.Fee
	err := repo.db.write(exec, func() error {
		pending := repo.query(fee.Filter{
			CollegeID:   collegeID,
			StudentID:   studentID,
			QueryFilter: fee.QueryFilter{Status: fee.StatusPending},
		}, settlementOrdering)
		if len(pending) == 0 {
			return fee.ErrNothingToSettle
		}

		settled = pending[0]
		paidAt := at.UTC()
		settled.Status = fee.StatusPaid
		settled.PaidAt = &paidAt
		settled.UpdatedAt = time.Now().UTC()
		repo.db.fee.insert(settled.ID, copyFee(settled))
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return settled, nil
}
