package fee

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("fee")
	ErrNothingToSettle = errors.New("no pending fee to settle")
	ErrStatusChanged   = errors.New("the fee status changed in the meantime")
	errNotPending      = errors.New("only pending fees can be updated")
	errNothingToUpdate = errors.New("nothing to update")

	// OrderingFields maps the orderable json fields to their column.
	OrderingFields = map[string]string{
		"dueDate":   "due_date",
		"createdAt": "created_at",
		"amount":    "amount",
		"status":    "status",
		"paidAt":    "paid_at",
	}
	defaultOrdering = []core.DBOrdering{
		{Field: "due_date", Ascending: true},
		{Field: "created_at", Ascending: true},
	}
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		QueryFees(ctx context.Context, filter Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Fee, error)
		// GetFee returns ErrNotFound when no fee matches filter.
		GetFee(ctx context.Context, filter Filter, exec ...core.DBExecutor) (Fee, error)
		// UpdateFee saves f only if its stored status is still fromStatus, ErrStatusChanged otherwise.
		UpdateFee(ctx context.Context, f Fee, fromStatus Status, exec ...core.DBExecutor) (Fee, error)
		// SettleOldestPending marks paid, at `at`, the pending fee of the student with the earliest due date
		// (then oldest creation, then lowest id), in a single atomic step.
		// Returns ErrNothingToSettle when the student has no pending fee.
		SettleOldestPending(ctx context.Context, collegeID, studentID string, at time.Time, exec ...core.DBExecutor) (Fee, error)
	}

	// StudentGetter finds an active student of a college.
	StudentGetter interface {
		GetStudent(ctx context.Context, collegeID, id string) (user.User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, collegeID string, nf NewFee) (Fee, error)
		QueryByStudent(ctx context.Context, collegeID, studentID string, filter QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
		QueryDues(ctx context.Context, collegeID, studentID string, ordering []core.DBOrdering) ([]Fee, error)
		Get(ctx context.Context, collegeID, studentID, id string) (Fee, error)
		Update(ctx context.Context, collegeID, studentID, id string, uf UpdateFee) (Fee, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, students StudentGetter) *Service {
	return &Service{repo: repo, students: students}
}

// Create adds a pending fee for a student of the college.
// nf must have passed NewFee.Validate.
func (svc *Service) Create(ctx context.Context, collegeID string, nf NewFee) (Fee, error) {
	if _, err := svc.students.GetStudent(ctx, collegeID, nf.StudentID); err != nil {
		return Fee{}, pkgerrors.Wrap(err, "finding student")
	}

	now := time.Now().UTC()
	f, err := svc.repo.CreateFee(ctx, Fee{
		ID:        uuid.New().String(),
		CollegeID: collegeID,
		StudentID: nf.StudentID,
		Amount:    nf.Amount,
		DueDate:   nf.DueDate,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return f, pkgerrors.Wrap(err, "creating fee")
}

// QueryByStudent lists the fees of a student, by due date then creation by default.
func (svc *Service) QueryByStudent(
	ctx context.Context,
	collegeID, studentID string,
	filter QueryFilter,
	ordering []core.DBOrdering,
) ([]Fee, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []Fee{}, nil
	}
	ordering = core.CleanOrdering(ordering, OrderingFields, defaultOrdering...)
	fees, err := svc.repo.QueryFees(ctx, Filter{CollegeID: collegeID, StudentID: studentID, QueryFilter: filter}, ordering)
	return fees, pkgerrors.Wrap(err, "querying fees")
}

// QueryDues lists the pending fees of a student.
func (svc *Service) QueryDues(ctx context.Context, collegeID, studentID string, ordering []core.DBOrdering) ([]Fee, error) {
	return svc.QueryByStudent(ctx, collegeID, studentID, QueryFilter{Status: StatusPending}, ordering)
}

func (svc *Service) Get(ctx context.Context, collegeID, studentID, id string) (Fee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Fee{}, ErrNotFound
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return Fee{}, ErrNotFound
	}
	f, err := svc.repo.GetFee(ctx, Filter{CollegeID: collegeID, StudentID: studentID, ID: id})
	return f, pkgerrors.Wrap(err, "finding fee")
}

// Update changes the due date and/or the status of a pending fee.
// A pending fee may only become paid or overdue.
func (svc *Service) Update(ctx context.Context, collegeID, studentID, id string, uf UpdateFee) (Fee, error) {
	if uf.IsEmpty() {
		return Fee{}, core.NewValidationError(errNothingToUpdate)
	}

	f, err := svc.Get(ctx, collegeID, studentID, id)
	if err != nil {
		return Fee{}, err
	}
	if !f.IsPending() {
		return Fee{}, core.NewValidationError(errNotPending, core.FieldError{Field: "status", Error: errNotPending.Error()})
	}

	now := time.Now().UTC()
	if !uf.DueDate.IsZero() {
		f.DueDate = uf.DueDate
	}
	if uf.Status != "" {
		f.Status = uf.Status
		if uf.Status == StatusPaid {
			f.PaidAt = &now
		}
	}
	f.UpdatedAt = now

	f, err = svc.repo.UpdateFee(ctx, f, StatusPending)
	if err != nil {
		if pkgerrors.Cause(err) == ErrStatusChanged {
			return Fee{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
		}
		return Fee{}, pkgerrors.Wrap(err, "updating fee")
	}
	return f, nil
}
