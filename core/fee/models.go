package fee

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/campus/core"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Fee is an amount a student owes their college by a due date.
// Its amount never changes once created; only its status (and due date) may.
type Fee struct {
	ID        string          `json:"id"`
	CollegeID string          `json:"collegeId"`
	StudentID string          `json:"studentId"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   core.Date       `json:"dueDate"`
	Status    Status          `json:"status"`
	PaidAt    *time.Time      `json:"paidAt,omitempty"` // UTC
	CreatedAt time.Time       `json:"createdAt"`        // UTC
	UpdatedAt time.Time       `json:"updatedAt"`        // UTC
}

func (f Fee) IsPending() bool { return f.Status == StatusPending }

// NewFee contains information needed to create a new Fee.
type NewFee struct {
	StudentID string          `json:"studentId" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
	DueDate   core.Date       `json:"dueDate" validate:"required"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.StudentID = core.CleanString(nf.StudentID, true /* lower */)
	return validate.Struct(nf)
}

// UpdateFee defines what information may be provided to modify an existing Fee.
// The amount cannot be changed.
type UpdateFee struct {
	DueDate core.Date `json:"dueDate"`
	Status  Status    `json:"status" validate:"omitempty,oneof=paid overdue"`
}

func (uf *UpdateFee) Validate(validate *validator.Validate) error {
	return validate.Struct(uf)
}

func (uf UpdateFee) IsEmpty() bool {
	return uf.DueDate.IsZero() && uf.Status == ""
}

// QueryFilter narrows a student's fees.
type QueryFilter struct {
	Status    Status    `json:"status" query:"status" validate:"omitempty,oneof=pending paid overdue"`
	DueAfter  core.Date `json:"dueAfter" query:"dueAfter"`
	DueBefore core.Date `json:"dueBefore" query:"dueBefore"`
}

func (qf *QueryFilter) Validate(validate *validator.Validate) error {
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	return validate.Struct(qf)
}

// Filter is what repositories match fees against. Empty fields are ignored, except CollegeID.
type Filter struct {
	CollegeID string
	StudentID string
	ID        string
	QueryFilter
}
