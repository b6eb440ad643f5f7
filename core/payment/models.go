package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/campus/core"
)

type Method string

const (
	MethodCash       Method = "cash"
	MethodCard       Method = "card"
	MethodNetbanking Method = "netbanking"
	MethodUPI        Method = "upi"
)

var Methods = []Method{MethodCash, MethodCard, MethodNetbanking, MethodUPI}

// Payment is money received from a student. Payments are immutable once recorded.
type Payment struct {
	ID          string          `json:"id"`
	CollegeID   string          `json:"collegeId"`
	StudentID   string          `json:"studentId"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"` // UTC
	Method      Method          `json:"method"`
	CreatedAt   time.Time       `json:"createdAt"` // UTC
	UpdatedAt   time.Time       `json:"updatedAt"` // UTC
}

// NewPayment contains information needed to record a Payment.
// PaymentDate defaults to the recording time.
type NewPayment struct {
	StudentID   string          `json:"studentId" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Method      Method          `json:"method" validate:"required,oneof=cash card netbanking upi"`
	PaymentDate *time.Time      `json:"paymentDate"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID, true /* lower */)
	np.Method = Method(core.CleanString(string(np.Method), true /* lower */))
	return validate.Struct(np)
}

// Filter is what repositories match payments against. Empty fields are ignored, except CollegeID.
type Filter struct {
	CollegeID string
	StudentID string
	QueryFilter
}

// QueryFilter narrows a student's payment history to payments made between From and To (both days included).
type QueryFilter struct {
	From core.Date `query:"from"`
	To   core.Date `query:"to"`
}

// Receipt is the data rendered in payment receipt emails.
type Receipt struct {
	Name              string
	PaymentID         string
	Amount            string
	Method            Method
	PaymentDate       string
	SettledFeeID      string
	SettledFeeAmount  string
	SettledFeeDueDate string
}
