package payment

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/user"
)

var (
	errFutureDate = errors.New("payment date cannot be in the future")

	// OrderingFields maps the orderable json fields to their column.
	OrderingFields = map[string]string{
		"paymentDate": "payment_date",
		"createdAt":   "created_at",
		"amount":      "amount",
		"method":      "method",
	}
	defaultOrdering = []core.DBOrdering{
		{Field: "payment_date"},
		{Field: "created_at"},
	}

	receiptTemplate = "payment_receipt"
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		QueryPayments(ctx context.Context, filter Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Payment, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, collegeID string, np NewPayment) (Payment, error)
		History(ctx context.Context, collegeID, studentID string, filter QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		feeRepo  fee.Repository
		students fee.StudentGetter
		mailSvc  core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	feeRepo fee.Repository,
	students fee.StudentGetter,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		feeRepo:  feeRepo,
		students: students,
		mailSvc:  mailSvc,
	}
}

// Create records a payment and settles, in the same transaction, the oldest pending fee of the student.
// Having no pending fee is not an error: the payment is recorded all the same.
// A receipt is emailed to the student once the transaction is committed.
// np must have passed NewPayment.Validate.
func (svc *Service) Create(ctx context.Context, collegeID string, np NewPayment) (Payment, error) {
	student, err := svc.students.GetStudent(ctx, collegeID, np.StudentID)
	if err != nil {
		return Payment{}, pkgerrors.Wrap(err, "finding student")
	}

	now := time.Now().UTC()
	pmt := Payment{
		ID:          uuid.New().String(),
		CollegeID:   collegeID,
		StudentID:   np.StudentID,
		Amount:      np.Amount,
		PaymentDate: now,
		Method:      np.Method,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if np.PaymentDate != nil && !np.PaymentDate.IsZero() {
		if np.PaymentDate.After(now) {
			return Payment{}, core.NewValidationError(errFutureDate, core.FieldError{Field: "paymentDate", Error: errFutureDate.Error()})
		}
		pmt.PaymentDate = np.PaymentDate.UTC()
	}

	var settled *fee.Fee
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if pmt, err = svc.repo.CreatePayment(ctx, pmt, exec); err != nil {
			return pkgerrors.Wrap(err, "creating payment")
		}

		f, err := svc.feeRepo.SettleOldestPending(ctx, collegeID, pmt.StudentID, pmt.PaymentDate, exec)
		switch {
		case err == nil:
			settled = &f
		case pkgerrors.Cause(err) == fee.ErrNothingToSettle: // pass
		default:
			return pkgerrors.Wrap(err, "settling fee")
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	svc.sendReceipt(student, pmt, settled)
	return pmt, nil
}

// History lists the payments of a student, most recent first by default.
func (svc *Service) History(
	ctx context.Context,
	collegeID, studentID string,
	filter QueryFilter,
	ordering []core.DBOrdering,
) ([]Payment, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []Payment{}, nil
	}
	ordering = core.CleanOrdering(ordering, OrderingFields, defaultOrdering...)
	pmts, err := svc.repo.QueryPayments(ctx, Filter{CollegeID: collegeID, StudentID: studentID, QueryFilter: filter}, ordering)
	return pmts, pkgerrors.Wrap(err, "querying payments")
}

func (svc *Service) sendReceipt(student user.User, pmt Payment, settled *fee.Fee) {
	if student.Email == "" {
		return
	}
	receipt := Receipt{
		Name:        student.Name,
		PaymentID:   pmt.ID,
		Amount:      pmt.Amount.StringFixed(2),
		Method:      pmt.Method,
		PaymentDate: pmt.PaymentDate.Format(core.DateLayout),
	}
	if settled != nil {
		receipt.SettledFeeID = settled.ID
		receipt.SettledFeeAmount = settled.Amount.StringFixed(2)
		receipt.SettledFeeDueDate = settled.DueDate.String()
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Payment receipt",
		TemplateName: receiptTemplate,
		TemplateData: receipt,
	})
}
