package payment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/user"
)

type (
	Repository interface {
		GetPaymentByEnrollment(ctx context.Context, enrollmentID string) (Payment, error)
		// UpdateInstallmentPayment loads the payment owning the installment, with all its installments,
		// and holds it exclusively while fn runs; the changes made by fn are then saved atomically.
		// Nothing is saved when fn fails.
		UpdateInstallmentPayment(ctx context.Context, installmentID string, fn func(p *Payment) error) (Payment, error)
		ListBatchInstallments(ctx context.Context, batchID string) ([]Installment, error)
		// MarkOverdueInstallments flags every pending installment due before today and returns how many changed.
		MarkOverdueInstallments(ctx context.Context, today time.Time) (int, error)
		GetEnrollmentStudentID(ctx context.Context, enrollmentID string) (string, error)

		CreateInstructorPayment(ctx context.Context, ip InstructorPayment) (InstructorPayment, error)
		ListInstructorPayments(ctx context.Context, batchID string) ([]InstructorPayment, error)
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		users    user.Repository
		mailSvc  core.EmailService
		validate *core.Validator
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	users user.Repository,
	mailSvc core.EmailService,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{
		repo:     repo,
		courses:  courses,
		users:    users,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
	}
}

// RecordInstallmentPayment marks an installment paid and updates its payment totals in one atomic step.
func (svc *Service) RecordInstallmentPayment(ctx context.Context, installmentID string, rec Record) (Payment, error) {
	if err := rec.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	if rec.PaidDate.IsZero() {
		rec.PaidDate = core.Today()
	}

	p, err := svc.repo.UpdateInstallmentPayment(ctx, installmentID, func(p *Payment) error {
		return ApplyRecord(p, installmentID, rec)
	})
	if err != nil {
		return Payment{}, err
	}
	svc.logger.Info(fmt.Sprintf("installment %s paid: payment %s is %s (%d/%d)", installmentID, p.ID, p.Status, p.PaidAmount, p.TotalAmount))

	if inst, ok := p.Installment(installmentID); ok {
		svc.sendReceipt(ctx, p, *inst)
	}
	return p, nil
}

type receiptData struct {
	Name              string
	InstallmentNumber int
	Amount            int64
	PaidDate          string
	PaymentMethod     string
	PaidAmount        int64
	TotalAmount       int64
	RemainingAmount   int64
	Status            Status
}

func (svc *Service) sendReceipt(ctx context.Context, p Payment, inst Installment) {
	studentID, err := svc.repo.GetEnrollmentStudentID(ctx, p.EnrollmentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("receipt for payment %s: finding student: %v", p.ID, err), err)
		return
	}
	student, err := svc.users.GetUserByID(ctx, studentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("receipt for payment %s: finding user: %v", p.ID, err), err)
		return
	}
	if student.Email == "" {
		return
	}

	var paidDate string
	if inst.PaidDate != nil {
		paidDate = inst.PaidDate.Format("2006-01-02")
	}
	summary := SummarizeEnrollment(p)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Payment Receipt",
		TemplateName: "payment_receipt",
		TemplateData: receiptData{
			Name:              student.Name,
			InstallmentNumber: inst.Number,
			Amount:            inst.Amount,
			PaidDate:          paidDate,
			PaymentMethod:     inst.PaymentMethod,
			PaidAmount:        summary.PaidAmount,
			TotalAmount:       summary.TotalAmount,
			RemainingAmount:   summary.RemainingAmount,
			Status:            summary.PaymentStatus,
		},
	})
}

func (svc *Service) EnrollmentSummary(ctx context.Context, enrollmentID string) (EnrollmentSummary, error) {
	p, err := svc.repo.GetPaymentByEnrollment(ctx, enrollmentID)
	if err != nil {
		return EnrollmentSummary{}, err
	}
	return SummarizeEnrollment(p), nil
}

func (svc *Service) BatchFinance(ctx context.Context, batchID string) (BatchFinance, error) {
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return BatchFinance{}, err
	}
	insts, err := svc.repo.ListBatchInstallments(ctx, b.ID)
	if err != nil {
		return BatchFinance{}, errors.Wrap(err, "listing batch installments")
	}
	expenses, err := svc.courses.ListBatchExpenses(ctx, b.ID)
	if err != nil {
		return BatchFinance{}, errors.Wrap(err, "listing batch expenses")
	}
	return SummarizeBatchFinance(b.ID, insts, expenses, b.InstructorSalary), nil
}

func (svc *Service) Payouts(ctx context.Context, batchID string) (PayoutSummary, error) {
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return PayoutSummary{}, err
	}
	payments, err := svc.repo.ListInstructorPayments(ctx, b.ID)
	if err != nil {
		return PayoutSummary{}, errors.Wrap(err, "listing instructor payments")
	}
	return SummarizePayouts(b.ID, b.InstructorSalary, payments), nil
}

// RecordPayout stores a payment made to the batch instructor.
// The amount is not capped against the remaining salary.
func (svc *Service) RecordPayout(ctx context.Context, batchID string, np NewInstructorPayment) (InstructorPayment, error) {
	if err := np.Validate(svc.validate); err != nil {
		return InstructorPayment{}, err
	}
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return InstructorPayment{}, err
	}
	if np.PaymentDate.IsZero() {
		np.PaymentDate = core.Today()
	}

	ip, err := svc.repo.CreateInstructorPayment(ctx, InstructorPayment{
		BatchID:       b.ID,
		InstructorID:  b.InstructorID,
		Amount:        np.Amount,
		PaymentDate:   core.TruncateDay(np.PaymentDate),
		PaymentMethod: np.PaymentMethod,
		Notes:         np.Notes,
		CreatedAt:     core.NowFunc().UTC(),
	})
	if err != nil {
		return InstructorPayment{}, err
	}
	svc.logger.Info(fmt.Sprintf("instructor payout %s of %d recorded for batch %s", ip.ID, ip.Amount, b.ID))
	return ip, nil
}

// MarkOverdue flags the pending installments whose due date has passed.
func (svc *Service) MarkOverdue(ctx context.Context) (int, error) {
	n, err := svc.repo.MarkOverdueInstallments(ctx, core.Today())
	if err != nil {
		return 0, err
	}
	svc.logger.Info(fmt.Sprintf("%d installment(s) marked overdue", n))
	return n, nil
}
