package payment

import (
	"time"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
)

var (
	// errors
	ErrPaymentNotFound        = core.NewNotFoundError("payment")
	ErrInstallmentNotFound    = core.NewNotFoundError("installment")
	ErrInstallmentAlreadyPaid = core.NewConflictError("installment is already paid")
)

type PayoutStatus string

const (
	PayoutPending       PayoutStatus = "Pending"
	PayoutPartiallyPaid PayoutStatus = "Partially Paid"
	PayoutPaid          PayoutStatus = "Paid"
)

type (
	EnrollmentSummary struct {
		EnrollmentID    string        `json:"enrollment_id"`
		PaidAmount      int64         `json:"paid_amount"`
		TotalAmount     int64         `json:"total_amount"`
		RemainingAmount int64         `json:"remaining_amount"`
		PaymentStatus   Status        `json:"payment_status"`
		PlanType        PlanType      `json:"plan_type"`
		Installments    []Installment `json:"installments"`
	}

	BatchFinance struct {
		BatchID          string `json:"batch_id"`
		Income           int64  `json:"income"`
		Expenses         int64  `json:"expenses"`
		InstructorSalary int64  `json:"instructor_salary"`
		Net              int64  `json:"net"`
	}

	PayoutSummary struct {
		BatchID   string              `json:"batch_id"`
		Salary    int64               `json:"salary"`
		TotalPaid int64               `json:"total_paid"`
		Remaining int64               `json:"remaining"`
		Overpaid  int64               `json:"overpaid"`
		Status    PayoutStatus        `json:"status"`
		Payments  []InstructorPayment `json:"payments"`
	}
)

// SummarizeEnrollment reads the stored payment of an enrollment.
// The status is paid only when stored as such; any money received otherwise makes it partial.
func SummarizeEnrollment(p Payment) EnrollmentSummary {
	status := StatusUnpaid
	switch {
	case p.Status == StatusPaid:
		status = StatusPaid
	case p.Status == StatusPartial || p.PaidAmount > 0:
		status = StatusPartial
	}
	return EnrollmentSummary{
		EnrollmentID:    p.EnrollmentID,
		PaidAmount:      p.PaidAmount,
		TotalAmount:     p.TotalAmount,
		RemainingAmount: max64(0, p.TotalAmount-p.PaidAmount),
		PaymentStatus:   status,
		PlanType:        p.PlanType,
		Installments:    p.Installments,
	}
}

// SummarizeBatchFinance computes income (paid installments) minus expenses and the instructor salary.
// A batch without salary counts it as 0.
func SummarizeBatchFinance(batchID string, installments []Installment, expenses []course.Expense, salary *int64) BatchFinance {
	bf := BatchFinance{BatchID: batchID}
	for _, inst := range installments {
		if inst.IsPaid() {
			bf.Income += inst.Amount
		}
	}
	for _, exp := range expenses {
		bf.Expenses += exp.Amount
	}
	if salary != nil {
		bf.InstructorSalary = *salary
	}
	bf.Net = bf.Income - bf.Expenses - bf.InstructorSalary
	return bf
}

// SummarizePayouts aggregates what the instructor of a batch received against the batch salary.
// Payouts are not capped: anything above the salary is reported as Overpaid.
func SummarizePayouts(batchID string, salary *int64, payments []InstructorPayment) PayoutSummary {
	ps := PayoutSummary{BatchID: batchID, Payments: payments}
	if ps.Payments == nil {
		ps.Payments = []InstructorPayment{}
	}
	if salary != nil {
		ps.Salary = *salary
	}
	for _, ip := range payments {
		ps.TotalPaid += ip.Amount
	}
	ps.Remaining = max64(0, ps.Salary-ps.TotalPaid)
	ps.Overpaid = max64(0, ps.TotalPaid-ps.Salary)

	switch {
	case ps.Salary > 0 && ps.TotalPaid >= ps.Salary:
		ps.Status = PayoutPaid
	case ps.TotalPaid > 0 && ps.TotalPaid < ps.Salary:
		ps.Status = PayoutPartiallyPaid
	default:
		ps.Status = PayoutPending
	}
	return ps
}

// ApplyRecord marks the installment paid and recomputes the payment totals.
// A paid installment is terminal: paying it again fails with ErrInstallmentAlreadyPaid.
func ApplyRecord(p *Payment, installmentID string, rec Record) error {
	inst, ok := p.Installment(installmentID)
	if !ok {
		return ErrInstallmentNotFound
	}
	if inst.IsPaid() {
		return ErrInstallmentAlreadyPaid
	}
	settle(inst, rec, core.Today())
	p.Recompute()
	return nil
}

// MarkOverdue flags a pending installment whose due date is before today.
// It returns whether the installment changed.
func MarkOverdue(inst *Installment, today time.Time) bool {
	if inst.Status != InstallmentPending {
		return false
	}
	if !core.TruncateDay(inst.DueDate).Before(core.TruncateDay(today)) {
		return false
	}
	inst.Status = InstallmentOverdue
	return true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
