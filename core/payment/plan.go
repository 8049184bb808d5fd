package payment

import (
	"time"

	"github.com/llpmm/campus/core"
)

// WaivedMethod is the payment method of installments with nothing left to pay.
const WaivedMethod = "waived"

var (
	// errors
	ErrInvalidBaseAmount  = core.NewValidationError(nil, core.FieldError{Field: "base_amount", Error: "must be greater than 0"})
	ErrNegativeDiscount   = core.NewValidationError(nil, core.FieldError{Field: "discount_amount", Error: "cannot be negative"})
	ErrDiscountExceedsFee = core.NewValidationError(nil, core.FieldError{Field: "discount_amount", Error: "cannot exceed the base amount"})
	ErrInvalidPlanType    = core.NewValidationError(nil, core.FieldError{Field: "plan_type", Error: planTypeText})
)

// PlanRequest holds everything needed to build the payment of a new enrollment.
type PlanRequest struct {
	BaseAmount          int64
	DiscountAmount      int64
	PlanType            PlanType
	MultiCourseDiscount bool
	DiscountNotes       string
	Notes               string
	EnrolledDate        time.Time
	// SecondInstallmentDelay defaults to 28 days.
	SecondInstallmentDelay time.Duration
	// Initial, when set, pays the first installment at enrollment.
	Initial *Record
}

func (r PlanRequest) validate() error {
	switch {
	case r.BaseAmount <= 0:
		return ErrInvalidBaseAmount
	case r.DiscountAmount < 0:
		return ErrNegativeDiscount
	case r.DiscountAmount > r.BaseAmount:
		return ErrDiscountExceedsFee
	}
	switch r.PlanType {
	case PlanFull, PlanInstallment2:
		return nil
	default:
		return ErrInvalidPlanType
	}
}

// GeneratePlan builds an unsaved Payment and its installment schedule.
//
// The full plan has one installment due at enrollment.
// The installment_2 plan splits the total in two: the first, due at enrollment, gets the odd unit;
// the second is due SecondInstallmentDelay after the enrollment date.
// Zero amount installments are settled right away so that the status always reflects the schedule.
func GeneratePlan(req PlanRequest) (Payment, error) {
	if err := req.validate(); err != nil {
		return Payment{}, err
	}
	if req.SecondInstallmentDelay <= 0 {
		req.SecondInstallmentDelay = 28 * 24 * time.Hour
	}
	enrolled := core.TruncateDay(req.EnrolledDate)

	p := Payment{
		BaseAmount:          req.BaseAmount,
		DiscountAmount:      req.DiscountAmount,
		TotalAmount:         req.BaseAmount - req.DiscountAmount,
		PlanType:            req.PlanType,
		MultiCourseDiscount: req.MultiCourseDiscount,
		DiscountNotes:       core.CleanString(req.DiscountNotes),
		Notes:               core.CleanString(req.Notes),
	}

	switch req.PlanType {
	case PlanFull:
		p.Installments = []Installment{
			newInstallment(1, p.TotalAmount, DueImmediately, enrolled),
		}
	case PlanInstallment2:
		first, second := SplitInTwo(p.TotalAmount)
		p.Installments = []Installment{
			newInstallment(1, first, DueImmediately, enrolled),
			newInstallment(2, second, DueAfter4Weeks, enrolled.Add(req.SecondInstallmentDelay)),
		}
	}

	if req.Initial != nil {
		settle(&p.Installments[0], *req.Initial, enrolled)
	}
	for i := range p.Installments {
		if inst := &p.Installments[i]; inst.Amount == 0 && !inst.IsPaid() {
			settle(inst, Record{PaidDate: enrolled, PaymentMethod: WaivedMethod}, enrolled)
		}
	}
	p.Recompute()
	return p, nil
}

// SplitInTwo splits total in two halves that add up to total exactly.
// The first half carries the remainder of odd totals.
func SplitInTwo(total int64) (first, second int64) {
	second = total / 2
	first = total - second
	return first, second
}

func newInstallment(number int, amount int64, dueType DueType, dueDate time.Time) Installment {
	return Installment{
		Number:  number,
		Amount:  amount,
		DueType: dueType,
		DueDate: dueDate,
		Status:  InstallmentPending,
	}
}

func settle(inst *Installment, rec Record, defaultDate time.Time) {
	paidDate := defaultDate
	if !rec.PaidDate.IsZero() {
		paidDate = core.TruncateDay(rec.PaidDate)
	}
	inst.Status = InstallmentPaid
	inst.PaidDate = &paidDate
	inst.PaymentMethod = rec.PaymentMethod
	if rec.Notes != "" {
		inst.Notes = rec.Notes
	}
}

// DeriveStatus classifies a payment from its paid and total amounts.
func DeriveStatus(paid, total int64) Status {
	switch {
	case paid >= total:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Recompute sets PaidAmount to the sum of the paid installments and derives Status from it.
func (p *Payment) Recompute() {
	var paid int64
	for _, inst := range p.Installments {
		if inst.IsPaid() {
			paid += inst.Amount
		}
	}
	p.PaidAmount = paid
	p.Status = DeriveStatus(paid, p.TotalAmount)
}
