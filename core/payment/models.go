package payment

import (
	"time"

	"github.com/llpmm/campus/core"
)

type PlanType string

const (
	PlanFull         PlanType = "full"
	PlanInstallment2 PlanType = "installment_2"
)

type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

type DueType string

const (
	DueImmediately DueType = "immediate"
	DueAfter4Weeks DueType = "after_4_weeks"
)

type Payment struct {
	ID                  string        `json:"id"`
	EnrollmentID        string        `json:"enrollment_id"`
	BaseAmount          int64         `json:"base_amount"`
	DiscountAmount      int64         `json:"discount_amount"`
	TotalAmount         int64         `json:"total_amount"`
	PaidAmount          int64         `json:"paid_amount"`
	PlanType            PlanType      `json:"plan_type"`
	Status              Status        `json:"status"`
	MultiCourseDiscount bool          `json:"multi_course_discount"`
	DiscountNotes       string        `json:"discount_notes"`
	Notes               string        `json:"notes"`
	Installments        []Installment `json:"installments"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Installment returns a pointer to the installment with the given ID.
func (p *Payment) Installment(id string) (*Installment, bool) {
	for i := range p.Installments {
		if p.Installments[i].ID == id {
			return &p.Installments[i], true
		}
	}
	return nil, false
}

type Installment struct {
	ID            string            `json:"id"`
	PaymentID     string            `json:"payment_id"`
	Number        int               `json:"number"`
	Amount        int64             `json:"amount"`
	DueType       DueType           `json:"due_type"`
	DueDate       time.Time         `json:"due_date"`
	PaidDate      *time.Time        `json:"paid_date"`
	Status        InstallmentStatus `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes"`
}

func (i Installment) IsPaid() bool { return i.Status == InstallmentPaid }

// Record describes a payment made against an installment, at enrollment or later.
type Record struct {
	PaidDate      time.Time `json:"paid_date"`
	PaymentMethod string    `json:"payment_method" validate:"required,notblank"`
	Notes         string    `json:"notes"`
}

func (r *Record) Validate(v *core.Validator) error {
	r.PaymentMethod = core.CleanString(r.PaymentMethod)
	r.Notes = core.CleanString(r.Notes)
	return v.Struct(r)
}

type InstructorPayment struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	InstructorID  string    `json:"instructor_id"`
	Amount        int64     `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

type NewInstructorPayment struct {
	Amount        int64     `json:"amount" validate:"gt=0"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method" validate:"required,notblank"`
	Notes         string    `json:"notes"`
}

func (np *NewInstructorPayment) Validate(v *core.Validator) error {
	np.PaymentMethod = core.CleanString(np.PaymentMethod)
	np.Notes = core.CleanString(np.Notes)
	return v.Struct(np)
}
