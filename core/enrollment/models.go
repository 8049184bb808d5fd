package enrollment

import (
	"time"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/payment"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
)

type CertificateSource string

const (
	CertificateUploaded  CertificateSource = "uploaded"
	CertificateGenerated CertificateSource = "generated"
)

type Enrollment struct {
	ID                  string            `json:"id"`
	StudentID           string            `json:"student_id"`
	BatchID             string            `json:"batch_id"`
	EnrolledDate        time.Time         `json:"enrolled_date"`
	Status              Status            `json:"status"`
	Certificate         bool              `json:"certificate"`
	CertificateURL      string            `json:"certificate_url,omitempty"`
	CertificateSource   CertificateSource `json:"certificate_source,omitempty"`
	CertificateIssuedAt *time.Time        `json:"certificate_issued_at"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NewEnrollment contains information needed to enroll a student into a batch.
type NewEnrollment struct {
	StudentID           string           `json:"student_id" validate:"required"`
	BatchID             string           `json:"batch_id" validate:"required"`
	PlanType            payment.PlanType `json:"plan_type" validate:"required,plantype"`
	DiscountAmount      int64            `json:"discount_amount" validate:"gte=0"`
	MultiCourseDiscount bool             `json:"multi_course_discount"`
	DiscountNotes       string           `json:"discount_notes"`
	Notes               string           `json:"notes"`
	EnrolledDate        time.Time        `json:"enrolled_date"` // defaults to today
	// InitialPayment pays the first installment at enrollment.
	InitialPayment *payment.Record `json:"initial_payment"`
}

func (ne *NewEnrollment) Validate(v *core.Validator) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.BatchID = core.CleanString(ne.BatchID)
	if ne.InitialPayment != nil {
		ne.InitialPayment.PaymentMethod = core.CleanString(ne.InitialPayment.PaymentMethod)
		ne.InitialPayment.Notes = core.CleanString(ne.InitialPayment.Notes)
	}
	return v.Struct(ne)
}
