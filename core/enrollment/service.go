package enrollment

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment")
	ErrAlreadyEnrolled = core.NewConflictError("the student is already enrolled in this batch")
	ErrSeatTaken       = core.NewConflictError("the last seat of the batch was just taken")
	ErrBatchFull       = core.NewValidationMessage("the batch is full")
	ErrBatchCompleted  = core.NewValidationMessage("the batch is completed")
	ErrNotAStudent     = core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
)

type (
	Repository interface {
		// CreateEnrollment saves the enrollment along with its payment and installments in one transaction.
		// The batch is held exclusively while its active enrollments are counted: it fails with ErrSeatTaken
		// when no seat is left, and with ErrAlreadyEnrolled when the student already holds an enrollment in the batch.
		CreateEnrollment(ctx context.Context, e Enrollment, p payment.Payment) (Enrollment, payment.Payment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		GetStudentEnrollment(ctx context.Context, studentID, batchID string) (Enrollment, error)
		ListBatchEnrollments(ctx context.Context, batchID string) ([]Enrollment, error)
		CountActiveEnrollments(ctx context.Context, batchID string) (int, error)
		// UpdateCertificate holds the enrollment exclusively while fn runs and saves its certificate fields
		// when fn reports a change.
		UpdateCertificate(ctx context.Context, id string, fn func(e *Enrollment) (bool, error)) (Enrollment, bool, error)
		// DeleteEnrollment removes the enrollment with its payment and installments.
		DeleteEnrollment(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		users    user.Repository
		conf     *core.Config
		validate *core.Validator
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	users user.Repository,
	conf *core.Config,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{
		repo:     repo,
		courses:  courses,
		users:    users,
		conf:     conf,
		validate: validate,
		logger:   logger,
	}
}

// Enroll creates the enrollment of a student into a batch, with the payment plan built from the course fee.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, payment.Payment, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Enrollment{}, payment.Payment{}, err
	}

	student, err := svc.users.GetUserByID(ctx, ne.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, payment.Payment{}, ErrNotAStudent
		}
		return Enrollment{}, payment.Payment{}, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() {
		return Enrollment{}, payment.Payment{}, ErrNotAStudent
	}

	b, err := svc.courses.GetBatchByID(ctx, ne.BatchID)
	if err != nil {
		return Enrollment{}, payment.Payment{}, err
	}
	if b.Status == course.BatchCompleted {
		return Enrollment{}, payment.Payment{}, ErrBatchCompleted
	}
	crs, err := svc.courses.GetCourseByID(ctx, b.CourseID)
	if err != nil {
		return Enrollment{}, payment.Payment{}, errors.Wrap(err, "finding batch course")
	}

	// early rejection; the repository re-checks while holding the batch
	count, err := svc.repo.CountActiveEnrollments(ctx, b.ID)
	if err != nil {
		return Enrollment{}, payment.Payment{}, errors.Wrap(err, "counting active enrollments")
	}
	if count >= b.MaxStudents {
		return Enrollment{}, payment.Payment{}, ErrBatchFull
	}

	enrolled := ne.EnrolledDate
	if enrolled.IsZero() {
		enrolled = core.Today()
	}
	p, err := payment.GeneratePlan(payment.PlanRequest{
		BaseAmount:             crs.Fee,
		DiscountAmount:         ne.DiscountAmount,
		PlanType:               ne.PlanType,
		MultiCourseDiscount:    ne.MultiCourseDiscount,
		DiscountNotes:          ne.DiscountNotes,
		Notes:                  ne.Notes,
		EnrolledDate:           enrolled,
		SecondInstallmentDelay: svc.conf.Payment.SecondInstallmentDelay,
		Initial:                ne.InitialPayment,
	})
	if err != nil {
		return Enrollment{}, payment.Payment{}, err
	}

	now := core.NowFunc().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	e, p, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:    student.ID,
		BatchID:      b.ID,
		EnrolledDate: core.TruncateDay(enrolled),
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, p)
	if err != nil {
		return Enrollment{}, payment.Payment{}, err
	}
	svc.logger.Info(fmt.Sprintf("student %s enrolled in batch %s (%s plan, total %d, %s)", e.StudentID, e.BatchID, p.PlanType, p.TotalAmount, p.Status))
	return e, p, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

// Remove deletes the enrollment, its payment and installments.
func (svc *Service) Remove(ctx context.Context, id string) error {
	if err := svc.repo.DeleteEnrollment(ctx, id); err != nil {
		return err
	}
	svc.logger.Info(fmt.Sprintf("enrollment %s removed", id))
	return nil
}
