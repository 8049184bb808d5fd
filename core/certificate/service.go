package certificate

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/user"
)

type (
	// Result is the outcome of an evaluation written back to the enrollment.
	Result struct {
		Metrics    Metrics               `json:"metrics"`
		Enrollment enrollment.Enrollment `json:"enrollment"`
		Changed    bool                  `json:"changed"`
	}

	// Upload records a certificate file stored by the file storage service.
	Upload struct {
		URL string `json:"certificate_url" validate:"required,url"`
	}

	Service struct {
		enrollments enrollment.Repository
		courses     course.Repository
		attendance  attendance.Repository
		assignments assignment.Repository
		users       user.Repository
		mailSvc     core.EmailService
		thresholds  Thresholds
		validate    *core.Validator
		logger      core.Logger
	}
)

func NewService(
	enrollments enrollment.Repository,
	courses course.Repository,
	attendanceRepo attendance.Repository,
	assignments assignment.Repository,
	users user.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(attendanceRepo, "attendanceRepo"),
		vala.IsNotNil(assignments, "assignments"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{
		enrollments: enrollments,
		courses:     courses,
		attendance:  attendanceRepo,
		assignments: assignments,
		users:       users,
		mailSvc:     mailSvc,
		thresholds: Thresholds{
			MinAttendanceRate: conf.Certificate.MinAttendanceRate,
			MinAssignmentRate: conf.Certificate.MinAssignmentRate,
		},
		validate: validate,
		logger:   logger,
	}
}

// Metrics computes the certificate metrics of an enrollment without writing anything.
func (svc *Service) Metrics(ctx context.Context, enrollmentID string) (Metrics, error) {
	e, err := svc.enrollments.GetEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return Metrics{}, err
	}
	return svc.metrics(ctx, e)
}

func (svc *Service) metrics(ctx context.Context, e enrollment.Enrollment) (Metrics, error) {
	b, err := svc.courses.GetBatchByID(ctx, e.BatchID)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "finding batch")
	}
	in := Input{Batch: b, Today: core.Today()}
	if in.BatchCodeIDs, err = svc.attendance.ListBatchCodeIDs(ctx, b.ID); err != nil {
		return Metrics{}, errors.Wrap(err, "listing batch attendance codes")
	}
	if in.StudentCodeIDs, err = svc.attendance.ListStudentCodeIDs(ctx, e.StudentID); err != nil {
		return Metrics{}, errors.Wrap(err, "listing student attendance")
	}
	if in.BatchAssignmentIDs, err = svc.assignments.ListBatchAssignmentIDs(ctx, b.ID); err != nil {
		return Metrics{}, errors.Wrap(err, "listing batch assignments")
	}
	if in.StudentAssignmentIDs, err = svc.assignments.ListStudentSubmittedAssignmentIDs(ctx, e.StudentID); err != nil {
		return Metrics{}, errors.Wrap(err, "listing student submissions")
	}

	m := Evaluate(in, svc.thresholds)
	m.EnrollmentID = e.ID
	return m, nil
}

// Evaluate recomputes the metrics of an enrollment and writes its certificate flag back.
// Uploaded certificates are kept as they are.
func (svc *Service) Evaluate(ctx context.Context, enrollmentID string) (Result, error) {
	e, err := svc.enrollments.GetEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return Result{}, err
	}
	return svc.evaluate(ctx, e)
}

func (svc *Service) evaluate(ctx context.Context, e enrollment.Enrollment) (Result, error) {
	m, err := svc.metrics(ctx, e)
	if err != nil {
		return Result{}, err
	}

	var wasCertified bool
	updated, changed, err := svc.enrollments.UpdateCertificate(ctx, e.ID, func(e *enrollment.Enrollment) (bool, error) {
		wasCertified = e.Certificate
		return Sync(e, m.IsEligible, core.NowFunc().UTC()), nil
	})
	if err != nil {
		return Result{}, err
	}

	if changed {
		svc.logger.Info(fmt.Sprintf("enrollment %s certificate set to %t (attendance %.2f%%, assignments %.2f%%)",
			updated.ID, updated.Certificate, m.AttendanceRate, m.AssignmentRate))
		if updated.Certificate && !wasCertified {
			svc.notifyAvailable(ctx, updated)
		}
	}
	return Result{Metrics: m, Enrollment: updated, Changed: changed}, nil
}

// EvaluateBatch evaluates every enrollment of the batch.
func (svc *Service) EvaluateBatch(ctx context.Context, batchID string) ([]Result, error) {
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	enrollments, err := svc.enrollments.ListBatchEnrollments(ctx, b.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing batch enrollments")
	}

	results := make([]Result, 0, len(enrollments))
	for _, e := range enrollments {
		res, err := svc.evaluate(ctx, e)
		if err != nil {
			return results, errors.Wrapf(err, "evaluating enrollment %s", e.ID)
		}
		results = append(results, res)
	}
	return results, nil
}

// RecordUpload flags the enrollment as holding the uploaded certificate file.
func (svc *Service) RecordUpload(ctx context.Context, enrollmentID string, up Upload) (enrollment.Enrollment, error) {
	up.URL = core.CleanString(up.URL)
	if err := svc.validate.Struct(up); err != nil {
		return enrollment.Enrollment{}, err
	}

	var wasCertified bool
	e, _, err := svc.enrollments.UpdateCertificate(ctx, enrollmentID, func(e *enrollment.Enrollment) (bool, error) {
		wasCertified = e.Certificate
		RecordUpload(e, up.URL, core.NowFunc().UTC())
		return true, nil
	})
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	svc.logger.Info(fmt.Sprintf("enrollment %s certificate uploaded", e.ID))
	if !wasCertified {
		svc.notifyAvailable(ctx, e)
	}
	return e, nil
}

func (svc *Service) notifyAvailable(ctx context.Context, e enrollment.Enrollment) {
	student, err := svc.users.GetUserByID(ctx, e.StudentID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("certificate notification for enrollment %s: %v", e.ID, err), err)
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Your Certificate is Available",
		TemplateName: "certificate_available",
		TemplateData: map[string]interface{}{
			"Name":         student.Name,
			"EnrollmentID": e.ID,
			"URL":          e.CertificateURL,
		},
	})
}
