package attendance

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
)

const maxCodeAttempts = 5

var (
	// errors
	ErrCodeNotFound     = core.NewNotFoundError("attendance code")
	ErrCodeExists       = core.NewConflictError("attendance code already exists")
	ErrCodeExpired      = core.NewValidationError(nil, core.FieldError{Field: "code", Error: "this attendance code is no longer accepted"})
	ErrNotEnrolled      = core.NewValidationMessage("the student is not enrolled in the batch of this code")
	ErrAlreadySubmitted = core.NewConflictError("attendance already submitted for this code")
)

var randCodeFunc = randomCode // mockable

type (
	Repository interface {
		// CreateCode saves the code and deactivates the previous codes of its batch.
		// It fails with ErrCodeExists when the code value is already taken.
		CreateCode(ctx context.Context, c Code) (Code, error)
		GetCodeByValue(ctx context.Context, code string) (Code, error)
		// CreateSubmission fails with ErrAlreadySubmitted when the student already submitted the code.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		ListBatchCodeIDs(ctx context.Context, batchID string) ([]string, error)
		ListStudentCodeIDs(ctx context.Context, studentID string) ([]string, error)
	}

	Service struct {
		repo        Repository
		courses     course.Repository
		enrollments enrollment.Repository
		conf        *core.Config
		validate    *core.Validator
		logger      core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	enrollments enrollment.Repository,
	conf *core.Config,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		conf:        conf,
		validate:    validate,
		logger:      logger,
	}
}

// GenerateCode issues a new attendance code for the batch, valid for the configured window.
func (svc *Service) GenerateCode(ctx context.Context, batchID, createdBy string) (Code, error) {
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return Code{}, err
	}

	now := core.NowFunc().UTC()
	for attempt := 1; ; attempt++ {
		value, err := randCodeFunc()
		if err != nil {
			return Code{}, errors.Wrap(err, "generating code")
		}
		c, err := svc.repo.CreateCode(ctx, Code{
			BatchID:     b.ID,
			Code:        value,
			GeneratedAt: now,
			ValidUntil:  now.Add(svc.conf.Attendance.CodeValidity),
			IsActive:    true,
			CreatedBy:   createdBy,
		})
		if err == nil {
			svc.logger.Info(fmt.Sprintf("attendance code %s generated for batch %s", c.ID, b.ID))
			return c, nil
		}
		if errors.Cause(err) != ErrCodeExists || attempt == maxCodeAttempts {
			return Code{}, err
		}
	}
}

// Submit records the attendance of a student with the code shared during a session.
func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Submission{}, err
	}
	c, err := svc.repo.GetCodeByValue(ctx, ns.Code)
	if err != nil {
		return Submission{}, err
	}
	now := core.NowFunc().UTC()
	if !c.Accepts(now) {
		return Submission{}, ErrCodeExpired
	}

	e, err := svc.enrollments.GetStudentEnrollment(ctx, studentID, c.BatchID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrNotEnrolled
		}
		return Submission{}, errors.Wrap(err, "finding enrollment")
	}
	if e.Status == enrollment.StatusDropped {
		return Submission{}, ErrNotEnrolled
	}

	return svc.repo.CreateSubmission(ctx, Submission{
		CodeID:      c.ID,
		StudentID:   studentID,
		SubmittedAt: now,
	})
}

func randomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
