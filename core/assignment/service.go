package assignment

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("assignment")
	ErrSubmissionNotFound = core.NewNotFoundError("submission")
	ErrAlreadyGraded      = core.NewConflictError("the submission is already graded")
	ErrNotEnrolled        = core.NewValidationMessage("the student is not enrolled in the batch of this assignment")
	ErrScoreOutOfRange    = core.NewValidationError(nil, core.FieldError{Field: "score", Error: "must be between 0 and the assignment max score"})
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		// SaveSubmission creates the student submission, or replaces its content when not graded yet.
		// It fails with ErrAlreadyGraded otherwise.
		SaveSubmission(ctx context.Context, s Submission) (Submission, error)
		// UpdateSubmission holds the submission exclusively while fn runs, then saves it.
		UpdateSubmission(ctx context.Context, id string, fn func(s *Submission, a Assignment) error) (Submission, error)
		ListBatchAssignmentIDs(ctx context.Context, batchID string) ([]string, error)
		ListStudentSubmittedAssignmentIDs(ctx context.Context, studentID string) ([]string, error)
	}

	Service struct {
		repo        Repository
		courses     course.Repository
		enrollments enrollment.Repository
		validate    *core.Validator
		logger      core.Logger
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	enrollments enrollment.Repository,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(courses, "courses"),
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		validate:    validate,
		logger:      logger,
	}
}

// Create adds an assignment to the batch, owned by the batch instructor.
func (svc *Service) Create(ctx context.Context, batchID string, na NewAssignment) (Assignment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	b, err := svc.courses.GetBatchByID(ctx, batchID)
	if err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		BatchID:      b.ID,
		InstructorID: b.InstructorID,
		Title:        na.Title,
		Description:  na.Description,
		DueDate:      na.DueDate.UTC(),
		MaxScore:     na.MaxScore,
		CreatedAt:    core.NowFunc().UTC(),
	})
	if err != nil {
		return Assignment{}, err
	}
	svc.logger.Info(fmt.Sprintf("assignment %s created for batch %s", a.ID, b.ID))
	return a, nil
}

// Submit saves the work of a student; it can be re-submitted until graded.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error) {
	ns.Content = core.CleanString(ns.Content)
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	e, err := svc.enrollments.GetStudentEnrollment(ctx, studentID, a.BatchID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrNotEnrolled
		}
		return Submission{}, errors.Wrap(err, "finding enrollment")
	}
	if e.Status == enrollment.StatusDropped {
		return Submission{}, ErrNotEnrolled
	}

	return svc.repo.SaveSubmission(ctx, Submission{
		AssignmentID: a.ID,
		StudentID:    studentID,
		Content:      ns.Content,
		Status:       SubmissionPending,
		SubmittedAt:  core.NowFunc().UTC(),
	})
}

// GradeSubmission scores a submission within [0, max_score] and marks it graded.
// Grading again replaces the score.
func (svc *Service) GradeSubmission(ctx context.Context, submissionID string, g Grade) (Submission, error) {
	if err := svc.validate.Struct(g); err != nil {
		return Submission{}, err
	}
	s, err := svc.repo.UpdateSubmission(ctx, submissionID, func(s *Submission, a Assignment) error {
		if g.Score < 0 || g.Score > a.MaxScore {
			return ErrScoreOutOfRange
		}
		now := core.NowFunc().UTC()
		score := g.Score
		s.Score = &score
		s.Status = SubmissionGraded
		s.GradedAt = &now
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	svc.logger.Info(fmt.Sprintf("submission %s graded %d", s.ID, *s.Score))
	return s, nil
}
