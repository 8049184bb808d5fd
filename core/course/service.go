package course

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/user"
)

var (
	// errors
	ErrCourseNotFound          = core.NewNotFoundError("course")
	ErrBatchNotFound           = core.NewNotFoundError("batch")
	ErrSlugExists              = core.NewConflictError("a course with this slug already exists")
	ErrCourseInactive          = core.NewValidationMessage("course is not active")
	ErrNotAnInstructor         = core.NewValidationError(nil, core.FieldError{Field: "instructor_id", Error: "user is not an instructor"})
	ErrSalaryNotApplicable     = core.NewValidationError(nil, core.FieldError{Field: "instructor_salary", Error: "only fixed salary instructors have a batch salary"})
	ErrEndBeforeStart          = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must not be before the start date"})
	ErrCapacityBelowEnrollment = core.NewValidationError(nil, core.FieldError{Field: "max_students", Error: "cannot be lower than the current number of active enrollments"})
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		GetBatchByID(ctx context.Context, id string) (Batch, error)
		// UpdateBatchCapacity locks the batch while comparing maxStudents with its active enrollment count.
		// It fails with ErrCapacityBelowEnrollment when maxStudents is lower.
		UpdateBatchCapacity(ctx context.Context, id string, maxStudents int) (Batch, error)
		CreateExpense(ctx context.Context, e Expense) (Expense, error)
		ListBatchExpenses(ctx context.Context, batchID string) ([]Expense, error)
	}

	Service struct {
		repo     Repository
		users    user.Repository
		validate *core.Validator
		logger   core.Logger
	}
)

func NewService(repo Repository, users user.Repository, validate *core.Validator, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{repo: repo, users: users, validate: validate, logger: logger}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	now := core.NowFunc().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:            nc.Title,
		Slug:             nc.Slug,
		Fee:              nc.Fee,
		Duration:         nc.Duration,
		Category:         nc.Category,
		Level:            nc.Level,
		Prerequisites:    nc.Prerequisites,
		LearningOutcomes: nc.LearningOutcomes,
		Outline:          nc.Outline,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) CreateBatch(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := nb.Validate(svc.validate); err != nil {
		return Batch{}, err
	}
	if nb.EndDate != nil && nb.EndDate.Before(nb.StartDate) {
		return Batch{}, ErrEndBeforeStart
	}

	crs, err := svc.repo.GetCourseByID(ctx, nb.CourseID)
	if err != nil {
		return Batch{}, errors.Wrap(err, "finding course")
	}
	if !crs.IsActive {
		return Batch{}, ErrCourseInactive
	}
	instructor, err := svc.users.GetUserByID(ctx, nb.InstructorID)
	if err != nil {
		if core.IsNotFound(err) {
			return Batch{}, ErrNotAnInstructor
		}
		return Batch{}, errors.Wrap(err, "finding instructor")
	}
	if !instructor.IsInstructor() {
		return Batch{}, ErrNotAnInstructor
	}
	if nb.InstructorSalary != nil && !instructor.HasFixedSalary() {
		return Batch{}, ErrSalaryNotApplicable
	}

	today := core.Today()
	status := BatchUpcoming
	if !nb.StartDate.After(today) {
		status = BatchOngoing
	}

	now := core.NowFunc().UTC()
	b, err := svc.repo.CreateBatch(ctx, Batch{
		CourseID:         crs.ID,
		InstructorID:     instructor.ID,
		StartDate:        core.TruncateDay(nb.StartDate),
		EndDate:          truncateDayPtr(nb.EndDate),
		MaxStudents:      nb.MaxStudents,
		Status:           status,
		Schedule:         nb.Schedule,
		MeetingLink:      nb.MeetingLink,
		MeetingPassword:  nb.MeetingPassword,
		ChatGroupID:      nb.ChatGroupID,
		InstructorSalary: nb.InstructorSalary,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return Batch{}, err
	}
	svc.logger.Info(fmt.Sprintf("batch %s created for course %q", b.ID, crs.Slug))
	return b, nil
}

func (svc *Service) GetBatch(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatchByID(ctx, id)
}

// UpdateCapacity changes the batch max_students.
// It may not go below the number of active enrollments of the batch.
func (svc *Service) UpdateCapacity(ctx context.Context, batchID string, uc UpdateCapacity) (Batch, error) {
	if err := svc.validate.Struct(uc); err != nil {
		return Batch{}, err
	}
	b, err := svc.repo.UpdateBatchCapacity(ctx, batchID, uc.MaxStudents)
	if err != nil {
		return Batch{}, err
	}
	svc.logger.Info(fmt.Sprintf("batch %s capacity set to %d", b.ID, b.MaxStudents))
	return b, nil
}

func (svc *Service) AddExpense(ctx context.Context, batchID string, ne NewExpense, createdBy string) (Expense, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Expense{}, err
	}
	if _, err := svc.repo.GetBatchByID(ctx, batchID); err != nil {
		return Expense{}, errors.Wrap(err, "finding batch")
	}
	if ne.ExpenseDate.IsZero() {
		ne.ExpenseDate = core.Today()
	}
	return svc.repo.CreateExpense(ctx, Expense{
		BatchID:     batchID,
		Title:       ne.Title,
		Amount:      ne.Amount,
		ExpenseDate: core.TruncateDay(ne.ExpenseDate),
		Notes:       ne.Notes,
		CreatedBy:   createdBy,
		CreatedAt:   core.NowFunc().UTC(),
	})
}

func (svc *Service) ListExpenses(ctx context.Context, batchID string) ([]Expense, error) {
	return svc.repo.ListBatchExpenses(ctx, batchID)
}

func truncateDayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := core.TruncateDay(*t)
	return &d
}
