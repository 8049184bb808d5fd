package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
)

const (
	assignmentColumns = "id, batch_id, instructor_id, title, description, due_date, max_score, created_at"
	submissionColumns = "id, assignment_id, student_id, content, score, status, submitted_at, graded_at"
)

type assignmentRow struct {
	ID           string    `db:"id"`
	BatchID      string    `db:"batch_id"`
	InstructorID string    `db:"instructor_id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	DueDate      time.Time `db:"due_date"`
	MaxScore     int       `db:"max_score"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:           r.ID,
		BatchID:      r.BatchID,
		InstructorID: r.InstructorID,
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate.UTC(),
		MaxScore:     r.MaxScore,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type submissionRow struct {
	ID           string    `db:"id"`
	AssignmentID string    `db:"assignment_id"`
	StudentID    string    `db:"student_id"`
	Content      string    `db:"content"`
	Score        null.Int  `db:"score"`
	Status       string    `db:"status"`
	SubmittedAt  time.Time `db:"submitted_at"`
	GradedAt     null.Time `db:"graded_at"`
}

func (r submissionRow) toSubmission() assignment.Submission {
	s := assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Content:      r.Content,
		Score:        r.Score.Ptr(),
		Status:       assignment.SubmissionStatus(r.Status),
		SubmittedAt:  r.SubmittedAt.UTC(),
	}
	if r.GradedAt.Valid {
		graded := r.GradedAt.Time.UTC()
		s.GradedAt = &graded
	}
	return s
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	row := assignmentRow{
		ID:           a.ID,
		BatchID:      a.BatchID,
		InstructorID: a.InstructorID,
		Title:        a.Title,
		Description:  a.Description,
		DueDate:      a.DueDate,
		MaxScore:     a.MaxScore,
		CreatedAt:    a.CreatedAt,
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (:id, :batch_id, :instructor_id, :title, :description, :due_date, :max_score, :created_at)`, row)
	if err != nil {
		return assignment.Assignment{}, trapErr(err, "inserting assignment", nil)
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	return getAssignment(ctx, repo.db, id)
}

func getAssignment(ctx context.Context, exec core.DBExecutor, id string) (assignment.Assignment, error) {
	var row assignmentRow
	if err := exec.GetContext(ctx, &row, "SELECT "+assignmentColumns+" FROM assignments WHERE id = $1", id); err != nil {
		return assignment.Assignment{}, trapErr(err, "selecting assignment", assignment.ErrNotFound)
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) SaveSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	// graded submissions are left untouched: no row comes back
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO assignment_submissions (id, assignment_id, student_id, content, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
		SET content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at
		WHERE assignment_submissions.status = $5
		RETURNING `+submissionColumns,
		uuid.New().String(), s.AssignmentID, s.StudentID, s.Content, string(assignment.SubmissionPending), s.SubmittedAt)
	if err != nil {
		return assignment.Submission{}, trapErr(err, "saving submission", assignment.ErrAlreadyGraded)
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, id string, fn func(s *assignment.Submission, a assignment.Assignment) error) (assignment.Submission, error) {
	var updated assignment.Submission
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var row submissionRow
		err := tx.GetContext(ctx, &row, "SELECT "+submissionColumns+" FROM assignment_submissions WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			return trapErr(err, "selecting submission", assignment.ErrSubmissionNotFound)
		}
		a, err := getAssignment(ctx, tx, row.AssignmentID)
		if err != nil {
			return err
		}

		s := row.toSubmission()
		if err = fn(&s, a); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE assignment_submissions SET content = $2, score = $3, status = $4, graded_at = $5
			WHERE id = $1`, s.ID, s.Content, null.IntFromPtr(s.Score), string(s.Status), null.TimeFromPtr(s.GradedAt))
		if err != nil {
			return trapErr(err, "updating submission", nil)
		}
		updated = s
		return nil
	})
	return updated, err
}

func (repo *assignmentRepository) ListBatchAssignmentIDs(ctx context.Context, batchID string) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &ids, "SELECT id FROM assignments WHERE batch_id = $1", batchID); err != nil {
		return nil, trapErr(err, "selecting batch assignments", nil)
	}
	return ids, nil
}

func (repo *assignmentRepository) ListStudentSubmittedAssignmentIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0)
	err := repo.db.SelectContext(ctx, &ids, `
		SELECT assignment_id FROM assignment_submissions
		WHERE student_id = $1 AND status IN ($2, $3)`,
		studentID, string(assignment.SubmissionPending), string(assignment.SubmissionGraded))
	if err != nil {
		return nil, trapErr(err, "selecting student submissions", nil)
	}
	return ids, nil
}
