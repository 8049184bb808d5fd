package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/llpmm/campus/core/attendance"
)

const (
	attendanceCodeColumns       = "id, batch_id, code, generated_at, valid_until, is_active, created_by"
	attendanceSubmissionColumns = "id, attendance_code_id, student_id, submitted_at"
)

type attendanceCodeRow struct {
	ID          string      `db:"id"`
	BatchID     string      `db:"batch_id"`
	Code        string      `db:"code"`
	GeneratedAt time.Time   `db:"generated_at"`
	ValidUntil  time.Time   `db:"valid_until"`
	IsActive    bool        `db:"is_active"`
	CreatedBy   null.String `db:"created_by"`
}

func (r attendanceCodeRow) toCode() attendance.Code {
	return attendance.Code{
		ID:          r.ID,
		BatchID:     r.BatchID,
		Code:        r.Code,
		GeneratedAt: r.GeneratedAt.UTC(),
		ValidUntil:  r.ValidUntil.UTC(),
		IsActive:    r.IsActive,
		CreatedBy:   r.CreatedBy.String,
	}
}

type attendanceSubmissionRow struct {
	ID          string    `db:"id"`
	CodeID      string    `db:"attendance_code_id"`
	StudentID   string    `db:"student_id"`
	SubmittedAt time.Time `db:"submitted_at"`
}

var attendanceConflicts = map[string]error{
	"attendance_codes_code_key":               attendance.ErrCodeExists,
	"attendance_submissions_code_student_key": attendance.ErrAlreadySubmitted,
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateCode(ctx context.Context, c attendance.Code) (attendance.Code, error) {
	c.ID = uuid.New().String()
	row := attendanceCodeRow{
		ID:          c.ID,
		BatchID:     c.BatchID,
		Code:        c.Code,
		GeneratedAt: c.GeneratedAt,
		ValidUntil:  c.ValidUntil,
		IsActive:    c.IsActive,
		CreatedBy:   nullString(c.CreatedBy),
	}
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE attendance_codes SET is_active = FALSE WHERE batch_id = $1 AND is_active", c.BatchID)
		if err != nil {
			return trapErr(err, "deactivating attendance codes", nil)
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO attendance_codes (`+attendanceCodeColumns+`)
			VALUES (:id, :batch_id, :code, :generated_at, :valid_until, :is_active, :created_by)`, row)
		return trapErr(err, "inserting attendance code", nil, attendanceConflicts)
	})
	if err != nil {
		return attendance.Code{}, err
	}
	return row.toCode(), nil
}

func (repo *attendanceRepository) GetCodeByValue(ctx context.Context, code string) (attendance.Code, error) {
	var row attendanceCodeRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+attendanceCodeColumns+" FROM attendance_codes WHERE code = $1", code)
	if err != nil {
		return attendance.Code{}, trapErr(err, "selecting attendance code", attendance.ErrCodeNotFound)
	}
	return row.toCode(), nil
}

func (repo *attendanceRepository) CreateSubmission(ctx context.Context, s attendance.Submission) (attendance.Submission, error) {
	s.ID = uuid.New().String()
	row := attendanceSubmissionRow{ID: s.ID, CodeID: s.CodeID, StudentID: s.StudentID, SubmittedAt: s.SubmittedAt}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO attendance_submissions (`+attendanceSubmissionColumns+`)
		VALUES (:id, :attendance_code_id, :student_id, :submitted_at)`, row)
	if err != nil {
		return attendance.Submission{}, trapErr(err, "inserting attendance submission", nil, attendanceConflicts)
	}
	return s, nil
}

func (repo *attendanceRepository) ListBatchCodeIDs(ctx context.Context, batchID string) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &ids, "SELECT id FROM attendance_codes WHERE batch_id = $1", batchID); err != nil {
		return nil, trapErr(err, "selecting batch attendance codes", nil)
	}
	return ids, nil
}

func (repo *attendanceRepository) ListStudentCodeIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0)
	err := repo.db.SelectContext(ctx, &ids,
		"SELECT attendance_code_id FROM attendance_submissions WHERE student_id = $1", studentID)
	if err != nil {
		return nil, trapErr(err, "selecting student attendance", nil)
	}
	return ids, nil
}
