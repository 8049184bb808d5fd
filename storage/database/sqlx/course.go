package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
)

const (
	courseColumns = "id, title, slug, fee, duration, category, level, prerequisites, learning_outcomes, outline, " +
		"is_active, created_at, updated_at"
	batchColumns = "id, course_id, instructor_id, start_date, end_date, max_students, status, schedule, meeting_link, " +
		"meeting_password, chat_group_id, instructor_salary, created_at, updated_at"
	expenseColumns = "id, batch_id, title, amount, expense_date, notes, created_by, created_at"
)

type courseRow struct {
	ID               string         `db:"id"`
	Title            string         `db:"title"`
	Slug             string         `db:"slug"`
	Fee              int64          `db:"fee"`
	Duration         string         `db:"duration"`
	Category         string         `db:"category"`
	Level            string         `db:"level"`
	Prerequisites    pq.StringArray `db:"prerequisites"`
	LearningOutcomes pq.StringArray `db:"learning_outcomes"`
	Outline          null.JSON      `db:"outline"`
	IsActive         bool           `db:"is_active"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r courseRow) toCourse() (course.Course, error) {
	c := course.Course{
		ID:               r.ID,
		Title:            r.Title,
		Slug:             r.Slug,
		Fee:              r.Fee,
		Duration:         r.Duration,
		Category:         r.Category,
		Level:            r.Level,
		Prerequisites:    []string(r.Prerequisites),
		LearningOutcomes: []string(r.LearningOutcomes),
		Outline:          []course.OutlineSection{},
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.Outline.Valid {
		if err := r.Outline.Unmarshal(&c.Outline); err != nil {
			return course.Course{}, core.NewStoreError(err, "decoding course outline")
		}
	}
	return c, nil
}

func newCourseRow(c course.Course) (courseRow, error) {
	outline, err := json.Marshal(c.Outline)
	if err != nil {
		return courseRow{}, err
	}
	return courseRow{
		ID:               c.ID,
		Title:            c.Title,
		Slug:             c.Slug,
		Fee:              c.Fee,
		Duration:         c.Duration,
		Category:         c.Category,
		Level:            c.Level,
		Prerequisites:    pq.StringArray(nonNilStrings(c.Prerequisites)),
		LearningOutcomes: pq.StringArray(nonNilStrings(c.LearningOutcomes)),
		Outline:          null.JSONFrom(outline),
		IsActive:         c.IsActive,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}, nil
}

type batchRow struct {
	ID               string      `db:"id"`
	CourseID         string      `db:"course_id"`
	InstructorID     string      `db:"instructor_id"`
	StartDate        time.Time   `db:"start_date"`
	EndDate          null.Time   `db:"end_date"`
	MaxStudents      int         `db:"max_students"`
	Status           string      `db:"status"`
	Schedule         string      `db:"schedule"`
	MeetingLink      null.String `db:"meeting_link"`
	MeetingPassword  null.String `db:"meeting_password"`
	ChatGroupID      null.String `db:"chat_group_id"`
	InstructorSalary null.Int64  `db:"instructor_salary"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r batchRow) toBatch() course.Batch {
	b := course.Batch{
		ID:               r.ID,
		CourseID:         r.CourseID,
		InstructorID:     r.InstructorID,
		StartDate:        core.TruncateDay(r.StartDate),
		MaxStudents:      r.MaxStudents,
		Status:           course.BatchStatus(r.Status),
		Schedule:         r.Schedule,
		MeetingLink:      r.MeetingLink.String,
		MeetingPassword:  r.MeetingPassword.String,
		ChatGroupID:      r.ChatGroupID.String,
		InstructorSalary: r.InstructorSalary.Ptr(),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.EndDate.Valid {
		end := core.TruncateDay(r.EndDate.Time)
		b.EndDate = &end
	}
	return b
}

func newBatchRow(b course.Batch) batchRow {
	return batchRow{
		ID:               b.ID,
		CourseID:         b.CourseID,
		InstructorID:     b.InstructorID,
		StartDate:        b.StartDate,
		EndDate:          null.TimeFromPtr(b.EndDate),
		MaxStudents:      b.MaxStudents,
		Status:           string(b.Status),
		Schedule:         b.Schedule,
		MeetingLink:      nullString(b.MeetingLink),
		MeetingPassword:  nullString(b.MeetingPassword),
		ChatGroupID:      nullString(b.ChatGroupID),
		InstructorSalary: null.Int64FromPtr(b.InstructorSalary),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

type expenseRow struct {
	ID          string      `db:"id"`
	BatchID     string      `db:"batch_id"`
	Title       string      `db:"title"`
	Amount      int64       `db:"amount"`
	ExpenseDate time.Time   `db:"expense_date"`
	Notes       string      `db:"notes"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r expenseRow) toExpense() course.Expense {
	return course.Expense{
		ID:          r.ID,
		BatchID:     r.BatchID,
		Title:       r.Title,
		Amount:      r.Amount,
		ExpenseDate: core.TruncateDay(r.ExpenseDate),
		Notes:       r.Notes,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

var courseConflicts = map[string]error{"courses_slug_key": course.ErrSlugExists}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	row, err := newCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :title, :slug, :fee, :duration, :category, :level, :prerequisites, :learning_outcomes, :outline,
		        :is_active, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Course{}, trapErr(err, "inserting course", nil, courseConflicts)
	}
	return row.toCourse()
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id)
	if err != nil {
		return course.Course{}, trapErr(err, "selecting course", course.ErrCourseNotFound)
	}
	return row.toCourse()
}

func (repo *courseRepository) CreateBatch(ctx context.Context, b course.Batch) (course.Batch, error) {
	b.ID = uuid.New().String()
	row := newBatchRow(b)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO batches (`+batchColumns+`)
		VALUES (:id, :course_id, :instructor_id, :start_date, :end_date, :max_students, :status, :schedule, :meeting_link,
		        :meeting_password, :chat_group_id, :instructor_salary, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Batch{}, trapErr(err, "inserting batch", nil)
	}
	return row.toBatch(), nil
}

func (repo *courseRepository) GetBatchByID(ctx context.Context, id string) (course.Batch, error) {
	return getBatch(ctx, repo.db, id, false)
}

func getBatch(ctx context.Context, exec core.DBExecutor, id string, forUpdate bool) (course.Batch, error) {
	q := "SELECT " + batchColumns + " FROM batches WHERE id = $1"
	if forUpdate {
		q += " FOR UPDATE"
	}
	var row batchRow
	if err := exec.GetContext(ctx, &row, q, id); err != nil {
		return course.Batch{}, trapErr(err, "selecting batch", course.ErrBatchNotFound)
	}
	return row.toBatch(), nil
}

func countActiveEnrollments(ctx context.Context, exec core.DBExecutor, batchID string) (int, error) {
	var count int
	err := exec.GetContext(ctx, &count, "SELECT count(*) FROM enrollments WHERE batch_id = $1 AND status = 'active'", batchID)
	if err != nil {
		return 0, trapErr(err, "counting active enrollments", nil)
	}
	return count, nil
}

func (repo *courseRepository) UpdateBatchCapacity(ctx context.Context, id string, maxStudents int) (course.Batch, error) {
	var updated course.Batch
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		b, err := getBatch(ctx, tx, id, true)
		if err != nil {
			return err
		}
		count, err := countActiveEnrollments(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if maxStudents < count {
			return course.ErrCapacityBelowEnrollment
		}

		var row batchRow
		err = tx.GetContext(ctx, &row, `
			UPDATE batches SET max_students = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+batchColumns, b.ID, maxStudents, core.NowFunc().UTC())
		if err != nil {
			return trapErr(err, "updating batch capacity", course.ErrBatchNotFound)
		}
		updated = row.toBatch()
		return nil
	})
	return updated, err
}

func (repo *courseRepository) CreateExpense(ctx context.Context, e course.Expense) (course.Expense, error) {
	e.ID = uuid.New().String()
	row := expenseRow{
		ID:          e.ID,
		BatchID:     e.BatchID,
		Title:       e.Title,
		Amount:      e.Amount,
		ExpenseDate: e.ExpenseDate,
		Notes:       e.Notes,
		CreatedBy:   nullString(e.CreatedBy),
		CreatedAt:   e.CreatedAt,
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO batch_expenses (`+expenseColumns+`)
		VALUES (:id, :batch_id, :title, :amount, :expense_date, :notes, :created_by, :created_at)`, row)
	if err != nil {
		return course.Expense{}, trapErr(err, "inserting batch expense", nil)
	}
	return row.toExpense(), nil
}

func (repo *courseRepository) ListBatchExpenses(ctx context.Context, batchID string) ([]course.Expense, error) {
	ord := core.DBOrdering{Field: "expense_date", Ascending: true}
	var rows []expenseRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+expenseColumns+" FROM batch_expenses WHERE batch_id = $1 ORDER BY "+ord.String(), batchID)
	if err != nil {
		return nil, trapErr(err, "selecting batch expenses", nil)
	}
	expenses := make([]course.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, r.toExpense())
	}
	return expenses, nil
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
