package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
)

const enrollmentColumns = "id, student_id, batch_id, enrolled_date, status, certificate, certificate_url, " +
	"certificate_source, certificate_issued_at, created_at, updated_at"

type enrollmentRow struct {
	ID                  string      `db:"id"`
	StudentID           string      `db:"student_id"`
	BatchID             string      `db:"batch_id"`
	EnrolledDate        time.Time   `db:"enrolled_date"`
	Status              string      `db:"status"`
	Certificate         bool        `db:"certificate"`
	CertificateURL      null.String `db:"certificate_url"`
	CertificateSource   null.String `db:"certificate_source"`
	CertificateIssuedAt null.Time   `db:"certificate_issued_at"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	e := enrollment.Enrollment{
		ID:                r.ID,
		StudentID:         r.StudentID,
		BatchID:           r.BatchID,
		EnrolledDate:      core.TruncateDay(r.EnrolledDate),
		Status:            enrollment.Status(r.Status),
		Certificate:       r.Certificate,
		CertificateURL:    r.CertificateURL.String,
		CertificateSource: enrollment.CertificateSource(r.CertificateSource.String),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.CertificateIssuedAt.Valid {
		issued := r.CertificateIssuedAt.Time.UTC()
		e.CertificateIssuedAt = &issued
	}
	return e
}

func newEnrollmentRow(e enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:                  e.ID,
		StudentID:           e.StudentID,
		BatchID:             e.BatchID,
		EnrolledDate:        e.EnrolledDate,
		Status:              string(e.Status),
		Certificate:         e.Certificate,
		CertificateURL:      nullString(e.CertificateURL),
		CertificateSource:   nullString(string(e.CertificateSource)),
		CertificateIssuedAt: null.TimeFromPtr(e.CertificateIssuedAt),
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

var enrollmentConflicts = map[string]error{"enrollments_student_batch_key": enrollment.ErrAlreadyEnrolled}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, p payment.Payment) (enrollment.Enrollment, payment.Payment, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// the batch row lock serializes concurrent enrollments of the same batch
		b, err := getBatch(ctx, tx, e.BatchID, true)
		if err != nil {
			return err
		}
		count, err := countActiveEnrollments(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if count >= b.MaxStudents {
			return enrollment.ErrSeatTaken
		}

		e.ID = uuid.New().String()
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO enrollments (`+enrollmentColumns+`)
			VALUES (:id, :student_id, :batch_id, :enrolled_date, :status, :certificate, :certificate_url,
			        :certificate_source, :certificate_issued_at, :created_at, :updated_at)`, newEnrollmentRow(e))
		if err != nil {
			return trapErr(err, "inserting enrollment", nil, enrollmentConflicts)
		}

		p.ID = uuid.New().String()
		p.EnrollmentID = e.ID
		return insertPayment(ctx, tx, &p)
	})
	if err != nil {
		return enrollment.Enrollment{}, payment.Payment{}, err
	}
	return e, p, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return getEnrollment(ctx, repo.db, id, false)
}

func getEnrollment(ctx context.Context, exec core.DBExecutor, id string, forUpdate bool) (enrollment.Enrollment, error) {
	q := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1"
	if forUpdate {
		q += " FOR UPDATE"
	}
	var row enrollmentRow
	if err := exec.GetContext(ctx, &row, q, id); err != nil {
		return enrollment.Enrollment{}, trapErr(err, "selecting enrollment", enrollment.ErrNotFound)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetStudentEnrollment(ctx context.Context, studentID, batchID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE student_id = $1 AND batch_id = $2", studentID, batchID)
	if err != nil {
		return enrollment.Enrollment{}, trapErr(err, "selecting student enrollment", enrollment.ErrNotFound)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) ListBatchEnrollments(ctx context.Context, batchID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE batch_id = $1 ORDER BY enrolled_date, created_at", batchID)
	if err != nil {
		return nil, trapErr(err, "selecting batch enrollments", nil)
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.toEnrollment())
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) CountActiveEnrollments(ctx context.Context, batchID string) (int, error) {
	return countActiveEnrollments(ctx, repo.db, batchID)
}

func (repo *enrollmentRepository) UpdateCertificate(ctx context.Context, id string, fn func(e *enrollment.Enrollment) (bool, error)) (enrollment.Enrollment, bool, error) {
	var (
		updated enrollment.Enrollment
		changed bool
	)
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		e, err := getEnrollment(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if changed, err = fn(&e); err != nil {
			return err
		}
		if !changed {
			updated = e
			return nil
		}

		e.UpdatedAt = core.NowFunc().UTC()
		row := newEnrollmentRow(e)
		_, err = tx.NamedExecContext(ctx, `
			UPDATE enrollments
			SET certificate = :certificate, certificate_url = :certificate_url, certificate_source = :certificate_source,
			    certificate_issued_at = :certificate_issued_at, updated_at = :updated_at
			WHERE id = :id`, row)
		if err != nil {
			return trapErr(err, "updating enrollment certificate", enrollment.ErrNotFound)
		}
		updated = e
		return nil
	})
	if err != nil {
		return enrollment.Enrollment{}, false, err
	}
	return updated, changed, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	// payments and installments go with it (ON DELETE CASCADE)
	res, err := repo.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return trapErr(err, "deleting enrollment", enrollment.ErrNotFound)
	}
	n, err := rowsAffected(res, "deleting enrollment")
	if err != nil {
		return err
	}
	if n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}
