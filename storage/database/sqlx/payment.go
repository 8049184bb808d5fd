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

const (
	paymentColumns = "id, enrollment_id, base_amount, discount_amount, total_amount, paid_amount, plan_type, status, " +
		"multi_course_discount, discount_notes, notes, created_at, updated_at"
	installmentColumns       = "id, payment_id, number, amount, due_type, due_date, paid_date, status, payment_method, notes"
	instructorPaymentColumns = "id, batch_id, instructor_id, amount, payment_date, payment_method, notes, created_at"
)

type paymentRow struct {
	ID                  string    `db:"id"`
	EnrollmentID        string    `db:"enrollment_id"`
	BaseAmount          int64     `db:"base_amount"`
	DiscountAmount      int64     `db:"discount_amount"`
	TotalAmount         int64     `db:"total_amount"`
	PaidAmount          int64     `db:"paid_amount"`
	PlanType            string    `db:"plan_type"`
	Status              string    `db:"status"`
	MultiCourseDiscount bool      `db:"multi_course_discount"`
	DiscountNotes       string    `db:"discount_notes"`
	Notes               string    `db:"notes"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r paymentRow) toPayment(installments []installmentRow) payment.Payment {
	p := payment.Payment{
		ID:                  r.ID,
		EnrollmentID:        r.EnrollmentID,
		BaseAmount:          r.BaseAmount,
		DiscountAmount:      r.DiscountAmount,
		TotalAmount:         r.TotalAmount,
		PaidAmount:          r.PaidAmount,
		PlanType:            payment.PlanType(r.PlanType),
		Status:              payment.Status(r.Status),
		MultiCourseDiscount: r.MultiCourseDiscount,
		DiscountNotes:       r.DiscountNotes,
		Notes:               r.Notes,
		Installments:        make([]payment.Installment, 0, len(installments)),
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	for _, ir := range installments {
		p.Installments = append(p.Installments, ir.toInstallment())
	}
	return p
}

func newPaymentRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:                  p.ID,
		EnrollmentID:        p.EnrollmentID,
		BaseAmount:          p.BaseAmount,
		DiscountAmount:      p.DiscountAmount,
		TotalAmount:         p.TotalAmount,
		PaidAmount:          p.PaidAmount,
		PlanType:            string(p.PlanType),
		Status:              string(p.Status),
		MultiCourseDiscount: p.MultiCourseDiscount,
		DiscountNotes:       p.DiscountNotes,
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type installmentRow struct {
	ID            string      `db:"id"`
	PaymentID     string      `db:"payment_id"`
	Number        int         `db:"number"`
	Amount        int64       `db:"amount"`
	DueType       string      `db:"due_type"`
	DueDate       time.Time   `db:"due_date"`
	PaidDate      null.Time   `db:"paid_date"`
	Status        string      `db:"status"`
	PaymentMethod null.String `db:"payment_method"`
	Notes         string      `db:"notes"`
}

func (r installmentRow) toInstallment() payment.Installment {
	inst := payment.Installment{
		ID:            r.ID,
		PaymentID:     r.PaymentID,
		Number:        r.Number,
		Amount:        r.Amount,
		DueType:       payment.DueType(r.DueType),
		DueDate:       core.TruncateDay(r.DueDate),
		Status:        payment.InstallmentStatus(r.Status),
		PaymentMethod: r.PaymentMethod.String,
		Notes:         r.Notes,
	}
	if r.PaidDate.Valid {
		paid := core.TruncateDay(r.PaidDate.Time)
		inst.PaidDate = &paid
	}
	return inst
}

func newInstallmentRow(inst payment.Installment) installmentRow {
	return installmentRow{
		ID:            inst.ID,
		PaymentID:     inst.PaymentID,
		Number:        inst.Number,
		Amount:        inst.Amount,
		DueType:       string(inst.DueType),
		DueDate:       inst.DueDate,
		PaidDate:      null.TimeFromPtr(inst.PaidDate),
		Status:        string(inst.Status),
		PaymentMethod: nullString(inst.PaymentMethod),
		Notes:         inst.Notes,
	}
}

type instructorPaymentRow struct {
	ID            string    `db:"id"`
	BatchID       string    `db:"batch_id"`
	InstructorID  string    `db:"instructor_id"`
	Amount        int64     `db:"amount"`
	PaymentDate   time.Time `db:"payment_date"`
	PaymentMethod string    `db:"payment_method"`
	Notes         string    `db:"notes"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r instructorPaymentRow) toInstructorPayment() payment.InstructorPayment {
	return payment.InstructorPayment{
		ID:            r.ID,
		BatchID:       r.BatchID,
		InstructorID:  r.InstructorID,
		Amount:        r.Amount,
		PaymentDate:   core.TruncateDay(r.PaymentDate),
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

// insertPayment saves a new payment with its installments, assigning the installment IDs.
func insertPayment(ctx context.Context, exec core.DBExecutor, p *payment.Payment) error {
	_, err := exec.NamedExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (:id, :enrollment_id, :base_amount, :discount_amount, :total_amount, :paid_amount, :plan_type, :status,
		        :multi_course_discount, :discount_notes, :notes, :created_at, :updated_at)`, newPaymentRow(*p))
	if err != nil {
		return trapErr(err, "inserting payment", nil)
	}
	for i := range p.Installments {
		inst := &p.Installments[i]
		inst.ID = uuid.New().String()
		inst.PaymentID = p.ID
		_, err = exec.NamedExecContext(ctx, `
			INSERT INTO payment_installments (`+installmentColumns+`)
			VALUES (:id, :payment_id, :number, :amount, :due_type, :due_date, :paid_date, :status, :payment_method, :notes)`,
			newInstallmentRow(*inst))
		if err != nil {
			return trapErr(err, "inserting installment", nil)
		}
	}
	return nil
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func selectInstallments(ctx context.Context, exec core.DBExecutor, paymentID string, forUpdate bool) ([]installmentRow, error) {
	q := "SELECT " + installmentColumns + " FROM payment_installments WHERE payment_id = $1 ORDER BY number"
	if forUpdate {
		q += " FOR UPDATE"
	}
	var rows []installmentRow
	if err := exec.SelectContext(ctx, &rows, q, paymentID); err != nil {
		return nil, trapErr(err, "selecting installments", nil)
	}
	return rows, nil
}

func (repo *paymentRepository) GetPaymentByEnrollment(ctx context.Context, enrollmentID string) (payment.Payment, error) {
	var row paymentRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+paymentColumns+" FROM payments WHERE enrollment_id = $1", enrollmentID)
	if err != nil {
		return payment.Payment{}, trapErr(err, "selecting payment", payment.ErrPaymentNotFound)
	}
	insts, err := selectInstallments(ctx, repo.db, row.ID, false)
	if err != nil {
		return payment.Payment{}, err
	}
	return row.toPayment(insts), nil
}

func (repo *paymentRepository) UpdateInstallmentPayment(ctx context.Context, installmentID string, fn func(p *payment.Payment) error) (payment.Payment, error) {
	var updated payment.Payment
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var paymentID string
		err := tx.GetContext(ctx, &paymentID, "SELECT payment_id FROM payment_installments WHERE id = $1", installmentID)
		if err != nil {
			return trapErr(err, "selecting installment", payment.ErrInstallmentNotFound)
		}

		// the payment row lock serializes concurrent payments of its installments
		var row paymentRow
		err = tx.GetContext(ctx, &row, "SELECT "+paymentColumns+" FROM payments WHERE id = $1 FOR UPDATE", paymentID)
		if err != nil {
			return trapErr(err, "selecting payment", payment.ErrPaymentNotFound)
		}
		insts, err := selectInstallments(ctx, tx, paymentID, true)
		if err != nil {
			return err
		}

		p := row.toPayment(insts)
		if err = fn(&p); err != nil {
			return err
		}

		for _, inst := range p.Installments {
			_, err = tx.NamedExecContext(ctx, `
				UPDATE payment_installments
				SET status = :status, paid_date = :paid_date, payment_method = :payment_method, notes = :notes
				WHERE id = :id`, newInstallmentRow(inst))
			if err != nil {
				return trapErr(err, "updating installment", nil)
			}
		}
		p.UpdatedAt = core.NowFunc().UTC()
		_, err = tx.NamedExecContext(ctx, `
			UPDATE payments SET paid_amount = :paid_amount, status = :status, updated_at = :updated_at
			WHERE id = :id`, newPaymentRow(p))
		if err != nil {
			return trapErr(err, "updating payment", nil)
		}
		updated = p
		return nil
	})
	return updated, err
}

func (repo *paymentRepository) ListBatchInstallments(ctx context.Context, batchID string) ([]payment.Installment, error) {
	var rows []installmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+prefixed("i", installmentColumns)+`
		FROM payment_installments i
		JOIN payments p ON p.id = i.payment_id
		JOIN enrollments e ON e.id = p.enrollment_id
		WHERE e.batch_id = $1
		ORDER BY e.enrolled_date, i.number`, batchID)
	if err != nil {
		return nil, trapErr(err, "selecting batch installments", nil)
	}
	insts := make([]payment.Installment, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, r.toInstallment())
	}
	return insts, nil
}

func (repo *paymentRepository) MarkOverdueInstallments(ctx context.Context, today time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE payment_installments SET status = $1
		WHERE status = $2 AND due_date < $3`,
		string(payment.InstallmentOverdue), string(payment.InstallmentPending), core.TruncateDay(today))
	if err != nil {
		return 0, trapErr(err, "marking installments overdue", nil)
	}
	n, err := rowsAffected(res, "marking installments overdue")
	return int(n), err
}

func (repo *paymentRepository) GetEnrollmentStudentID(ctx context.Context, enrollmentID string) (string, error) {
	var studentID string
	err := repo.db.GetContext(ctx, &studentID, "SELECT student_id FROM enrollments WHERE id = $1", enrollmentID)
	if err != nil {
		return "", trapErr(err, "selecting enrollment student", enrollment.ErrNotFound)
	}
	return studentID, nil
}

func (repo *paymentRepository) CreateInstructorPayment(ctx context.Context, ip payment.InstructorPayment) (payment.InstructorPayment, error) {
	ip.ID = uuid.New().String()
	row := instructorPaymentRow{
		ID:            ip.ID,
		BatchID:       ip.BatchID,
		InstructorID:  ip.InstructorID,
		Amount:        ip.Amount,
		PaymentDate:   ip.PaymentDate,
		PaymentMethod: ip.PaymentMethod,
		Notes:         ip.Notes,
		CreatedAt:     ip.CreatedAt,
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO instructor_payments (`+instructorPaymentColumns+`)
		VALUES (:id, :batch_id, :instructor_id, :amount, :payment_date, :payment_method, :notes, :created_at)`, row)
	if err != nil {
		return payment.InstructorPayment{}, trapErr(err, "inserting instructor payment", nil)
	}
	return row.toInstructorPayment(), nil
}

func (repo *paymentRepository) ListInstructorPayments(ctx context.Context, batchID string) ([]payment.InstructorPayment, error) {
	var rows []instructorPaymentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+instructorPaymentColumns+` FROM instructor_payments
		WHERE batch_id = $1 ORDER BY payment_date, created_at`, batchID)
	if err != nil {
		return nil, trapErr(err, "selecting instructor payments", nil)
	}
	payments := make([]payment.InstructorPayment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toInstructorPayment())
	}
	return payments, nil
}
