package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) GetPaymentByEnrollment(_ context.Context, enrollmentID string) (payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.payments[enrollmentID]; ok {
		return copyPayment(*p), nil
	}
	return payment.Payment{}, payment.ErrPaymentNotFound
}

func (repo *paymentRepository) findByInstallment(installmentID string) (*payment.Payment, bool) {
	for _, p := range repo.db.payments {
		if _, ok := p.Installment(installmentID); ok {
			return p, true
		}
	}
	return nil, false
}

func (repo *paymentRepository) UpdateInstallmentPayment(_ context.Context, installmentID string, fn func(p *payment.Payment) error) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.findByInstallment(installmentID)
	if !ok {
		return payment.Payment{}, payment.ErrInstallmentNotFound
	}
	p := copyPayment(*stored)
	if err := fn(&p); err != nil {
		return payment.Payment{}, err
	}
	p.UpdatedAt = core.NowFunc().UTC()
	*stored = copyPayment(p)
	return p, nil
}

func (repo *paymentRepository) ListBatchInstallments(_ context.Context, batchID string) ([]payment.Installment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]*enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.BatchID == batchID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].EnrolledDate.Before(enrollments[j].EnrolledDate) })

	insts := make([]payment.Installment, 0)
	for _, e := range enrollments {
		if p, ok := repo.db.payments[e.ID]; ok {
			insts = append(insts, p.Installments...)
		}
	}
	return insts, nil
}

func (repo *paymentRepository) MarkOverdueInstallments(_ context.Context, today time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, p := range repo.db.payments {
		for i := range p.Installments {
			if payment.MarkOverdue(&p.Installments[i], today) {
				n++
			}
		}
	}
	return n, nil
}

func (repo *paymentRepository) GetEnrollmentStudentID(_ context.Context, enrollmentID string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[enrollmentID]; ok {
		return e.StudentID, nil
	}
	return "", enrollment.ErrNotFound
}

func (repo *paymentRepository) CreateInstructorPayment(_ context.Context, ip payment.InstructorPayment) (payment.InstructorPayment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.batches[ip.BatchID]; !ok {
		return payment.InstructorPayment{}, course.ErrBatchNotFound
	}
	ip.ID = uuid.New().String()
	repo.db.instructorPayments[ip.ID] = &ip
	return ip, nil
}

func (repo *paymentRepository) ListInstructorPayments(_ context.Context, batchID string) ([]payment.InstructorPayment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payments := make([]payment.InstructorPayment, 0)
	for _, ip := range repo.db.instructorPayments {
		if ip.BatchID == batchID {
			payments = append(payments, *ip)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})
	return payments, nil
}
