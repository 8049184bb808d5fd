package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment, p payment.Payment) (enrollment.Enrollment, payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b, ok := repo.db.batches[e.BatchID]
	if !ok {
		return enrollment.Enrollment{}, payment.Payment{}, course.ErrBatchNotFound
	}
	for _, existing := range repo.db.enrollments {
		if existing.StudentID == e.StudentID && existing.BatchID == e.BatchID {
			return enrollment.Enrollment{}, payment.Payment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	if repo.db.countActiveEnrollments(b.ID) >= b.MaxStudents {
		return enrollment.Enrollment{}, payment.Payment{}, enrollment.ErrSeatTaken
	}

	e.ID = uuid.New().String()
	p = copyPayment(p)
	p.ID = uuid.New().String()
	p.EnrollmentID = e.ID
	for i := range p.Installments {
		p.Installments[i].ID = uuid.New().String()
		p.Installments[i].PaymentID = p.ID
	}
	repo.db.enrollments[e.ID] = &e
	stored := copyPayment(p)
	repo.db.payments[e.ID] = &stored
	return e, p, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[id]; ok {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetStudentEnrollment(_ context.Context, studentID, batchID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.BatchID == batchID {
			return *e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) ListBatchEnrollments(_ context.Context, batchID string) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.BatchID == batchID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].EnrolledDate.Equal(enrollments[j].EnrolledDate) {
			return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt)
		}
		return enrollments[i].EnrolledDate.Before(enrollments[j].EnrolledDate)
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) CountActiveEnrollments(_ context.Context, batchID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.countActiveEnrollments(batchID), nil
}

func (repo *enrollmentRepository) UpdateCertificate(_ context.Context, id string, fn func(e *enrollment.Enrollment) (bool, error)) (enrollment.Enrollment, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, false, enrollment.ErrNotFound
	}
	e := *stored
	changed, err := fn(&e)
	if err != nil {
		return enrollment.Enrollment{}, false, err
	}
	if changed {
		*stored = e
	}
	return *stored, changed, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	delete(repo.db.payments, id)
	return nil
}
