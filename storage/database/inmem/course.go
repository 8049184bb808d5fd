package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.courses {
		if existing.Slug == c.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}
	c.ID = uuid.New().String()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) CreateBatch(_ context.Context, b course.Batch) (course.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[b.CourseID]; !ok {
		return course.Batch{}, core.NewValidationMessage("the referenced course does not exist")
	}
	b.ID = uuid.New().String()
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *courseRepository) GetBatchByID(_ context.Context, id string) (course.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return *b, nil
	}
	return course.Batch{}, course.ErrBatchNotFound
}

func (repo *courseRepository) UpdateBatchCapacity(_ context.Context, id string, maxStudents int) (course.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b, ok := repo.db.batches[id]
	if !ok {
		return course.Batch{}, course.ErrBatchNotFound
	}
	if maxStudents < repo.db.countActiveEnrollments(id) {
		return course.Batch{}, course.ErrCapacityBelowEnrollment
	}
	b.MaxStudents = maxStudents
	b.UpdatedAt = core.NowFunc().UTC()
	return *b, nil
}

func (repo *courseRepository) CreateExpense(_ context.Context, e course.Expense) (course.Expense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.batches[e.BatchID]; !ok {
		return course.Expense{}, course.ErrBatchNotFound
	}
	e.ID = uuid.New().String()
	repo.db.expenses[e.ID] = &e
	return e, nil
}

func (repo *courseRepository) ListBatchExpenses(_ context.Context, batchID string) ([]course.Expense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	expenses := make([]course.Expense, 0)
	for _, e := range repo.db.expenses {
		if e.BatchID == batchID {
			expenses = append(expenses, *e)
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].ExpenseDate.Equal(expenses[j].ExpenseDate) {
			return expenses[i].CreatedAt.Before(expenses[j].CreatedAt)
		}
		return expenses[i].ExpenseDate.Before(expenses[j].ExpenseDate)
	})
	return expenses, nil
}
