package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/llpmm/campus/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignmentByID(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) SaveSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			if existing.Status != assignment.SubmissionPending {
				return assignment.Submission{}, assignment.ErrAlreadyGraded
			}
			existing.Content = s.Content
			existing.SubmittedAt = s.SubmittedAt
			return *existing, nil
		}
	}
	s.ID = uuid.New().String()
	s.Status = assignment.SubmissionPending
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *assignmentRepository) UpdateSubmission(_ context.Context, id string, fn func(s *assignment.Submission, a assignment.Assignment) error) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.submissions[id]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	a, ok := repo.db.assignments[stored.AssignmentID]
	if !ok {
		return assignment.Submission{}, assignment.ErrNotFound
	}
	s := *stored
	if err := fn(&s, *a); err != nil {
		return assignment.Submission{}, err
	}
	*stored = s
	return s, nil
}

func (repo *assignmentRepository) ListBatchAssignmentIDs(_ context.Context, batchID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, a := range repo.db.assignments {
		if a.BatchID == batchID {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (repo *assignmentRepository) ListStudentSubmittedAssignmentIDs(_ context.Context, studentID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, s := range repo.db.submissions {
		if s.StudentID == studentID {
			ids = append(ids, s.AssignmentID)
		}
	}
	return ids, nil
}
