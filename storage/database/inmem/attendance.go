package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/llpmm/campus/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateCode(_ context.Context, c attendance.Code) (attendance.Code, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.attendanceCodes {
		if existing.Code == c.Code {
			return attendance.Code{}, attendance.ErrCodeExists
		}
	}
	for _, existing := range repo.db.attendanceCodes {
		if existing.BatchID == c.BatchID {
			existing.IsActive = false
		}
	}
	c.ID = uuid.New().String()
	repo.db.attendanceCodes[c.ID] = &c
	return c, nil
}

func (repo *attendanceRepository) GetCodeByValue(_ context.Context, code string) (attendance.Code, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.attendanceCodes {
		if c.Code == code {
			return *c, nil
		}
	}
	return attendance.Code{}, attendance.ErrCodeNotFound
}

func (repo *attendanceRepository) CreateSubmission(_ context.Context, s attendance.Submission) (attendance.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.attendanceSubmissions {
		if existing.CodeID == s.CodeID && existing.StudentID == s.StudentID {
			return attendance.Submission{}, attendance.ErrAlreadySubmitted
		}
	}
	s.ID = uuid.New().String()
	repo.db.attendanceSubmissions[s.ID] = &s
	return s, nil
}

func (repo *attendanceRepository) ListBatchCodeIDs(_ context.Context, batchID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, c := range repo.db.attendanceCodes {
		if c.BatchID == batchID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (repo *attendanceRepository) ListStudentCodeIDs(_ context.Context, studentID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, s := range repo.db.attendanceSubmissions {
		if s.StudentID == studentID {
			ids = append(ids, s.CodeID)
		}
	}
	return ids, nil
}
