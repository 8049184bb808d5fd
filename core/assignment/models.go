package assignment

import (
	"time"

	"github.com/llpmm/campus/core"
)

type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionGraded  SubmissionStatus = "graded"
)

type Assignment struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	InstructorID string    `json:"instructor_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"due_date"`
	MaxScore     int       `json:"max_score"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewAssignment struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    int       `json:"max_score" validate:"gt=0"`
}

func (na *NewAssignment) Validate(v *core.Validator) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return v.Struct(na)
}

type Submission struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignment_id"`
	StudentID    string           `json:"student_id"`
	Content      string           `json:"content"`
	Score        *int             `json:"score"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	GradedAt     *time.Time       `json:"graded_at"`
}

type NewSubmission struct {
	Content string `json:"content" validate:"required,notblank"`
}

type Grade struct {
	Score int `json:"score" validate:"gte=0"`
}
