package course

import (
	"time"

	"github.com/llpmm/campus/core"
)

// Course levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type BatchStatus string

const (
	BatchUpcoming  BatchStatus = "upcoming"
	BatchOngoing   BatchStatus = "ongoing"
	BatchCompleted BatchStatus = "completed"
)

type OutlineSection struct {
	Title string   `json:"title" validate:"required,notblank"`
	Items []string `json:"items"`
}

type Course struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Slug             string           `json:"slug"`
	Fee              int64            `json:"fee"`
	Duration         string           `json:"duration"`
	Category         string           `json:"category"`
	Level            string           `json:"level"`
	Prerequisites    []string         `json:"prerequisites"`
	LearningOutcomes []string         `json:"learning_outcomes"`
	Outline          []OutlineSection `json:"outline"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type NewCourse struct {
	Title            string           `json:"title" validate:"required,notblank"`
	Slug             string           `json:"slug" validate:"required,slug"`
	Fee              int64            `json:"fee" validate:"gt=0"`
	Duration         string           `json:"duration"`
	Category         string           `json:"category"`
	Level            string           `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Prerequisites    []string         `json:"prerequisites"`
	LearningOutcomes []string         `json:"learning_outcomes"`
	Outline          []OutlineSection `json:"outline" validate:"dive"`
}

func (nc *NewCourse) Validate(v *core.Validator) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Prerequisites = cleanList(nc.Prerequisites)
	nc.LearningOutcomes = cleanList(nc.LearningOutcomes)
	for i := range nc.Outline {
		nc.Outline[i].Title = core.CleanString(nc.Outline[i].Title)
		nc.Outline[i].Items = cleanList(nc.Outline[i].Items)
	}
	return v.Struct(nc)
}

type Batch struct {
	ID               string      `json:"id"`
	CourseID         string      `json:"course_id"`
	InstructorID     string      `json:"instructor_id"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          *time.Time  `json:"end_date"`
	MaxStudents      int         `json:"max_students"`
	Status           BatchStatus `json:"status"`
	Schedule         string      `json:"schedule"`
	MeetingLink      string      `json:"meeting_link,omitempty"`
	MeetingPassword  string      `json:"meeting_password,omitempty"`
	ChatGroupID      string      `json:"chat_group_id,omitempty"`
	InstructorSalary *int64      `json:"instructor_salary"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Ended tells whether today is on or after the batch end date.
// A batch without an end date never ends.
func (b Batch) Ended(today time.Time) bool {
	if b.EndDate == nil {
		return false
	}
	return !core.TruncateDay(today).Before(core.TruncateDay(*b.EndDate))
}

type NewBatch struct {
	CourseID         string     `json:"course_id" validate:"required"`
	InstructorID     string     `json:"instructor_id" validate:"required"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          *time.Time `json:"end_date"`
	MaxStudents      int        `json:"max_students" validate:"gte=1"`
	Schedule         string     `json:"schedule"`
	MeetingLink      string     `json:"meeting_link" validate:"omitempty,url"`
	MeetingPassword  string     `json:"meeting_password"`
	ChatGroupID      string     `json:"chat_group_id"`
	InstructorSalary *int64     `json:"instructor_salary" validate:"omitempty,gte=0"`
}

func (nb *NewBatch) Validate(v *core.Validator) error {
	nb.Schedule = core.CleanString(nb.Schedule)
	nb.MeetingLink = core.CleanString(nb.MeetingLink)
	return v.Struct(nb)
}

type UpdateCapacity struct {
	MaxStudents int `json:"max_students" validate:"gte=1"`
}

type Expense struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Title       string    `json:"title"`
	Amount      int64     `json:"amount"`
	ExpenseDate time.Time `json:"expense_date"`
	Notes       string    `json:"notes"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewExpense struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Amount      int64     `json:"amount" validate:"gt=0"`
	ExpenseDate time.Time `json:"expense_date"`
	Notes       string    `json:"notes"`
}

func (ne *NewExpense) Validate(v *core.Validator) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Notes = core.CleanString(ne.Notes)
	return v.Struct(ne)
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if it = core.CleanString(it); it != "" {
			cleaned = append(cleaned, it)
		}
	}
	return cleaned
}
