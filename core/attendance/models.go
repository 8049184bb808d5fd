package attendance

import (
	"strings"
	"time"

	"github.com/llpmm/campus/core"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Code struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Code        string    `json:"code"`
	GeneratedAt time.Time `json:"generated_at"`
	ValidUntil  time.Time `json:"valid_until"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   string    `json:"created_by"`
}

// Accepts tells whether a submission can be made for the code at t.
func (c Code) Accepts(t time.Time) bool {
	return c.IsActive && !t.After(c.ValidUntil)
}

type Submission struct {
	ID          string    `json:"id"`
	CodeID      string    `json:"attendance_code_id"`
	StudentID   string    `json:"student_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type NewSubmission struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

func (ns *NewSubmission) Validate(v *core.Validator) error {
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	return v.Struct(ns)
}
