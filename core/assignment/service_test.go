package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

func setup(t *testing.T) (*testutil.Env, course.Batch, user.User, assignment.Assignment) {
	env := testutil.NewEnv(t)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	student := env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)
	crs := env.CreateCourse(t, "japanese-n5", 150000)
	b := env.CreateBatch(t, crs.ID, instructor.ID, 10, nil, nil)
	env.Enroll(t, student.ID, b.ID, payment.PlanFull, 0)

	a, err := env.AssignmentSvc.Create(context.Background(), b.ID, assignment.NewAssignment{
		Title:    " Kanji drill ",
		DueDate:  core.Today().AddDate(0, 0, 7),
		MaxScore: 20,
	})
	require.NoError(t, err)
	return env, b, student, a
}

func TestService_Create(t *testing.T) {
	env, b, _, a := setup(t)
	assert.Equal(t, "Kanji drill", a.Title)
	assert.Equal(t, b.ID, a.BatchID)
	assert.Equal(t, b.InstructorID, a.InstructorID)

	tests := []struct {
		name    string
		batchID string
		na      assignment.NewAssignment
		kind    core.Kind
	}{
		{name: "no title", batchID: b.ID, na: assignment.NewAssignment{DueDate: time.Now(), MaxScore: 10}, kind: core.KindValidation},
		{name: "no due date", batchID: b.ID, na: assignment.NewAssignment{Title: "A", MaxScore: 10}, kind: core.KindValidation},
		{name: "no max score", batchID: b.ID, na: assignment.NewAssignment{Title: "A", DueDate: time.Now()}, kind: core.KindValidation},
		{name: "unknown batch", batchID: "unknown", na: assignment.NewAssignment{Title: "A", DueDate: time.Now(), MaxScore: 10}, kind: core.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.AssignmentSvc.Create(context.Background(), tt.batchID, tt.na)
			assert.Equal(t, tt.kind, core.ErrorKind(err))
		})
	}

	ids, err := env.Assignments.ListBatchAssignmentIDs(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)
}

func TestService_Submit(t *testing.T) {
	env, _, student, a := setup(t)
	ctx := context.Background()

	s, err := env.AssignmentSvc.Submit(ctx, a.ID, student.ID, assignment.NewSubmission{Content: " first draft "})
	require.NoError(t, err)
	assert.Equal(t, "first draft", s.Content)
	assert.Equal(t, assignment.SubmissionPending, s.Status)
	assert.Nil(t, s.Score)

	resubmitted, err := env.AssignmentSvc.Submit(ctx, a.ID, student.ID, assignment.NewSubmission{Content: "final"})
	require.NoError(t, err)
	assert.Equal(t, s.ID, resubmitted.ID, "resubmitting replaces the pending submission")
	assert.Equal(t, "final", resubmitted.Content)

	ids, err := env.Assignments.ListStudentSubmittedAssignmentIDs(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	_, err = env.AssignmentSvc.GradeSubmission(ctx, s.ID, assignment.Grade{Score: 18})
	require.NoError(t, err)
	_, err = env.AssignmentSvc.Submit(ctx, a.ID, student.ID, assignment.NewSubmission{Content: "too late"})
	assert.Equal(t, assignment.ErrAlreadyGraded, err)
	assert.True(t, core.IsConflict(err))

	ids, err = env.Assignments.ListStudentSubmittedAssignmentIDs(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids, "graded work still counts as submitted")
}

func TestService_Submit_rejected(t *testing.T) {
	env, _, student, a := setup(t)
	outsider := env.CreateUser(t, "Outsider", "out@llpmm.test", user.RoleStudent)

	tests := []struct {
		name         string
		assignmentID string
		studentID    string
		content      string
		wantErr      error
		kind         core.Kind
	}{
		{name: "blank content", assignmentID: a.ID, studentID: student.ID, content: "  ", kind: core.KindValidation},
		{name: "unknown assignment", assignmentID: "unknown", studentID: student.ID, content: "x", wantErr: assignment.ErrNotFound, kind: core.KindNotFound},
		{name: "not enrolled", assignmentID: a.ID, studentID: outsider.ID, content: "x", wantErr: assignment.ErrNotEnrolled, kind: core.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.AssignmentSvc.Submit(context.Background(), tt.assignmentID, tt.studentID, assignment.NewSubmission{Content: tt.content})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			}
			assert.Equal(t, tt.kind, core.ErrorKind(err))
		})
	}
}

func TestService_GradeSubmission(t *testing.T) {
	env, _, student, a := setup(t)
	ctx := context.Background()
	s, err := env.AssignmentSvc.Submit(ctx, a.ID, student.ID, assignment.NewSubmission{Content: "work"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		score   int
		wantErr error
		kind    core.Kind
	}{
		{name: "negative", score: -1, kind: core.KindValidation},
		{name: "above max", score: 21, wantErr: assignment.ErrScoreOutOfRange, kind: core.KindValidation},
		{name: "zero", score: 0},
		{name: "max", score: 20},
		{name: "regrade", score: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graded, err := env.AssignmentSvc.GradeSubmission(ctx, s.ID, assignment.Grade{Score: tt.score})
			if tt.kind != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, err)
				}
				assert.Equal(t, tt.kind, core.ErrorKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, assignment.SubmissionGraded, graded.Status)
			require.NotNil(t, graded.Score)
			assert.Equal(t, tt.score, *graded.Score)
			assert.NotNil(t, graded.GradedAt)
		})
	}

	_, err = env.AssignmentSvc.GradeSubmission(ctx, "unknown", assignment.Grade{Score: 1})
	assert.Equal(t, assignment.ErrSubmissionNotFound, err)
}
