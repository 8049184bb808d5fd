package attendance_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

func codes(values ...string) func() (string, error) {
	return func() (string, error) {
		if len(values) == 0 {
			return "", errors.New("out of codes")
		}
		v := values[0]
		values = values[1:]
		return v, nil
	}
}

func setup(t *testing.T) (*testutil.Env, course.Batch, user.User, user.User) {
	env := testutil.NewEnv(t)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	student := env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)
	crs := env.CreateCourse(t, "japanese-n5", 150000)
	b := env.CreateBatch(t, crs.ID, instructor.ID, 10, nil, nil)
	env.Enroll(t, student.ID, b.ID, payment.PlanFull, 0)
	return env, b, instructor, student
}

func TestRandomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		c, err := attendance.RandomCode()
		require.NoError(t, err)
		require.Len(t, c, attendance.CodeLength)
		assert.Equal(t, strings.ToUpper(c), c)
		for _, r := range c {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
		}
		seen[c] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestService_GenerateCode(t *testing.T) {
	env, b, instructor, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2024, time.May, 6, 9, 30, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	defer attendance.SetRandCodeFunc(codes("ABC123", "ABC123", "XYZ789"))()

	first, err := env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", first.Code)
	assert.True(t, first.IsActive)
	assert.Equal(t, instructor.ID, first.CreatedBy)
	assert.True(t, now.Equal(first.GeneratedAt))
	assert.True(t, now.Add(env.Conf.Attendance.CodeValidity).Equal(first.ValidUntil))

	// the colliding value is retried
	second, err := env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", second.Code)

	stored, err := env.Attendance.GetCodeByValue(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "a new code retires the previous one")

	_, err = env.AttendanceSvc.GenerateCode(ctx, "unknown", instructor.ID)
	assert.Equal(t, course.ErrBatchNotFound, err)
}

func TestService_GenerateCode_exhausted(t *testing.T) {
	env, b, instructor, _ := setup(t)
	defer attendance.SetRandCodeFunc(func() (string, error) { return "SAME01", nil })()

	_, err := env.AttendanceSvc.GenerateCode(context.Background(), b.ID, instructor.ID)
	require.NoError(t, err)
	_, err = env.AttendanceSvc.GenerateCode(context.Background(), b.ID, instructor.ID)
	assert.Equal(t, attendance.ErrCodeExists, err)
}

func TestService_Submit(t *testing.T) {
	env, b, instructor, student := setup(t)
	ctx := context.Background()
	now := time.Date(2024, time.May, 6, 9, 30, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	defer attendance.SetRandCodeFunc(codes("ABC123"))()

	c, err := env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)

	s, err := env.AttendanceSvc.Submit(ctx, student.ID, attendance.NewSubmission{Code: " abc123 "})
	require.NoError(t, err)
	assert.Equal(t, c.ID, s.CodeID)
	assert.Equal(t, student.ID, s.StudentID)
	assert.True(t, now.Equal(s.SubmittedAt))

	_, err = env.AttendanceSvc.Submit(ctx, student.ID, attendance.NewSubmission{Code: "ABC123"})
	assert.Equal(t, attendance.ErrAlreadySubmitted, err)

	ids, err := env.Attendance.ListStudentCodeIDs(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
}

func TestService_Submit_rejected(t *testing.T) {
	env, b, instructor, student := setup(t)
	ctx := context.Background()
	outsider := env.CreateUser(t, "Outsider", "out@llpmm.test", user.RoleStudent)
	now := time.Date(2024, time.May, 6, 9, 30, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	defer attendance.SetRandCodeFunc(codes("OLD111", "NEW222"))()

	_, err := env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)
	_, err = env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		studentID string
		code      string
		at        time.Time
		wantErr   error
		kind      core.Kind
	}{
		{name: "malformed", studentID: student.ID, code: "AB-12", at: now, kind: core.KindValidation},
		{name: "unknown", studentID: student.ID, code: "ZZZ999", at: now, wantErr: attendance.ErrCodeNotFound, kind: core.KindNotFound},
		{name: "retired", studentID: student.ID, code: "OLD111", at: now, wantErr: attendance.ErrCodeExpired, kind: core.KindValidation},
		{name: "expired", studentID: student.ID, code: "NEW222", at: now.Add(env.Conf.Attendance.CodeValidity + time.Second), wantErr: attendance.ErrCodeExpired, kind: core.KindValidation},
		{name: "not enrolled", studentID: outsider.ID, code: "NEW222", at: now, wantErr: attendance.ErrNotEnrolled, kind: core.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.FreezeTime(t, tt.at)
			_, err := env.AttendanceSvc.Submit(ctx, tt.studentID, attendance.NewSubmission{Code: tt.code})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			}
			assert.Equal(t, tt.kind, core.ErrorKind(err))
		})
	}

	// still accepted at the last instant of its window
	testutil.FreezeTime(t, now.Add(env.Conf.Attendance.CodeValidity))
	_, err = env.AttendanceSvc.Submit(ctx, student.ID, attendance.NewSubmission{Code: "NEW222"})
	assert.NoError(t, err)
}

func TestService_Submit_removedEnrollment(t *testing.T) {
	env, b, instructor, student := setup(t)
	ctx := context.Background()
	defer attendance.SetRandCodeFunc(codes("ABC123"))()
	_, err := env.AttendanceSvc.GenerateCode(ctx, b.ID, instructor.ID)
	require.NoError(t, err)

	e, err := env.Enrollments.GetStudentEnrollment(ctx, student.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, enrollment.StatusActive, e.Status)
	require.NoError(t, env.EnrollmentSvc.Remove(ctx, e.ID))

	_, err = env.AttendanceSvc.Submit(ctx, student.ID, attendance.NewSubmission{Code: "ABC123"})
	assert.Equal(t, attendance.ErrNotEnrolled, err)
}
