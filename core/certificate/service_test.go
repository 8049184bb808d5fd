package certificate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

type classroom struct {
	env        *testutil.Env
	instructor user.User
	batch      course.Batch
}

func newClassroom(t *testing.T, endDate time.Time) classroom {
	env := testutil.NewEnv(t)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	crs := env.CreateCourse(t, "japanese-n5", 150000)
	return classroom{env: env, instructor: instructor, batch: env.CreateBatch(t, crs.ID, instructor.ID, 10, &endDate, nil)}
}

func (c classroom) enroll(t *testing.T, name, email string) (user.User, enrollment.Enrollment) {
	s := c.env.CreateUser(t, name, email, user.RoleStudent)
	e, _ := c.env.Enroll(t, s.ID, c.batch.ID, payment.PlanFull, 0)
	return s, e
}

// runSessions generates n attendance codes; attendees[i] lists who submits the i-th one.
func (c classroom) runSessions(t *testing.T, n int, attendees func(i int) []user.User) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		code, err := c.env.AttendanceSvc.GenerateCode(ctx, c.batch.ID, c.instructor.ID)
		require.NoError(t, err)
		for _, s := range attendees(i) {
			_, err := c.env.AttendanceSvc.Submit(ctx, s.ID, attendance.NewSubmission{Code: code.Code})
			require.NoError(t, err)
		}
	}
}

// giveAssignments creates n assignments; workers[i] lists who submits the i-th one.
func (c classroom) giveAssignments(t *testing.T, n int, workers func(i int) []user.User) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		a, err := c.env.AssignmentSvc.Create(ctx, c.batch.ID, assignment.NewAssignment{
			Title: "Homework", DueDate: core.Today().AddDate(0, 0, 7), MaxScore: 10,
		})
		require.NoError(t, err)
		for _, s := range workers(i) {
			_, err := c.env.AssignmentSvc.Submit(ctx, a.ID, s.ID, assignment.NewSubmission{Content: "done"})
			require.NoError(t, err)
		}
	}
}

func allBut(last int, students ...user.User) func(int) []user.User {
	return func(i int) []user.User {
		if i >= last {
			return nil
		}
		return students
	}
}

func TestService_Evaluate_batchEnded(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 0, -1))
	s, e := c.enroll(t, "Aung Aung", "aung@llpmm.test")
	c.runSessions(t, 10, allBut(9, s))
	c.giveAssignments(t, 10, allBut(9, s))

	res, err := c.env.CertificateSvc.Evaluate(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Metrics.AttendedCodes)
	assert.Equal(t, 10, res.Metrics.TotalCodes)
	assert.InDelta(t, 90.0, res.Metrics.AttendanceRate, 1e-9)
	assert.InDelta(t, 90.0, res.Metrics.AssignmentRate, 1e-9)
	assert.True(t, res.Metrics.BatchEnded)
	assert.True(t, res.Metrics.IsEligible)
	assert.True(t, res.Changed)
	assert.True(t, res.Enrollment.Certificate)
	assert.Equal(t, enrollment.CertificateGenerated, res.Enrollment.CertificateSource)
	require.NotNil(t, res.Enrollment.CertificateIssuedAt)

	sent := c.env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "certificate_available", sent[0].TemplateName)
	assert.Equal(t, s.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "/student/certificates")

	again, err := c.env.CertificateSvc.Evaluate(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, res.Metrics, again.Metrics)
	assert.Equal(t, res.Enrollment.CertificateIssuedAt, again.Enrollment.CertificateIssuedAt)
	assert.Len(t, c.env.Mail.SentMessages(), 1, "no second notification")
}

func TestService_Evaluate_batchRunning(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 1, 0))
	s, e := c.enroll(t, "Aung Aung", "aung@llpmm.test")
	c.runSessions(t, 10, allBut(9, s))
	c.giveAssignments(t, 10, allBut(9, s))

	res, err := c.env.CertificateSvc.Evaluate(context.Background(), e.ID)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, res.Metrics.AttendanceRate, 1e-9)
	assert.InDelta(t, 90.0, res.Metrics.AssignmentRate, 1e-9)
	assert.False(t, res.Metrics.BatchEnded)
	assert.False(t, res.Metrics.IsEligible)
	assert.False(t, res.Changed)
	assert.False(t, res.Enrollment.Certificate)
	assert.Empty(t, c.env.Mail.SentMessages())
}

func TestService_Evaluate_nothingRecorded(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 0, -1))
	_, e := c.enroll(t, "Aung Aung", "aung@llpmm.test")

	m, err := c.env.CertificateSvc.Metrics(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Zero(t, m.TotalCodes)
	assert.Zero(t, m.TotalAssignments)
	assert.Equal(t, 0.0, m.AttendanceRate)
	assert.Equal(t, 0.0, m.AssignmentRate)
	assert.False(t, m.IsEligible)
}

func TestService_Evaluate_demotes(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 0, -1))
	s, e := c.enroll(t, "Aung Aung", "aung@llpmm.test")
	c.runSessions(t, 2, allBut(2, s))
	c.giveAssignments(t, 1, allBut(1, s))

	res, err := c.env.CertificateSvc.Evaluate(context.Background(), e.ID)
	require.NoError(t, err)
	require.True(t, res.Enrollment.Certificate)

	// a missed make-up session drops attendance to 2/3
	c.runSessions(t, 1, allBut(0))
	res, err = c.env.CertificateSvc.Evaluate(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Enrollment.Certificate)
	assert.Empty(t, res.Enrollment.CertificateSource)
	assert.Nil(t, res.Enrollment.CertificateIssuedAt)
}

func TestService_RecordUpload(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 0, -1))
	ctx := context.Background()
	_, e := c.enroll(t, "Aung Aung", "aung@llpmm.test")

	_, err := c.env.CertificateSvc.RecordUpload(ctx, e.ID, certificate.Upload{URL: "not a url"})
	assert.True(t, core.IsValidation(err))
	_, err = c.env.CertificateSvc.RecordUpload(ctx, "unknown", certificate.Upload{URL: "https://files.llpmm.test/c.pdf"})
	assert.Equal(t, enrollment.ErrNotFound, err)

	up, err := c.env.CertificateSvc.RecordUpload(ctx, e.ID, certificate.Upload{URL: " https://files.llpmm.test/c.pdf "})
	require.NoError(t, err)
	assert.True(t, up.Certificate)
	assert.Equal(t, enrollment.CertificateUploaded, up.CertificateSource)
	assert.Equal(t, "https://files.llpmm.test/c.pdf", up.CertificateURL)

	sent := c.env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "https://files.llpmm.test/c.pdf")

	// not eligible, but the uploaded certificate stays
	res, err := c.env.CertificateSvc.Evaluate(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, res.Metrics.IsEligible)
	assert.False(t, res.Changed)
	assert.True(t, res.Enrollment.Certificate)
	assert.Equal(t, enrollment.CertificateUploaded, res.Enrollment.CertificateSource)
}

func TestService_EvaluateBatch(t *testing.T) {
	c := newClassroom(t, core.Today().AddDate(0, 0, -1))
	good, goodEnrollment := c.enroll(t, "Aung Aung", "aung@llpmm.test")
	lazy, lazyEnrollment := c.enroll(t, "Hla Hla", "hla@llpmm.test")
	c.runSessions(t, 4, func(i int) []user.User {
		if i == 0 {
			return []user.User{good, lazy}
		}
		return []user.User{good}
	})
	c.giveAssignments(t, 1, allBut(1, good, lazy))

	results, err := c.env.CertificateSvc.EvaluateBatch(context.Background(), c.batch.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byEnrollment := make(map[string]certificate.Result, len(results))
	for _, res := range results {
		byEnrollment[res.Enrollment.ID] = res
	}
	assert.True(t, byEnrollment[goodEnrollment.ID].Enrollment.Certificate)
	assert.False(t, byEnrollment[lazyEnrollment.ID].Enrollment.Certificate)
	assert.InDelta(t, 25.0, byEnrollment[lazyEnrollment.ID].Metrics.AttendanceRate, 1e-9)
	assert.Len(t, c.env.Mail.SentMessages(), 1)

	_, err = c.env.CertificateSvc.EvaluateBatch(context.Background(), "unknown")
	assert.Equal(t, course.ErrBatchNotFound, err)
}
