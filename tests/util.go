// Package testutil builds the fixtures shared by the service, HTTP and CLI tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	emailsvc "github.com/llpmm/campus/services/email"
	logsvc "github.com/llpmm/campus/services/logger"
	inmemdb "github.com/llpmm/campus/storage/database/inmem"
)

// Env wires every service on a fresh in-memory store.
type Env struct {
	Conf     *core.Config
	Logger   core.Logger
	Validate *core.Validator
	Mail     *emailsvc.ConsoleServiceMock

	Users       user.Repository
	Courses     course.Repository
	Enrollments enrollment.Repository
	Payments    payment.Repository
	Attendance  attendance.Repository
	Assignments assignment.Repository

	UserSvc        *user.Service
	CourseSvc      *course.Service
	EnrollmentSvc  *enrollment.Service
	PaymentSvc     *payment.Service
	CertificateSvc *certificate.Service
	AttendanceSvc  *attendance.Service
	AssignmentSvc  *assignment.Service
}

func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := NewLogger()
	core.ParseEmailTemplates(logger)

	db := inmemdb.NewDB()
	env := &Env{
		Conf:        conf,
		Logger:      logger,
		Validate:    core.NewValidator(user.InitValidators, payment.InitValidators),
		Mail:        emailsvc.NewConsoleServiceMock(conf, logger),
		Users:       inmemdb.NewUserRepository(db),
		Courses:     inmemdb.NewCourseRepository(db),
		Enrollments: inmemdb.NewEnrollmentRepository(db),
		Payments:    inmemdb.NewPaymentRepository(db),
		Attendance:  inmemdb.NewAttendanceRepository(db),
		Assignments: inmemdb.NewAssignmentRepository(db),
	}
	env.UserSvc = user.NewService(env.Users, env.Validate, logger)
	env.CourseSvc = course.NewService(env.Courses, env.Users, env.Validate, logger)
	env.EnrollmentSvc = enrollment.NewService(env.Enrollments, env.Courses, env.Users, conf, env.Validate, logger)
	env.PaymentSvc = payment.NewService(env.Payments, env.Courses, env.Users, env.Mail, env.Validate, logger)
	env.CertificateSvc = certificate.NewService(
		env.Enrollments, env.Courses, env.Attendance, env.Assignments, env.Users, env.Mail, conf, env.Validate, logger,
	)
	env.AttendanceSvc = attendance.NewService(env.Attendance, env.Courses, env.Enrollments, conf, env.Validate, logger)
	env.AssignmentSvc = assignment.NewService(env.Assignments, env.Courses, env.Enrollments, env.Validate, logger)
	return env
}

// FreezeTime sets core.NowFunc to now for the duration of the test.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (env *Env) CreateUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	usr, err := env.UserSvc.Create(context.Background(), user.NewUser{Name: name, Email: email, Role: role})
	require.NoError(t, err, "creating user")
	return usr
}

func (env *Env) CreateCourse(t *testing.T, slug string, fee int64) course.Course {
	t.Helper()
	c, err := env.CourseSvc.CreateCourse(context.Background(), course.NewCourse{
		Title: "Course " + slug,
		Slug:  slug,
		Fee:   fee,
		Level: course.LevelBeginner,
	})
	require.NoError(t, err, "creating course")
	return c
}

// CreateBatch creates a batch of the course taught by instructorID, started yesterday.
func (env *Env) CreateBatch(t *testing.T, courseID, instructorID string, maxStudents int, endDate *time.Time, salary *int64) course.Batch {
	t.Helper()
	b, err := env.CourseSvc.CreateBatch(context.Background(), course.NewBatch{
		CourseID:         courseID,
		InstructorID:     instructorID,
		StartDate:        core.Today().AddDate(0, 0, -1),
		EndDate:          endDate,
		MaxStudents:      maxStudents,
		InstructorSalary: salary,
	})
	require.NoError(t, err, "creating batch")
	return b
}

func (env *Env) Enroll(t *testing.T, studentID, batchID string, plan payment.PlanType, discount int64) (enrollment.Enrollment, payment.Payment) {
	t.Helper()
	e, p, err := env.EnrollmentSvc.Enroll(context.Background(), enrollment.NewEnrollment{
		StudentID:      studentID,
		BatchID:        batchID,
		PlanType:       plan,
		DiscountAmount: discount,
	})
	require.NoError(t, err, "enrolling")
	return e, p
}
