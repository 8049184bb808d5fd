package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/llpmm/campus/apps/api/echo"
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
	"github.com/llpmm/campus/storage/database"
	inmemdb "github.com/llpmm/campus/storage/database/inmem"
	sqlxrepos "github.com/llpmm/campus/storage/database/sqlx"
)

type Options struct {
	// InMemory replaces PostgreSQL with the in-memory store.
	InMemory bool
}

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBParam carries the database, absent when running in memory.
type DBParam struct {
	dig.In
	DB     *sqlx.DB    `optional:"true"`
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf           *core.Config
	Logger         core.Logger
	UserSvc        *user.Service
	CourseSvc      *course.Service
	EnrollmentSvc  *enrollment.Service
	PaymentSvc     *payment.Service
	CertificateSvc *certificate.Service
	AttendanceSvc  *attendance.Service
	AssignmentSvc  *assignment.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(ctx, db); err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() *core.Validator {
	return core.NewValidator(user.InitValidators, payment.InitValidators)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		UserSvc:        p.UserSvc,
		CourseSvc:      p.CourseSvc,
		EnrollmentSvc:  p.EnrollmentSvc,
		PaymentSvc:     p.PaymentSvc,
		CertificateSvc: p.CertificateSvc,
		AttendanceSvc:  p.AttendanceSvc,
		AssignmentSvc:  p.AssignmentSvc,
	})
}

func provideSQLRepositories(c *dig.Container) {
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(sqlxrepos.NewPaymentRepository, dig.As(new(payment.Repository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(sqlxrepos.NewAssignmentRepository, dig.As(new(assignment.Repository))))
}

func provideInMemoryRepositories(c *dig.Container) {
	must(c.Provide(inmemdb.NewDB))
	must(c.Provide(inmemdb.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(inmemdb.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(inmemdb.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(inmemdb.NewPaymentRepository, dig.As(new(payment.Repository))))
	must(c.Provide(inmemdb.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(inmemdb.NewAssignmentRepository, dig.As(new(assignment.Repository))))
}

// New returns a new dependency injection dig.Container
func New(opts Options) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	if opts.InMemory {
		provideInMemoryRepositories(c)
	} else {
		provideSQLRepositories(c)
	}
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))

	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(certificate.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(assignment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
