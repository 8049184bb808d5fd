package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

type (
	ServerDeps struct {
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

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     authConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1", s.auth.middleware())

	registerUserAPI(v1, s.deps.UserSvc)
	registerCourseAPI(v1, s.deps.CourseSvc, s.deps.PaymentSvc, s.deps.AttendanceSvc, s.deps.AssignmentSvc)
	registerEnrollmentAPI(v1, s.deps.EnrollmentSvc, s.deps.PaymentSvc, s.deps.CertificateSvc)
	registerPaymentAPI(v1, s.deps.PaymentSvc)
	registerAttendanceAPI(v1, s.deps.AttendanceSvc)
	registerAssignmentAPI(v1, s.deps.AssignmentSvc)
}

// Start listens on the configured address; a listening failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
