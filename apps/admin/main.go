package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	emailsvc "github.com/llpmm/campus/services/email"
	logsvc "github.com/llpmm/campus/services/logger"
	"github.com/llpmm/campus/storage/database"
	sqlxrepos "github.com/llpmm/campus/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = database.Ping(ctx, db)
	cancel()
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	// set up services
	validate := core.NewValidator(user.InitValidators, payment.InitValidators)
	core.ParseEmailTemplates(logger)
	var mailSvc emailsvc.WaitableService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	enrollmentRepo := sqlxrepos.NewEnrollmentRepository(db)
	attendanceRepo := sqlxrepos.NewAttendanceRepository(db)
	assignmentRepo := sqlxrepos.NewAssignmentRepository(db)

	cli := commandLine{
		conf:       conf,
		db:         db.DB,
		out:        os.Stdout,
		usrSvc:     user.NewService(usrRepo, validate, logger),
		paymentSvc: payment.NewService(sqlxrepos.NewPaymentRepository(db), courseRepo, usrRepo, mailSvc, validate, logger),
		certificateSvc: certificate.NewService(
			enrollmentRepo, courseRepo, attendanceRepo, assignmentRepo, usrRepo, mailSvc, conf, validate, logger,
		),
	}

	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		code = 1
	}

	// let the notifications go out before leaving
	mailSvc.Wait()
	if err := db.Close(); err != nil {
		logger.Error("closing database: "+err.Error(), err)
	}
	os.Exit(code)
}
