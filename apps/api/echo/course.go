package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

type courseApi struct {
	svc           *course.Service
	paymentSvc    *payment.Service
	attendanceSvc *attendance.Service
	assignmentSvc *assignment.Service
}

func registerCourseAPI(
	g *echo.Group,
	svc *course.Service,
	paymentSvc *payment.Service,
	attendanceSvc *attendance.Service,
	assignmentSvc *assignment.Service,
) {
	api := courseApi{
		svc:           svc,
		paymentSvc:    paymentSvc,
		attendanceSvc: attendanceSvc,
		assignmentSvc: assignmentSvc,
	}
	admin := roleMiddleware(user.RoleAdmin)
	staff := roleMiddleware(user.RoleAdmin, user.RoleInstructor)

	g.POST("/courses", api.createCourse, admin)
	g.GET("/courses/:id", api.retrieveCourse)

	bg := g.Group("/batches")
	bg.POST("", api.createBatch, admin)
	bg.GET("/:id", api.retrieveBatch)
	bg.PUT("/:id/capacity", api.updateCapacity, admin)
	bg.GET("/:id/expenses", api.queryExpenses, admin)
	bg.POST("/:id/expenses", api.addExpense, admin)
	bg.GET("/:id/finance", api.finance, admin)
	bg.GET("/:id/payouts", api.payouts, staff)
	bg.POST("/:id/payouts", api.recordPayout, admin)
	bg.POST("/:id/attendance-codes", api.generateAttendanceCode, staff)
	bg.POST("/:id/assignments", api.createAssignment, staff)
}

// Handlers

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	c, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) createBatch(ctx echo.Context) error {
	var data course.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	b, err := api.svc.CreateBatch(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *courseApi) retrieveBatch(ctx echo.Context) error {
	b, err := api.svc.GetBatch(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding batch")
	}
	// meeting credentials are for the batch members only
	if claims, _ := getContextClaims(ctx); claims.Role == user.RoleStudent {
		b.MeetingLink, b.MeetingPassword, b.ChatGroupID = "", "", ""
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *courseApi) updateCapacity(ctx echo.Context) error {
	var data course.UpdateCapacity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCapacity")
	}
	b, err := api.svc.UpdateCapacity(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating batch capacity")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *courseApi) queryExpenses(ctx echo.Context) error {
	expenses, err := api.svc.ListExpenses(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing batch expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *courseApi) addExpense(ctx echo.Context) error {
	var data course.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	e, err := api.svc.AddExpense(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "adding batch expense")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) finance(ctx echo.Context) error {
	f, err := api.paymentSvc.BatchFinance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing batch finance")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *courseApi) payouts(ctx echo.Context) error {
	if err := api.checkBatchInstructor(ctx); err != nil {
		return err
	}
	p, err := api.paymentSvc.Payouts(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing payouts")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *courseApi) recordPayout(ctx echo.Context) error {
	var data payment.NewInstructorPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructorPayment")
	}
	ip, err := api.paymentSvc.RecordPayout(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording payout")
	}
	return ctx.JSON(http.StatusCreated, ip)
}

func (api *courseApi) generateAttendanceCode(ctx echo.Context) error {
	if err := api.checkBatchInstructor(ctx); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	c, err := api.attendanceSvc.GenerateCode(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "generating attendance code")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	if err := api.checkBatchInstructor(ctx); err != nil {
		return err
	}
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	a, err := api.assignmentSvc.Create(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// checkBatchInstructor restricts instructors to the batches they teach.
func (api *courseApi) checkBatchInstructor(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Role != user.RoleInstructor {
		return nil
	}
	b, err := api.svc.GetBatch(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding batch")
	}
	if b.InstructorID != claims.Subject {
		return errHttpForbidden
	}
	return nil
}
