package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

type enrollmentApi struct {
	svc            *enrollment.Service
	paymentSvc     *payment.Service
	certificateSvc *certificate.Service
}

type enrollmentResponse struct {
	Enrollment enrollment.Enrollment `json:"enrollment"`
	Payment    payment.Payment       `json:"payment"`
}

func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service, paymentSvc *payment.Service, certificateSvc *certificate.Service) {
	api := enrollmentApi{
		svc:            svc,
		paymentSvc:     paymentSvc,
		certificateSvc: certificateSvc,
	}
	admin := roleMiddleware(user.RoleAdmin)
	staff := roleMiddleware(user.RoleAdmin, user.RoleInstructor)

	eg := g.Group("/enrollments")
	eg.POST("", api.create, admin)

	// detail endpoints
	dg := eg.Group("/:id", enrollmentOwnerMiddleware(svc))
	dg.DELETE("", api.destroy, admin)
	dg.GET("/payment", api.payment, roleMiddleware(user.RoleAdmin, user.RoleStudent))
	dg.GET("/certificate", api.certificateMetrics)
	dg.POST("/certificate/evaluate", api.evaluateCertificate, staff)
	dg.PUT("/certificate", api.uploadCertificate, admin)
}

// enrollmentOwnerMiddleware lets students reach their own enrollments only.
func enrollmentOwnerMiddleware(svc *enrollment.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role != user.RoleStudent {
				return next(ctx)
			}
			e, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding enrollment")
			}
			if e.StudentID != claims.Subject {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	e, p, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enrollmentResponse{Enrollment: e, Payment: p})
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Remove(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollmentApi) payment(ctx echo.Context) error {
	summary, err := api.paymentSvc.EnrollmentSummary(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing enrollment payment")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *enrollmentApi) certificateMetrics(ctx echo.Context) error {
	m, err := api.certificateSvc.Metrics(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing certificate metrics")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *enrollmentApi) evaluateCertificate(ctx echo.Context) error {
	res, err := api.certificateSvc.Evaluate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "evaluating certificate")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *enrollmentApi) uploadCertificate(ctx echo.Context) error {
	var data certificate.Upload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Upload")
	}
	e, err := api.certificateSvc.RecordUpload(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording certificate upload")
	}
	return ctx.JSON(http.StatusOK, e)
}
