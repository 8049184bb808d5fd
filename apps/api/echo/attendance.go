package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/user"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service) {
	api := attendanceApi{svc: svc}
	g.POST("/attendance", api.submit, roleMiddleware(user.RoleStudent))
}

// Handlers

func (api *attendanceApi) submit(ctx echo.Context) error {
	var data attendance.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting attendance")
	}
	return ctx.JSON(http.StatusCreated, s)
}
