package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/user"
)

type assignmentApi struct {
	svc *assignment.Service
}

func registerAssignmentAPI(g *echo.Group, svc *assignment.Service) {
	api := assignmentApi{svc: svc}
	g.POST("/assignments/:id/submissions", api.submit, roleMiddleware(user.RoleStudent))
	g.PUT("/submissions/:id/grade", api.grade, roleMiddleware(user.RoleAdmin, user.RoleInstructor))
}

// Handlers

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data assignment.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	s, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data assignment.Grade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}
	s, err := api.svc.GradeSubmission(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, s)
}
