package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, svc *payment.Service) {
	api := paymentApi{svc: svc}
	g.POST("/installments/:id/pay", api.payInstallment, roleMiddleware(user.RoleAdmin))
}

// Handlers

func (api *paymentApi) payInstallment(ctx echo.Context) error {
	var data payment.Record
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Record")
	}
	p, err := api.svc.RecordInstallmentPayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording installment payment")
	}
	return ctx.JSON(http.StatusOK, payment.SummarizeEnrollment(p))
}
