package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

type paymentApi struct {
	svc      payment.ServiceInterface
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc payment.ServiceInterface, validate *validator.Validate) {
	api := paymentApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/payments", authed...)
	pg.POST("", api.create, rolesMiddleware(user.RoleStudent, user.RoleTeacher, user.RoleAdmin))
	pg.GET("/history/:studentId", api.history)
}

// Handlers

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.Create(ctx.Request().Context(), getContextCollegeID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) history(ctx echo.Context) error {
	var filter payment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to payment.QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pmts, err := api.svc.History(
		ctx.Request().Context(),
		getContextCollegeID(ctx),
		ctx.Param("studentId"),
		filter,
		ordering.Orderings,
	)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}
