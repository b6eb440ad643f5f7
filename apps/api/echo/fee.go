package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/fee"
)

type feeApi struct {
	svc      fee.ServiceInterface
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc fee.ServiceInterface, validate *validator.Validate) {
	api := feeApi{
		svc:      svc,
		validate: validate,
	}

	fg := g.Group("/fees", authed...)
	fg.POST("", api.create, adminMiddleware())
	fg.GET("/:studentId", api.queryByStudent)
	fg.GET("/:studentId/:feeId", api.retrieve)
	fg.PATCH("/:studentId/:feeId", api.update, adminMiddleware())

	dg := g.Group("/dues", authed...)
	dg.GET("/:studentId", api.queryDues)
}

// Handlers

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), getContextCollegeID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) queryByStudent(ctx echo.Context) error {
	var filter fee.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to fee.QueryFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	fees, err := api.svc.QueryByStudent(
		ctx.Request().Context(),
		getContextCollegeID(ctx),
		ctx.Param("studentId"),
		filter,
		ordering.Orderings,
	)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, orEmptyFees(fees))
}

func (api *feeApi) queryDues(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	fees, err := api.svc.QueryDues(ctx.Request().Context(), getContextCollegeID(ctx), ctx.Param("studentId"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying dues")
	}
	return ctx.JSON(http.StatusOK, orEmptyFees(fees))
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), getContextCollegeID(ctx), ctx.Param("studentId"), ctx.Param("feeId"))
	if err != nil {
		return errors.Wrap(err, "finding fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) update(ctx echo.Context) error {
	var data fee.UpdateFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(
		ctx.Request().Context(),
		getContextCollegeID(ctx),
		ctx.Param("studentId"),
		ctx.Param("feeId"),
		data,
	)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func orEmptyFees(fees []fee.Fee) []fee.Fee {
	if fees == nil {
		return []fee.Fee{}
	}
	return fees
}
