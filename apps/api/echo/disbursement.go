package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/disbursement"
)

type disbursementApi struct {
	svc      *disbursement.Service
	validate *validator.Validate
}

func registerDisbursementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *disbursement.Service, validate *validator.Validate) {
	api := disbursementApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/disbursements", jwt)
	dg.POST("", api.request)
	dg.GET("", api.queryByCause)
	dg.GET("/:id", api.retrieve)
	dg.POST("/:id/process", api.process, adminMiddleware())
}

// Handlers

func (api *disbursementApi) request(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data disbursement.NewDisbursement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDisbursement")
	}
	data.RequestedBy = claims.Subject
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.Request(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *disbursementApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disbursementApi) queryByCause(ctx echo.Context) error {
	var query DisbursementQueryRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DisbursementQueryRequest")
	}
	if query.CauseID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "cause_id", Error: "this field is required"})
	}

	disbursements, err := api.svc.QueryByCause(ctx.Request().Context(), query.CauseID, query.Statuses...)
	if err != nil {
		return errors.Wrap(err, "querying disbursements")
	}
	if disbursements == nil {
		disbursements = []disbursement.Disbursement{}
	}
	return ctx.JSON(http.StatusOK, disbursements)
}

func (api *disbursementApi) process(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data disbursement.ProcessDisbursement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProcessDisbursement")
	}
	data.ProcessedBy = claims.Subject
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.Process(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

type DisbursementQueryRequest struct {
	CauseID  string   `query:"cause_id"`
	Statuses []string `query:"status"`
}
