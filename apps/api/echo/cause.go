package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core/cause"
)

var errCauseNotFoundInCtx = errors.New("cause object not found in echo.Context")

type causeApi struct {
	svc      *cause.Service
	validate *validator.Validate
}

func registerCauseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *cause.Service, validate *validator.Validate) {
	api := causeApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/causes")

	// public endpoints
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/updates", api.queryUpdates)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create)
	ag.POST("/:id/verify", api.verifyBeneficiary, adminMiddleware())

	// organizer endpoints
	og := ag.Group("/:id", organizerOrAdminMiddleware(svc))
	og.PUT("", api.update)
	og.POST("/submit", api.submitForVerification)
	og.POST("/activate", api.activate)
	og.POST("/pause", api.pause)
	og.POST("/complete", api.complete)
	og.POST("/cancel", api.cancel)
	og.POST("/updates", api.createUpdate)
}

// Handlers

func (api *causeApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data cause.NewCause
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCause")
	}
	data.OrganizerID = claims.Subject
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cause")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *causeApi) query(ctx echo.Context) error {
	filter := new(cause.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []cause.Cause{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	causes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying causes")
	}
	if causes == nil {
		causes = []cause.Cause{}
	}
	return ctx.JSON(http.StatusOK, causes)
}

func (api *causeApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *causeApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(cause.Cause)
	if !ok {
		return errors.Wrap(errCauseNotFoundInCtx, "retrieving object from context")
	}

	var data cause.UpdateCause
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCause")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating cause")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *causeApi) submitForVerification(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.SubmitForVerification)
}

func (api *causeApi) activate(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.Activate)
}

func (api *causeApi) pause(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.Pause)
}

func (api *causeApi) complete(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.Complete)
}

func (api *causeApi) cancel(ctx echo.Context) error {
	return api.setStatus(ctx, api.svc.Cancel)
}

func (api *causeApi) verifyBeneficiary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data VerifyBeneficiaryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyBeneficiaryRequest")
	}

	c, err := api.svc.VerifyBeneficiary(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Documents)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *causeApi) createUpdate(ctx echo.Context) error {
	c, ok := ctx.Get("object").(cause.Cause)
	if !ok {
		return errors.Wrap(errCauseNotFoundInCtx, "retrieving object from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data cause.NewCauseUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCauseUpdate")
	}
	data.CauseID = c.ID
	data.PostedBy = claims.Subject
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cu, err := api.svc.CreateUpdate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cause update")
	}
	return ctx.JSON(http.StatusCreated, cu)
}

func (api *causeApi) queryUpdates(ctx echo.Context) error {
	updates, err := api.svc.QueryUpdates(ctx.Request().Context(), ctx.Param("id"), true /* publicOnly */)
	if err != nil {
		return errors.Wrap(err, "querying cause updates")
	}
	if updates == nil {
		updates = []cause.CauseUpdate{}
	}
	return ctx.JSON(http.StatusOK, updates)
}

func (api *causeApi) setStatus(
	ctx echo.Context,
	op func(c context.Context, id string) (cause.Cause, error),
) error {
	c, ok := ctx.Get("object").(cause.Cause)
	if !ok {
		return errors.Wrap(errCauseNotFoundInCtx, "retrieving object from context")
	}

	c, err := op(ctx.Request().Context(), c.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

type VerifyBeneficiaryRequest struct {
	Documents []string `json:"documents"`
}
