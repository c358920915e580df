package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/batch"
)

var batchOrderingFields = []string{"id", "name", "start_year", "end_year"}

type batchApi struct {
	deps ServerDeps
}

func registerBatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := batchApi{deps: deps}

	bg := g.Group("/batches", jwt)
	bg.GET("", api.query)
	bg.POST("", api.create)

	dg := bg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *batchApi) authorize(ctx echo.Context, act access.Action) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return access.Can(actor, access.Batch, act, access.Target{})
}

func (api *batchApi) query(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, batchOrderingFields...)

	batches, err := api.deps.BatchSvc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *batchApi) create(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionCreate); err != nil {
		return err
	}

	var data batch.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	b, err := api.deps.BatchSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	b, err := api.deps.BatchSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) update(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionUpdate); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	orig, err := api.deps.BatchSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting batch")
	}

	var data batch.UpdateBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBatch")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	b, err := api.deps.BatchSvc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) destroy(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionDelete); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	if _, err := api.deps.BatchSvc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "getting batch")
	}
	if err := api.deps.BatchSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting batch")
	}
	return ctx.NoContent(http.StatusNoContent)
}
