package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/discussion"
)

var discussionOrderingFields = []string{"id", "name", "slug"}

type discussionTypeApi struct {
	deps ServerDeps
}

func registerDiscussionTypeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := discussionTypeApi{deps: deps}

	tg := g.Group("/discussion-types", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)

	dg := tg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *discussionTypeApi) authorize(ctx echo.Context, act access.Action) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return access.Can(actor, access.DiscussionType, act, access.Target{})
}

func (api *discussionTypeApi) query(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, discussionOrderingFields...)

	types, err := api.deps.DiscSvc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying discussion types")
	}
	return ctx.JSON(http.StatusOK, types)
}

func (api *discussionTypeApi) create(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionCreate); err != nil {
		return err
	}

	var data discussion.NewType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewType")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	dt, err := api.deps.DiscSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating discussion type")
	}
	return ctx.JSON(http.StatusCreated, dt)
}

func (api *discussionTypeApi) retrieve(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionRead); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	dt, err := api.deps.DiscSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting discussion type")
	}
	return ctx.JSON(http.StatusOK, dt)
}

func (api *discussionTypeApi) update(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionUpdate); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	orig, err := api.deps.DiscSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting discussion type")
	}

	var data discussion.UpdateType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateType")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	dt, err := api.deps.DiscSvc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating discussion type")
	}
	return ctx.JSON(http.StatusOK, dt)
}

func (api *discussionTypeApi) destroy(ctx echo.Context) error {
	if err := api.authorize(ctx, access.ActionDelete); err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	if _, err := api.deps.DiscSvc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "getting discussion type")
	}
	if err := api.deps.DiscSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting discussion type")
	}
	return ctx.NoContent(http.StatusNoContent)
}
