package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/schedule"
)

var scheduleOrderingFields = []string{"id", "title", "scheduled_date", "batch_id"}

type scheduleApi struct {
	deps ServerDeps
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := scheduleApi{deps: deps}

	sg := g.Group("/schedules", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func scheduleTarget(s schedule.Schedule) access.Target {
	batchID := s.BatchID
	return access.Target{BatchID: &batchID, OwnerID: s.PresenterID}
}

// getObject fetches the schedule and authorizes act against it in one step.
func (api *scheduleApi) getObject(ctx echo.Context, act access.Action) (schedule.Schedule, error) {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return schedule.Schedule{}, err
	}

	s, err := api.deps.SchedSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting schedule")
	}
	if err := access.Can(actor, access.Schedule, act, scheduleTarget(s)); err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

func (api *scheduleApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Schedule{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, scheduleOrderingFields...)

	schedules, err := api.deps.SchedSvc.Query(ctx.Request().Context(), actor, *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	s, err := api.deps.SchedSvc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, err := api.getObject(ctx, access.ActionRead)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	orig, err := api.getObject(ctx, access.ActionUpdate)
	if err != nil {
		return err
	}

	var data schedule.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	s, err := api.deps.SchedSvc.Update(ctx.Request().Context(), actor, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	s, err := api.getObject(ctx, access.ActionDelete)
	if err != nil {
		return err
	}
	if err := api.deps.SchedSvc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
