package echoapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/upload"
)

var fileOrderingFields = []string{"id", "original_filename", "upload_date", "batch_id"}

type fileApi struct {
	deps ServerDeps
}

func registerFileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := fileApi{deps: deps}

	fg := g.Group("/files", jwt)
	fg.GET("", api.query)
	fg.POST("", api.create)

	dg := fg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/download", api.download)
}

func fileTarget(f upload.File) access.Target {
	batchID, uploaderID := f.BatchID, f.UploaderID
	return access.Target{BatchID: &batchID, OwnerID: &uploaderID}
}

// getObject fetches the file and authorizes act against it in one step.
func (api *fileApi) getObject(ctx echo.Context, act access.Action) (upload.File, error) {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return upload.File{}, errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return upload.File{}, err
	}

	f, err := api.deps.FileSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return upload.File{}, errors.Wrap(err, "getting file")
	}
	if err := access.Can(actor, access.File, act, fileTarget(f)); err != nil {
		return upload.File{}, err
	}
	return f, nil
}

func (api *fileApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(upload.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []upload.File{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, fileOrderingFields...)

	files, err := api.deps.FileSvc.Query(ctx.Request().Context(), actor, *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying files")
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *fileApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}

	data, err := bindNewFile(ctx)
	if err != nil {
		return err
	}
	data.Filename = header.Filename
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	src, err := header.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	f, err := api.deps.FileSvc.Create(ctx.Request().Context(), actor, data, src)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	return ctx.JSON(http.StatusCreated, f)
}

// bindNewFile reads the non-blob multipart fields. Numeric fields must parse;
// this is creation input, not filtering, so a bad value is a field error.
func bindNewFile(ctx echo.Context) (upload.NewFile, error) {
	var data upload.NewFile

	batchID, err := strconv.Atoi(ctx.FormValue("batch_id"))
	if err != nil {
		return data, core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: "a valid batch is required"})
	}
	typeID, err := strconv.Atoi(ctx.FormValue("discussion_type_id"))
	if err != nil {
		return data, core.NewValidationError(nil, core.FieldError{Field: "discussion_type_id", Error: "a valid discussion type is required"})
	}
	data.BatchID = batchID
	data.DiscussionTypeID = typeID
	data.Description = ctx.FormValue("description")

	if raw := ctx.FormValue("schedule_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return data, core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: "a valid schedule is required"})
		}
		data.ScheduleID = &id
	}
	return data, nil
}

func (api *fileApi) retrieve(ctx echo.Context) error {
	f, err := api.getObject(ctx, access.ActionRead)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileApi) update(ctx echo.Context) error {
	orig, err := api.getObject(ctx, access.ActionUpdate)
	if err != nil {
		return err
	}

	var data upload.UpdateFile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFile")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	f, err := api.deps.FileSvc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating file")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileApi) destroy(ctx echo.Context) error {
	f, err := api.getObject(ctx, access.ActionDelete)
	if err != nil {
		return err
	}
	if err := api.deps.FileSvc.Delete(ctx.Request().Context(), f.ID); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *fileApi) download(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.deps.UsrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	rc, filename, err := api.deps.FileSvc.Download(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "downloading file")
	}
	defer func() { _ = rc.Close() }()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(filename))
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

// contentDisposition renders an attachment header, falling back to RFC 5987
// UTF-8 percent-encoding for non-ASCII filenames.
func contentDisposition(filename string) string {
	if isASCII(filename) {
		return fmt.Sprintf(`attachment; filename=%q`, filename)
	}
	return fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename))
}

func isASCII(s string) bool {
	for _, c := range s {
		if c > 127 {
			return false
		}
	}
	return true
}
