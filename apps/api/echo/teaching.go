package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
)

type teachingApi struct {
	store    *registration.Store
	svc      *teaching.Service
	validate *validator.Validate
}

func registerTeachingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	store *registration.Store,
	svc *teaching.Service,
	validate *validator.Validate,
) {
	api := teachingApi{
		store:    store,
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/teachings", jwt, teacherMiddleware())
	tg.GET("", api.query)
	tg.POST("", api.create)
}

func (api *teachingApi) openRegistration() *registration.Registration {
	if reg, ok := api.store.CurrentOpen(); ok {
		return &reg
	}
	return nil
}

// Handlers

func (api *teachingApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rows, err := api.svc.Rows(ctx.Request().Context(), api.openRegistration(), claims.Subject, ctx.QueryParam(searchParam))
	if err != nil {
		if errors.Cause(err) == teaching.ErrNoOpenRegistration {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return errors.Wrap(err, "querying teaching rows")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *teachingApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data teaching.NewTeaching
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeaching")
	}
	data.CourseID = core.CleanString(data.CourseID)
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), api.openRegistration(), claims.Subject, data)
	if err != nil {
		var (
			vErr      *core.ValidationError
			remoteErr *registration.RemoteError
		)
		switch {
		case errors.Cause(err) == teaching.ErrNoOpenRegistration:
			return core.NewValidationError(err)
		case errors.As(err, &vErr):
			return err
		case errors.As(err, &remoteErr) && remoteErr.StatusCode < http.StatusInternalServerError:
			return echo.NewHTTPError(remoteErr.StatusCode, registration.MessageOf(err, err.Error()))
		}
		return errors.Wrap(err, "creating teaching")
	}
	return ctx.JSON(http.StatusCreated, t)
}
