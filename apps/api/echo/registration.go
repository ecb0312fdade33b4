package echoapi

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
)

type (
	registrationApi struct {
		lc        *registration.Lifecycle
		courseSvc *course.Service
		validate  *validator.Validate
	}

	OpenRegistrationResponse struct {
		Registration     registration.Registration `json:"registration"`
		RemainingSeconds int64                     `json:"remaining_seconds"`
	}
)

// sortable registration fields
var registrationLess = map[string]func(a, b registration.Registration) bool{
	"batch":      func(a, b registration.Registration) bool { return a.Batch < b.Batch },
	"start_date": func(a, b registration.Registration) bool { return a.StartDate.Before(b.StartDate) },
	"end_date":   func(a, b registration.Registration) bool { return a.EndDate.Before(b.EndDate) },
	"created_at": func(a, b registration.Registration) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

func registerRegistrationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	lc *registration.Lifecycle,
	courseSvc *course.Service,
	validate *validator.Validate,
) {
	api := registrationApi{
		lc:        lc,
		courseSvc: courseSvc,
		validate:  validate,
	}

	rg := g.Group("/registrations", jwt)
	rg.GET("", api.query, staffMiddleware())
	rg.GET("/open", api.retrieveOpen, staffMiddleware())
	rg.POST("", api.open, adminMiddleware())

	dg := rg.Group("/:id", adminMiddleware())
	dg.PUT("", api.update)
	dg.POST("/close", api.close)
}

// Handlers

func (api *registrationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var ord Ordering
	ord.Bind(ctx)

	all := api.lc.Store().All()
	regs := make([]registration.Registration, 0, len(all))
	for _, reg := range all {
		if reg.IsHidden && !claims.IsAdmin {
			continue
		}
		regs = append(regs, reg)
	}

	sort.SliceStable(regs, func(i, j int) bool {
		for _, o := range ord.Orderings {
			less, ok := registrationLess[o.Field]
			if !ok {
				continue
			}
			a, b := regs[i], regs[j]
			if !o.Ascending {
				a, b = b, a
			}
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		}
		return false
	})

	return ctx.JSON(http.StatusOK, regs)
}

func (api *registrationApi) retrieveOpen(ctx echo.Context) error {
	reg, ok := api.lc.Store().CurrentOpen()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "there is no open registration")
	}
	remaining := reg.Remaining(time.Now()).Seconds()
	return ctx.JSON(http.StatusOK, OpenRegistrationResponse{
		Registration:     reg,
		RemainingSeconds: int64(math.Ceil(remaining)),
	})
}

func (api *registrationApi) open(ctx echo.Context) error {
	var data registration.OpenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	courses, err := api.courseSvc.Courses(rctx)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	semester, err := api.courseSvc.OpenSemester(rctx)
	if err != nil {
		return errors.Wrap(err, "getting open semester")
	}

	reg, err := api.lc.Open(rctx, data, courses, semester)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusCreated, reg)
	case registration.ErrSkipped:
		return ctx.NoContent(http.StatusNoContent)
	case registration.ErrAlreadyOpen, registration.ErrOpenElsewhere, registration.ErrOpenPending:
		return echo.NewHTTPError(http.StatusConflict, errors.Cause(err).Error())
	default:
		return remoteHTTPError(err, registration.MsgOpenFailed)
	}
}

func (api *registrationApi) update(ctx echo.Context) error {
	orig, ok := api.lc.Store().Get(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}

	var data registration.EditRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditRegistration")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	reg, err := api.lc.Edit(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		var vErr *core.ValidationError
		switch cause := errors.Cause(err); {
		case cause == registration.ErrNotFound:
			return errHttpNotFound
		case cause == registration.ErrClosePending, cause == registration.ErrEditPending:
			return echo.NewHTTPError(http.StatusConflict, cause.Error())
		case errors.As(err, &vErr):
			return err
		}
		return remoteHTTPError(err, registration.MsgEditFailed)
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *registrationApi) close(ctx echo.Context) error {
	reg, ok := api.lc.Store().Get(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}

	closed, err := api.lc.Close(ctx.Request().Context(), reg)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, closed)
	case registration.ErrClosePending, registration.ErrEditPending:
		return echo.NewHTTPError(http.StatusConflict, errors.Cause(err).Error())
	default:
		return remoteHTTPError(err, registration.MsgCloseFailed)
	}
}
