package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/registrar/core"
)

var (
	orderingParam = "ordering"
	searchParam   = "search"
)

type Ordering struct {
	Orderings []core.Ordering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrderings(val)
	}
}
