package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/registrar/services/notify"
)

type notificationApi struct {
	feed *notify.Feed
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, feed *notify.Feed) {
	api := notificationApi{feed: feed}
	g.GET("/notifications", api.query, jwt, staffMiddleware())
}

func (api *notificationApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.feed.Recent())
}
