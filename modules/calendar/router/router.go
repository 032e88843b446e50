package router

import (
	"calsync-api/core/middleware"
	"calsync-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	calendarRoutes := v1.Group("/private/calendars")
	calendarRoutes.Use(mw.AuthMiddleware())
	calendarRoutes.GET("", r.controller.ListCalendars)

	externalRoutes := v1.Group("/private/external-calendars")
	externalRoutes.Use(mw.AuthMiddleware())
	externalRoutes.GET("", r.controller.ListExternalCalendars)
}
