package event

import (
	"calsync-api/core/database"
	"calsync-api/core/middleware"
	"calsync-api/core/tasks"
	calendarRepository "calsync-api/modules/calendar/repository"
	"calsync-api/modules/event/controller"
	"calsync-api/modules/event/repository"
	"calsync-api/modules/event/router"
	"calsync-api/modules/event/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, distributor tasks.Distributor) {
	// Initialize layers
	eventRepo := repository.NewEventRepository(db)
	calRepo := calendarRepository.NewCalendarRepository(db)
	extRepo := calendarRepository.NewExternalCalendarRepository(db)

	eventService := service.NewEventService(eventRepo, calRepo, extRepo, distributor)
	eventController := controller.NewEventController(eventService)

	mw := middleware.NewMiddleware()
	router.NewEventRouter(eventController).Setup(e, mw)
}
