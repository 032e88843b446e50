package calendar

import (
	"calsync-api/core/database"
	"calsync-api/core/middleware"
	authRepository "calsync-api/modules/auth/repository"
	"calsync-api/modules/calendar/controller"
	"calsync-api/modules/calendar/repository"
	"calsync-api/modules/calendar/router"
	"calsync-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase) {
	// Initialize layers
	extRepo := repository.NewExternalCalendarRepository(db)
	calRepo := repository.NewCalendarRepository(db)
	connRepo := authRepository.NewConnectionRepository(db)

	registryService := service.NewRegistryService(extRepo, calRepo, connRepo)
	calendarController := controller.NewCalendarController(registryService)

	mw := middleware.NewMiddleware()
	router.NewCalendarRouter(calendarController).Setup(e, mw)
}
