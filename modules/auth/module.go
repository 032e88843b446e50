package auth

import (
	"calsync-api/core/cache"
	"calsync-api/core/database"
	"calsync-api/core/middleware"
	"calsync-api/core/tasks"
	"calsync-api/modules/auth/controller"
	"calsync-api/modules/auth/repository"
	"calsync-api/modules/auth/router"
	"calsync-api/modules/auth/service"
	calendarRepository "calsync-api/modules/calendar/repository"
	eventRepository "calsync-api/modules/event/repository"
	"calsync-api/modules/provider"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache, providers provider.Registry, distributor tasks.Distributor) {
	// Initialize layers
	userRepo := repository.NewUserRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	extRepo := calendarRepository.NewExternalCalendarRepository(db)
	eventRepo := eventRepository.NewEventRepository(db)

	connectionService := service.NewConnectionService(connRepo, userRepo, extRepo, eventRepo, providers)
	connectService := service.NewConnectService(connectionService, providers, cache, distributor)
	userService := service.NewUserService(userRepo)

	connectionController := controller.NewConnectionController(connectionService, connectService, userService)

	mw := middleware.NewMiddleware()
	router.NewAuthRouter(connectionController).Setup(e, mw)
}
