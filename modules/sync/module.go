package sync

import (
	"calsync-api/core/database"
	"calsync-api/core/middleware"
	"calsync-api/core/tasks"
	authRepository "calsync-api/modules/auth/repository"
	authService "calsync-api/modules/auth/service"
	calendarRepository "calsync-api/modules/calendar/repository"
	calendarService "calsync-api/modules/calendar/service"
	eventRepository "calsync-api/modules/event/repository"
	"calsync-api/modules/provider"
	"calsync-api/modules/sync/controller"
	"calsync-api/modules/sync/router"
	"calsync-api/modules/sync/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, providers provider.Registry, distributor tasks.Distributor, mux *asynq.ServeMux) {
	// Initialize layers
	userRepo := authRepository.NewUserRepository(db)
	connRepo := authRepository.NewConnectionRepository(db)
	extRepo := calendarRepository.NewExternalCalendarRepository(db)
	calRepo := calendarRepository.NewCalendarRepository(db)
	eventRepo := eventRepository.NewEventRepository(db)

	connectionSvc := authService.NewConnectionService(connRepo, userRepo, extRepo, eventRepo, providers)
	registrySvc := calendarService.NewRegistryService(extRepo, calRepo, connRepo)

	inbound := service.NewInboundSyncService(extRepo, eventRepo, userRepo, connectionSvc, providers)
	outbound := service.NewOutboundSyncService(eventRepo, extRepo, connectionSvc, providers)
	channels := service.NewChannelService(registrySvc, connectionSvc, providers)
	orchestrator := service.NewOrchestrator(
		inbound, outbound, channels, registrySvc, connectionSvc, providers, extRepo, distributor)

	// Queue handlers run in the worker process off the same binary.
	orchestrator.RegisterHandlers(mux)

	syncController := controller.NewSyncController(orchestrator)
	webhookController := controller.NewWebhookController(registrySvc, distributor)

	mw := middleware.NewMiddleware()
	router.NewSyncRouter(syncController, webhookController).Setup(e, mw)
}
