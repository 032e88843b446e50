package router

import (
	"calsync-api/core/middleware"
	"calsync-api/modules/sync/controller"

	"github.com/labstack/echo/v4"
)

type SyncRouter struct {
	syncController    *controller.SyncController
	webhookController *controller.WebhookController
}

func NewSyncRouter(syncController *controller.SyncController, webhookController *controller.WebhookController) *SyncRouter {
	return &SyncRouter{
		syncController:    syncController,
		webhookController: webhookController,
	}
}

func (r *SyncRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Provider push notifications, unauthenticated by design.
	v1.POST("/webhooks/calendar", r.webhookController.HandleCalendarNotification)

	syncRoutes := v1.Group("/private/sync")
	syncRoutes.Use(mw.AuthMiddleware())
	syncRoutes.POST("/run", r.syncController.TriggerSync)
}
