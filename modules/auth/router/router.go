package router

import (
	"calsync-api/core/middleware"
	"calsync-api/modules/auth/controller"

	"github.com/labstack/echo/v4"
)

type AuthRouter struct {
	controller *controller.ConnectionController
}

func NewAuthRouter(controller *controller.ConnectionController) *AuthRouter {
	return &AuthRouter{controller: controller}
}

func (r *AuthRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// OAuth redirect target, reached by the provider without our bearer token.
	v1.GET("/connections/callback", r.controller.HandleCallback)

	connectionRoutes := v1.Group("/private/connections")
	connectionRoutes.Use(mw.AuthMiddleware())
	connectionRoutes.GET("", r.controller.ListConnections)
	connectionRoutes.GET("/:provider/connect", r.controller.StartConnect)
	connectionRoutes.DELETE("/:id", r.controller.RemoveConnection)

	profileRoutes := v1.Group("/private/profile")
	profileRoutes.Use(mw.AuthMiddleware())
	profileRoutes.GET("", r.controller.GetProfile)
	profileRoutes.PUT("/sync-horizon", r.controller.UpdateSyncHorizon)
}
