package controller

import (
	"net/http"

	"calsync-api/core/controller"
	"calsync-api/core/errors"
	"calsync-api/core/middleware"
	"calsync-api/modules/sync/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SyncController struct {
	controller.BaseController
	orchestrator service.Orchestrator
}

func NewSyncController(orchestrator service.Orchestrator) *SyncController {
	return &SyncController{
		BaseController: controller.NewBaseController(),
		orchestrator:   orchestrator,
	}
}

// TriggerSync queues an inbound sync run for every external calendar of the
// current user.
// POST /api/v1/private/sync/run
func (c *SyncController) TriggerSync(ctx echo.Context) error {
	userID, ok := ctx.Get(middleware.ContextUserID).(uuid.UUID)
	if !ok {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrUnauthorized, "invalid user", nil))
	}

	queued, err := c.orchestrator.SyncNow(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusAccepted, map[string]any{
		"queued": queued,
	})
}
