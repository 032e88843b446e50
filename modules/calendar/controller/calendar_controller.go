package controller

import (
	"calsync-api/core/controller"
	"calsync-api/core/errors"
	"calsync-api/core/middleware"
	"calsync-api/modules/calendar/dto"
	"calsync-api/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	controller.BaseController
	registry service.RegistryService
}

func NewCalendarController(registry service.RegistryService) *CalendarController {
	return &CalendarController{
		BaseController: controller.NewBaseController(),
		registry:       registry,
	}
}

// ListCalendars lists the local calendars of the current user.
// GET /api/v1/private/calendars
func (c *CalendarController) ListCalendars(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	calendars, err := c.registry.ListLocalByUser(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, dto.CalendarListResponse{Calendars: calendars}, "")
}

// ListExternalCalendars lists the remote-to-local mappings with their sync
// and watch state.
// GET /api/v1/private/external-calendars
func (c *CalendarController) ListExternalCalendars(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	mappings, err := c.registry.ListByUser(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, dto.ExternalCalendarListResponse{Calendars: mappings}, "")
}

func userIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	userID, ok := ctx.Get(middleware.ContextUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "invalid user", nil)
	}
	return userID, nil
}
