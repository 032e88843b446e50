package controller

import (
	"net/http"

	"calsync-api/core/controller"
	"calsync-api/core/errors"
	"calsync-api/core/middleware"
	"calsync-api/modules/event/dto"
	"calsync-api/modules/event/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type EventController struct {
	controller.BaseController
	service service.EventService
}

func NewEventController(service service.EventService) *EventController {
	return &EventController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

// CreateEvent creates a local event, pushing it to the provider when the
// calendar is mirrored.
// POST /api/v1/private/events
func (c *EventController) CreateEvent(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.CreateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	result, err := c.service.CreateEvent(ctx.Request().Context(), userID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, result)
}

// UpdateEvent updates a local event.
// PUT /api/v1/private/events/:id
func (c *EventController) UpdateEvent(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid event id", err))
	}

	var req dto.UpdateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	result, err := c.service.UpdateEvent(ctx.Request().Context(), userID, eventID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, result, "event updated")
}

// DeleteEvent deletes a local event.
// DELETE /api/v1/private/events/:id
func (c *EventController) DeleteEvent(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid event id", err))
	}

	if err := c.service.DeleteEvent(ctx.Request().Context(), userID, eventID); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, nil, "event deleted")
}

// ConvertKind converts an event between the local kinds.
// POST /api/v1/private/events/:id/convert
func (c *EventController) ConvertKind(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid event id", err))
	}

	var req dto.ConvertKindRequest
	if err := ctx.Bind(&req); err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	result, err := c.service.ConvertKind(ctx.Request().Context(), userID, eventID, req.Kind)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, result, "event converted")
}

// GetEvent returns a single event.
// GET /api/v1/private/events/:id
func (c *EventController) GetEvent(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid event id", err))
	}

	result, err := c.service.GetEvent(ctx.Request().Context(), userID, eventID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, result, "")
}

// ListEvents lists the events of one calendar.
// GET /api/v1/private/calendars/:id/events
func (c *EventController) ListEvents(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	calendarID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid calendar id", err))
	}

	result, err := c.service.ListByCalendar(ctx.Request().Context(), userID, calendarID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, result, "")
}

func userIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	userID, ok := ctx.Get(middleware.ContextUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "invalid user", nil)
	}
	return userID, nil
}
