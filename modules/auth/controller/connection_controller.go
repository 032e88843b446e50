package controller

import (
	"net/http"
	"strconv"

	"calsync-api/core/controller"
	"calsync-api/core/errors"
	"calsync-api/core/middleware"
	"calsync-api/modules/auth/dto"
	"calsync-api/modules/auth/service"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ConnectionController struct {
	controller.BaseController
	connections service.ConnectionService
	connect     service.ConnectService
	users       service.UserService
}

func NewConnectionController(
	connections service.ConnectionService,
	connect service.ConnectService,
	users service.UserService,
) *ConnectionController {
	return &ConnectionController{
		BaseController: controller.NewBaseController(),
		connections:    connections,
		connect:        connect,
		users:          users,
	}
}

// StartConnect returns the provider consent URL for the current user.
// GET /api/v1/private/connections/:provider/connect
func (c *ConnectionController) StartConnect(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	providerTag := ctx.Param("provider")
	if providerTag != provider.Google && providerTag != provider.Tracker {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "unknown provider", nil))
	}

	url, state, err := c.connect.StartConnect(ctx.Request().Context(), userID, providerTag)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, dto.ConnectURLResponse{URL: url, State: state}, "")
}

// HandleCallback is the OAuth redirect target; the state nonce binds it back
// to the user who started the flow.
// GET /api/v1/connections/callback?state=...&code=...
func (c *ConnectionController) HandleCallback(ctx echo.Context) error {
	state := ctx.QueryParam("state")
	code := ctx.QueryParam("code")
	if state == "" || code == "" {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "state and code are required", nil))
	}

	connectionID, err := c.connect.HandleCallback(ctx.Request().Context(), state, code)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto.ConnectCallbackResponse{ConnectionID: connectionID.String()})
}

// ListConnections lists the provider connections of the current user.
// GET /api/v1/private/connections
func (c *ConnectionController) ListConnections(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	connections, err := c.connections.ListConnections(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	result := dto.ConnectionListResponse{Connections: []dto.ConnectionResponse{}}
	for _, conn := range connections {
		result.Connections = append(result.Connections, dto.ConnectionResponse{
			ID:          conn.ID.String(),
			Provider:    conn.Provider,
			ConnectedAt: conn.CreatedAt,
		})
	}
	return c.SuccessResponse(ctx, result, "")
}

// RemoveConnection disconnects a provider. With delete_events=true the
// mirrored events go too; otherwise they stay as plain local events.
// DELETE /api/v1/private/connections/:id?delete_events=false
func (c *ConnectionController) RemoveConnection(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	connectionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidInput, "invalid connection id", err))
	}

	conn, err := c.connections.GetConnection(ctx.Request().Context(), connectionID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	if conn != nil && conn.UserID != userID {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrForbidden, "connection belongs to another user", nil))
	}

	deleteEvents, _ := strconv.ParseBool(ctx.QueryParam("delete_events"))
	if err := c.connections.RemoveConnection(ctx.Request().Context(), connectionID, deleteEvents); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, nil, "connection removed")
}

// GetProfile returns the current user with their sync settings.
// GET /api/v1/private/profile
func (c *ConnectionController) GetProfile(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	profile, err := c.users.GetProfile(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, profile, "")
}

// UpdateSyncHorizon changes how far back full resyncs reach.
// PUT /api/v1/private/profile/sync-horizon
func (c *ConnectionController) UpdateSyncHorizon(ctx echo.Context) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	var req dto.UpdateSyncHorizonRequest
	if err := ctx.Bind(&req); err != nil {
		return c.ErrorResponse(ctx, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	profile, err := c.users.UpdateSyncHorizon(ctx.Request().Context(), userID, req.Months)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return c.SuccessResponse(ctx, profile, "sync horizon updated")
}

func userIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	userID, ok := ctx.Get(middleware.ContextUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "invalid user", nil)
	}
	return userID, nil
}
