package controller

import (
	"net/http"

	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	calendarService "calsync-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

// Push notification headers, Google naming with a generic fallback for the
// tracker.
const (
	headerChannelID     = "X-Goog-Channel-ID"
	headerChannelToken  = "X-Goog-Channel-Token"
	headerResourceState = "X-Goog-Resource-State"

	headerChannelIDAlt    = "X-Channel-ID"
	headerChannelTokenAlt = "X-Channel-Token"

	resourceStateSync = "sync"
)

type WebhookController struct {
	registry    calendarService.RegistryService
	distributor tasks.Distributor
}

func NewWebhookController(registry calendarService.RegistryService, distributor tasks.Distributor) *WebhookController {
	return &WebhookController{registry: registry, distributor: distributor}
}

// HandleCalendarNotification receives provider push notifications. It only
// routes the channel id to a queued sync run; the payload itself is never
// trusted. The response is always 200 so the provider does not disable the
// channel over transient failures on our side.
// POST /api/v1/webhooks/calendar
func (c *WebhookController) HandleCalendarNotification(ctx echo.Context) error {
	channelID := headerValue(ctx, headerChannelID, headerChannelIDAlt)
	if channelID == "" {
		logger.Warn("WebhookController:Notification:NoChannelID")
		return ctx.NoContent(http.StatusOK)
	}

	ext, err := c.registry.GetByChannelID(ctx.Request().Context(), channelID)
	if err != nil {
		logger.Error("WebhookController:Notification:Lookup:Error",
			"channel_id", channelID, "error", err)
		return ctx.NoContent(http.StatusOK)
	}
	if ext == nil {
		// Stale or forged channel; acknowledged and dropped.
		logger.Warn("WebhookController:Notification:UnknownChannel", "channel_id", channelID)
		return ctx.NoContent(http.StatusOK)
	}

	if token := headerValue(ctx, headerChannelToken, headerChannelTokenAlt); token != "" &&
		ext.ChannelSecret != nil && token != *ext.ChannelSecret {
		logger.Warn("WebhookController:Notification:SecretMismatch", "channel_id", channelID)
		return ctx.NoContent(http.StatusOK)
	}

	if ctx.Request().Header.Get(headerResourceState) == resourceStateSync {
		// Registration handshake, nothing changed yet.
		return ctx.NoContent(http.StatusOK)
	}

	if err := c.distributor.EnqueueSyncCalendar(ctx.Request().Context(), ext.ID); err != nil {
		logger.Error("WebhookController:Notification:Enqueue:Error",
			"external_calendar_id", ext.ID, "error", err)
	}
	return ctx.NoContent(http.StatusOK)
}

func headerValue(ctx echo.Context, names ...string) string {
	for _, name := range names {
		if v := ctx.Request().Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
