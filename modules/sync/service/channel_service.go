package service

import (
	"context"
	"strings"
	"time"

	"calsync-api/core/config"
	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/core/utils"
	authService "calsync-api/modules/auth/service"
	calendarService "calsync-api/modules/calendar/service"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
)

// WebhookCalendarPath is where providers deliver push notifications,
// relative to the configured public base URL.
const WebhookCalendarPath = "/api/v1/webhooks/calendar"

// ChannelService manages provider push channels: one watch subscription per
// external calendar, renewed before it expires.
type ChannelService interface {
	RegisterWatch(ctx context.Context, externalCalendarID uuid.UUID) error
	RenewExpiring(ctx context.Context) error
}

type channelService struct {
	registry    calendarService.RegistryService
	connections authService.ConnectionService
	providers   provider.Registry
}

func NewChannelService(
	registry calendarService.RegistryService,
	connections authService.ConnectionService,
	providers provider.Registry,
) ChannelService {
	return &channelService{
		registry:    registry,
		connections: connections,
		providers:   providers,
	}
}

// RegisterWatch subscribes the provider to push changes for one external
// calendar and stores the channel coordinates. Without a public webhook base
// URL there is nothing the provider could call back, so registration fails
// with ErrWebhookNotConfigured and the mapping stays on the periodic sweep.
func (s *channelService) RegisterWatch(ctx context.Context, externalCalendarID uuid.UUID) error {
	address := webhookAddress(config.Get().Webhook.BaseURL)
	if address == "" {
		return errors.NewAppError(errors.ErrWebhookNotConfigured, "webhook base url is not configured", nil)
	}

	ext, err := s.registry.GetByID(ctx, externalCalendarID)
	if err != nil {
		return err
	}
	if ext == nil {
		return errors.NewAppError(errors.ErrNotFound, "external calendar not found", nil)
	}

	conn, err := s.connections.GetConnection(ctx, ext.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return errors.NewAppError(errors.ErrNotFound, "connection not found", nil)
	}

	client, err := s.providers.Get(conn.Provider)
	if err != nil {
		return err
	}

	accessToken, err := s.connections.GetValidAccessToken(ctx, conn.ID)
	if err != nil {
		return err
	}

	watch := provider.WatchRequest{
		ChannelID: utils.GenerateChannelID(),
		Secret:    utils.GenerateRandomString(24),
		Address:   address,
		Expiry:    time.Now().Add(constants.ChannelTTL),
	}

	result, err := client.CreateWatch(ctx, accessToken, ext.RemoteCalendarID, watch)
	if err != nil {
		return err
	}

	expiry := watch.Expiry
	if !result.Expiry.IsZero() {
		expiry = result.Expiry
	}

	if err := s.registry.SetChannel(ctx, ext.ID, watch.ChannelID, watch.Secret, result.ResourceID, expiry); err != nil {
		return err
	}

	logger.Info("ChannelService:RegisterWatch:Done",
		"external_calendar_id", ext.ID,
		"provider", conn.Provider,
		"channel_id", watch.ChannelID,
		"expires_at", expiry,
	)
	return nil
}

// RenewExpiring re-registers every channel expiring inside the renewal
// window, plus mappings that never got one. Failures are logged per mapping
// and the sweep moves on; the next periodic run picks the stragglers up.
func (s *channelService) RenewExpiring(ctx context.Context) error {
	if webhookAddress(config.Get().Webhook.BaseURL) == "" {
		logger.Info("ChannelService:RenewExpiring:WebhookNotConfigured")
		return nil
	}

	due, err := s.registry.FindChannelsExpiringWithin(ctx, constants.ChannelRenewalWindow)
	if err != nil {
		return err
	}

	renewed := 0
	for _, m := range due {
		if err := s.RegisterWatch(ctx, m.ID); err != nil {
			logger.Error("ChannelService:RenewExpiring:Error",
				"external_calendar_id", m.ID, "error", err)
			continue
		}
		renewed++
	}

	logger.Info("ChannelService:RenewExpiring:Done", "due", len(due), "renewed", renewed)
	return nil
}

func webhookAddress(baseURL string) string {
	if strings.TrimSpace(baseURL) == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + WebhookCalendarPath
}
