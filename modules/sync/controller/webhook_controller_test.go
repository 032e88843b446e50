package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreEntity "calsync-api/core/entity"
	"calsync-api/core/tasks"
	"calsync-api/modules/calendar/dto"
	"calsync-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	ext *entity.ExternalCalendar
}

func (r *stubRegistry) UpsertByRemoteID(_ context.Context, _ uuid.UUID, _, _, _ string) (*entity.ExternalCalendar, error) {
	return nil, nil
}

func (r *stubRegistry) ListAll(_ context.Context) ([]entity.ExternalCalendar, error) {
	return nil, nil
}

func (r *stubRegistry) ListByUser(_ context.Context, _ uuid.UUID) ([]dto.ExternalCalendarResponse, error) {
	return nil, nil
}

func (r *stubRegistry) ListLocalByUser(_ context.Context, _ uuid.UUID) ([]dto.CalendarResponse, error) {
	return nil, nil
}

func (r *stubRegistry) FindChannelsExpiringWithin(_ context.Context, _ time.Duration) ([]entity.ExternalCalendar, error) {
	return nil, nil
}

func (r *stubRegistry) GetByChannelID(_ context.Context, channelID string) (*entity.ExternalCalendar, error) {
	if r.ext != nil && r.ext.ChannelID != nil && *r.ext.ChannelID == channelID {
		return r.ext, nil
	}
	return nil, nil
}

func (r *stubRegistry) GetByID(_ context.Context, _ uuid.UUID) (*entity.ExternalCalendar, error) {
	return r.ext, nil
}

func (r *stubRegistry) SetChannel(_ context.Context, _ uuid.UUID, _, _, _ string, _ time.Time) error {
	return nil
}

func (r *stubRegistry) MarkRunStarted(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *stubRegistry) MarkRunFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

type stubDistributor struct {
	syncIDs []uuid.UUID
}

func (d *stubDistributor) EnqueueSyncCalendar(_ context.Context, externalCalendarID uuid.UUID) error {
	d.syncIDs = append(d.syncIDs, externalCalendarID)
	return nil
}

func (d *stubDistributor) EnqueueConnectionBootstrap(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (d *stubDistributor) EnqueueOutboundEvent(_ context.Context, _ tasks.OutboundEventPayload) error {
	return nil
}

func watchedCalendar(channelID, secret string) *entity.ExternalCalendar {
	resourceID := "res-1"
	return &entity.ExternalCalendar{
		BaseEntity:       coreEntity.BaseEntity{ID: uuid.New()},
		ConnectionID:     uuid.New(),
		RemoteCalendarID: "remote-cal",
		CalendarID:       uuid.New(),
		ChannelID:        &channelID,
		ChannelSecret:    &secret,
		ResourceID:       &resourceID,
	}
}

func notify(t *testing.T, ctrl *WebhookController, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/calendar", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, ctrl.HandleCalendarNotification(e.NewContext(req, rec)))
	return rec
}

func TestNotificationQueuesSyncForKnownChannel(t *testing.T) {
	ext := watchedCalendar("chan-1", "secret-1")
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{ext: ext}, distributor)

	rec := notify(t, ctrl, map[string]string{
		headerChannelID:    "chan-1",
		headerChannelToken: "secret-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []uuid.UUID{ext.ID}, distributor.syncIDs)
}

func TestNotificationAcceptsGenericHeaders(t *testing.T) {
	ext := watchedCalendar("chan-1", "secret-1")
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{ext: ext}, distributor)

	rec := notify(t, ctrl, map[string]string{
		headerChannelIDAlt:    "chan-1",
		headerChannelTokenAlt: "secret-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, distributor.syncIDs, 1)
}

func TestNotificationUnknownChannelIsAcknowledgedAndDropped(t *testing.T) {
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{}, distributor)

	rec := notify(t, ctrl, map[string]string{headerChannelID: "chan-forged"})

	require.Equal(t, http.StatusOK, rec.Code, "the provider must never see an error")
	require.Empty(t, distributor.syncIDs)
}

func TestNotificationSecretMismatchNeverQueues(t *testing.T) {
	ext := watchedCalendar("chan-1", "secret-1")
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{ext: ext}, distributor)

	rec := notify(t, ctrl, map[string]string{
		headerChannelID:    "chan-1",
		headerChannelToken: "wrong",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, distributor.syncIDs)
}

func TestNotificationWithoutChannelIDIsIgnored(t *testing.T) {
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{}, distributor)

	rec := notify(t, ctrl, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, distributor.syncIDs)
}

func TestNotificationHandshakeIsNotASyncTrigger(t *testing.T) {
	ext := watchedCalendar("chan-1", "secret-1")
	distributor := &stubDistributor{}
	ctrl := NewWebhookController(&stubRegistry{ext: ext}, distributor)

	rec := notify(t, ctrl, map[string]string{
		headerChannelID:     "chan-1",
		headerChannelToken:  "secret-1",
		headerResourceState: resourceStateSync,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, distributor.syncIDs)
}
