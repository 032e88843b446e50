package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	coreEntity "calsync-api/core/entity"
	"calsync-api/core/errors"
	authEntity "calsync-api/modules/auth/entity"
	calendarEntity "calsync-api/modules/calendar/entity"
	eventEntity "calsync-api/modules/event/entity"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type inboundFixture struct {
	svc     InboundSyncService
	ext     *calendarEntity.ExternalCalendar
	extRepo *fakeExtRepo
	events  *fakeEventRepo
	client  *fakeClient
}

func newInboundFixture(t *testing.T, syncToken string, client *fakeClient) *inboundFixture {
	t.Helper()

	userID := uuid.New()
	connID := uuid.New()
	ext := &calendarEntity.ExternalCalendar{
		BaseEntity:       coreEntity.BaseEntity{ID: uuid.New()},
		ConnectionID:     connID,
		RemoteCalendarID: "remote-cal",
		CalendarID:       uuid.New(),
		Name:             "Work",
		SyncToken:        syncToken,
	}
	conn := &authEntity.Connection{
		BaseEntity:   coreEntity.BaseEntity{ID: connID},
		UserID:       userID,
		Provider:     provider.Google,
		RefreshToken: "rt",
	}
	user := &authEntity.User{
		BaseEntity:        coreEntity.BaseEntity{ID: userID},
		Email:             "me@example.com",
		SyncHorizonMonths: 1,
	}

	extRepo := newFakeExtRepo(ext)
	events := newFakeEventRepo()
	svc := NewInboundSyncService(
		extRepo,
		events,
		&fakeUserRepo{user: user},
		&fakeConnections{conn: conn, token: "access-token"},
		&fakeProviderRegistry{client: client},
	)
	return &inboundFixture{svc: svc, ext: ext, extRepo: extRepo, events: events, client: client}
}

func timedItem(id, title string, start time.Time) provider.RemoteEvent {
	return provider.RemoteEvent{
		ID:          id,
		Summary:     title,
		Status:      provider.EventStatusConfirmed,
		CreatorSelf: true,
		Start:       provider.RemoteEventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:         provider.RemoteEventTime{DateTime: start.Add(time.Hour).Format(time.RFC3339), TimeZone: "UTC"},
	}
}

func TestInboundSyncFullFetchAppliesUpsertsAndDeletes(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cancelled := timedItem("ev-2", "Cancelled", start)
	cancelled.Status = provider.EventStatusCancelled

	client := &fakeClient{listResults: []listResult{
		{page: &provider.ListEventsPage{
			Items:         []provider.RemoteEvent{timedItem("ev-1", "Standup", start), cancelled},
			NextPageToken: "page-2",
		}},
		{page: &provider.ListEventsPage{
			Items:         []provider.RemoteEvent{timedItem("ev-3", "Review", start.Add(2 * time.Hour))},
			NextSyncToken: "cursor-1",
		}},
	}}
	fx := newInboundFixture(t, "", client)

	err := fx.svc.SyncExternalCalendar(context.Background(), fx.ext.ID)
	require.NoError(t, err)

	require.Len(t, client.listQueries, 2)
	require.Empty(t, client.listQueries[0].SyncToken)
	require.False(t, client.listQueries[0].TimeMin.IsZero(), "full fetch must be time-bounded")
	require.Equal(t, "page-2", client.listQueries[1].PageToken)

	require.Len(t, fx.events.upsertBatches, 1)
	batch := fx.events.upsertBatches[0]
	require.Len(t, batch, 2)
	require.Equal(t, "Standup", batch[0].Title)
	require.Equal(t, provider.Google, *batch[0].ExternalProvider)
	require.Equal(t, "remote-cal", *batch[0].ExternalCalendarID)
	require.Equal(t, "ev-1", *batch[0].ExternalEventID)
	require.Equal(t, eventEntity.KindEvent, batch[0].Kind)
	require.True(t, batch[0].IsEditable)

	require.Equal(t, [][]string{{"ev-2"}}, fx.events.deleteBatches)
	require.Equal(t, []string{"cursor-1"}, fx.extRepo.syncTokens)
	require.Equal(t, "cursor-1", fx.ext.SyncToken)
}

func TestInboundSyncCursorNotPersistedWhenAPageFails(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{listResults: []listResult{
		{page: &provider.ListEventsPage{
			Items:         []provider.RemoteEvent{timedItem("ev-1", "Standup", start)},
			NextPageToken: "page-2",
		}},
		{err: errors.NewAppError(errors.ErrInternalServer, "boom", nil)},
	}}
	fx := newInboundFixture(t, "cursor-old", client)

	err := fx.svc.SyncExternalCalendar(context.Background(), fx.ext.ID)
	require.Error(t, err)
	require.Empty(t, fx.extRepo.syncTokens, "cursor must not advance on a failed run")
	require.Equal(t, "cursor-old", fx.ext.SyncToken)
	require.Empty(t, fx.events.upsertBatches, "partial runs apply nothing")
}

func TestInboundSyncExpiredCursorRetriesOnceAsFullResync(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{listResults: []listResult{
		{err: errors.NewAppError(errors.ErrCursorExpired, "sync token expired", nil)},
		{page: &provider.ListEventsPage{
			Items:         []provider.RemoteEvent{timedItem("ev-1", "Standup", start)},
			NextSyncToken: "cursor-fresh",
		}},
	}}
	fx := newInboundFixture(t, "cursor-stale", client)

	err := fx.svc.SyncExternalCalendar(context.Background(), fx.ext.ID)
	require.NoError(t, err)

	require.Len(t, client.listQueries, 2)
	require.Equal(t, "cursor-stale", client.listQueries[0].SyncToken)
	require.Empty(t, client.listQueries[1].SyncToken, "retry must run as a full resync")
	require.False(t, client.listQueries[1].TimeMin.IsZero())

	require.Equal(t, []string{"", "cursor-fresh"}, fx.extRepo.syncTokens)
}

func TestInboundSyncExpiredCursorOnRetryPropagates(t *testing.T) {
	expired := errors.NewAppError(errors.ErrCursorExpired, "sync token expired", nil)
	client := &fakeClient{listResults: []listResult{{err: expired}, {err: expired}}}
	fx := newInboundFixture(t, "cursor-stale", client)

	err := fx.svc.SyncExternalCalendar(context.Background(), fx.ext.ID)
	require.True(t, provider.IsCursorExpired(err))
	require.Len(t, client.listQueries, 2, "exactly one retry")
	require.Equal(t, []string{""}, fx.extRepo.syncTokens)
}

func TestInboundSyncSplitsLargeResultsIntoBatches(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var items []provider.RemoteEvent
	for i := 0; i < 250; i++ {
		items = append(items, timedItem(fmt.Sprintf("ev-%d", i), "Busy", start))
	}
	client := &fakeClient{listResults: []listResult{
		{page: &provider.ListEventsPage{Items: items, NextSyncToken: "cursor-1"}},
	}}
	fx := newInboundFixture(t, "", client)

	require.NoError(t, fx.svc.SyncExternalCalendar(context.Background(), fx.ext.ID))
	require.Len(t, fx.events.upsertBatches, 3)
	require.Len(t, fx.events.upsertBatches[0], 100)
	require.Len(t, fx.events.upsertBatches[1], 100)
	require.Len(t, fx.events.upsertBatches[2], 50)
}

func TestInboundSyncTrackerItemsBecomeTasks(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeClient{listResults: []listResult{
		{page: &provider.ListEventsPage{Items: []provider.RemoteEvent{timedItem("t-1", "Ship it", start)}}},
	}}
	fx := newInboundFixture(t, "", client)

	// Same fixture, but the mapping belongs to a tracker connection.
	svc := NewInboundSyncService(
		fx.extRepo,
		fx.events,
		&fakeUserRepo{user: &authEntity.User{Email: "me@example.com", SyncHorizonMonths: 1}},
		&fakeConnections{conn: &authEntity.Connection{
			BaseEntity: coreEntity.BaseEntity{ID: fx.ext.ConnectionID},
			Provider:   provider.Tracker,
		}, token: "access-token"},
		&fakeProviderRegistry{client: client},
	)

	require.NoError(t, svc.SyncExternalCalendar(context.Background(), fx.ext.ID))
	require.Len(t, fx.events.upsertBatches, 1)
	require.Equal(t, eventEntity.KindTask, fx.events.upsertBatches[0][0].Kind)
}

func TestEventEditable(t *testing.T) {
	tests := []struct {
		name string
		item provider.RemoteEvent
		want bool
	}{
		{"creator self", provider.RemoteEvent{CreatorSelf: true}, true},
		{"organizer self", provider.RemoteEvent{OrganizerSelf: true}, true},
		{"creator email matches", provider.RemoteEvent{CreatorEmail: "me@example.com"}, true},
		{"organizer email matches", provider.RemoteEvent{OrganizerEmail: "me@example.com"}, true},
		{"foreign, guests can modify", provider.RemoteEvent{CreatorEmail: "other@example.com", GuestsCanModify: true}, true},
		{"foreign, locked", provider.RemoteEvent{CreatorEmail: "other@example.com", OrganizerEmail: "other@example.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, eventEditable(tt.item, "me@example.com"))
		})
	}
}

func TestToLocalEventAllDay(t *testing.T) {
	ext := &calendarEntity.ExternalCalendar{
		BaseEntity:       coreEntity.BaseEntity{ID: uuid.New()},
		RemoteCalendarID: "remote-cal",
		CalendarID:       uuid.New(),
	}
	item := provider.RemoteEvent{
		ID:          "ev-1",
		Summary:     "Holiday",
		Status:      provider.EventStatusConfirmed,
		CreatorSelf: true,
		Start:       provider.RemoteEventTime{Date: "2026-03-02"},
	}

	ev, err := toLocalEvent(ext, provider.Google, "me@example.com", item)
	require.NoError(t, err)
	require.True(t, ev.AllDay)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), ev.StartsAt)
	require.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), ev.EndsAt, "missing end defaults to the next day")
}

func TestClampHorizonMonths(t *testing.T) {
	require.Equal(t, 1, clampHorizonMonths(0))
	require.Equal(t, 1, clampHorizonMonths(-3))
	require.Equal(t, 6, clampHorizonMonths(6))
	require.Equal(t, 24, clampHorizonMonths(99))
}
