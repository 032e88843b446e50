package service

import (
	"context"
	"time"

	"calsync-api/core/tasks"
	authEntity "calsync-api/modules/auth/entity"
	calendarEntity "calsync-api/modules/calendar/entity"
	eventEntity "calsync-api/modules/event/entity"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
)

type fakeExtRepo struct {
	items       map[uuid.UUID]*calendarEntity.ExternalCalendar
	syncTokens  []string
	channelSets int
	runsStarted []string
	runsFailed  []string
}

func newFakeExtRepo(items ...*calendarEntity.ExternalCalendar) *fakeExtRepo {
	r := &fakeExtRepo{items: map[uuid.UUID]*calendarEntity.ExternalCalendar{}}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeExtRepo) Create(_ context.Context, ext *calendarEntity.ExternalCalendar) (*calendarEntity.ExternalCalendar, error) {
	ext.ID = uuid.New()
	r.items[ext.ID] = ext
	return ext, nil
}

func (r *fakeExtRepo) GetByID(_ context.Context, id uuid.UUID) (*calendarEntity.ExternalCalendar, error) {
	return r.items[id], nil
}

func (r *fakeExtRepo) GetByConnectionAndRemoteID(_ context.Context, connectionID uuid.UUID, remoteCalendarID string) (*calendarEntity.ExternalCalendar, error) {
	for _, item := range r.items {
		if item.ConnectionID == connectionID && item.RemoteCalendarID == remoteCalendarID {
			return item, nil
		}
	}
	return nil, nil
}

func (r *fakeExtRepo) GetByChannelID(_ context.Context, channelID string) (*calendarEntity.ExternalCalendar, error) {
	for _, item := range r.items {
		if item.ChannelID != nil && *item.ChannelID == channelID {
			return item, nil
		}
	}
	return nil, nil
}

func (r *fakeExtRepo) GetByLocalCalendarID(_ context.Context, calendarID uuid.UUID) (*calendarEntity.ExternalCalendar, error) {
	for _, item := range r.items {
		if item.CalendarID == calendarID {
			return item, nil
		}
	}
	return nil, nil
}

func (r *fakeExtRepo) ListAll(_ context.Context) ([]calendarEntity.ExternalCalendar, error) {
	var result []calendarEntity.ExternalCalendar
	for _, item := range r.items {
		result = append(result, *item)
	}
	return result, nil
}

func (r *fakeExtRepo) ListByConnection(_ context.Context, connectionID uuid.UUID) ([]calendarEntity.ExternalCalendar, error) {
	var result []calendarEntity.ExternalCalendar
	for _, item := range r.items {
		if item.ConnectionID == connectionID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (r *fakeExtRepo) ListByUser(_ context.Context, _ uuid.UUID) ([]calendarEntity.ExternalCalendar, error) {
	return r.ListAll(context.Background())
}

func (r *fakeExtRepo) UpdateNameColor(_ context.Context, id uuid.UUID, name, color string) error {
	if item := r.items[id]; item != nil {
		item.Name = name
		item.Color = color
	}
	return nil
}

func (r *fakeExtRepo) SetSyncToken(_ context.Context, id uuid.UUID, token string) error {
	r.syncTokens = append(r.syncTokens, token)
	if item := r.items[id]; item != nil {
		item.SyncToken = token
	}
	return nil
}

func (r *fakeExtRepo) SetChannel(_ context.Context, id uuid.UUID, channelID, secret, resourceID string, expiresAt time.Time) error {
	r.channelSets++
	if item := r.items[id]; item != nil {
		item.ChannelID = &channelID
		item.ChannelSecret = &secret
		item.ResourceID = &resourceID
		item.ChannelExpiresAt = &expiresAt
	}
	return nil
}

func (r *fakeExtRepo) MarkRunStarted(_ context.Context, _ uuid.UUID, runID string) error {
	r.runsStarted = append(r.runsStarted, runID)
	return nil
}

func (r *fakeExtRepo) MarkRunFailed(_ context.Context, _ uuid.UUID, reason string) error {
	r.runsFailed = append(r.runsFailed, reason)
	return nil
}

type fakeEventRepo struct {
	byID          map[uuid.UUID]*eventEntity.Event
	upsertBatches [][]eventEntity.Event
	deleteBatches [][]string
	mirrorSets    []string
	clearedMirror []uuid.UUID
	kinds         map[uuid.UUID]string
}

func newFakeEventRepo(events ...*eventEntity.Event) *fakeEventRepo {
	r := &fakeEventRepo{
		byID:  map[uuid.UUID]*eventEntity.Event{},
		kinds: map[uuid.UUID]string{},
	}
	for _, ev := range events {
		r.byID[ev.ID] = ev
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, ev *eventEntity.Event) (*eventEntity.Event, error) {
	ev.ID = uuid.New()
	r.byID[ev.ID] = ev
	return ev, nil
}

func (r *fakeEventRepo) Update(_ context.Context, ev *eventEntity.Event) error {
	r.byID[ev.ID] = ev
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*eventEntity.Event, error) {
	return r.byID[id], nil
}

func (r *fakeEventRepo) GetByRemoteKey(_ context.Context, providerTag, remoteCalendarID, remoteEventID string) (*eventEntity.Event, error) {
	for _, ev := range r.byID {
		if ev.Mirrored() && *ev.ExternalProvider == providerTag &&
			*ev.ExternalCalendarID == remoteCalendarID && *ev.ExternalEventID == remoteEventID {
			return ev, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) ListByCalendar(_ context.Context, _ uuid.UUID) ([]eventEntity.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) UpsertBatchByRemoteKey(_ context.Context, events []eventEntity.Event) error {
	batch := make([]eventEntity.Event, len(events))
	copy(batch, events)
	r.upsertBatches = append(r.upsertBatches, batch)
	return nil
}

func (r *fakeEventRepo) DeleteBatchByRemoteKey(_ context.Context, _, _ string, remoteEventIDs []string) error {
	batch := make([]string, len(remoteEventIDs))
	copy(batch, remoteEventIDs)
	r.deleteBatches = append(r.deleteBatches, batch)
	return nil
}

func (r *fakeEventRepo) SetMirror(_ context.Context, id uuid.UUID, providerTag, remoteCalendarID, remoteEventID string, editable bool) error {
	r.mirrorSets = append(r.mirrorSets, remoteEventID)
	if ev := r.byID[id]; ev != nil {
		ev.ExternalProvider = &providerTag
		ev.ExternalCalendarID = &remoteCalendarID
		ev.ExternalEventID = &remoteEventID
		ev.IsEditable = editable
	}
	return nil
}

func (r *fakeEventRepo) ClearMirror(_ context.Context, id uuid.UUID) error {
	r.clearedMirror = append(r.clearedMirror, id)
	if ev := r.byID[id]; ev != nil {
		ev.ExternalProvider = nil
		ev.ExternalCalendarID = nil
		ev.ExternalEventID = nil
		ev.IsEditable = false
	}
	return nil
}

func (r *fakeEventRepo) SetKind(_ context.Context, id uuid.UUID, kind string) error {
	r.kinds[id] = kind
	return nil
}

func (r *fakeEventRepo) DeleteMirroredByRemoteCalendar(_ context.Context, _, _ string) error {
	return nil
}

func (r *fakeEventRepo) ClearMirrorByRemoteCalendar(_ context.Context, _, _ string) error {
	return nil
}

type fakeUserRepo struct {
	user *authEntity.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ uuid.UUID) (*authEntity.User, error) {
	return r.user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*authEntity.User, error) {
	return r.user, nil
}

func (r *fakeUserRepo) UpdateSyncHorizon(_ context.Context, _ uuid.UUID, months int) error {
	r.user.SyncHorizonMonths = months
	return nil
}

type fakeConnections struct {
	conn     *authEntity.Connection
	token    string
	tokenErr error
}

func (c *fakeConnections) SaveConnection(_ context.Context, _ uuid.UUID, _, _ string, _ *string, _ *time.Time, _ authEntity.ConnectionMetadata) (*authEntity.Connection, error) {
	return c.conn, nil
}

func (c *fakeConnections) GetValidAccessToken(_ context.Context, _ uuid.UUID) (string, error) {
	return c.token, c.tokenErr
}

func (c *fakeConnections) RemoveConnection(_ context.Context, _ uuid.UUID, _ bool) error {
	return nil
}

func (c *fakeConnections) GetConnection(_ context.Context, _ uuid.UUID) (*authEntity.Connection, error) {
	return c.conn, nil
}

func (c *fakeConnections) ListConnections(_ context.Context, _ uuid.UUID) ([]authEntity.Connection, error) {
	if c.conn == nil {
		return nil, nil
	}
	return []authEntity.Connection{*c.conn}, nil
}

// listResult scripts one ListEvents response.
type listResult struct {
	page *provider.ListEventsPage
	err  error
}

type fakeClient struct {
	listResults []listResult
	listQueries []provider.ListEventsQuery

	calendars []provider.RemoteCalendar

	inserted  []*provider.RemoteEvent
	insertRet *provider.RemoteEvent
	insertErr error

	patched        []*provider.RemoteEvent
	originalStarts []*provider.RemoteEventTime
	patchErr       error

	deleted   []string
	deleteErr error

	watches  []provider.WatchRequest
	watchRet *provider.WatchResult
	watchErr error
}

func (c *fakeClient) AuthCodeURL(state string) string { return "https://consent.example/" + state }

func (c *fakeClient) ExchangeAuthCode(_ context.Context, _ string) (*provider.Token, error) {
	return &provider.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}, nil
}

func (c *fakeClient) RefreshToken(_ context.Context, _ string) (*provider.Token, error) {
	return &provider.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)}, nil
}

func (c *fakeClient) ListCalendars(_ context.Context, _ string) ([]provider.RemoteCalendar, error) {
	return c.calendars, nil
}

func (c *fakeClient) ListEvents(_ context.Context, _, _ string, q provider.ListEventsQuery) (*provider.ListEventsPage, error) {
	c.listQueries = append(c.listQueries, q)
	if len(c.listResults) == 0 {
		return &provider.ListEventsPage{}, nil
	}
	result := c.listResults[0]
	c.listResults = c.listResults[1:]
	return result.page, result.err
}

func (c *fakeClient) InsertEvent(_ context.Context, _, _ string, ev *provider.RemoteEvent) (*provider.RemoteEvent, error) {
	c.inserted = append(c.inserted, ev)
	return c.insertRet, c.insertErr
}

func (c *fakeClient) PatchEvent(_ context.Context, _, _, _ string, ev *provider.RemoteEvent, originalStart *provider.RemoteEventTime) (*provider.RemoteEvent, error) {
	c.patched = append(c.patched, ev)
	c.originalStarts = append(c.originalStarts, originalStart)
	return ev, c.patchErr
}

func (c *fakeClient) DeleteEvent(_ context.Context, _, _, eventID string) error {
	c.deleted = append(c.deleted, eventID)
	return c.deleteErr
}

func (c *fakeClient) CreateWatch(_ context.Context, _, _ string, w provider.WatchRequest) (*provider.WatchResult, error) {
	c.watches = append(c.watches, w)
	return c.watchRet, c.watchErr
}

type fakeProviderRegistry struct {
	client provider.Client
}

func (r *fakeProviderRegistry) Get(_ string) (provider.Client, error) {
	return r.client, nil
}

type fakeDistributor struct {
	syncIDs    []uuid.UUID
	bootstraps []uuid.UUID
	outbound   []tasks.OutboundEventPayload
}

func (d *fakeDistributor) EnqueueSyncCalendar(_ context.Context, externalCalendarID uuid.UUID) error {
	d.syncIDs = append(d.syncIDs, externalCalendarID)
	return nil
}

func (d *fakeDistributor) EnqueueConnectionBootstrap(_ context.Context, connectionID uuid.UUID) error {
	d.bootstraps = append(d.bootstraps, connectionID)
	return nil
}

func (d *fakeDistributor) EnqueueOutboundEvent(_ context.Context, payload tasks.OutboundEventPayload) error {
	d.outbound = append(d.outbound, payload)
	return nil
}
