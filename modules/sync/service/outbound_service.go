package service

import (
	"context"
	"time"

	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	authService "calsync-api/modules/auth/service"
	calendarRepo "calsync-api/modules/calendar/repository"
	eventEntity "calsync-api/modules/event/entity"
	eventRepo "calsync-api/modules/event/repository"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
)

// OutboundSyncService pushes local changes to the owning provider. Every
// operation is safe to retry: creates detect an already-linked event, deletes
// treat a missing remote event as done.
type OutboundSyncService interface {
	PushCreate(ctx context.Context, eventID uuid.UUID) error
	PushUpdate(ctx context.Context, eventID uuid.UUID, editScope string, originalStart *time.Time) error
	PushDelete(ctx context.Context, connectionID uuid.UUID, providerTag, remoteCalendarID, remoteEventID string) error
	ConvertToLocal(ctx context.Context, eventID, connectionID uuid.UUID, providerTag, remoteCalendarID, remoteEventID string) error
}

type outboundSyncService struct {
	eventRepo   eventRepo.EventRepository
	extRepo     calendarRepo.ExternalCalendarRepository
	connections authService.ConnectionService
	providers   provider.Registry
}

func NewOutboundSyncService(
	eventRepo eventRepo.EventRepository,
	extRepo calendarRepo.ExternalCalendarRepository,
	connections authService.ConnectionService,
	providers provider.Registry,
) OutboundSyncService {
	return &outboundSyncService{
		eventRepo:   eventRepo,
		extRepo:     extRepo,
		connections: connections,
		providers:   providers,
	}
}

// PushCreate inserts the local event into the remote calendar its local
// calendar mirrors, then links the returned remote id. Events on unmapped
// calendars and events deleted before the task ran are a no-op.
func (s *outboundSyncService) PushCreate(ctx context.Context, eventID uuid.UUID) error {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev == nil {
		logger.Info("OutboundSync:PushCreate:EventGone", "event_id", eventID)
		return nil
	}
	if ev.Mirrored() {
		// A previous attempt already linked it; the retry has nothing to do.
		return nil
	}

	ext, err := s.extRepo.GetByLocalCalendarID(ctx, ev.CalendarID)
	if err != nil {
		return err
	}
	if ext == nil {
		return nil
	}

	conn, err := s.connections.GetConnection(ctx, ext.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	client, accessToken, err := s.clientAndToken(ctx, conn.Provider, conn.ID)
	if err != nil {
		return err
	}

	created, err := client.InsertEvent(ctx, accessToken, ext.RemoteCalendarID, toRemoteEvent(ev))
	if err != nil {
		return err
	}
	if created == nil || created.ID == "" {
		return errors.NewAppError(errors.ErrInsertReturnedNoID, "provider insert returned no event id", nil)
	}

	if err := s.eventRepo.SetMirror(ctx, ev.ID, conn.Provider, ext.RemoteCalendarID, created.ID, true); err != nil {
		return err
	}

	logger.Info("OutboundSync:PushCreate:Done",
		"event_id", ev.ID, "provider", conn.Provider, "remote_event_id", created.ID)
	return nil
}

// PushUpdate patches the mirrored remote event. For a "this occurrence" edit
// on a recurring series the pre-edit original start travels along so the
// provider can resolve the single instance.
func (s *outboundSyncService) PushUpdate(ctx context.Context, eventID uuid.UUID, editScope string, originalStart *time.Time) error {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev == nil {
		logger.Info("OutboundSync:PushUpdate:EventGone", "event_id", eventID)
		return nil
	}
	if !ev.Mirrored() {
		return nil
	}
	if !ev.IsEditable {
		logger.Warn("OutboundSync:PushUpdate:ReadOnlyMirror", "event_id", ev.ID)
		return nil
	}

	ext, err := s.extRepo.GetByLocalCalendarID(ctx, ev.CalendarID)
	if err != nil {
		return err
	}
	if ext == nil {
		return nil
	}

	conn, err := s.connections.GetConnection(ctx, ext.ConnectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	client, accessToken, err := s.clientAndToken(ctx, conn.Provider, conn.ID)
	if err != nil {
		return err
	}

	var origin *provider.RemoteEventTime
	if editScope == tasks.EditScopeThisOccurrence && originalStart != nil {
		origin = remoteTimeAt(*originalStart, ev.AllDay, ev.TimeZone)
	}

	_, err = client.PatchEvent(ctx, accessToken, *ev.ExternalCalendarID, *ev.ExternalEventID, toRemoteEvent(ev), origin)
	if err != nil {
		return err
	}

	logger.Info("OutboundSync:PushUpdate:Done",
		"event_id", ev.ID, "provider", conn.Provider, "edit_scope", editScope)
	return nil
}

// PushDelete removes the remote event. The local row is gone by the time
// this runs, so the remote coordinates arrive with the task. A remote event
// that is already missing counts as success.
func (s *outboundSyncService) PushDelete(ctx context.Context, connectionID uuid.UUID, providerTag, remoteCalendarID, remoteEventID string) error {
	client, accessToken, err := s.clientAndToken(ctx, providerTag, connectionID)
	if err != nil {
		return err
	}

	err = client.DeleteEvent(ctx, accessToken, remoteCalendarID, remoteEventID)
	if err != nil && !remoteAlreadyGone(err) {
		return err
	}

	logger.Info("OutboundSync:PushDelete:Done",
		"provider", providerTag, "remote_event_id", remoteEventID, "already_gone", err != nil)
	return nil
}

// ConvertToLocal detaches a mirrored event from its provider: the remote
// copy is deleted first, then the local mirroring fields are stripped so the
// event lives on as a plain local item.
func (s *outboundSyncService) ConvertToLocal(ctx context.Context, eventID, connectionID uuid.UUID, providerTag, remoteCalendarID, remoteEventID string) error {
	if err := s.PushDelete(ctx, connectionID, providerTag, remoteCalendarID, remoteEventID); err != nil {
		return err
	}

	if err := s.eventRepo.ClearMirror(ctx, eventID); err != nil {
		return err
	}

	logger.Info("OutboundSync:ConvertToLocal:Done", "event_id", eventID, "provider", providerTag)
	return nil
}

func (s *outboundSyncService) clientAndToken(ctx context.Context, providerTag string, connectionID uuid.UUID) (provider.Client, string, error) {
	client, err := s.providers.Get(providerTag)
	if err != nil {
		return nil, "", err
	}
	accessToken, err := s.connections.GetValidAccessToken(ctx, connectionID)
	if err != nil {
		return nil, "", err
	}
	return client, accessToken, nil
}

// remoteAlreadyGone covers both a plain 404 and the 410 some providers
// return for an event deleted on their side.
func remoteAlreadyGone(err error) bool {
	return provider.IsNotFound(err) || provider.IsCursorExpired(err)
}

func toRemoteEvent(ev *eventEntity.Event) *provider.RemoteEvent {
	rev := &provider.RemoteEvent{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status,
		Start:       *remoteTimeAt(ev.StartsAt, ev.AllDay, ev.TimeZone),
		End:         *remoteTimeAt(ev.EndsAt, ev.AllDay, ev.TimeZone),
	}
	if rev.Status == "" {
		rev.Status = provider.EventStatusConfirmed
	}
	if ev.RecurringEventID != nil {
		rev.RecurringEventID = *ev.RecurringEventID
	}
	return rev
}

func remoteTimeAt(ts time.Time, allDay bool, timeZone string) *provider.RemoteEventTime {
	if allDay {
		return &provider.RemoteEventTime{Date: ts.Format("2006-01-02")}
	}
	return &provider.RemoteEventTime{DateTime: ts.Format(time.RFC3339), TimeZone: timeZone}
}
