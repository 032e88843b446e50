package service

import (
	"context"

	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	calendarRepo "calsync-api/modules/calendar/repository"
	"calsync-api/modules/event/dto"
	"calsync-api/modules/event/entity"
	"calsync-api/modules/event/repository"

	"github.com/google/uuid"
)

// EventService is the local CRUD surface. Writes commit locally first;
// pushing to the owning provider happens through the queue, never inline
// with the request.
type EventService interface {
	CreateEvent(ctx context.Context, userID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	UpdateEvent(ctx context.Context, userID, eventID uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error
	ConvertKind(ctx context.Context, userID, eventID uuid.UUID, kind string) (*dto.EventResponse, error)
	GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*dto.EventResponse, error)
	ListByCalendar(ctx context.Context, userID, calendarID uuid.UUID) (*dto.EventListResponse, error)
}

type eventService struct {
	eventRepo   repository.EventRepository
	calRepo     calendarRepo.CalendarRepository
	extRepo     calendarRepo.ExternalCalendarRepository
	distributor tasks.Distributor
}

func NewEventService(
	eventRepo repository.EventRepository,
	calRepo calendarRepo.CalendarRepository,
	extRepo calendarRepo.ExternalCalendarRepository,
	distributor tasks.Distributor,
) EventService {
	return &eventService{
		eventRepo:   eventRepo,
		calRepo:     calRepo,
		extRepo:     extRepo,
		distributor: distributor,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, userID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	calendarID, err := uuid.Parse(req.CalendarID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid calendar id", err)
	}
	if err := s.checkCalendarOwner(ctx, userID, calendarID); err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = entity.KindEvent
	}
	if kind != entity.KindEvent && kind != entity.KindTask {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid event kind", nil)
	}
	if req.Title == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "title is required", nil)
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "ends_at must be after starts_at", nil)
	}

	ev := &entity.Event{
		CalendarID:  calendarID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		AllDay:      req.AllDay,
		TimeZone:    req.TimeZone,
		Status:      "confirmed",
		Kind:        kind,
	}
	created, err := s.eventRepo.Create(ctx, ev)
	if err != nil {
		return nil, err
	}

	// Events on a mirrored calendar get pushed out once the row is durable.
	ext, err := s.extRepo.GetByLocalCalendarID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if ext != nil {
		if err := s.distributor.EnqueueOutboundEvent(ctx, tasks.OutboundEventPayload{
			Action:  tasks.OutboundActionCreate,
			EventID: created.ID,
		}); err != nil {
			logger.Error("EventService:CreateEvent:Enqueue:Error", "event_id", created.ID, "error", err)
		}
	}

	return toEventResponse(created), nil
}

func (s *eventService) UpdateEvent(ctx context.Context, userID, eventID uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	ev, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Mirrored() && !ev.IsEditable {
		return nil, errors.NewAppError(errors.ErrForbidden, "event is a read-only mirror of a remote event", nil)
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "ends_at must be after starts_at", nil)
	}

	editScope := req.EditScope
	if editScope == "" {
		editScope = tasks.EditScopeAllOccurrences
	}
	if editScope != tasks.EditScopeThisOccurrence && editScope != tasks.EditScopeAllOccurrences {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid edit scope", nil)
	}

	// The provider resolves "this occurrence" by the start the instance had
	// before the edit, so capture it before the fields are overwritten.
	originalStart := ev.StartsAt

	ev.Title = req.Title
	ev.Description = req.Description
	ev.Location = req.Location
	ev.StartsAt = req.StartsAt
	ev.EndsAt = req.EndsAt
	ev.AllDay = req.AllDay
	ev.TimeZone = req.TimeZone
	if err := s.eventRepo.Update(ctx, ev); err != nil {
		return nil, err
	}

	if ev.Mirrored() {
		if err := s.distributor.EnqueueOutboundEvent(ctx, tasks.OutboundEventPayload{
			Action:        tasks.OutboundActionUpdate,
			EventID:       ev.ID,
			EditScope:     editScope,
			OriginalStart: &originalStart,
		}); err != nil {
			logger.Error("EventService:UpdateEvent:Enqueue:Error", "event_id", ev.ID, "error", err)
		}
	}

	return toEventResponse(ev), nil
}

func (s *eventService) DeleteEvent(ctx context.Context, userID, eventID uuid.UUID) error {
	ev, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if ev.Mirrored() && !ev.IsEditable {
		return errors.NewAppError(errors.ErrForbidden, "event is a read-only mirror of a remote event", nil)
	}

	// The remote coordinates go into the payload now; after the local delete
	// there is no row left to read them from.
	var payload *tasks.OutboundEventPayload
	if ev.Mirrored() {
		ext, err := s.extRepo.GetByLocalCalendarID(ctx, ev.CalendarID)
		if err != nil {
			return err
		}
		if ext != nil {
			payload = &tasks.OutboundEventPayload{
				Action:           tasks.OutboundActionDelete,
				Provider:         *ev.ExternalProvider,
				RemoteCalendarID: *ev.ExternalCalendarID,
				RemoteEventID:    *ev.ExternalEventID,
				ConnectionID:     ext.ConnectionID,
			}
		}
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return err
	}

	if payload != nil {
		if err := s.distributor.EnqueueOutboundEvent(ctx, *payload); err != nil {
			logger.Error("EventService:DeleteEvent:Enqueue:Error", "event_id", eventID, "error", err)
		}
	}
	return nil
}

// ConvertKind flips an event between the local kinds. Converting a mirrored
// event detaches it from the provider: the remote copy is deleted and the
// local one stays behind as a plain item.
func (s *eventService) ConvertKind(ctx context.Context, userID, eventID uuid.UUID, kind string) (*dto.EventResponse, error) {
	if kind != entity.KindEvent && kind != entity.KindTask {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid event kind", nil)
	}

	ev, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Kind == kind {
		return toEventResponse(ev), nil
	}
	if ev.Mirrored() && !ev.IsEditable {
		return nil, errors.NewAppError(errors.ErrForbidden, "event is a read-only mirror of a remote event", nil)
	}

	var payload *tasks.OutboundEventPayload
	if ev.Mirrored() {
		ext, err := s.extRepo.GetByLocalCalendarID(ctx, ev.CalendarID)
		if err != nil {
			return nil, err
		}
		if ext != nil {
			payload = &tasks.OutboundEventPayload{
				Action:           tasks.OutboundActionConvert,
				EventID:          ev.ID,
				Provider:         *ev.ExternalProvider,
				RemoteCalendarID: *ev.ExternalCalendarID,
				RemoteEventID:    *ev.ExternalEventID,
				ConnectionID:     ext.ConnectionID,
			}
		}
	}

	if err := s.eventRepo.SetKind(ctx, ev.ID, kind); err != nil {
		return nil, err
	}
	ev.Kind = kind

	if payload != nil {
		if err := s.distributor.EnqueueOutboundEvent(ctx, *payload); err != nil {
			logger.Error("EventService:ConvertKind:Enqueue:Error", "event_id", ev.ID, "error", err)
		}
	}

	return toEventResponse(ev), nil
}

func (s *eventService) GetEvent(ctx context.Context, userID, eventID uuid.UUID) (*dto.EventResponse, error) {
	ev, err := s.getOwned(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	return toEventResponse(ev), nil
}

func (s *eventService) ListByCalendar(ctx context.Context, userID, calendarID uuid.UUID) (*dto.EventListResponse, error) {
	if err := s.checkCalendarOwner(ctx, userID, calendarID); err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	result := &dto.EventListResponse{Events: []dto.EventResponse{}}
	for i := range events {
		result.Events = append(result.Events, *toEventResponse(&events[i]))
	}
	return result, nil
}

func (s *eventService) getOwned(ctx context.Context, userID, eventID uuid.UUID) (*entity.Event, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "event not found", nil)
	}
	if err := s.checkCalendarOwner(ctx, userID, ev.CalendarID); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *eventService) checkCalendarOwner(ctx context.Context, userID, calendarID uuid.UUID) error {
	cal, err := s.calRepo.GetByID(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return errors.NewAppError(errors.ErrNotFound, "calendar not found", nil)
	}
	if cal.UserID != userID {
		return errors.NewAppError(errors.ErrForbidden, "calendar belongs to another user", nil)
	}
	return nil
}

func toEventResponse(ev *entity.Event) *dto.EventResponse {
	resp := &dto.EventResponse{
		ID:          ev.ID.String(),
		CalendarID:  ev.CalendarID.String(),
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartsAt:    ev.StartsAt,
		EndsAt:      ev.EndsAt,
		AllDay:      ev.AllDay,
		TimeZone:    ev.TimeZone,
		Status:      ev.Status,
		Kind:        ev.Kind,
		Mirrored:    ev.Mirrored(),
		IsEditable:  !ev.Mirrored() || ev.IsEditable,
	}
	if ev.ExternalProvider != nil {
		resp.Provider = *ev.ExternalProvider
	}
	return resp
}
