package service

import (
	"context"
	"time"

	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	authService "calsync-api/modules/auth/service"
	calendarEntity "calsync-api/modules/calendar/entity"
	calendarRepo "calsync-api/modules/calendar/repository"
	eventEntity "calsync-api/modules/event/entity"
	eventRepo "calsync-api/modules/event/repository"
	"calsync-api/modules/provider"

	authRepo "calsync-api/modules/auth/repository"

	"github.com/google/uuid"
)

// InboundSyncService pulls remote changes for one external calendar mapping
// into the local event store.
type InboundSyncService interface {
	SyncExternalCalendar(ctx context.Context, externalCalendarID uuid.UUID) error
}

type inboundSyncService struct {
	extRepo     calendarRepo.ExternalCalendarRepository
	eventRepo   eventRepo.EventRepository
	userRepo    authRepo.UserRepository
	connections authService.ConnectionService
	providers   provider.Registry
}

func NewInboundSyncService(
	extRepo calendarRepo.ExternalCalendarRepository,
	eventRepo eventRepo.EventRepository,
	userRepo authRepo.UserRepository,
	connections authService.ConnectionService,
	providers provider.Registry,
) InboundSyncService {
	return &inboundSyncService{
		extRepo:     extRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		connections: connections,
		providers:   providers,
	}
}

// SyncExternalCalendar runs one inbound pass: incremental when a sync cursor
// is stored, otherwise a full fetch bounded by the user's horizon. A rejected
// cursor clears the stored one and retries exactly once as a full resync; a
// second rejection propagates to the caller.
func (s *inboundSyncService) SyncExternalCalendar(ctx context.Context, externalCalendarID uuid.UUID) error {
	ext, err := s.extRepo.GetByID(ctx, externalCalendarID)
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

	user, err := s.userRepo.GetByID(ctx, conn.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NewAppError(errors.ErrUserNotFound, "user not found", nil)
	}

	err = s.runOnce(ctx, ext, conn.ID, conn.Provider, user.Email, user.SyncHorizonMonths)
	if provider.IsCursorExpired(err) {
		logger.Warn("InboundSync:CursorExpired:FullResync",
			"external_calendar_id", ext.ID, "provider", conn.Provider)
		if terr := s.extRepo.SetSyncToken(ctx, ext.ID, ""); terr != nil {
			return terr
		}
		ext.SyncToken = ""
		err = s.runOnce(ctx, ext, conn.ID, conn.Provider, user.Email, user.SyncHorizonMonths)
	}
	return err
}

func (s *inboundSyncService) runOnce(
	ctx context.Context,
	ext *calendarEntity.ExternalCalendar,
	connectionID uuid.UUID,
	providerTag, userEmail string,
	horizonMonths int,
) error {
	client, err := s.providers.Get(providerTag)
	if err != nil {
		return err
	}

	accessToken, err := s.connections.GetValidAccessToken(ctx, connectionID)
	if err != nil {
		return err
	}

	incremental := ext.SyncToken != ""
	query := provider.ListEventsQuery{SyncToken: ext.SyncToken}
	if !incremental {
		query.TimeMin = time.Now().AddDate(0, -clampHorizonMonths(horizonMonths), 0)
	}

	var (
		upserts       []eventEntity.Event
		deletes       []string
		nextSyncToken string
	)
	for {
		page, err := client.ListEvents(ctx, accessToken, ext.RemoteCalendarID, query)
		if err != nil {
			return err
		}

		for _, item := range page.Items {
			if item.Status == provider.EventStatusCancelled {
				deletes = append(deletes, item.ID)
				continue
			}
			ev, err := toLocalEvent(ext, providerTag, userEmail, item)
			if err != nil {
				logger.Warn("InboundSync:SkipItem",
					"external_calendar_id", ext.ID, "remote_event_id", item.ID, "error", err)
				continue
			}
			upserts = append(upserts, *ev)
		}

		if page.NextSyncToken != "" {
			nextSyncToken = page.NextSyncToken
		}
		if page.NextPageToken == "" {
			break
		}
		query.PageToken = page.NextPageToken
	}

	for start := 0; start < len(upserts); start += constants.SyncBatchSize {
		end := min(start+constants.SyncBatchSize, len(upserts))
		if err := s.eventRepo.UpsertBatchByRemoteKey(ctx, upserts[start:end]); err != nil {
			return err
		}
	}
	for start := 0; start < len(deletes); start += constants.SyncBatchSize {
		end := min(start+constants.SyncBatchSize, len(deletes))
		if err := s.eventRepo.DeleteBatchByRemoteKey(ctx, providerTag, ext.RemoteCalendarID, deletes[start:end]); err != nil {
			return err
		}
	}

	// The cursor advances only after every page has been applied, so an
	// aborted run is replayed from the old cursor instead of losing changes.
	if nextSyncToken != "" && nextSyncToken != ext.SyncToken {
		if err := s.extRepo.SetSyncToken(ctx, ext.ID, nextSyncToken); err != nil {
			return err
		}
		ext.SyncToken = nextSyncToken
	}

	logger.Info("InboundSync:Done",
		"external_calendar_id", ext.ID,
		"provider", providerTag,
		"incremental", incremental,
		"upserts", len(upserts),
		"deletes", len(deletes),
	)
	return nil
}

func clampHorizonMonths(months int) int {
	if months < constants.MinSyncHorizonMonths {
		return constants.DefaultSyncHorizonMonths
	}
	if months > constants.MaxSyncHorizonMonths {
		return constants.MaxSyncHorizonMonths
	}
	return months
}

// toLocalEvent maps one provider item onto the local event shape, keyed by
// the (provider, remote calendar, remote event) triple.
func toLocalEvent(ext *calendarEntity.ExternalCalendar, providerTag, userEmail string, item provider.RemoteEvent) (*eventEntity.Event, error) {
	start, allDay, tz, err := parseRemoteTime(item.Start)
	if err != nil {
		return nil, err
	}

	end, _, _, err := parseRemoteTime(item.End)
	if err != nil || end.IsZero() {
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(time.Hour)
		}
	}

	ev := &eventEntity.Event{
		CalendarID:         ext.CalendarID,
		Title:              item.Summary,
		Description:        item.Description,
		Location:           item.Location,
		StartsAt:           start,
		EndsAt:             end,
		AllDay:             allDay,
		TimeZone:           tz,
		Status:             item.Status,
		Kind:               kindForProvider(providerTag),
		ExternalProvider:   &providerTag,
		ExternalCalendarID: &ext.RemoteCalendarID,
		ExternalEventID:    &item.ID,
		IsEditable:         eventEditable(item, userEmail),
	}
	if item.RecurringEventID != "" {
		recurring := item.RecurringEventID
		ev.RecurringEventID = &recurring
	}
	return ev, nil
}

func parseRemoteTime(t provider.RemoteEventTime) (time.Time, bool, string, error) {
	switch {
	case t.DateTime != "":
		ts, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false, "", err
		}
		return ts, false, t.TimeZone, nil
	case t.Date != "":
		ts, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return time.Time{}, false, "", err
		}
		return ts, true, t.TimeZone, nil
	default:
		return time.Time{}, false, "", errors.NewAppError(errors.ErrInvalidInput, "remote event has no start time", nil)
	}
}

// eventEditable derives whether the local mirror may be edited and pushed
// back: the user created it, organizes it, or the organizer lets guests
// modify it.
func eventEditable(item provider.RemoteEvent, userEmail string) bool {
	if item.CreatorSelf || item.OrganizerSelf {
		return true
	}
	if userEmail != "" && (item.CreatorEmail == userEmail || item.OrganizerEmail == userEmail) {
		return true
	}
	return item.GuestsCanModify
}

func kindForProvider(providerTag string) string {
	if providerTag == provider.Tracker {
		return eventEntity.KindTask
	}
	return eventEntity.KindEvent
}
