package service

import (
	"context"
	"time"

	"calsync-api/core/errors"
	"calsync-api/core/logger"
	authRepo "calsync-api/modules/auth/repository"
	"calsync-api/modules/calendar/dto"
	"calsync-api/modules/calendar/entity"
	"calsync-api/modules/calendar/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// RegistryService is the external calendar registry: the persisted mapping
// between remote calendars and their mirrored local calendars.
type RegistryService interface {
	UpsertByRemoteID(ctx context.Context, connectionID uuid.UUID, remoteCalendarID, name, color string) (*entity.ExternalCalendar, error)
	ListAll(ctx context.Context) ([]entity.ExternalCalendar, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]dto.ExternalCalendarResponse, error)
	ListLocalByUser(ctx context.Context, userID uuid.UUID) ([]dto.CalendarResponse, error)
	FindChannelsExpiringWithin(ctx context.Context, window time.Duration) ([]entity.ExternalCalendar, error)
	GetByChannelID(ctx context.Context, channelID string) (*entity.ExternalCalendar, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExternalCalendar, error)
	SetChannel(ctx context.Context, id uuid.UUID, channelID, secret, resourceID string, expiresAt time.Time) error
	MarkRunStarted(ctx context.Context, id uuid.UUID, runID string) error
	MarkRunFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type registryService struct {
	extRepo  repository.ExternalCalendarRepository
	calRepo  repository.CalendarRepository
	connRepo authRepo.ConnectionRepository
}

func NewRegistryService(
	extRepo repository.ExternalCalendarRepository,
	calRepo repository.CalendarRepository,
	connRepo authRepo.ConnectionRepository,
) RegistryService {
	return &registryService{
		extRepo:  extRepo,
		calRepo:  calRepo,
		connRepo: connRepo,
	}
}

// UpsertByRemoteID dedupes on the unique (connection, remote calendar) key.
// The first sighting of a remote calendar also creates the local calendar it
// mirrors into.
func (s *registryService) UpsertByRemoteID(ctx context.Context, connectionID uuid.UUID, remoteCalendarID, name, color string) (*entity.ExternalCalendar, error) {
	existing, err := s.extRepo.GetByConnectionAndRemoteID(ctx, connectionID, remoteCalendarID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Name != name || existing.Color != color {
			if err := s.extRepo.UpdateNameColor(ctx, existing.ID, name, color); err != nil {
				return nil, err
			}
			existing.Name = name
			existing.Color = color
		}
		return existing, nil
	}

	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "connection not found", nil)
	}

	local, err := s.calRepo.Create(ctx, &entity.Calendar{
		UserID: conn.UserID,
		Name:   name,
		Slug:   slug.Make(name),
		Color:  color,
	})
	if err != nil {
		return nil, err
	}

	ext, err := s.extRepo.Create(ctx, &entity.ExternalCalendar{
		ConnectionID:     connectionID,
		RemoteCalendarID: remoteCalendarID,
		CalendarID:       local.ID,
		Name:             name,
		Color:            color,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("RegistryService:UpsertByRemoteID:Created",
		"connection_id", connectionID,
		"remote_calendar_id", remoteCalendarID,
		"calendar_id", local.ID,
	)
	return ext, nil
}

func (s *registryService) ListAll(ctx context.Context) ([]entity.ExternalCalendar, error) {
	return s.extRepo.ListAll(ctx)
}

func (s *registryService) ListByUser(ctx context.Context, userID uuid.UUID) ([]dto.ExternalCalendarResponse, error) {
	mappings, err := s.extRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result []dto.ExternalCalendarResponse
	for _, m := range mappings {
		resp := dto.ExternalCalendarResponse{
			ID:               m.ID.String(),
			RemoteCalendarID: m.RemoteCalendarID,
			CalendarID:       m.CalendarID.String(),
			Name:             m.Name,
			Color:            m.Color,
			WatchActive:      m.HasChannel(),
		}
		if m.LastSyncError != nil {
			resp.LastSyncError = *m.LastSyncError
		}
		if m.ChannelExpiresAt != nil {
			resp.ChannelExpiresAt = m.ChannelExpiresAt.Format(time.RFC3339)
		}
		result = append(result, resp)
	}
	return result, nil
}

// FindChannelsExpiringWithin returns mappings whose channel expires inside
// the window or was never registered at all.
func (s *registryService) FindChannelsExpiringWithin(ctx context.Context, window time.Duration) ([]entity.ExternalCalendar, error) {
	all, err := s.extRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(window)
	var due []entity.ExternalCalendar
	for _, m := range all {
		if channelNeedsRenewal(&m, deadline) {
			due = append(due, m)
		}
	}
	return due, nil
}

func channelNeedsRenewal(m *entity.ExternalCalendar, deadline time.Time) bool {
	if !m.HasChannel() || m.ChannelExpiresAt == nil {
		return true
	}
	return m.ChannelExpiresAt.Before(deadline)
}

func (s *registryService) ListLocalByUser(ctx context.Context, userID uuid.UUID) ([]dto.CalendarResponse, error) {
	calendars, err := s.calRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := []dto.CalendarResponse{}
	for _, cal := range calendars {
		result = append(result, dto.CalendarResponse{
			ID:    cal.ID.String(),
			Name:  cal.Name,
			Slug:  cal.Slug,
			Color: cal.Color,
		})
	}
	return result, nil
}

func (s *registryService) GetByChannelID(ctx context.Context, channelID string) (*entity.ExternalCalendar, error) {
	return s.extRepo.GetByChannelID(ctx, channelID)
}

func (s *registryService) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExternalCalendar, error) {
	return s.extRepo.GetByID(ctx, id)
}

func (s *registryService) SetChannel(ctx context.Context, id uuid.UUID, channelID, secret, resourceID string, expiresAt time.Time) error {
	return s.extRepo.SetChannel(ctx, id, channelID, secret, resourceID, expiresAt)
}

func (s *registryService) MarkRunStarted(ctx context.Context, id uuid.UUID, runID string) error {
	return s.extRepo.MarkRunStarted(ctx, id, runID)
}

func (s *registryService) MarkRunFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.extRepo.MarkRunFailed(ctx, id, reason)
}
