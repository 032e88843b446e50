package service

import (
	"context"
	"time"

	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/modules/auth/entity"
	"calsync-api/modules/auth/repository"
	calendarRepo "calsync-api/modules/calendar/repository"
	eventRepo "calsync-api/modules/event/repository"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
)

// ConnectionService is the connection and token store: persisted OAuth
// credentials per (user, provider), with refresh-on-demand.
type ConnectionService interface {
	SaveConnection(ctx context.Context, userID uuid.UUID, providerTag, refreshToken string, accessToken *string, expiresAt *time.Time, metadata entity.ConnectionMetadata) (*entity.Connection, error)
	GetValidAccessToken(ctx context.Context, connectionID uuid.UUID) (string, error)
	RemoveConnection(ctx context.Context, connectionID uuid.UUID, deleteMirroredEvents bool) error
	GetConnection(ctx context.Context, connectionID uuid.UUID) (*entity.Connection, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]entity.Connection, error)
}

type connectionService struct {
	connRepo  repository.ConnectionRepository
	userRepo  repository.UserRepository
	extRepo   calendarRepo.ExternalCalendarRepository
	eventRepo eventRepo.EventRepository
	providers provider.Registry
}

func NewConnectionService(
	connRepo repository.ConnectionRepository,
	userRepo repository.UserRepository,
	extRepo calendarRepo.ExternalCalendarRepository,
	eventRepo eventRepo.EventRepository,
	providers provider.Registry,
) ConnectionService {
	return &connectionService{
		connRepo:  connRepo,
		userRepo:  userRepo,
		extRepo:   extRepo,
		eventRepo: eventRepo,
		providers: providers,
	}
}

// SaveConnection creates the (user, provider) connection or updates the
// existing one; providers allow a single connection per user.
func (s *connectionService) SaveConnection(ctx context.Context, userID uuid.UUID, providerTag, refreshToken string, accessToken *string, expiresAt *time.Time, metadata entity.ConnectionMetadata) (*entity.Connection, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.NewAppError(errors.ErrUserNotFound, "user not found", nil)
	}

	existing, err := s.connRepo.GetByUserAndProvider(ctx, userID, providerTag)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.RefreshToken = refreshToken
		existing.AccessToken = accessToken
		existing.TokenExpiresAt = expiresAt
		if metadata != nil {
			existing.Metadata = metadata
		}
		if err := s.connRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		logger.Info("ConnectionService:SaveConnection:Updated", "connection_id", existing.ID, "provider", providerTag)
		return existing, nil
	}

	conn := &entity.Connection{
		UserID:         userID,
		Provider:       providerTag,
		RefreshToken:   refreshToken,
		AccessToken:    accessToken,
		TokenExpiresAt: expiresAt,
		Metadata:       metadata,
	}
	created, err := s.connRepo.Create(ctx, conn)
	if err != nil {
		return nil, err
	}

	logger.Info("ConnectionService:SaveConnection:Created", "connection_id", created.ID, "provider", providerTag)
	return created, nil
}

// GetValidAccessToken returns a non-expired access token, refreshing through
// the provider when the stored one is absent or dies within the safety
// margin. A rejected refresh token is not retried; the user has to
// reconnect.
func (s *connectionService) GetValidAccessToken(ctx context.Context, connectionID uuid.UUID) (string, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrNotFound, "connection not found", nil)
	}

	if conn.AccessToken != nil && *conn.AccessToken != "" && conn.TokenExpiresAt != nil {
		if time.Now().Add(constants.TokenExpirySafetyMargin).Before(*conn.TokenExpiresAt) {
			return *conn.AccessToken, nil
		}
	}

	logger.Info("ConnectionService:GetValidAccessToken:Refreshing",
		"connection_id", connectionID, "provider", conn.Provider)

	client, err := s.providers.Get(conn.Provider)
	if err != nil {
		return "", err
	}

	token, err := client.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		logger.Error("ConnectionService:GetValidAccessToken:Refresh:Error",
			"connection_id", connectionID, "error", err)
		if errors.HasCode(err, errors.ErrTokenRefreshFailed) {
			return "", err
		}
		return "", errors.NewAppError(errors.ErrTokenRefreshFailed, "token refresh failed", err)
	}

	if err := s.connRepo.UpdateToken(ctx, connectionID, token.AccessToken, token.Expiry); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// RemoveConnection is idempotent. Mirrored events either go away with the
// connection or stay behind as plain local events with their mirroring
// fields cleared, so no event ever points at a deleted connection.
func (s *connectionService) RemoveConnection(ctx context.Context, connectionID uuid.UUID, deleteMirroredEvents bool) error {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	mappings, err := s.extRepo.ListByConnection(ctx, connectionID)
	if err != nil {
		return err
	}

	for _, m := range mappings {
		if deleteMirroredEvents {
			err = s.eventRepo.DeleteMirroredByRemoteCalendar(ctx, conn.Provider, m.RemoteCalendarID)
		} else {
			err = s.eventRepo.ClearMirrorByRemoteCalendar(ctx, conn.Provider, m.RemoteCalendarID)
		}
		if err != nil {
			return err
		}
	}

	if err := s.connRepo.Delete(ctx, connectionID); err != nil {
		return err
	}

	logger.Info("ConnectionService:RemoveConnection:Done",
		"connection_id", connectionID,
		"provider", conn.Provider,
		"mappings", len(mappings),
		"deleted_events", deleteMirroredEvents,
	)
	return nil
}

func (s *connectionService) GetConnection(ctx context.Context, connectionID uuid.UUID) (*entity.Connection, error) {
	return s.connRepo.GetByID(ctx, connectionID)
}

func (s *connectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]entity.Connection, error) {
	return s.connRepo.ListByUser(ctx, userID)
}
