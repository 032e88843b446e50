package service

import (
	"context"
	"encoding/json"

	"calsync-api/core/cache"
	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	"calsync-api/core/utils"
	"calsync-api/modules/provider"

	"github.com/google/uuid"
)

// ConnectService runs the OAuth connect flow: consent URL out, auth code
// back, connection saved, bootstrap sync enqueued.
type ConnectService interface {
	StartConnect(ctx context.Context, userID uuid.UUID, providerTag string) (string, string, error)
	HandleCallback(ctx context.Context, state, code string) (uuid.UUID, error)
}

type oauthState struct {
	UserID   uuid.UUID `json:"user_id"`
	Provider string    `json:"provider"`
}

type connectService struct {
	connections ConnectionService
	providers   provider.Registry
	cache       cache.Cache
	distributor tasks.Distributor
}

func NewConnectService(
	connections ConnectionService,
	providers provider.Registry,
	cache cache.Cache,
	distributor tasks.Distributor,
) ConnectService {
	return &connectService{
		connections: connections,
		providers:   providers,
		cache:       cache,
		distributor: distributor,
	}
}

// StartConnect returns the provider consent URL and the state nonce bound to
// this user.
func (s *connectService) StartConnect(ctx context.Context, userID uuid.UUID, providerTag string) (string, string, error) {
	client, err := s.providers.Get(providerTag)
	if err != nil {
		return "", "", err
	}

	state := utils.GenerateRandomString(32)
	payload, err := json.Marshal(oauthState{UserID: userID, Provider: providerTag})
	if err != nil {
		return "", "", err
	}
	if err := s.cache.Set(ctx, constants.OAuthStateKeyPrefix+state, string(payload), constants.OAuthStateTTL); err != nil {
		return "", "", err
	}

	return client.AuthCodeURL(state), state, nil
}

// HandleCallback validates the state nonce, exchanges the code, persists the
// connection and hands discovery plus the initial sync to the workflow
// engine. It returns the new connection id.
func (s *connectService) HandleCallback(ctx context.Context, state, code string) (uuid.UUID, error) {
	raw, err := s.cache.Get(ctx, constants.OAuthStateKeyPrefix+state)
	if err != nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "unknown or expired oauth state", err)
	}
	_ = s.cache.Delete(ctx, constants.OAuthStateKeyPrefix+state)

	var st oauthState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return uuid.Nil, errors.NewAppError(errors.ErrInternalServer, "corrupt oauth state", err)
	}

	client, err := s.providers.Get(st.Provider)
	if err != nil {
		return uuid.Nil, err
	}

	token, err := client.ExchangeAuthCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	if token.RefreshToken == "" {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "provider returned no refresh token", nil)
	}

	conn, err := s.connections.SaveConnection(ctx, st.UserID, st.Provider,
		token.RefreshToken, &token.AccessToken, &token.Expiry, nil)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.distributor.EnqueueConnectionBootstrap(ctx, conn.ID); err != nil {
		logger.Error("ConnectService:HandleCallback:EnqueueBootstrap:Error",
			"connection_id", conn.ID, "error", err)
		return uuid.Nil, err
	}

	logger.Info("ConnectService:HandleCallback:Connected",
		"connection_id", conn.ID, "provider", st.Provider, "user_id", st.UserID)
	return conn.ID, nil
}
