package constants

import "time"

// HTTP / provider call timeouts
const (
	DefaultTimeout     = 30 * time.Second
	ProviderAPITimeout = 30 * time.Second
)

// Token handling
const (
	// TokenExpirySafetyMargin is subtracted from the stored expiry before
	// deciding whether a refresh is needed, so a token is never handed out
	// right before it dies mid-request.
	TokenExpirySafetyMargin = 60 * time.Second
)

// Sync engine
const (
	SyncBatchSize = 100

	DefaultSyncHorizonMonths = 1
	MinSyncHorizonMonths     = 1
	MaxSyncHorizonMonths     = 24
)

// Watch channels
const (
	ChannelTTL           = 7 * 24 * time.Hour
	ChannelRenewalWindow = 48 * time.Hour
)

// Fallback scheduler cron specs (asynq scheduler format)
const (
	ChannelRenewalCronSpec = "@every 12h"
	FullSweepCronSpec      = "@every 30m"
)

// Database pool settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// OAuth state nonces
const (
	OAuthStateTTL       = 10 * time.Minute
	OAuthStateKeyPrefix = "oauth_state:"
)
