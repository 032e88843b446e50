package entity

import (
	"time"

	"calsync-api/core/entity"

	"github.com/google/uuid"
)

// ExternalCalendar binds a remote calendar to its mirrored local calendar.
// Each row owns its sync cursor and push-channel lease independently, so
// mappings can be added, removed and resynced without affecting siblings.
type ExternalCalendar struct {
	entity.BaseEntity
	ConnectionID     uuid.UUID  `db:"connection_id" json:"connection_id"`
	RemoteCalendarID string     `db:"remote_calendar_id" json:"remote_calendar_id"`
	CalendarID       uuid.UUID  `db:"calendar_id" json:"calendar_id"`
	Name             string     `db:"name" json:"name"`
	Color            string     `db:"color" json:"color"`
	SyncToken        string     `db:"sync_token" json:"-"`
	ChannelID        *string    `db:"channel_id" json:"-"`
	ChannelSecret    *string    `db:"channel_secret" json:"-"`
	ResourceID       *string    `db:"resource_id" json:"-"`
	ChannelExpiresAt *time.Time `db:"channel_expires_at" json:"channel_expires_at,omitempty"`
	LastSyncError    *string    `db:"last_sync_error" json:"last_sync_error,omitempty"`
	LastRunID        *string    `db:"last_run_id" json:"last_run_id,omitempty"`
}

func (ExternalCalendar) TableName() string {
	return "external_calendars"
}

// HasChannel reports whether a push channel is currently registered.
func (e *ExternalCalendar) HasChannel() bool {
	return e.ChannelID != nil && *e.ChannelID != ""
}
