package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Task type names routed through asynq.
const (
	TypeSyncCalendar        = "sync:calendar"
	TypeSyncSweep           = "sync:sweep"
	TypeRenewChannels       = "sync:renew_channels"
	TypeConnectionBootstrap = "sync:bootstrap"
	TypeOutboundEvent       = "outbound:event"
)

// Queue names.
const (
	QueueSync     = "sync"
	QueueOutbound = "outbound"
)

// SyncCalendarPayload triggers one inbound sync run for a mapping.
type SyncCalendarPayload struct {
	ExternalCalendarID uuid.UUID `json:"external_calendar_id"`
}

// ConnectionBootstrapPayload triggers calendar discovery, watch registration
// and the initial sync for a freshly connected account.
type ConnectionBootstrapPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
}

// Outbound actions.
const (
	OutboundActionCreate  = "create"
	OutboundActionUpdate  = "update"
	OutboundActionDelete  = "delete"
	OutboundActionConvert = "convert"
)

// Edit scopes for recurring series updates.
const (
	EditScopeThisOccurrence = "this"
	EditScopeAllOccurrences = "all"
)

// OutboundEventPayload carries everything the outbound engine needs. Delete
// and convert run after the local row is gone or unlinked, so the remote
// coordinates travel in the payload instead of being re-read from the store.
type OutboundEventPayload struct {
	Action  string    `json:"action"`
	EventID uuid.UUID `json:"event_id,omitempty"`

	// Remote coordinates, required for delete/convert.
	Provider         string    `json:"provider,omitempty"`
	RemoteCalendarID string    `json:"remote_calendar_id,omitempty"`
	RemoteEventID    string    `json:"remote_event_id,omitempty"`
	ConnectionID     uuid.UUID `json:"connection_id,omitempty"`

	// Update-only fields.
	EditScope     string     `json:"edit_scope,omitempty"`
	OriginalStart *time.Time `json:"original_start,omitempty"`
}
