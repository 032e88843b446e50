package entity

import (
	"time"

	"calsync-api/core/entity"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindEvent = "event"
	KindTask  = "task"
)

// Event is a local calendar item. The external_* fields are all-or-nothing:
// when set, the event mirrors a specific remote event and the triple
// (provider, remote calendar id, remote event id) is unique.
type Event struct {
	entity.BaseEntity
	CalendarID  uuid.UUID `db:"calendar_id" json:"calendar_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	AllDay      bool      `db:"all_day" json:"all_day"`
	TimeZone    string    `db:"time_zone" json:"time_zone"`
	Status      string    `db:"status" json:"status"`
	Kind        string    `db:"kind" json:"kind"`

	ExternalProvider   *string `db:"external_provider" json:"external_provider,omitempty"`
	ExternalCalendarID *string `db:"external_calendar_id" json:"external_calendar_id,omitempty"`
	ExternalEventID    *string `db:"external_event_id" json:"external_event_id,omitempty"`
	IsEditable         bool    `db:"is_editable" json:"is_editable"`
	RecurringEventID   *string `db:"recurring_event_id" json:"recurring_event_id,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// Mirrored reports whether the event is linked to a remote event.
func (e *Event) Mirrored() bool {
	return e.ExternalProvider != nil && *e.ExternalProvider != "" &&
		e.ExternalCalendarID != nil && *e.ExternalCalendarID != "" &&
		e.ExternalEventID != nil && *e.ExternalEventID != ""
}
