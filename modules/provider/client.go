package provider

import (
	"context"
	"time"

	"calsync-api/core/errors"
)

// Provider tags.
const (
	Google  = "google"
	Tracker = "tracker"
)

// Token is a provider-issued OAuth token pair.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// RemoteCalendar is one calendar as listed by the provider.
type RemoteCalendar struct {
	ID      string
	Name    string
	Color   string
	Primary bool
}

// RemoteEventTime carries either a timed instant or an all-day date,
// mirroring the provider's start/end shape.
type RemoteEventTime struct {
	DateTime string // RFC3339, empty for all-day events
	Date     string // YYYY-MM-DD, set only for all-day events
	TimeZone string
}

// Remote event statuses.
const (
	EventStatusConfirmed = "confirmed"
	EventStatusTentative = "tentative"
	EventStatusCancelled = "cancelled"
)

// RemoteEvent is the provider-agnostic event shape the sync engines work on.
type RemoteEvent struct {
	ID               string
	Summary          string
	Description      string
	Location         string
	Status           string
	Start            RemoteEventTime
	End              RemoteEventTime
	RecurringEventID string
	CreatorEmail     string
	CreatorSelf      bool
	OrganizerEmail   string
	OrganizerSelf    bool
	GuestsCanModify  bool
}

// ListEventsQuery selects incremental mode (SyncToken set) or a full fetch
// bounded by TimeMin. PageToken continues a paginated listing.
type ListEventsQuery struct {
	SyncToken string
	TimeMin   time.Time
	PageToken string
}

// ListEventsPage is one page of a listing. NextSyncToken is only present on
// the final page, and some providers omit it entirely for large result sets.
type ListEventsPage struct {
	Items         []RemoteEvent
	NextPageToken string
	NextSyncToken string
}

// WatchRequest asks the provider to push change notifications to Address.
type WatchRequest struct {
	ChannelID string
	Secret    string
	Address   string
	Expiry    time.Time
}

// WatchResult is the provider's acknowledgement of a watch subscription.
type WatchResult struct {
	ResourceID string
	Expiry     time.Time
}

// Client is the network boundary to one external provider. Implementations
// return AppError codes the sync engines dispatch on: ErrCursorExpired when
// the sync token is rejected, ErrNotFound for missing events.
type Client interface {
	AuthCodeURL(state string) string
	ExchangeAuthCode(ctx context.Context, code string) (*Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	ListCalendars(ctx context.Context, accessToken string) ([]RemoteCalendar, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, q ListEventsQuery) (*ListEventsPage, error)
	InsertEvent(ctx context.Context, accessToken, calendarID string, ev *RemoteEvent) (*RemoteEvent, error)
	PatchEvent(ctx context.Context, accessToken, calendarID, eventID string, ev *RemoteEvent, originalStart *RemoteEventTime) (*RemoteEvent, error)
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
	CreateWatch(ctx context.Context, accessToken, calendarID string, w WatchRequest) (*WatchResult, error)
}

// IsCursorExpired reports the distinguished "cursor gone" signal.
func IsCursorExpired(err error) bool {
	return errors.HasCode(err, errors.ErrCursorExpired)
}

// IsNotFound reports a missing remote resource, which delete paths treat as
// success.
func IsNotFound(err error) bool {
	return errors.HasCode(err, errors.ErrNotFound)
}
