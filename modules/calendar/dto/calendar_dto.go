package dto

// ExternalCalendarResponse describes one remote-to-local calendar mapping.
type ExternalCalendarResponse struct {
	ID               string `json:"id"`
	RemoteCalendarID string `json:"remote_calendar_id"`
	CalendarID       string `json:"calendar_id"`
	Name             string `json:"name"`
	Color            string `json:"color,omitempty"`
	WatchActive      bool   `json:"watch_active"`
	ChannelExpiresAt string `json:"channel_expires_at,omitempty"`
	LastSyncError    string `json:"last_sync_error,omitempty"`
}

// ExternalCalendarListResponse wraps the per-user mapping listing.
type ExternalCalendarListResponse struct {
	Calendars []ExternalCalendarResponse `json:"calendars"`
}

type CalendarResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color,omitempty"`
}

type CalendarListResponse struct {
	Calendars []CalendarResponse `json:"calendars"`
}
