package dto

import "time"

type CreateEventRequest struct {
	CalendarID  string    `json:"calendar_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AllDay      bool      `json:"all_day"`
	TimeZone    string    `json:"time_zone"`
	Kind        string    `json:"kind"`
}

// UpdateEventRequest carries the new event state plus the scope of the edit
// for recurring series: "this" patches the single occurrence, "all" (the
// default) the whole series.
type UpdateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AllDay      bool      `json:"all_day"`
	TimeZone    string    `json:"time_zone"`
	EditScope   string    `json:"edit_scope"`
}

type ConvertKindRequest struct {
	Kind string `json:"kind"`
}

type EventResponse struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendar_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AllDay      bool      `json:"all_day"`
	TimeZone    string    `json:"time_zone"`
	Status      string    `json:"status"`
	Kind        string    `json:"kind"`
	Mirrored    bool      `json:"mirrored"`
	IsEditable  bool      `json:"is_editable"`
	Provider    string    `json:"provider,omitempty"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
}
