package dto

import "time"

type ConnectURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type ConnectCallbackResponse struct {
	ConnectionID string `json:"connection_id"`
}

type ConnectionResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ConnectedAt time.Time `json:"connected_at"`
}

type ConnectionListResponse struct {
	Connections []ConnectionResponse `json:"connections"`
}

type ProfileResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	DisplayName       string `json:"display_name"`
	SyncHorizonMonths int    `json:"sync_horizon_months"`
}

type UpdateSyncHorizonRequest struct {
	Months int `json:"months"`
}
