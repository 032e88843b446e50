// Package tracker adapts a task-tracker API onto the provider.Client shape:
// projects are listed as calendars and tasks with due times as events.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"calsync-api/core/config"
	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/modules/provider"
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

func NewClient(cfg config.TrackerConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: constants.ProviderAPITimeout},
	}
}

// AuthCodeURL builds the tracker's consent URL for the connect flow.
func (c *Client) AuthCodeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("response_type", "code")
	params.Set("state", state)
	return c.baseURL + "/oauth/authorize?" + params.Encode()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
}

func (c *Client) ExchangeAuthCode(ctx context.Context, code string) (*provider.Token, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	})
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*provider.Token, error) {
	token, err := c.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrTokenRefreshFailed, "tracker rejected refresh token", err)
	}
	return token, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*provider.Token, error) {
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/oauth/token",
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Error != "" || result.AccessToken == "" {
		return nil, fmt.Errorf("tracker token error: %s", result.Error)
	}

	return &provider.Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

type trackerProject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type trackerTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	DueAt     string `json:"due_at"`   // RFC3339
	DueDate   string `json:"due_date"` // YYYY-MM-DD, all-day tasks
	Deleted   bool   `json:"deleted"`
	CreatedBy string `json:"created_by"`
	Mine      bool   `json:"mine"`
}

type taskListResponse struct {
	Items      []trackerTask `json:"items"`
	NextPage   string        `json:"next_page"`
	NextCursor string        `json:"next_cursor"`
}

func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]provider.RemoteCalendar, error) {
	var result struct {
		Items []trackerProject `json:"items"`
	}
	if err := c.get(ctx, accessToken, "/projects", nil, &result); err != nil {
		return nil, err
	}

	var calendars []provider.RemoteCalendar
	for _, p := range result.Items {
		calendars = append(calendars, provider.RemoteCalendar{
			ID:    p.ID,
			Name:  p.Name,
			Color: p.Color,
		})
	}
	return calendars, nil
}

func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID string, q provider.ListEventsQuery) (*provider.ListEventsPage, error) {
	params := url.Values{}
	if q.SyncToken != "" {
		params.Set("cursor", q.SyncToken)
	} else if !q.TimeMin.IsZero() {
		params.Set("due_after", q.TimeMin.Format(time.RFC3339))
	}
	if q.PageToken != "" {
		params.Set("page", q.PageToken)
	}

	var result taskListResponse
	if err := c.get(ctx, accessToken, "/projects/"+calendarID+"/tasks", params, &result); err != nil {
		return nil, err
	}

	page := &provider.ListEventsPage{
		NextPageToken: result.NextPage,
		NextSyncToken: result.NextCursor,
	}
	for _, t := range result.Items {
		page.Items = append(page.Items, fromTrackerTask(t))
	}
	return page, nil
}

func (c *Client) InsertEvent(ctx context.Context, accessToken, calendarID string, ev *provider.RemoteEvent) (*provider.RemoteEvent, error) {
	var created trackerTask
	if err := c.do(ctx, accessToken, "POST", "/projects/"+calendarID+"/tasks", toTrackerTask(ev), &created); err != nil {
		return nil, err
	}
	result := fromTrackerTask(created)
	return &result, nil
}

func (c *Client) PatchEvent(ctx context.Context, accessToken, calendarID, eventID string, ev *provider.RemoteEvent, originalStart *provider.RemoteEventTime) (*provider.RemoteEvent, error) {
	// Task trackers have no recurring series; originalStart is accepted for
	// interface parity and ignored.
	var patched trackerTask
	if err := c.do(ctx, accessToken, "PATCH", "/projects/"+calendarID+"/tasks/"+eventID, toTrackerTask(ev), &patched); err != nil {
		return nil, err
	}
	result := fromTrackerTask(patched)
	return &result, nil
}

func (c *Client) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	return c.do(ctx, accessToken, "DELETE", "/projects/"+calendarID+"/tasks/"+eventID, nil, nil)
}

func (c *Client) CreateWatch(ctx context.Context, accessToken, calendarID string, w provider.WatchRequest) (*provider.WatchResult, error) {
	body := map[string]any{
		"channel_id": w.ChannelID,
		"secret":     w.Secret,
		"url":        w.Address,
		"expires_at": w.Expiry.Format(time.RFC3339),
	}

	var result struct {
		ResourceID string `json:"resource_id"`
		ExpiresAt  string `json:"expires_at"`
	}
	if err := c.do(ctx, accessToken, "POST", "/projects/"+calendarID+"/webhooks", body, &result); err != nil {
		return nil, err
	}

	expiry, err := time.Parse(time.RFC3339, result.ExpiresAt)
	if err != nil {
		expiry = w.Expiry
	}
	return &provider.WatchResult{ResourceID: result.ResourceID, Expiry: expiry}, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values, dest any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	return c.doRaw(ctx, accessToken, "GET", fullURL, nil, dest)
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	return c.doRaw(ctx, accessToken, method, c.baseURL+path, reader, dest)
}

func (c *Client) doRaw(ctx context.Context, accessToken, method, fullURL string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("TrackerClient:Request:Error", "method", method, "url", fullURL, "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "tracker request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		return errors.NewAppError(errors.ErrCursorExpired, "tracker cursor expired", nil)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewAppError(errors.ErrNotFound, "tracker resource not found", nil)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		logger.Error("TrackerClient:APIError", "status", resp.StatusCode, "body", string(data))
		return errors.NewAppError(errors.ErrInternalServer,
			fmt.Sprintf("tracker API error: %d", resp.StatusCode), nil)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to parse tracker response", err)
	}
	return nil
}

func fromTrackerTask(t trackerTask) provider.RemoteEvent {
	ev := provider.RemoteEvent{
		ID:           t.ID,
		Summary:      t.Title,
		Description:  t.Notes,
		Status:       provider.EventStatusConfirmed,
		CreatorEmail: t.CreatedBy,
		CreatorSelf:  t.Mine,
	}
	if t.Deleted {
		ev.Status = provider.EventStatusCancelled
	}
	if t.DueAt != "" {
		ev.Start.DateTime = t.DueAt
		ev.End.DateTime = t.DueAt
	} else if t.DueDate != "" {
		ev.Start.Date = t.DueDate
		ev.End.Date = t.DueDate
	}
	return ev
}

func toTrackerTask(ev *provider.RemoteEvent) trackerTask {
	return trackerTask{
		Title:   ev.Summary,
		Notes:   ev.Description,
		DueAt:   ev.Start.DateTime,
		DueDate: ev.Start.Date,
	}
}
