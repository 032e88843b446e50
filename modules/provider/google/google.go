package google

import (
	"context"
	"net/http"
	"time"

	"calsync-api/core/config"
	"calsync-api/core/errors"
	"calsync-api/core/logger"
	"calsync-api/modules/provider"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var oauthScopes = []string{
	calendar.CalendarScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

// Client implements provider.Client against the Google Calendar API.
type Client struct {
	oauth *oauth2.Config
}

func NewClient(cfg config.ProviderOAuthConfig) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       oauthScopes,
			Endpoint:     oauthgoogle.Endpoint,
		},
	}
}

// AuthCodeURL builds the consent URL for the connect flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (c *Client) ExchangeAuthCode(ctx context.Context, code string) (*provider.Token, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		logger.Error("GoogleClient:ExchangeAuthCode:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "auth code exchange failed", err)
	}
	return &provider.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*provider.Token, error) {
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		logger.Error("GoogleClient:RefreshToken:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrTokenRefreshFailed, "provider rejected refresh token", err)
	}
	return &provider.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create calendar service", err)
	}
	return svc, nil
}

func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]provider.RemoteCalendar, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var calendars []provider.RemoteCalendar
	pageToken := ""
	for {
		call := svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, mapGoogleError("list calendars", err)
		}
		for _, item := range list.Items {
			calendars = append(calendars, provider.RemoteCalendar{
				ID:      item.Id,
				Name:    item.Summary,
				Color:   item.BackgroundColor,
				Primary: item.Primary,
			})
		}
		if list.NextPageToken == "" {
			return calendars, nil
		}
		pageToken = list.NextPageToken
	}
}

func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID string, q provider.ListEventsQuery) (*provider.ListEventsPage, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(calendarID).Context(ctx).ShowDeleted(true)
	if q.SyncToken != "" {
		call = call.SyncToken(q.SyncToken)
	} else if !q.TimeMin.IsZero() {
		call = call.TimeMin(q.TimeMin.Format(time.RFC3339))
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	result, err := call.Do()
	if err != nil {
		return nil, mapGoogleError("list events", err)
	}

	page := &provider.ListEventsPage{
		NextPageToken: result.NextPageToken,
		NextSyncToken: result.NextSyncToken,
	}
	for _, item := range result.Items {
		page.Items = append(page.Items, fromGoogleEvent(item))
	}
	return page, nil
}

func (c *Client) InsertEvent(ctx context.Context, accessToken, calendarID string, ev *provider.RemoteEvent) (*provider.RemoteEvent, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(calendarID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError("insert event", err)
	}
	result := fromGoogleEvent(created)
	return &result, nil
}

func (c *Client) PatchEvent(ctx context.Context, accessToken, calendarID, eventID string, ev *provider.RemoteEvent, originalStart *provider.RemoteEventTime) (*provider.RemoteEvent, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	targetID := eventID
	if originalStart != nil && ev.RecurringEventID != "" {
		// Single-occurrence edit: resolve the instance by its original,
		// pre-edit start so the provider patches the right occurrence.
		instanceID, err := c.resolveInstanceID(ctx, svc, calendarID, ev.RecurringEventID, originalStart)
		if err != nil {
			return nil, err
		}
		targetID = instanceID
	}

	patched, err := svc.Events.Patch(calendarID, targetID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError("patch event", err)
	}
	result := fromGoogleEvent(patched)
	return &result, nil
}

func (c *Client) resolveInstanceID(ctx context.Context, svc *calendar.Service, calendarID, recurringEventID string, originalStart *provider.RemoteEventTime) (string, error) {
	call := svc.Events.Instances(calendarID, recurringEventID).Context(ctx)
	if originalStart.DateTime != "" {
		call = call.OriginalStart(originalStart.DateTime)
	} else {
		call = call.OriginalStart(originalStart.Date)
	}

	instances, err := call.Do()
	if err != nil {
		return "", mapGoogleError("resolve instance", err)
	}
	if len(instances.Items) == 0 {
		return "", errors.NewAppError(errors.ErrNotFound, "recurring instance not found", nil)
	}
	return instances.Items[0].Id, nil
}

func (c *Client) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapGoogleError("delete event", err)
	}
	return nil
}

func (c *Client) CreateWatch(ctx context.Context, accessToken, calendarID string, w provider.WatchRequest) (*provider.WatchResult, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	channel := &calendar.Channel{
		Id:         w.ChannelID,
		Type:       "web_hook",
		Address:    w.Address,
		Token:      w.Secret,
		Expiration: w.Expiry.UnixMilli(),
	}

	created, err := svc.Events.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError("create watch", err)
	}

	return &provider.WatchResult{
		ResourceID: created.ResourceId,
		Expiry:     time.UnixMilli(created.Expiration),
	}, nil
}

// mapGoogleError translates googleapi failures into the AppError codes the
// sync engines dispatch on. 410 on a listing means the sync token is gone.
func mapGoogleError(op string, err error) error {
	if gerr, ok := err.(*googleapi.Error); ok {
		switch gerr.Code {
		case http.StatusGone:
			return errors.NewAppError(errors.ErrCursorExpired, op+": sync token expired", err)
		case http.StatusNotFound:
			return errors.NewAppError(errors.ErrNotFound, op+": not found", err)
		case http.StatusUnauthorized:
			return errors.NewAppError(errors.ErrUnauthorized, op+": unauthorized", err)
		}
	}
	return errors.NewAppError(errors.ErrInternalServer, op+" failed", err)
}

func fromGoogleEvent(item *calendar.Event) provider.RemoteEvent {
	ev := provider.RemoteEvent{
		ID:               item.Id,
		Summary:          item.Summary,
		Description:      item.Description,
		Location:         item.Location,
		Status:           item.Status,
		RecurringEventID: item.RecurringEventId,
		GuestsCanModify:  item.GuestsCanModify,
	}
	if item.Start != nil {
		ev.Start = provider.RemoteEventTime{
			DateTime: item.Start.DateTime,
			Date:     item.Start.Date,
			TimeZone: item.Start.TimeZone,
		}
	}
	if item.End != nil {
		ev.End = provider.RemoteEventTime{
			DateTime: item.End.DateTime,
			Date:     item.End.Date,
			TimeZone: item.End.TimeZone,
		}
	}
	if item.Creator != nil {
		ev.CreatorEmail = item.Creator.Email
		ev.CreatorSelf = item.Creator.Self
	}
	if item.Organizer != nil {
		ev.OrganizerEmail = item.Organizer.Email
		ev.OrganizerSelf = item.Organizer.Self
	}
	return ev
}

func toGoogleEvent(ev *provider.RemoteEvent) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status,
	}
	out.Start = &calendar.EventDateTime{
		DateTime: ev.Start.DateTime,
		Date:     ev.Start.Date,
		TimeZone: ev.Start.TimeZone,
	}
	out.End = &calendar.EventDateTime{
		DateTime: ev.End.DateTime,
		Date:     ev.End.Date,
		TimeZone: ev.End.TimeZone,
	}
	return out
}
