package repository

import (
	"context"
	"database/sql"
	"errors"

	"calsync-api/core/database"
	"calsync-api/modules/event/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const eventColumns = `
	id, calendar_id, title, description, location, starts_at, ends_at,
	all_day, time_zone, status, kind, external_provider, external_calendar_id,
	external_event_id, is_editable, recurring_event_id, created_at, updated_at
`

type EventRepository interface {
	Create(ctx context.Context, ev *entity.Event) (*entity.Event, error)
	Update(ctx context.Context, ev *entity.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	GetByRemoteKey(ctx context.Context, provider, remoteCalendarID, remoteEventID string) (*entity.Event, error)
	ListByCalendar(ctx context.Context, calendarID uuid.UUID) ([]entity.Event, error)

	// Inbound batch reconciliation, one transaction per batch.
	UpsertBatchByRemoteKey(ctx context.Context, events []entity.Event) error
	DeleteBatchByRemoteKey(ctx context.Context, provider, remoteCalendarID string, remoteEventIDs []string) error

	// Mirroring maintenance.
	SetMirror(ctx context.Context, id uuid.UUID, provider, remoteCalendarID, remoteEventID string, editable bool) error
	ClearMirror(ctx context.Context, id uuid.UUID) error
	SetKind(ctx context.Context, id uuid.UUID, kind string) error
	DeleteMirroredByRemoteCalendar(ctx context.Context, provider, remoteCalendarID string) error
	ClearMirrorByRemoteCalendar(ctx context.Context, provider, remoteCalendarID string) error
}

type eventRepository struct {
	db database.IDatabase
}

func NewEventRepository(db database.IDatabase) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, ev *entity.Event) (*entity.Event, error) {
	query := `
		INSERT INTO events (calendar_id, title, description, location, starts_at, ends_at,
			all_day, time_zone, status, kind, external_provider, external_calendar_id,
			external_event_id, is_editable, recurring_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ev.CalendarID, ev.Title, ev.Description, ev.Location, ev.StartsAt, ev.EndsAt,
		ev.AllDay, ev.TimeZone, ev.Status, ev.Kind, ev.ExternalProvider, ev.ExternalCalendarID,
		ev.ExternalEventID, ev.IsEditable, ev.RecurringEventID,
	).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *eventRepository) Update(ctx context.Context, ev *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, starts_at = $4, ends_at = $5,
			all_day = $6, time_zone = $7, status = $8, updated_at = NOW()
		WHERE id = $9
	`
	return r.db.ExecContext(ctx, query,
		ev.Title, ev.Description, ev.Location, ev.StartsAt, ev.EndsAt,
		ev.AllDay, ev.TimeZone, ev.Status, ev.ID,
	)
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var ev entity.Event
	err := r.db.GetContext(ctx, &ev, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepository) GetByRemoteKey(ctx context.Context, provider, remoteCalendarID, remoteEventID string) (*entity.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE external_provider = $1 AND external_calendar_id = $2 AND external_event_id = $3
	`
	var ev entity.Event
	err := r.db.GetContext(ctx, &ev, query, provider, remoteCalendarID, remoteEventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepository) ListByCalendar(ctx context.Context, calendarID uuid.UUID) ([]entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE calendar_id = $1 ORDER BY starts_at`
	var events []entity.Event
	if err := r.db.SelectContext(ctx, &events, query, calendarID); err != nil {
		return nil, err
	}
	return events, nil
}

// UpsertBatchByRemoteKey applies one inbound batch in a single transaction,
// keyed on the unique (provider, remote calendar, remote event) triple so
// replayed pages patch instead of duplicating.
func (r *eventRepository) UpsertBatchByRemoteKey(ctx context.Context, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO events (calendar_id, title, description, location, starts_at, ends_at,
			all_day, time_zone, status, kind, external_provider, external_calendar_id,
			external_event_id, is_editable, recurring_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (external_provider, external_calendar_id, external_event_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			all_day = EXCLUDED.all_day,
			time_zone = EXCLUDED.time_zone,
			status = EXCLUDED.status,
			is_editable = EXCLUDED.is_editable,
			recurring_event_id = EXCLUDED.recurring_event_id,
			updated_at = NOW()
	`
	return r.db.WithinTransaction(ctx, func(tx *sqlx.Tx) error {
		for i := range events {
			ev := &events[i]
			_, err := tx.ExecContext(ctx, query,
				ev.CalendarID, ev.Title, ev.Description, ev.Location, ev.StartsAt, ev.EndsAt,
				ev.AllDay, ev.TimeZone, ev.Status, ev.Kind, ev.ExternalProvider, ev.ExternalCalendarID,
				ev.ExternalEventID, ev.IsEditable, ev.RecurringEventID,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBatchByRemoteKey removes locally whatever the provider reported as
// cancelled. Missing rows are a silent no-op.
func (r *eventRepository) DeleteBatchByRemoteKey(ctx context.Context, provider, remoteCalendarID string, remoteEventIDs []string) error {
	if len(remoteEventIDs) == 0 {
		return nil
	}
	query := `
		DELETE FROM events
		WHERE external_provider = $1 AND external_calendar_id = $2 AND external_event_id = ANY($3)
	`
	return r.db.ExecContext(ctx, query, provider, remoteCalendarID, pq.Array(remoteEventIDs))
}

func (r *eventRepository) SetMirror(ctx context.Context, id uuid.UUID, provider, remoteCalendarID, remoteEventID string, editable bool) error {
	query := `
		UPDATE events
		SET external_provider = $1, external_calendar_id = $2, external_event_id = $3,
			is_editable = $4, updated_at = NOW()
		WHERE id = $5
	`
	return r.db.ExecContext(ctx, query, provider, remoteCalendarID, remoteEventID, editable, id)
}

func (r *eventRepository) ClearMirror(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET external_provider = NULL, external_calendar_id = NULL, external_event_id = NULL,
			is_editable = FALSE, recurring_event_id = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.db.ExecContext(ctx, query, id)
}

func (r *eventRepository) SetKind(ctx context.Context, id uuid.UUID, kind string) error {
	return r.db.ExecContext(ctx, `UPDATE events SET kind = $1, updated_at = NOW() WHERE id = $2`, kind, id)
}

func (r *eventRepository) DeleteMirroredByRemoteCalendar(ctx context.Context, provider, remoteCalendarID string) error {
	query := `DELETE FROM events WHERE external_provider = $1 AND external_calendar_id = $2`
	return r.db.ExecContext(ctx, query, provider, remoteCalendarID)
}

// ClearMirrorByRemoteCalendar unlinks mirrored events instead of deleting
// them, leaving plain local events behind.
func (r *eventRepository) ClearMirrorByRemoteCalendar(ctx context.Context, provider, remoteCalendarID string) error {
	query := `
		UPDATE events
		SET external_provider = NULL, external_calendar_id = NULL, external_event_id = NULL,
			is_editable = FALSE, recurring_event_id = NULL, updated_at = NOW()
		WHERE external_provider = $1 AND external_calendar_id = $2
	`
	return r.db.ExecContext(ctx, query, provider, remoteCalendarID)
}
