package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calsync-api/core/database"
	"calsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

const externalCalendarColumns = `
	id, connection_id, remote_calendar_id, calendar_id, name, color,
	sync_token, channel_id, channel_secret, resource_id, channel_expires_at,
	last_sync_error, last_run_id, created_at, updated_at
`

type ExternalCalendarRepository interface {
	Create(ctx context.Context, ext *entity.ExternalCalendar) (*entity.ExternalCalendar, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExternalCalendar, error)
	GetByConnectionAndRemoteID(ctx context.Context, connectionID uuid.UUID, remoteCalendarID string) (*entity.ExternalCalendar, error)
	GetByChannelID(ctx context.Context, channelID string) (*entity.ExternalCalendar, error)
	GetByLocalCalendarID(ctx context.Context, calendarID uuid.UUID) (*entity.ExternalCalendar, error)
	ListAll(ctx context.Context) ([]entity.ExternalCalendar, error)
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]entity.ExternalCalendar, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.ExternalCalendar, error)
	UpdateNameColor(ctx context.Context, id uuid.UUID, name, color string) error
	SetSyncToken(ctx context.Context, id uuid.UUID, token string) error
	SetChannel(ctx context.Context, id uuid.UUID, channelID, secret, resourceID string, expiresAt time.Time) error
	MarkRunStarted(ctx context.Context, id uuid.UUID, runID string) error
	MarkRunFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type externalCalendarRepository struct {
	db database.IDatabase
}

func NewExternalCalendarRepository(db database.IDatabase) ExternalCalendarRepository {
	return &externalCalendarRepository{db: db}
}

func (r *externalCalendarRepository) Create(ctx context.Context, ext *entity.ExternalCalendar) (*entity.ExternalCalendar, error) {
	query := `
		INSERT INTO external_calendars (connection_id, remote_calendar_id, calendar_id, name, color, sync_token)
		VALUES ($1, $2, $3, $4, $5, '')
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ext.ConnectionID, ext.RemoteCalendarID, ext.CalendarID, ext.Name, ext.Color,
	).Scan(&ext.ID, &ext.CreatedAt, &ext.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

func (r *externalCalendarRepository) getOne(ctx context.Context, where string, args ...any) (*entity.ExternalCalendar, error) {
	query := `SELECT ` + externalCalendarColumns + ` FROM external_calendars WHERE ` + where
	var ext entity.ExternalCalendar
	err := r.db.GetContext(ctx, &ext, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

func (r *externalCalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ExternalCalendar, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *externalCalendarRepository) GetByConnectionAndRemoteID(ctx context.Context, connectionID uuid.UUID, remoteCalendarID string) (*entity.ExternalCalendar, error) {
	return r.getOne(ctx, `connection_id = $1 AND remote_calendar_id = $2`, connectionID, remoteCalendarID)
}

func (r *externalCalendarRepository) GetByChannelID(ctx context.Context, channelID string) (*entity.ExternalCalendar, error) {
	return r.getOne(ctx, `channel_id = $1`, channelID)
}

func (r *externalCalendarRepository) GetByLocalCalendarID(ctx context.Context, calendarID uuid.UUID) (*entity.ExternalCalendar, error) {
	return r.getOne(ctx, `calendar_id = $1`, calendarID)
}

func (r *externalCalendarRepository) ListAll(ctx context.Context) ([]entity.ExternalCalendar, error) {
	query := `SELECT ` + externalCalendarColumns + ` FROM external_calendars ORDER BY created_at`
	var rows []entity.ExternalCalendar
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *externalCalendarRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]entity.ExternalCalendar, error) {
	query := `SELECT ` + externalCalendarColumns + ` FROM external_calendars WHERE connection_id = $1 ORDER BY created_at`
	var rows []entity.ExternalCalendar
	if err := r.db.SelectContext(ctx, &rows, query, connectionID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *externalCalendarRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.ExternalCalendar, error) {
	query := `
		SELECT ec.id, ec.connection_id, ec.remote_calendar_id, ec.calendar_id, ec.name, ec.color,
			ec.sync_token, ec.channel_id, ec.channel_secret, ec.resource_id, ec.channel_expires_at,
			ec.last_sync_error, ec.last_run_id, ec.created_at, ec.updated_at
		FROM external_calendars ec
		JOIN connections c ON c.id = ec.connection_id
		WHERE c.user_id = $1
		ORDER BY ec.created_at
	`
	var rows []entity.ExternalCalendar
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *externalCalendarRepository) UpdateNameColor(ctx context.Context, id uuid.UUID, name, color string) error {
	query := `UPDATE external_calendars SET name = $1, color = $2, updated_at = NOW() WHERE id = $3`
	return r.db.ExecContext(ctx, query, name, color, id)
}

func (r *externalCalendarRepository) SetSyncToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE external_calendars SET sync_token = $1, updated_at = NOW() WHERE id = $2`
	return r.db.ExecContext(ctx, query, token, id)
}

func (r *externalCalendarRepository) SetChannel(ctx context.Context, id uuid.UUID, channelID, secret, resourceID string, expiresAt time.Time) error {
	query := `
		UPDATE external_calendars
		SET channel_id = $1, channel_secret = $2, resource_id = $3, channel_expires_at = $4, updated_at = NOW()
		WHERE id = $5
	`
	return r.db.ExecContext(ctx, query, channelID, secret, resourceID, expiresAt, id)
}

// MarkRunStarted records the new orchestrator run and clears the previous
// failure so a stale error never outlives the run that fixed it.
func (r *externalCalendarRepository) MarkRunStarted(ctx context.Context, id uuid.UUID, runID string) error {
	query := `
		UPDATE external_calendars
		SET last_run_id = $1, last_sync_error = NULL, updated_at = NOW()
		WHERE id = $2
	`
	return r.db.ExecContext(ctx, query, runID, id)
}

func (r *externalCalendarRepository) MarkRunFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE external_calendars SET last_sync_error = $1, updated_at = NOW() WHERE id = $2`
	return r.db.ExecContext(ctx, query, reason, id)
}
