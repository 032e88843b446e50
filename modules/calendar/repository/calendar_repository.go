package repository

import (
	"context"
	"database/sql"
	"errors"

	"calsync-api/core/database"
	"calsync-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type CalendarRepository interface {
	Create(ctx context.Context, cal *entity.Calendar) (*entity.Calendar, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Calendar, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Calendar, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type calendarRepository struct {
	db database.IDatabase
}

func NewCalendarRepository(db database.IDatabase) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) Create(ctx context.Context, cal *entity.Calendar) (*entity.Calendar, error) {
	query := `
		INSERT INTO calendars (user_id, name, slug, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, cal.UserID, cal.Name, cal.Slug, cal.Color).
		Scan(&cal.ID, &cal.CreatedAt, &cal.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return cal, nil
}

func (r *calendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Calendar, error) {
	query := `
		SELECT id, user_id, name, slug, color, created_at, updated_at
		FROM calendars
		WHERE id = $1
	`
	var cal entity.Calendar
	err := r.db.GetContext(ctx, &cal, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

func (r *calendarRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Calendar, error) {
	query := `
		SELECT id, user_id, name, slug, color, created_at, updated_at
		FROM calendars
		WHERE user_id = $1
		ORDER BY created_at
	`
	var calendars []entity.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query, userID); err != nil {
		return nil, err
	}
	return calendars, nil
}

func (r *calendarRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id)
}
