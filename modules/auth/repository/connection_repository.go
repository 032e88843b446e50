package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calsync-api/core/database"
	"calsync-api/modules/auth/entity"

	"github.com/google/uuid"
)

type ConnectionRepository interface {
	Create(ctx context.Context, conn *entity.Connection) (*entity.Connection, error)
	Update(ctx context.Context, conn *entity.Connection) error
	UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiresAt time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error)
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.Connection, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Connection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type connectionRepository struct {
	db database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *entity.Connection) (*entity.Connection, error) {
	query := `
		INSERT INTO connections (user_id, provider, refresh_token, access_token, token_expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		conn.UserID, conn.Provider, conn.RefreshToken, conn.AccessToken,
		conn.TokenExpiresAt, conn.Metadata,
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)

	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *connectionRepository) Update(ctx context.Context, conn *entity.Connection) error {
	query := `
		UPDATE connections
		SET refresh_token = $1, access_token = $2, token_expires_at = $3, metadata = $4, updated_at = NOW()
		WHERE id = $5
	`
	return r.db.ExecContext(ctx, query,
		conn.RefreshToken, conn.AccessToken, conn.TokenExpiresAt, conn.Metadata, conn.ID,
	)
}

func (r *connectionRepository) UpdateToken(ctx context.Context, id uuid.UUID, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE connections
		SET access_token = $1, token_expires_at = $2, updated_at = NOW()
		WHERE id = $3
	`
	return r.db.ExecContext(ctx, query, accessToken, expiresAt, id)
}

func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Connection, error) {
	query := `
		SELECT id, user_id, provider, refresh_token, access_token, token_expires_at, metadata, created_at, updated_at
		FROM connections
		WHERE id = $1
	`
	var conn entity.Connection
	err := r.db.GetContext(ctx, &conn, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.Connection, error) {
	query := `
		SELECT id, user_id, provider, refresh_token, access_token, token_expires_at, metadata, created_at, updated_at
		FROM connections
		WHERE user_id = $1 AND provider = $2
	`
	var conn entity.Connection
	err := r.db.GetContext(ctx, &conn, query, userID, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Connection, error) {
	query := `
		SELECT id, user_id, provider, refresh_token, access_token, token_expires_at, metadata, created_at, updated_at
		FROM connections
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var connections []entity.Connection
	if err := r.db.SelectContext(ctx, &connections, query, userID); err != nil {
		return nil, err
	}
	return connections, nil
}

// Delete removes the connection; external_calendars rows cascade in the
// schema.
func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, id)
}
