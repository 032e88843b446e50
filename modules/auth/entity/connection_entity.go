package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"calsync-api/core/entity"

	"github.com/google/uuid"
)

// ConnectionMetadata holds arbitrary provider-specific details, e.g. the
// organization name a tracker connection belongs to. Stored as JSONB.
type ConnectionMetadata map[string]string

func (m ConnectionMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *ConnectionMetadata) Scan(src any) error {
	if src == nil {
		*m = ConnectionMetadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// Connection stores the OAuth credentials for one (user, provider) pair.
// At most one row exists per pair.
type Connection struct {
	entity.BaseEntity
	UserID         uuid.UUID          `db:"user_id" json:"user_id"`
	Provider       string             `db:"provider" json:"provider"`
	RefreshToken   string             `db:"refresh_token" json:"-"`
	AccessToken    *string            `db:"access_token" json:"-"`
	TokenExpiresAt *time.Time         `db:"token_expires_at" json:"token_expires_at,omitempty"`
	Metadata       ConnectionMetadata `db:"metadata" json:"metadata,omitempty"`
}

func (Connection) TableName() string {
	return "connections"
}
