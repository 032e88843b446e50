package entity

import (
	"calsync-api/core/entity"
)

// User is the minimal identity row the sync engine needs; authentication
// itself lives elsewhere.
type User struct {
	entity.BaseEntity
	Email             string `db:"email" json:"email"`
	DisplayName       string `db:"display_name" json:"display_name"`
	SyncHorizonMonths int    `db:"sync_horizon_months" json:"sync_horizon_months"`
}
