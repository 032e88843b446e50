package entity

import (
	"calsync-api/core/entity"

	"github.com/google/uuid"
)

// Calendar is a local calendar. Mirrored calendars are created automatically
// when a remote calendar is first discovered.
type Calendar struct {
	entity.BaseEntity
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Name   string    `db:"name" json:"name"`
	Slug   string    `db:"slug" json:"slug"`
	Color  string    `db:"color" json:"color"`
}

func (Calendar) TableName() string {
	return "calendars"
}
