package jobs

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TypeLinkClick = "LINK_CLICK"

	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	PageID string `gorm:"type:text;index;not null"`

	Type    string         `gorm:"type:text;not null"` // LINK_CLICK
	Payload datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

type clickPayload struct {
	PageID string `json:"pageId"`
	LinkID string `json:"linkId"`
}
